package graph

import (
	"fmt"
	"iter"

	"github.com/google/uuid"

	"github.com/helix-kernel/helix/internal/ids"
	"github.com/helix-kernel/helix/internal/kernelerrors"
	"github.com/helix-kernel/helix/internal/storage"
	"github.com/helix-kernel/helix/internal/value"
	"github.com/helix-kernel/helix/internal/vector"
)

// Store performs node/edge CRUD and adjacency/secondary-index
// maintenance against a single storage transaction. Callers obtain one
// per transaction from Engine.WithRead/WithWrite and discard it at scope
// exit; it never outlives its transaction.
type Store struct {
	tx     *storage.Tx
	schema *Schema
	cache  *NodeCache
}

// New scopes a Store to tx, validating writes against schema.
func New(tx *storage.Tx, schema *Schema) *Store {
	return &Store{tx: tx, schema: schema}
}

// NewCached scopes a Store to tx like New, additionally consulting and
// populating cache on GetNode, so repeated lookups of the same node
// across a traversal (or across transactions, since cache outlives
// any one of them) skip the bbolt decode. cache may be nil, in which
// case this behaves exactly like New.
func NewCached(tx *storage.Tx, schema *Schema, cache *NodeCache) *Store {
	return &Store{tx: tx, schema: schema, cache: cache}
}

// AddNode validates props against label's schema, applies DEFAULTs,
// checks every UNIQUE INDEX property for a conflict, assigns a
// time-ordered ID, writes the node record, and updates every declared
// secondary index.
func (s *Store) AddNode(label string, props map[string]value.Value) (uuid.UUID, error) {
	def, ok := s.schema.Node(label)
	if !ok {
		return uuid.UUID{}, kernelerrors.SchemaViolation(fmt.Sprintf("node label %q is not registered", label))
	}
	props = applyDefaults(def.Properties, props)
	if err := validateTypes(label, def.Properties, props); err != nil {
		return uuid.UUID{}, err
	}

	id := ids.New()
	lh := labelHash(label)
	for _, p := range def.Properties {
		if !p.Unique {
			continue
		}
		v, ok := props[p.Name]
		if !ok {
			continue
		}
		if err := s.checkUnique(lh, p.Name, v); err != nil {
			return uuid.UUID{}, err
		}
	}

	if err := s.tx.Put(storage.BucketNodes, storage.NodeKey(id), encodeNodeRecord(label, props)); err != nil {
		return uuid.UUID{}, err
	}
	for _, p := range def.Properties {
		if !p.Index && !p.Unique {
			continue
		}
		v, ok := props[p.Name]
		if !ok {
			continue
		}
		if err := s.putSecondaryIndex(lh, p.Name, v, id); err != nil {
			return uuid.UUID{}, err
		}
	}
	return id, nil
}

func (s *Store) checkUnique(lh uint32, property string, v value.Value) error {
	ph := propertyHash(property)
	prefix := storage.SecondaryIndexPrefix(lh, ph, value.Encode(v))
	count, err := s.tx.CountPrefix(storage.BucketSecondaryIndex, prefix)
	if err != nil {
		return err
	}
	if count > 0 {
		return kernelerrors.UniqueViolation(fmt.Sprintf("property %q already has a value matching a UNIQUE INDEX constraint", property))
	}
	return nil
}

func (s *Store) putSecondaryIndex(lh uint32, property string, v value.Value, id uuid.UUID) error {
	ph := propertyHash(property)
	key := storage.SecondaryIndexKey(lh, ph, value.Encode(v), id)
	return s.tx.Put(storage.BucketSecondaryIndex, key, nil)
}

func (s *Store) deleteSecondaryIndex(lh uint32, property string, v value.Value, id uuid.UUID) error {
	ph := propertyHash(property)
	key := storage.SecondaryIndexKey(lh, ph, value.Encode(v), id)
	return s.tx.Delete(storage.BucketSecondaryIndex, key)
}

// GetNode reads a node by ID, or NotFound if absent. When the Store
// was built via NewCached, a hit populates from cache without touching
// the transaction at all. The cache is only consulted and populated in
// read-only transactions: a write transaction must never seed it with
// uncommitted state that an abort would then leave visible.
func (s *Store) GetNode(id uuid.UUID) (Node, error) {
	cacheable := s.cache != nil && !s.tx.Writable()
	if cacheable {
		if node, ok := s.cache.Get(id); ok {
			return node, nil
		}
	}
	raw, err := s.tx.Get(storage.BucketNodes, storage.NodeKey(id))
	if err != nil {
		return Node{}, err
	}
	if raw == nil {
		return Node{}, kernelerrors.NotFound(fmt.Sprintf("node %s not found", id))
	}
	node, err := decodeNodeRecord(id, raw)
	if err != nil {
		return Node{}, err
	}
	if cacheable {
		s.cache.Add(id, node)
	}
	return node, nil
}

// GetEdge reads an edge by ID, or NotFound if absent.
func (s *Store) GetEdge(id uuid.UUID) (Edge, error) {
	raw, err := s.tx.Get(storage.BucketEdges, storage.EdgeKey(id))
	if err != nil {
		return Edge{}, err
	}
	if raw == nil {
		return Edge{}, kernelerrors.NotFound(fmt.Sprintf("edge %s not found", id))
	}
	return decodeEdgeRecord(id, raw)
}

// AddEdge verifies both endpoints exist with the declared From/To label,
// enforces a UNIQUE edge label if declared, writes the edge record, and
// inserts both adjacency entries. An endpoint may be a node or a live
// vector: edges bridge the graph and vector indices using the same
// record and adjacency layout either way.
func (s *Store) AddEdge(label string, from, to uuid.UUID, props map[string]value.Value) (uuid.UUID, error) {
	def, ok := s.schema.Edge(label)
	if !ok {
		return uuid.UUID{}, kernelerrors.SchemaViolation(fmt.Sprintf("edge label %q is not registered", label))
	}
	props = applyDefaults(def.Properties, props)
	if err := validateTypes(label, def.Properties, props); err != nil {
		return uuid.UUID{}, err
	}

	fromLabel, err := s.endpointLabel(from)
	if err != nil {
		return uuid.UUID{}, kernelerrors.DanglingEdge(fmt.Sprintf("edge %q source %s does not exist", label, from))
	}
	toLabel, err := s.endpointLabel(to)
	if err != nil {
		return uuid.UUID{}, kernelerrors.DanglingEdge(fmt.Sprintf("edge %q destination %s does not exist", label, to))
	}
	if def.From != "" && fromLabel != def.From {
		return uuid.UUID{}, kernelerrors.SchemaViolation(fmt.Sprintf(
			"edge %q requires From label %s, got %s", label, def.From, fromLabel))
	}
	if def.To != "" && toLabel != def.To {
		return uuid.UUID{}, kernelerrors.SchemaViolation(fmt.Sprintf(
			"edge %q requires To label %s, got %s", label, def.To, toLabel))
	}

	lh := labelHash(label)
	if def.Unique {
		exists, err := s.edgeExists(lh, from, to)
		if err != nil {
			return uuid.UUID{}, err
		}
		if exists {
			return uuid.UUID{}, kernelerrors.UniqueViolation(fmt.Sprintf(
				"edge %q already exists between %s and %s", label, from, to))
		}
	}

	id := ids.New()
	if err := s.tx.Put(storage.BucketEdges, storage.EdgeKey(id), encodeEdgeRecord(label, from, to, props)); err != nil {
		return uuid.UUID{}, err
	}
	if err := s.tx.Put(storage.BucketOutAdjacency, storage.OutAdjacencyKey(from, lh, id, to), nil); err != nil {
		return uuid.UUID{}, err
	}
	if err := s.tx.Put(storage.BucketInAdjacency, storage.InAdjacencyKey(to, lh, id, from), nil); err != nil {
		return uuid.UUID{}, err
	}
	return id, nil
}

// endpointLabel resolves id to the label of the entity it names: a
// node record if one exists, otherwise a live vector record. A
// soft-deleted vector does not accept new edges.
func (s *Store) endpointLabel(id uuid.UUID) (string, error) {
	node, err := s.GetNode(id)
	if err == nil {
		return node.Label, nil
	}
	if kernelerrors.Code(err) != kernelerrors.CodeNotFound {
		return "", err
	}
	entry, ok, lerr := vector.Lookup(s.tx, id)
	if lerr != nil {
		return "", lerr
	}
	if !ok || entry.Deleted {
		return "", err
	}
	return entry.Label, nil
}

func (s *Store) edgeExists(lh uint32, from, to uuid.UUID) (bool, error) {
	found := false
	prefix := storage.OutAdjacencyPrefix(from, lh, true)
	err := s.tx.ForEachPrefix(storage.BucketOutAdjacency, prefix, func(key, _ []byte) error {
		decoded, err := storage.DecodeOutAdjacencyKey(key)
		if err != nil {
			return err
		}
		if decoded.To == to {
			found = true
		}
		return nil
	})
	return found, err
}

// UpdateNode merges partial into the node's current properties, failing
// if the merge would violate a UNIQUE INDEX.
func (s *Store) UpdateNode(id uuid.UUID, partial map[string]value.Value) error {
	node, err := s.GetNode(id)
	if err != nil {
		return err
	}
	def, _ := s.schema.Node(node.Label)
	if err := validateTypes(node.Label, def.Properties, partial); err != nil {
		return err
	}
	lh := labelHash(node.Label)
	for _, p := range def.Properties {
		if !p.Unique {
			continue
		}
		newV, changing := partial[p.Name]
		if !changing {
			continue
		}
		if oldV, had := node.Properties[p.Name]; had && oldV.Equal(newV) {
			continue
		}
		if err := s.checkUnique(lh, p.Name, newV); err != nil {
			return err
		}
	}

	merged := value.MergeProperties(node.Properties, partial)
	if err := s.tx.Put(storage.BucketNodes, storage.NodeKey(id), encodeNodeRecord(node.Label, merged)); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Remove(id)
	}
	for _, p := range def.Properties {
		if !p.Index && !p.Unique {
			continue
		}
		newV, changing := partial[p.Name]
		if !changing {
			continue
		}
		if oldV, had := node.Properties[p.Name]; had {
			if err := s.deleteSecondaryIndex(lh, p.Name, oldV, id); err != nil {
				return err
			}
		}
		if err := s.putSecondaryIndex(lh, p.Name, newV, id); err != nil {
			return err
		}
	}
	return nil
}

// UpdateEdge merges partial into the edge's current properties. Edges
// carry no secondary index (only node properties are index-eligible),
// so this is a straight type-validated merge-and-store.
func (s *Store) UpdateEdge(id uuid.UUID, partial map[string]value.Value) error {
	edge, err := s.GetEdge(id)
	if err != nil {
		return err
	}
	def, _ := s.schema.Edge(edge.Label)
	if err := validateTypes(edge.Label, def.Properties, partial); err != nil {
		return err
	}
	merged := value.MergeProperties(edge.Properties, partial)
	return s.tx.Put(storage.BucketEdges, storage.EdgeKey(id), encodeEdgeRecord(edge.Label, edge.From, edge.To, merged))
}

// UpsertNode creates a node under label if none has keyProperty ==
// props[keyProperty], or updates the existing one if exactly one match
// is found.
func (s *Store) UpsertNode(label, keyProperty string, props map[string]value.Value) (uuid.UUID, error) {
	keyVal, ok := props[keyProperty]
	if !ok {
		return uuid.UUID{}, kernelerrors.SchemaViolation(fmt.Sprintf("upsert key property %q missing from input", keyProperty))
	}
	matches, err := s.LookupByProperty(label, keyProperty, keyVal)
	if err != nil {
		return uuid.UUID{}, err
	}
	switch len(matches) {
	case 0:
		return s.AddNode(label, props)
	case 1:
		id := matches[0]
		delete(props, keyProperty)
		if err := s.UpdateNode(id, props); err != nil {
			return uuid.UUID{}, err
		}
		return id, nil
	default:
		return uuid.UUID{}, kernelerrors.SchemaViolation(fmt.Sprintf(
			"upsert key %q matched %d nodes, expected at most one", keyProperty, len(matches)))
	}
}

// DropNode removes the node, every incident edge in both directions
// (along with their adjacency entries), every secondary-index row the
// node participated in, and cascades bridging edges to vectors the same
// way any other edge is removed.
func (s *Store) DropNode(id uuid.UUID) error {
	node, err := s.GetNode(id)
	if err != nil {
		return err
	}

	var outEdges, inEdges []uuid.UUID
	if err := s.tx.ForEachPrefix(storage.BucketOutAdjacency, storage.OutAdjacencyPrefix(id, 0, false), func(key, _ []byte) error {
		decoded, err := storage.DecodeOutAdjacencyKey(key)
		if err != nil {
			return err
		}
		outEdges = append(outEdges, decoded.EdgeID)
		return nil
	}); err != nil {
		return err
	}
	if err := s.tx.ForEachPrefix(storage.BucketInAdjacency, storage.InAdjacencyPrefix(id, 0, false), func(key, _ []byte) error {
		decoded, err := storage.DecodeInAdjacencyKey(key)
		if err != nil {
			return err
		}
		inEdges = append(inEdges, decoded.EdgeID)
		return nil
	}); err != nil {
		return err
	}
	for _, eid := range outEdges {
		if err := s.DropEdge(eid); err != nil && kernelerrors.Code(err) != kernelerrors.CodeNotFound {
			return err
		}
	}
	for _, eid := range inEdges {
		if err := s.DropEdge(eid); err != nil && kernelerrors.Code(err) != kernelerrors.CodeNotFound {
			return err
		}
	}

	def, _ := s.schema.Node(node.Label)
	lh := labelHash(node.Label)
	for _, p := range def.Properties {
		if !p.Index && !p.Unique {
			continue
		}
		if v, ok := node.Properties[p.Name]; ok {
			if err := s.deleteSecondaryIndex(lh, p.Name, v, id); err != nil {
				return err
			}
		}
	}
	if s.cache != nil {
		s.cache.Remove(id)
	}
	return s.tx.Delete(storage.BucketNodes, storage.NodeKey(id))
}

// DropEdge removes the edge record and both of its adjacency entries.
func (s *Store) DropEdge(id uuid.UUID) error {
	edge, err := s.GetEdge(id)
	if err != nil {
		return err
	}
	lh := labelHash(edge.Label)
	if err := s.tx.Delete(storage.BucketOutAdjacency, storage.OutAdjacencyKey(edge.From, lh, id, edge.To)); err != nil {
		return err
	}
	if err := s.tx.Delete(storage.BucketInAdjacency, storage.InAdjacencyKey(edge.To, lh, id, edge.From)); err != nil {
		return err
	}
	return s.tx.Delete(storage.BucketEdges, storage.EdgeKey(id))
}

// NeighbourEdge is one row of an adjacency walk: the connecting edge and
// the node at its far end.
type NeighbourEdge struct {
	EdgeID      uuid.UUID
	NeighbourID uuid.UUID
	Label       string
}

// Neighbours walks the out_adj or in_adj index for id, optionally
// narrowed to a single edge label, yielding each connecting edge and
// neighbour ID in key order. It stops early if the consumer stops
// ranging, matching the lazy-iterator shape the rest of the traversal
// pipeline expects.
func (s *Store) Neighbours(id uuid.UUID, dir Direction, edgeLabel string) iter.Seq2[NeighbourEdge, error] {
	return func(yield func(NeighbourEdge, error) bool) {
		hasLabel := edgeLabel != ""
		var lh uint32
		if hasLabel {
			lh = labelHash(edgeLabel)
		}
		bucket := storage.BucketOutAdjacency
		prefix := storage.OutAdjacencyPrefix(id, lh, hasLabel)
		if dir == DirectionIn {
			bucket = storage.BucketInAdjacency
			prefix = storage.InAdjacencyPrefix(id, lh, hasLabel)
		}
		stop := false
		err := s.tx.ForEachPrefix(bucket, prefix, func(key, _ []byte) error {
			if stop {
				return nil
			}
			var edgeID, neighbourID uuid.UUID
			if dir == DirectionOut {
				d, err := storage.DecodeOutAdjacencyKey(key)
				if err != nil {
					return err
				}
				edgeID, neighbourID = d.EdgeID, d.To
			} else {
				d, err := storage.DecodeInAdjacencyKey(key)
				if err != nil {
					return err
				}
				edgeID, neighbourID = d.EdgeID, d.From
			}
			if !yield(NeighbourEdge{EdgeID: edgeID, NeighbourID: neighbourID, Label: edgeLabel}, nil) {
				stop = true
			}
			return nil
		})
		if err != nil {
			yield(NeighbourEdge{}, err)
		}
	}
}

// LookupByProperty returns every ID whose label/property matches value,
// via the secondary index.
func (s *Store) LookupByProperty(label, property string, v value.Value) ([]uuid.UUID, error) {
	lh := labelHash(label)
	ph := propertyHash(property)
	prefix := storage.SecondaryIndexPrefix(lh, ph, value.Encode(v))
	var out []uuid.UUID
	err := s.tx.ForEachPrefix(storage.BucketSecondaryIndex, prefix, func(key, _ []byte) error {
		decoded, err := storage.DecodeSecondaryIndexKey(key)
		if err != nil {
			return err
		}
		out = append(out, decoded.ID)
		return nil
	})
	return out, err
}

// Nodes scans every node of label in ID order, lazily, for the
// traversal engine's N(label) label-scan step. Like Neighbours, it
// stops early if the consumer stops ranging.
func (s *Store) Nodes(label string) iter.Seq2[Node, error] {
	return func(yield func(Node, error) bool) {
		stop := false
		err := s.tx.ForEachPrefix(storage.BucketNodes, nil, func(key, val []byte) error {
			if stop {
				return nil
			}
			id, err := storage.DecodeNodeKey(key)
			if err != nil {
				return err
			}
			node, err := decodeNodeRecord(id, val)
			if err != nil {
				return err
			}
			if label != "" && node.Label != label {
				return nil
			}
			if !yield(node, nil) {
				stop = true
			}
			return nil
		})
		if err != nil {
			yield(Node{}, err)
		}
	}
}

// Edges scans every edge of label in ID order, lazily, for the
// traversal engine's E(label) label-scan step.
func (s *Store) Edges(label string) iter.Seq2[Edge, error] {
	return func(yield func(Edge, error) bool) {
		stop := false
		err := s.tx.ForEachPrefix(storage.BucketEdges, nil, func(key, val []byte) error {
			if stop {
				return nil
			}
			id, err := storage.DecodeEdgeKey(key)
			if err != nil {
				return err
			}
			edge, err := decodeEdgeRecord(id, val)
			if err != nil {
				return err
			}
			if label != "" && edge.Label != label {
				return nil
			}
			if !yield(edge, nil) {
				stop = true
			}
			return nil
		})
		if err != nil {
			yield(Edge{}, err)
		}
	}
}

// CountByLabel counts nodes of label by scanning the node bucket. This
// is O(n) in the store's total node count; callers needing a cheap
// count in a hot path should maintain their own counter instead.
func (s *Store) CountByLabel(label string) (int, error) {
	count := 0
	err := s.tx.ForEachPrefix(storage.BucketNodes, nil, func(key, val []byte) error {
		id, err := storage.DecodeNodeKey(key)
		if err != nil {
			return err
		}
		node, err := decodeNodeRecord(id, val)
		if err != nil {
			return err
		}
		if node.Label == label {
			count++
		}
		return nil
	})
	return count, err
}
