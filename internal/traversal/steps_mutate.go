package traversal

import (
	"github.com/google/uuid"

	"github.com/helix-kernel/helix/internal/ids"
	"github.com/helix-kernel/helix/internal/kernelerrors"
	"github.com/helix-kernel/helix/internal/value"
)

// AddN creates one node under label and yields it. If label declares
// any FullText property, the node's BM25 document is indexed in the
// same write transaction so corpus stats stay consistent with the
// stored records.
func AddN(label string, props map[string]value.Value) Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		id, err := e.graph.AddNode(label, props)
		if err != nil {
			return nil, err
		}
		node, err := e.graph.GetNode(id)
		if err != nil {
			return nil, err
		}
		if err := e.reindexBM25(node); err != nil {
			return nil, err
		}
		return []Value{NodeValue(node)}, nil
	}
}

// AddE creates one edge between from and to and yields it.
func AddE(label string, from, to uuid.UUID, props map[string]value.Value) Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		id, err := e.graph.AddEdge(label, from, to, props)
		if err != nil {
			return nil, err
		}
		edge, err := e.graph.GetEdge(id)
		if err != nil {
			return nil, err
		}
		return []Value{EdgeValue(edge)}, nil
	}
}

// AddV inserts one vector under label and yields it.
func AddV(label string, vec []float32, props map[string]value.Value) Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		ix, err := e.vectors.VectorIndex(label)
		if err != nil {
			return nil, err
		}
		id := ids.New()
		if err := ix.Insert(id, vec, props); err != nil {
			return nil, err
		}
		entry, err := ix.Get(id)
		if err != nil {
			return nil, err
		}
		return []Value{VectorValue(entry)}, nil
	}
}

// UpdateN merges partial into every input Node's properties, re-indexing
// its BM25 document if label declares any FullText property.
func UpdateN(partial map[string]value.Value) Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		out := make([]Value, 0, len(in))
		for _, v := range in {
			if v.Kind != KindNode {
				return nil, kernelerrors.TypeMismatch("UpdateN requires a Node input")
			}
			if err := e.graph.UpdateNode(v.Node.ID, partial); err != nil {
				return nil, err
			}
			node, err := e.graph.GetNode(v.Node.ID)
			if err != nil {
				return nil, err
			}
			if err := e.reindexBM25(node); err != nil {
				return nil, err
			}
			out = append(out, NodeValue(node))
		}
		return out, nil
	}
}

// UpdateE merges partial into every input Edge's properties.
func UpdateE(partial map[string]value.Value) Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		out := make([]Value, 0, len(in))
		for _, v := range in {
			if v.Kind != KindEdge {
				return nil, kernelerrors.TypeMismatch("UpdateE requires an Edge input")
			}
			if err := e.graph.UpdateEdge(v.Edge.ID, partial); err != nil {
				return nil, err
			}
			edge, err := e.graph.GetEdge(v.Edge.ID)
			if err != nil {
				return nil, err
			}
			out = append(out, EdgeValue(edge))
		}
		return out, nil
	}
}

// UpdateV merges partial into every input Vector's properties.
func UpdateV(label string, partial map[string]value.Value) Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		ix, err := e.vectors.VectorIndex(label)
		if err != nil {
			return nil, err
		}
		out := make([]Value, 0, len(in))
		for _, v := range in {
			if v.Kind != KindVector {
				return nil, kernelerrors.TypeMismatch("UpdateV requires a Vector input")
			}
			if err := ix.UpdateProperties(v.Vector.ID, partial); err != nil {
				return nil, err
			}
			entry, err := ix.Get(v.Vector.ID)
			if err != nil {
				return nil, err
			}
			out = append(out, VectorValue(entry))
		}
		return out, nil
	}
}

// UpsertN creates a node if no existing one matches keyProperty, or
// updates the single match, re-indexing its BM25 document either way.
func UpsertN(label, keyProperty string, props map[string]value.Value) Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		id, err := e.graph.UpsertNode(label, keyProperty, props)
		if err != nil {
			return nil, err
		}
		node, err := e.graph.GetNode(id)
		if err != nil {
			return nil, err
		}
		if err := e.reindexBM25(node); err != nil {
			return nil, err
		}
		return []Value{NodeValue(node)}, nil
	}
}

// UpsertE creates the edge if none with label exists between from and
// to, or merges props into the existing one.
func UpsertE(label string, from, to uuid.UUID, props map[string]value.Value) Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		var existing *uuid.UUID
		for ne, err := range e.graph.Neighbours(from, 0, label) {
			if err != nil {
				return nil, err
			}
			if ne.NeighbourID == to {
				id := ne.EdgeID
				existing = &id
				break
			}
		}
		if existing != nil {
			if err := e.graph.UpdateEdge(*existing, props); err != nil {
				return nil, err
			}
			edge, err := e.graph.GetEdge(*existing)
			if err != nil {
				return nil, err
			}
			return []Value{EdgeValue(edge)}, nil
		}
		id, err := e.graph.AddEdge(label, from, to, props)
		if err != nil {
			return nil, err
		}
		edge, err := e.graph.GetEdge(id)
		if err != nil {
			return nil, err
		}
		return []Value{EdgeValue(edge)}, nil
	}
}

// UpsertV updates the single vector entry whose keyProperty matches, or
// inserts vec fresh if none does.
func UpsertV(label, keyProperty string, vec []float32, props map[string]value.Value) Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		ix, err := e.vectors.VectorIndex(label)
		if err != nil {
			return nil, err
		}
		keyVal, hasKey := props[keyProperty]
		var match *uuid.UUID
		if hasKey {
			for entry, err := range ix.Entries() {
				if err != nil {
					return nil, err
				}
				if v, ok := entry.Properties[keyProperty]; ok && v.Equal(keyVal) {
					id := entry.ID
					match = &id
					break
				}
			}
		}
		if match != nil {
			if err := ix.UpdateProperties(*match, props); err != nil {
				return nil, err
			}
			entry, err := ix.Get(*match)
			if err != nil {
				return nil, err
			}
			return []Value{VectorValue(entry)}, nil
		}
		id := ids.New()
		if err := ix.Insert(id, vec, props); err != nil {
			return nil, err
		}
		entry, err := ix.Get(id)
		if err != nil {
			return nil, err
		}
		return []Value{VectorValue(entry)}, nil
	}
}

// Drop removes every input Node/Edge/Vector and yields nothing.
func Drop(labelForVectorDrop string) Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		for _, v := range in {
			switch v.Kind {
			case KindNode:
				if err := e.graph.DropNode(v.Node.ID); err != nil {
					return nil, err
				}
				if err := e.dropBM25(v.Node.Label, v.Node.ID); err != nil {
					return nil, err
				}
			case KindEdge:
				if err := e.graph.DropEdge(v.Edge.ID); err != nil {
					return nil, err
				}
			case KindVector:
				ix, err := e.vectors.VectorIndex(labelForVectorDrop)
				if err != nil {
					return nil, err
				}
				if err := ix.Delete(v.Vector.ID); err != nil {
					return nil, err
				}
			default:
				return nil, kernelerrors.TypeMismatch("Drop requires a Node, Edge, or Vector input")
			}
		}
		return nil, nil
	}
}
