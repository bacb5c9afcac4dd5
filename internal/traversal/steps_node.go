package traversal

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/helix-kernel/helix/internal/graph"
	"github.com/helix-kernel/helix/internal/kernelerrors"
	vectorpkg "github.com/helix-kernel/helix/internal/vector"
)

// N produces a point lookup (id != nil) or a full label scan (id ==
// nil).
func N(label string, id *uuid.UUID) Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		if id != nil {
			node, err := e.graph.GetNode(*id)
			if err != nil {
				return nil, err
			}
			if label != "" && node.Label != label {
				return nil, kernelerrors.NotFound(fmt.Sprintf("node %s is not labelled %q", *id, label))
			}
			return []Value{NodeValue(node)}, nil
		}
		var out []Value
		for node, err := range e.graph.Nodes(label) {
			if err != nil {
				return nil, err
			}
			out = append(out, NodeValue(node))
		}
		return out, nil
	}
}

// E produces a point lookup or full label scan of edges.
func E(label string, id *uuid.UUID) Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		if id != nil {
			edge, err := e.graph.GetEdge(*id)
			if err != nil {
				return nil, err
			}
			if label != "" && edge.Label != label {
				return nil, kernelerrors.NotFound(fmt.Sprintf("edge %s is not labelled %q", *id, label))
			}
			return []Value{EdgeValue(edge)}, nil
		}
		var out []Value
		for edge, err := range e.graph.Edges(label) {
			if err != nil {
				return nil, err
			}
			out = append(out, EdgeValue(edge))
		}
		return out, nil
	}
}

// V produces a point lookup or full label scan of vectors.
func V(label string, id *uuid.UUID) Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		ix, err := e.vectors.VectorIndex(label)
		if err != nil {
			return nil, err
		}
		if id != nil {
			entry, err := ix.Get(*id)
			if err != nil {
				return nil, err
			}
			return []Value{VectorValue(entry)}, nil
		}
		var out []Value
		for entry, err := range ix.Entries() {
			if err != nil {
				return nil, err
			}
			out = append(out, VectorValue(entry))
		}
		return out, nil
	}
}

// endpointValue resolves an edge endpoint ID to its carrier value: a
// Node when a node record exists, otherwise a live Vector, since edges
// may bridge the graph and vector indices.
func endpointValue(e *Engine, id uuid.UUID) (Value, error) {
	node, err := e.graph.GetNode(id)
	if err == nil {
		return NodeValue(node), nil
	}
	if kernelerrors.Code(err) != kernelerrors.CodeNotFound {
		return Value{}, err
	}
	entry, ok, lerr := vectorpkg.Lookup(e.tx, id)
	if lerr != nil {
		return Value{}, lerr
	}
	if !ok || entry.Deleted {
		return Value{}, err
	}
	return VectorValue(entry), nil
}

func adjacency(dir graph.Direction, edgeLabel string, fetchNeighbour bool) Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		var out []Value
		for _, v := range in {
			if v.Kind != KindNode {
				return nil, kernelerrors.TypeMismatch("adjacency step requires a Node input")
			}
			for ne, err := range e.graph.Neighbours(v.Node.ID, dir, edgeLabel) {
				if err != nil {
					return nil, err
				}
				if fetchNeighbour {
					val, err := endpointValue(e, ne.NeighbourID)
					if err != nil {
						return nil, err
					}
					out = append(out, val)
				} else {
					edge, err := e.graph.GetEdge(ne.EdgeID)
					if err != nil {
						return nil, err
					}
					out = append(out, EdgeValue(edge))
				}
			}
		}
		return out, nil
	}
}

// Out walks outgoing edges to their destination nodes.
func Out(edgeLabel string) Step { return adjacency(graph.DirectionOut, edgeLabel, true) }

// In walks incoming edges to their source nodes.
func In(edgeLabel string) Step { return adjacency(graph.DirectionIn, edgeLabel, true) }

// OutE walks outgoing edges without fetching the destination endpoint.
func OutE(edgeLabel string) Step { return adjacency(graph.DirectionOut, edgeLabel, false) }

// InE walks incoming edges without fetching the source endpoint.
func InE(edgeLabel string) Step { return adjacency(graph.DirectionIn, edgeLabel, false) }

// FromN fetches the source endpoint of each input Edge, a Node or a
// Vector depending on what the edge bridges.
func FromN() Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		var out []Value
		for _, v := range in {
			if v.Kind != KindEdge {
				return nil, kernelerrors.TypeMismatch("FromN requires an Edge input")
			}
			val, err := endpointValue(e, v.Edge.From)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	}
}

// ToN fetches the destination endpoint of each input Edge, a Node or a
// Vector depending on what the edge bridges.
func ToN() Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		var out []Value
		for _, v := range in {
			if v.Kind != KindEdge {
				return nil, kernelerrors.TypeMismatch("ToN requires an Edge input")
			}
			val, err := endpointValue(e, v.Edge.To)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	}
}
