// Package traversal executes chainable step pipelines over nodes,
// edges, vectors, and scalars within a single storage transaction,
// fusing the graph, vector, and BM25 indices behind one uniform
// Value carrier.
package traversal

import (
	"github.com/google/uuid"

	"github.com/helix-kernel/helix/internal/graph"
	"github.com/helix-kernel/helix/internal/value"
	vectorpkg "github.com/helix-kernel/helix/internal/vector"
)

// Kind tags which field of a Value is populated.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindNode
	KindEdge
	KindVector
	KindScalar
	KindMap
	KindGroup
)

// Value is the uniform carrier flowing between pipeline steps.
type Value struct {
	Kind   Kind
	Node   graph.Node
	Edge   graph.Edge
	Vector vectorpkg.Entry
	Scalar value.Value
	Map    map[string]Value
	Group  Group

	// Score carries a ranking score for steps that attach one (SearchV,
	// SearchBM25, RerankMMR) without changing Kind.
	Score    float64
	HasScore bool
}

// Group is the result of GROUP_BY/AGGREGATE_BY: a distinct key tuple,
// its member values, and a count (redundant with len(Items) but kept so
// AGGREGATE_BY's count survives even when Items is later discarded by a
// projection).
type Group struct {
	Key   []value.Value
	Items []Value
	Count int
}

func NodeValue(n graph.Node) Value           { return Value{Kind: KindNode, Node: n} }
func EdgeValue(e graph.Edge) Value           { return Value{Kind: KindEdge, Edge: e} }
func VectorValue(v vectorpkg.Entry) Value    { return Value{Kind: KindVector, Vector: v} }
func ScalarValue(v value.Value) Value        { return Value{Kind: KindScalar, Scalar: v} }
func MapValue(m map[string]Value) Value      { return Value{Kind: KindMap, Map: m} }
func GroupValue(g Group) Value               { return Value{Kind: KindGroup, Group: g} }
func Empty() Value                           { return Value{Kind: KindEmpty} }
func BoolValue(b bool) Value                 { return ScalarValue(value.Bool(b)) }

// WithScore returns a copy of v carrying score, used by SearchV/
// SearchBM25/RerankMMR to annotate results without losing the
// underlying Node/Vector payload.
func (v Value) WithScore(score float64) Value {
	v.Score = score
	v.HasScore = true
	return v
}

// AsBool extracts a boolean scalar, used by WHERE/AND/OR/NOT.
func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindScalar {
		return false, false
	}
	return v.Scalar.AsBool()
}

// ID returns the identifier of a Node/Edge/Vector value.
func (v Value) ID() (uuid.UUID, bool) {
	switch v.Kind {
	case KindNode:
		return v.Node.ID, true
	case KindEdge:
		return v.Edge.ID, true
	case KindVector:
		return v.Vector.ID, true
	default:
		return uuid.UUID{}, false
	}
}

// Properties returns the property map of a Node/Edge/Vector value, or
// nil for any other Kind.
func (v Value) Properties() map[string]value.Value {
	switch v.Kind {
	case KindNode:
		return v.Node.Properties
	case KindEdge:
		return v.Edge.Properties
	case KindVector:
		return v.Vector.Properties
	default:
		return nil
	}
}
