// Package vector implements a per-label HNSW (hierarchical navigable
// small world) approximate nearest-neighbour index, persisted entirely
// through internal/storage's vector_data/vector_layer/vector_links
// sub-stores rather than an in-memory pointer graph: every traversal
// looks a neighbour up by ID, so there is no cycle-aware ownership
// scheme to build and no in-process graph to keep consistent with disk.
package vector

import (
	"github.com/google/uuid"

	"github.com/helix-kernel/helix/internal/value"
)

// Entry is one stored vector record.
type Entry struct {
	ID         uuid.UUID
	Label      string
	Vector     []float32
	Layer      uint8
	Distance   float32 // not set by this package; Search reports distances in SearchResult
	Deleted    bool
	Properties map[string]value.Value
}

// SearchResult is one ranked hit from Search, in ascending distance
// order.
type SearchResult struct {
	ID       uuid.UUID
	Distance float32
}

// Metric selects the distance function used throughout an index.
type Metric uint8

const (
	MetricSquaredEuclidean Metric = iota
	MetricCosine
)
