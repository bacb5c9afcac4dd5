package graph

import (
	"hash/fnv"

	"github.com/google/uuid"

	"github.com/helix-kernel/helix/internal/value"
)

// Node is a labelled record with a property map.
type Node struct {
	ID         uuid.UUID
	Label      string
	Properties map[string]value.Value
}

// Edge is a typed directed relation between two nodes.
type Edge struct {
	ID         uuid.UUID
	Label      string
	From       uuid.UUID
	To         uuid.UUID
	Properties map[string]value.Value
}

// Direction selects which adjacency index a neighbour walk reads.
type Direction uint8

const (
	DirectionOut Direction = iota
	DirectionIn
)

// labelHash derives the 4-byte hash used in adjacency and secondary
// index keys. FNV-1a is used for its even distribution and because it
// needs no seed state.
func labelHash(label string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(label))
	return h.Sum32()
}

func propertyHash(property string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(property))
	return h.Sum32()
}
