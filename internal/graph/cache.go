package graph

import (
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// NodeCache is a bounded decode cache shared across transactions,
// avoiding a full bbolt value decode for nodes a read-heavy traversal
// (repeated Out/In hops, repeated property lookups) revisits. It
// outlives any single Store/transaction; the top-level engine owns
// one per schema and threads it into every Store it constructs.
type NodeCache = lru.Cache[uuid.UUID, Node]

// NewNodeCache allocates a NodeCache holding at most size decoded
// nodes, evicting least-recently-used entries once full.
func NewNodeCache(size int) (*NodeCache, error) {
	return lru.New[uuid.UUID, Node](size)
}
