package vector

import (
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// EntryCache is a bounded decode cache for hot vectors, shared across
// transactions and keyed by ID, mirroring internal/graph's NodeCache.
// A HNSW search touches the same popular entry points repeatedly
// across both layers and across requests, so caching their decode
// avoids the dominant cost of re-reading the same bbolt value.
type EntryCache = lru.Cache[uuid.UUID, Entry]

// NewEntryCache allocates an EntryCache holding at most size decoded
// entries.
func NewEntryCache(size int) (*EntryCache, error) {
	return lru.New[uuid.UUID, Entry](size)
}
