package vector

import (
	"container/heap"

	"github.com/google/uuid"
)

// candidate is one (id, distance) pair tracked during a layer search.
type candidate struct {
	id       uuid.UUID
	distance float32
}

// less breaks distance ties by ID so result ordering is deterministic.
func (c candidate) less(o candidate) bool {
	if c.distance != o.distance {
		return c.distance < o.distance
	}
	return lessID(c.id, o.id)
}

func lessID(a, b uuid.UUID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// minHeap pops the nearest candidate first; used for the unvisited
// candidate frontier during search-layer.
type minHeap []candidate

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i].less(h[j]) }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)         { *h = append(*h, x.(candidate)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// maxHeap pops the farthest candidate first; used to track the current
// best-ef result set so the worst member can be evicted cheaply.
type maxHeap []candidate

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(i, j int) bool { return h[j].less(h[i]) }
func (h maxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x any)        { *h = append(*h, x.(candidate)) }
func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// popMin removes and returns the nearest candidate. Safe to call on an
// empty heap: the search-layer routine must tolerate empty heaps at any
// step, so this reports ok=false rather than panicking.
func popMin(h *minHeap) (candidate, bool) {
	if h.Len() == 0 {
		return candidate{}, false
	}
	return heap.Pop(h).(candidate), true
}

func peekMax(h maxHeap) (candidate, bool) {
	if len(h) == 0 {
		return candidate{}, false
	}
	return h[0], true
}

func popMax(h *maxHeap) (candidate, bool) {
	if h.Len() == 0 {
		return candidate{}, false
	}
	return heap.Pop(h).(candidate), true
}
