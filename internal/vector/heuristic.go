package vector

import (
	"sort"

	"github.com/google/uuid"
)

// selectNeighboursHeuristic implements the diverse-neighbour rule:
// candidates are considered in ascending distance to the new node q; a
// candidate c is admitted only if no already-chosen neighbour r is
// closer to c than q is. This keeps neighbourhoods diverse instead of
// clustering around the single nearest direction.
func selectNeighboursHeuristic(candidates []candidate, limit int, distance func(a, b []float32) float32, vectorOf func(uuid.UUID) ([]float32, error)) []candidate {
	sorted := make([]candidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].less(sorted[j]) })

	var selected []candidate
	for _, c := range sorted {
		if len(selected) >= limit {
			break
		}
		cVec, err := vectorOf(c.id)
		if err != nil {
			continue
		}
		admit := true
		for _, r := range selected {
			rVec, err := vectorOf(r.id)
			if err != nil {
				continue
			}
			if distance(rVec, cVec) < c.distance {
				admit = false
				break
			}
		}
		if admit {
			selected = append(selected, c)
		}
	}
	return selected
}
