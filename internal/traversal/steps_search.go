package traversal

import (
	"math"

	"github.com/helix-kernel/helix/internal/kernelerrors"
)

// SearchV runs an HNSW nearest-neighbour search against label and
// yields the k closest live vectors, each carrying its distance as
// Score.
func SearchV(label string, query []float32, k, ef int) Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		ix, err := e.vectors.VectorIndex(label)
		if err != nil {
			return nil, err
		}
		results, err := ix.Search(query, k, ef)
		if err != nil {
			return nil, err
		}
		out := make([]Value, 0, len(results))
		for _, r := range results {
			entry, err := ix.Get(r.ID)
			if err != nil {
				return nil, err
			}
			out = append(out, VectorValue(entry).WithScore(float64(r.Distance)))
		}
		return out, nil
	}
}

// SearchBM25 runs a BM25 query against label's document corpus and
// yields the k top-scoring owning nodes, each carrying its score.
func SearchBM25(label string, query string, k int) Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		ix, err := e.bm25.BM25Index(label)
		if err != nil {
			return nil, err
		}
		results, err := ix.Query(query, k)
		if err != nil {
			return nil, err
		}
		out := make([]Value, 0, len(results))
		for _, r := range results {
			node, err := e.graph.GetNode(r.DocID)
			if err != nil {
				if kernelerrors.Code(err) == kernelerrors.CodeNotFound {
					continue
				}
				return nil, err
			}
			out = append(out, NodeValue(node).WithScore(r.Score))
		}
		return out, nil
	}
}

func squaredEuclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// RerankMMR re-orders a SearchV result set by maximal marginal
// relevance: it greedily picks the candidate maximizing
// λ·relevance - (1-λ)·similarity-to-already-selected, trading pure
// ranking for diversity. Input elements must carry Score as set by
// SearchV (interpreted as a distance, so relevance is its negation).
func RerankMMR(lambda float64, k int) Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		candidates := make([]Value, 0, len(in))
		for _, v := range in {
			if v.Kind != KindVector {
				return nil, kernelerrors.TypeMismatch("RerankMMR requires Vector inputs")
			}
			candidates = append(candidates, v)
		}
		if k <= 0 || k > len(candidates) {
			k = len(candidates)
		}

		selected := make([]Value, 0, k)
		used := make([]bool, len(candidates))
		for len(selected) < k {
			bestIdx := -1
			bestScore := 0.0
			for i, c := range candidates {
				if used[i] {
					continue
				}
				relevance := -c.Score
				maxSim := 0.0
				if len(selected) > 0 {
					maxSim = math.Inf(-1)
					for _, s := range selected {
						sim := -squaredEuclidean(c.Vector.Vector, s.Vector.Vector)
						if sim > maxSim {
							maxSim = sim
						}
					}
				}
				score := lambda*relevance - (1-lambda)*maxSim
				if bestIdx == -1 || score > bestScore {
					bestIdx, bestScore = i, score
				}
			}
			if bestIdx == -1 {
				break
			}
			used[bestIdx] = true
			selected = append(selected, candidates[bestIdx])
		}
		return selected, nil
	}
}
