package traversal

import (
	"container/heap"

	"github.com/google/uuid"

	"github.com/helix-kernel/helix/internal/graph"
	"github.com/helix-kernel/helix/internal/kernelerrors"
	"github.com/helix-kernel/helix/internal/value"
)

// ShortestPathBFS finds the unweighted shortest path, along edgeLabel
// in dir, from each input Node to target, yielding the path as a
// GroupValue of its nodes in order (empty output if unreachable). The
// walk is capped at cfg.MaxTraversalDepth.
func ShortestPathBFS(dir graph.Direction, edgeLabel string, target uuid.UUID) Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		out := make([]Value, 0, len(in))
		for _, v := range in {
			if v.Kind != KindNode {
				return nil, kernelerrors.TypeMismatch("ShortestPathBFS requires a Node input")
			}
			path, found, err := bfsPath(e, v.Node.ID, dir, edgeLabel, target)
			if err != nil {
				return nil, err
			}
			if !found {
				continue
			}
			items := make([]Value, len(path))
			for i, n := range path {
				items[i] = NodeValue(n)
			}
			out = append(out, GroupValue(Group{Items: items, Count: len(items)}))
		}
		return out, nil
	}
}

func bfsPath(e *Engine, from uuid.UUID, dir graph.Direction, edgeLabel string, to uuid.UUID) ([]graph.Node, bool, error) {
	type frame struct {
		id   uuid.UUID
		prev *frame
	}
	start, err := e.graph.GetNode(from)
	if err != nil {
		return nil, false, err
	}
	if from == to {
		return []graph.Node{start}, true, nil
	}

	visited := map[uuid.UUID]bool{from: true}
	queue := []*frame{{id: from}}
	var goal *frame
	depth := 0
	for len(queue) > 0 && goal == nil {
		depth++
		if depth > e.cfg.MaxTraversalDepth {
			return nil, false, kernelerrors.MaxDepthExceeded("ShortestPathBFS exceeded the configured traversal depth")
		}
		var next []*frame
		for _, f := range queue {
			for ne, err := range e.graph.Neighbours(f.id, dir, edgeLabel) {
				if err != nil {
					return nil, false, err
				}
				if visited[ne.NeighbourID] {
					continue
				}
				visited[ne.NeighbourID] = true
				nf := &frame{id: ne.NeighbourID, prev: f}
				if ne.NeighbourID == to {
					goal = nf
					break
				}
				next = append(next, nf)
			}
			if goal != nil {
				break
			}
		}
		queue = next
	}
	if goal == nil {
		return nil, false, nil
	}

	var ids []uuid.UUID
	for f := goal; f != nil; f = f.prev {
		ids = append([]uuid.UUID{f.id}, ids...)
	}
	nodes := make([]graph.Node, len(ids))
	for i, id := range ids {
		n, err := e.graph.GetNode(id)
		if err != nil {
			return nil, false, err
		}
		nodes[i] = n
	}
	return nodes, true, nil
}

type dijkstraItem struct {
	id      uuid.UUID
	dist    float64
	prev    uuid.UUID
	hasPrev bool
}

type dijkstraQueue []dijkstraItem

func (q dijkstraQueue) Len() int            { return len(q) }
func (q dijkstraQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q dijkstraQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *dijkstraQueue) Push(x interface{}) { *q = append(*q, x.(dijkstraItem)) }
func (q *dijkstraQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// ShortestPathDijkstra finds the weighted shortest path from each
// input Node to target, along edgeLabel in dir, weighing each hop by
// weightProperty read off the traversed edge. A non-numeric or absent
// weight property fails the traversal with InvalidWeight rather than
// silently treating it as zero.
func ShortestPathDijkstra(dir graph.Direction, edgeLabel, weightProperty string, target uuid.UUID) Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		out := make([]Value, 0, len(in))
		for _, v := range in {
			if v.Kind != KindNode {
				return nil, kernelerrors.TypeMismatch("ShortestPathDijkstra requires a Node input")
			}
			path, found, err := dijkstraPath(e, v.Node.ID, dir, edgeLabel, weightProperty, target)
			if err != nil {
				return nil, err
			}
			if !found {
				continue
			}
			items := make([]Value, len(path))
			for i, n := range path {
				items[i] = NodeValue(n)
			}
			out = append(out, GroupValue(Group{Items: items, Count: len(items)}))
		}
		return out, nil
	}
}

func edgeWeight(props map[string]value.Value, weightProperty string) (float64, error) {
	w, ok := props[weightProperty]
	if !ok {
		return 0, kernelerrors.InvalidWeight("edge is missing the weight property " + weightProperty)
	}
	f, ok := w.AsFloat64()
	if !ok {
		return 0, kernelerrors.InvalidWeight("edge weight property " + weightProperty + " is not numeric")
	}
	if f < 0 {
		return 0, kernelerrors.InvalidWeight("edge weight property " + weightProperty + " is negative")
	}
	return f, nil
}

func dijkstraPath(e *Engine, from uuid.UUID, dir graph.Direction, edgeLabel, weightProperty string, to uuid.UUID) ([]graph.Node, bool, error) {
	if from == to {
		n, err := e.graph.GetNode(from)
		if err != nil {
			return nil, false, err
		}
		return []graph.Node{n}, true, nil
	}

	dist := map[uuid.UUID]float64{from: 0}
	prev := map[uuid.UUID]uuid.UUID{}
	visited := map[uuid.UUID]bool{}

	pq := &dijkstraQueue{{id: from, dist: 0}}
	heap.Init(pq)

	expansions := 0
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(dijkstraItem)
		if visited[cur.id] {
			continue
		}
		visited[cur.id] = true
		if cur.id == to {
			break
		}

		expansions++
		if expansions > e.cfg.MaxTraversalDepth {
			return nil, false, kernelerrors.MaxDepthExceeded("ShortestPathDijkstra exceeded the configured traversal depth")
		}

		for ne, err := range e.graph.Neighbours(cur.id, dir, edgeLabel) {
			if err != nil {
				return nil, false, err
			}
			if visited[ne.NeighbourID] {
				continue
			}
			edge, err := e.graph.GetEdge(ne.EdgeID)
			if err != nil {
				return nil, false, err
			}
			weight, err := edgeWeight(edge.Properties, weightProperty)
			if err != nil {
				return nil, false, err
			}
			nd := cur.dist + weight
			if existing, ok := dist[ne.NeighbourID]; !ok || nd < existing {
				dist[ne.NeighbourID] = nd
				prev[ne.NeighbourID] = cur.id
				heap.Push(pq, dijkstraItem{id: ne.NeighbourID, dist: nd})
			}
		}
	}

	if !visited[to] {
		return nil, false, nil
	}

	var ids []uuid.UUID
	for id := to; ; {
		ids = append([]uuid.UUID{id}, ids...)
		if id == from {
			break
		}
		p, ok := prev[id]
		if !ok {
			return nil, false, nil
		}
		id = p
	}
	nodes := make([]graph.Node, len(ids))
	for i, id := range ids {
		n, err := e.graph.GetNode(id)
		if err != nil {
			return nil, false, err
		}
		nodes[i] = n
	}
	return nodes, true, nil
}
