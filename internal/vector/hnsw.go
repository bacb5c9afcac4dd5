package vector

import (
	"container/heap"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"iter"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/helix-kernel/helix/internal/config"
	"github.com/helix-kernel/helix/internal/kernelerrors"
	"github.com/helix-kernel/helix/internal/storage"
	"github.com/helix-kernel/helix/internal/value"
)

// Index is a per-label HNSW graph scoped to one storage transaction.
type Index struct {
	tx     *storage.Tx
	label  string
	dim    int
	params config.HNSWParams
	metric Metric
	mL     float64
	cache  *EntryCache
}

// New scopes an Index to tx for label, with vectors of the given
// dimension under the supplied (already-clamped) parameters.
func New(tx *storage.Tx, label string, dim int, params config.HNSWParams, metric Metric) *Index {
	params = params.Clamp()
	return &Index{
		tx:     tx,
		label:  label,
		dim:    dim,
		params: params,
		metric: metric,
		mL:     1 / math.Log(float64(params.M)),
	}
}

// NewCached scopes an Index like New, additionally consulting and
// populating cache on Get so repeated hot-entry decodes (entry points,
// popular neighbours) skip the bbolt read. cache may be nil, in which
// case this behaves exactly like New.
func NewCached(tx *storage.Tx, label string, dim int, params config.HNSWParams, metric Metric, cache *EntryCache) *Index {
	ix := New(tx, label, dim, params, metric)
	ix.cache = cache
	return ix
}

func (ix *Index) metaKey() []byte {
	return []byte("vector_entry:" + ix.label)
}

type entryPointRecord struct {
	id    uuid.UUID
	level uint8
	ok    bool
}

func (ix *Index) entryPoint() (entryPointRecord, error) {
	raw, err := ix.tx.Get(storage.BucketMeta, ix.metaKey())
	if err != nil {
		return entryPointRecord{}, err
	}
	if raw == nil {
		return entryPointRecord{}, nil
	}
	if len(raw) != 17 {
		return entryPointRecord{}, kernelerrors.InvalidEncoding("entry point record has wrong length")
	}
	var id uuid.UUID
	copy(id[:], raw[:16])
	return entryPointRecord{id: id, level: raw[16], ok: true}, nil
}

func (ix *Index) setEntryPoint(id uuid.UUID, level uint8) error {
	buf := make([]byte, 17)
	copy(buf[:16], id[:])
	buf[16] = level
	return ix.tx.Put(storage.BucketMeta, ix.metaKey(), buf)
}

// sampleLevel draws from the geometric distribution used by HNSW to
// pick how many layers a new node participates in.
func sampleLevel(mL float64) uint8 {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	u := float64(binary.BigEndian.Uint64(buf[:])>>11) / (1 << 53) // uniform in [0,1)
	if u <= 0 {
		u = 1e-12
	}
	level := int(math.Floor(-math.Log(u) * mL))
	if level > 63 {
		level = 63
	}
	return uint8(level)
}

func (ix *Index) isDeleted(id uuid.UUID) (bool, error) {
	raw, err := ix.tx.Get(storage.BucketVectorData, storage.VectorDataKey(id))
	if err != nil {
		return false, err
	}
	if raw == nil {
		return true, nil
	}
	entry, err := decodeEntry(id, raw)
	if err != nil {
		return false, err
	}
	return entry.Deleted, nil
}

func (ix *Index) vectorOf(id uuid.UUID) ([]float32, error) {
	raw, err := ix.tx.Get(storage.BucketVectorData, storage.VectorDataKey(id))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, kernelerrors.NotFound(fmt.Sprintf("vector %s not found", id))
	}
	entry, err := decodeEntry(id, raw)
	if err != nil {
		return nil, err
	}
	return entry.Vector, nil
}

func (ix *Index) neighboursAt(level uint8, id uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	err := ix.tx.ForEachPrefix(storage.BucketVectorLinks, storage.VectorLinksPrefix(level, id), func(key, _ []byte) error {
		d, err := storage.DecodeVectorLinksKey(key)
		if err != nil {
			return err
		}
		out = append(out, d.Neighbour)
		return nil
	})
	return out, err
}

// Insert adds id's vector to the graph, sampling its level, greedy-
// descending to find the insertion layer's entry points, linking in
// diverse neighbours via the heuristic rule, and promoting id to the
// new entry point if it samples a higher level than the current top.
func (ix *Index) Insert(id uuid.UUID, vec []float32, props map[string]value.Value) error {
	if len(vec) != ix.dim {
		return kernelerrors.DimensionMismatch(ix.dim, len(vec))
	}
	level := sampleLevel(ix.mL)

	ep, err := ix.entryPoint()
	if err != nil {
		return err
	}

	if err := ix.tx.Put(storage.BucketVectorData, storage.VectorDataKey(id), encodeEntry(ix.label, vec, false, props)); err != nil {
		return err
	}
	if ix.cache != nil {
		ix.cache.Remove(id)
	}
	for l := uint8(0); ; l++ {
		if err := ix.tx.Put(storage.BucketVectorLayer, storage.VectorLayerKey(l, id), nil); err != nil {
			return err
		}
		if l == level {
			break
		}
	}

	if !ep.ok {
		return ix.setEntryPoint(id, level)
	}

	cur := ep.id
	for lc := ep.level; lc > level; lc-- {
		best, err := ix.greedyBest(vec, cur, lc)
		if err != nil {
			return err
		}
		cur = best
	}

	entryPoints := []uuid.UUID{cur}
	top := ep.level
	if level < top {
		top = level
	}
	for lc := int(top); lc >= 0; lc-- {
		candidates, err := ix.searchLayer(vec, entryPoints, ix.params.EfConstruction, uint8(lc), nil)
		if err != nil {
			return err
		}
		neighbourCap := ix.params.M
		if lc == 0 {
			neighbourCap = ix.params.MMax0()
		}
		selected := selectNeighboursHeuristic(candidates, neighbourCap, func(a, b []float32) float32 { return ix.metric.distance(a, b) }, ix.vectorOf)

		for _, n := range selected {
			if err := ix.link(uint8(lc), id, n.id, n.distance); err != nil {
				return err
			}
			if err := ix.link(uint8(lc), n.id, id, n.distance); err != nil {
				return err
			}
			if err := ix.pruneIfNeeded(uint8(lc), n.id, neighbourCap); err != nil {
				return err
			}
		}
		entryPoints = make([]uuid.UUID, len(candidates))
		for i, c := range candidates {
			entryPoints[i] = c.id
		}
		if len(entryPoints) == 0 {
			entryPoints = []uuid.UUID{cur}
		}
	}

	if level > ep.level {
		if err := ix.setEntryPoint(id, level); err != nil {
			return err
		}
	}
	return nil
}

func (ix *Index) link(level uint8, a, b uuid.UUID, dist float32) error {
	return ix.tx.Put(storage.BucketVectorLinks, storage.VectorLinksKey(level, a, b), storage.EncodeF32(dist))
}

func (ix *Index) unlink(level uint8, a, b uuid.UUID) error {
	return ix.tx.Delete(storage.BucketVectorLinks, storage.VectorLinksKey(level, a, b))
}

func (ix *Index) pruneIfNeeded(level uint8, id uuid.UUID, neighbourCap int) error {
	neighbours, err := ix.neighboursAt(level, id)
	if err != nil {
		return err
	}
	if len(neighbours) <= neighbourCap {
		return nil
	}
	vec, err := ix.vectorOf(id)
	if err != nil {
		return err
	}
	cands := make([]candidate, 0, len(neighbours))
	for _, n := range neighbours {
		nv, err := ix.vectorOf(n)
		if err != nil {
			return err
		}
		cands = append(cands, candidate{id: n, distance: ix.metric.distance(vec, nv)})
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].less(cands[j]) })
	for _, drop := range cands[neighbourCap:] {
		if err := ix.unlink(level, id, drop.id); err != nil {
			return err
		}
		if err := ix.unlink(level, drop.id, id); err != nil {
			return err
		}
	}
	return nil
}

// greedyBest returns the single closest live node to query reachable
// from start at level, used while descending from the entry point's top
// layer to the insertion/search layer.
func (ix *Index) greedyBest(query []float32, start uuid.UUID, level uint8) (uuid.UUID, error) {
	cur := start
	curVec, err := ix.vectorOf(cur)
	if err != nil {
		return uuid.UUID{}, err
	}
	curDist := ix.metric.distance(query, curVec)
	for {
		improved := false
		neighbours, err := ix.neighboursAt(level, cur)
		if err != nil {
			return uuid.UUID{}, err
		}
		for _, n := range neighbours {
			nv, err := ix.vectorOf(n)
			if err != nil {
				return uuid.UUID{}, err
			}
			d := ix.metric.distance(query, nv)
			if d < curDist {
				cur, curDist = n, d
				improved = true
			}
		}
		if !improved {
			return cur, nil
		}
	}
}

// searchLayer runs the bounded best-first search described by the
// component design: a min-heap of unvisited candidates, a max-heap of
// the best ef results so far, and a visited set. Both heaps tolerate
// being empty at any step. filterResult, if non-nil, excludes ids (soft
// deletes) from the *result* set without blocking traversal through
// them, so the graph stays connected through deleted nodes.
func (ix *Index) searchLayer(query []float32, entryPoints []uuid.UUID, ef int, level uint8, filterResult func(uuid.UUID) bool) ([]candidate, error) {
	visited := map[uuid.UUID]bool{}
	var candidates minHeap
	var results maxHeap

	for _, ep := range entryPoints {
		if visited[ep] {
			continue
		}
		visited[ep] = true
		vec, err := ix.vectorOf(ep)
		if err != nil {
			continue
		}
		d := ix.metric.distance(query, vec)
		heap.Push(&candidates, candidate{id: ep, distance: d})
		if filterResult == nil || filterResult(ep) {
			heap.Push(&results, candidate{id: ep, distance: d})
		}
	}

	for {
		cur, ok := popMin(&candidates)
		if !ok {
			break
		}
		if worst, ok := peekMax(results); ok && len(results) >= ef && cur.distance > worst.distance {
			break
		}
		neighbours, err := ix.neighboursAt(level, cur.id)
		if err != nil {
			return nil, err
		}
		for _, n := range neighbours {
			if visited[n] {
				continue
			}
			visited[n] = true
			nv, err := ix.vectorOf(n)
			if err != nil {
				continue
			}
			d := ix.metric.distance(query, nv)
			worst, hasWorst := peekMax(results)
			if len(results) < ef || !hasWorst || d < worst.distance {
				heap.Push(&candidates, candidate{id: n, distance: d})
				if filterResult == nil || filterResult(n) {
					heap.Push(&results, candidate{id: n, distance: d})
					for len(results) > ef {
						popMax(&results)
					}
				}
			}
		}
	}

	out := make([]candidate, len(results))
	copy(out, results)
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out, nil
}

// Search returns the k closest live vectors to query, skipping any
// soft-deleted entries and any deleted entry point.
func (ix *Index) Search(query []float32, k int, ef int) ([]SearchResult, error) {
	if len(query) != ix.dim {
		return nil, kernelerrors.DimensionMismatch(ix.dim, len(query))
	}
	if k <= 0 {
		return nil, nil
	}
	if ef <= 0 {
		ef = ix.params.EfSearch
	}
	if ef < k {
		ef = k
	}

	ep, err := ix.entryPoint()
	if err != nil {
		return nil, err
	}
	if !ep.ok {
		return nil, nil
	}

	cur, err := ix.liveEntryAtTop(ep)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, nil
	}

	for lc := ep.level; lc > 0; lc-- {
		best, err := ix.greedyBest(query, *cur, lc)
		if err != nil {
			return nil, err
		}
		cur = &best
	}

	live := func(id uuid.UUID) bool {
		d, err := ix.isDeleted(id)
		return err == nil && !d
	}
	results, err := ix.searchLayer(query, []uuid.UUID{*cur}, ef, 0, live)
	if err != nil {
		return nil, err
	}
	if len(results) > k {
		results = results[:k]
	}
	out := make([]SearchResult, len(results))
	for i, c := range results {
		out[i] = SearchResult{ID: c.id, Distance: c.distance}
	}
	return out, nil
}

// liveEntryAtTop returns the stored entry point if it is not deleted, or
// otherwise the lexicographically smallest non-deleted node of this
// label on its top layer, matching the tie-break-by-ID rule. If that
// layer holds no such node, the next layer down is tried, and so on to
// layer 0; nil means the label has no live vector left.
func (ix *Index) liveEntryAtTop(ep entryPointRecord) (*uuid.UUID, error) {
	del, err := ix.isDeleted(ep.id)
	if err != nil {
		return nil, err
	}
	if !del {
		id := ep.id
		return &id, nil
	}
	var best *uuid.UUID
	for lvl := int(ep.level); lvl >= 0 && best == nil; lvl-- {
		err = ix.tx.ForEachPrefix(storage.BucketVectorLayer, storage.VectorLayerPrefix(uint8(lvl)), func(key, _ []byte) error {
			_, id, err := storage.DecodeVectorLayerKey(key)
			if err != nil {
				return err
			}
			raw, err := ix.tx.Get(storage.BucketVectorData, storage.VectorDataKey(id))
			if err != nil || raw == nil {
				return nil
			}
			entry, err := decodeEntry(id, raw)
			if err != nil || entry.Deleted || entry.Label != ix.label {
				return nil
			}
			if best == nil || lessID(id, *best) {
				idCopy := id
				best = &idCopy
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return best, nil
}

// Delete soft-deletes id: the HNSW graph links are retained to avoid
// rewiring.
func (ix *Index) Delete(id uuid.UUID) error {
	raw, err := ix.tx.Get(storage.BucketVectorData, storage.VectorDataKey(id))
	if err != nil {
		return err
	}
	if raw == nil {
		return kernelerrors.NotFound(fmt.Sprintf("vector %s not found", id))
	}
	entry, err := decodeEntry(id, raw)
	if err != nil {
		return err
	}
	if ix.cache != nil {
		ix.cache.Remove(id)
	}
	return ix.tx.Put(storage.BucketVectorData, storage.VectorDataKey(id), encodeEntry(entry.Label, entry.Vector, true, entry.Properties))
}

// Get returns a single live vector entry by ID, used by the traversal
// engine's V(label, id) point-lookup step. A soft-deleted vector reads
// back as DeletedVector, matching search's "never returned" rule. The
// decode cache is only consulted and populated in read-only
// transactions, so an aborted write can never leave uncommitted
// entries visible through it.
func (ix *Index) Get(id uuid.UUID) (Entry, error) {
	cacheable := ix.cache != nil && !ix.tx.Writable()
	if cacheable {
		if entry, ok := ix.cache.Get(id); ok && entry.Label == ix.label {
			if entry.Deleted {
				return Entry{}, kernelerrors.DeletedVector(fmt.Sprintf("vector %s is soft-deleted", id))
			}
			return entry, nil
		}
	}
	raw, err := ix.tx.Get(storage.BucketVectorData, storage.VectorDataKey(id))
	if err != nil {
		return Entry{}, err
	}
	if raw == nil {
		return Entry{}, kernelerrors.NotFound(fmt.Sprintf("vector %s not found", id))
	}
	entry, err := decodeEntry(id, raw)
	if err != nil {
		return Entry{}, err
	}
	if cacheable {
		ix.cache.Add(id, entry)
	}
	if entry.Label != ix.label {
		return Entry{}, kernelerrors.NotFound(fmt.Sprintf("vector %s not found under label %q", id, ix.label))
	}
	if entry.Deleted {
		return Entry{}, kernelerrors.DeletedVector(fmt.Sprintf("vector %s is soft-deleted", id))
	}
	return entry, nil
}

// Entries scans every live vector under this index's label, lazily, for
// the traversal engine's V(label) label-scan step.
func (ix *Index) Entries() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		stop := false
		err := ix.tx.ForEachPrefix(storage.BucketVectorData, nil, func(key, val []byte) error {
			if stop {
				return nil
			}
			id, err := storage.DecodeVectorDataKey(key)
			if err != nil {
				return err
			}
			entry, err := decodeEntry(id, val)
			if err != nil {
				return err
			}
			if entry.Label != ix.label || entry.Deleted {
				return nil
			}
			if !yield(entry, nil) {
				stop = true
			}
			return nil
		})
		if err != nil {
			yield(Entry{}, err)
		}
	}
}

// UpdateProperties merges partial into a vector entry's scalar
// properties, leaving its embedding and graph links untouched.
func (ix *Index) UpdateProperties(id uuid.UUID, partial map[string]value.Value) error {
	entry, err := ix.Get(id)
	if err != nil {
		return err
	}
	merged := value.MergeProperties(entry.Properties, partial)
	if ix.cache != nil {
		ix.cache.Remove(id)
	}
	return ix.tx.Put(storage.BucketVectorData, storage.VectorDataKey(id), encodeEntry(entry.Label, entry.Vector, false, merged))
}

// Len counts live (non-deleted) vectors under this index's label.
func (ix *Index) Len() (int, error) {
	count := 0
	err := ix.tx.ForEachPrefix(storage.BucketVectorData, nil, func(key, val []byte) error {
		id, err := storage.DecodeVectorDataKey(key)
		if err != nil {
			return err
		}
		entry, err := decodeEntry(id, val)
		if err != nil {
			return err
		}
		if entry.Label == ix.label && !entry.Deleted {
			count++
		}
		return nil
	})
	return count, err
}

