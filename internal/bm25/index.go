package bm25

import (
	"hash/fnv"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/helix-kernel/helix/internal/kernelerrors"
	"github.com/helix-kernel/helix/internal/storage"
)

// Params are the scoring/bound knobs: the standard Okapi BM25
// constants and the query-time accumulator cap that bounds memory on
// pathological queries.
type Params struct {
	K1             float64
	B              float64
	AccumulatorCap int
}

// DefaultParams returns the standard Okapi constants and the default
// accumulator cap.
func DefaultParams() Params {
	return Params{K1: 1.2, B: 0.75, AccumulatorCap: 100_000}
}

// Index maintains one label's BM25 corpus (postings, document lengths,
// and stats) scoped to a single storage transaction. One Index exists
// per node label carrying indexed text, mirroring VectorIndex's
// per-label scoping.
type Index struct {
	tx     *storage.Tx
	label  string
	params Params
}

// New scopes an Index to tx for label.
func New(tx *storage.Tx, label string, params Params) *Index {
	if params.AccumulatorCap <= 0 {
		params.AccumulatorCap = DefaultParams().AccumulatorCap
	}
	return &Index{tx: tx, label: label, params: params}
}

func (ix *Index) termHash(term string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ix.label))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(term))
	return h.Sum32()
}

func (ix *Index) statsKey() []byte {
	return storage.BM25StatsKey(ix.label)
}

func (ix *Index) stats() (statsRecord, error) {
	raw, err := ix.tx.Get(storage.BucketBM25Stats, ix.statsKey())
	if err != nil {
		return statsRecord{}, err
	}
	return decodeStatsRecord(raw)
}

func (ix *Index) putStats(s statsRecord) error {
	return ix.tx.Put(storage.BucketBM25Stats, ix.statsKey(), encodeStatsRecord(s))
}

func (ix *Index) docRecord(docID uuid.UUID) (docRecord, bool, error) {
	raw, err := ix.tx.Get(storage.BucketBM25Docs, storage.BM25DocKey(docID))
	if err != nil {
		return docRecord{}, false, err
	}
	if raw == nil {
		return docRecord{}, false, nil
	}
	rec, err := decodeDocRecord(raw)
	return rec, true, err
}

// IndexDocument tokenizes text, replaces any previously indexed version
// of docID (decrementing its old postings/stats contribution first), and
// writes the fresh postings, document-length record, and updated stats.
// Called from the same write transaction as the owning node's write so
// corpus stats stay consistent with the stored records.
func (ix *Index) IndexDocument(docID uuid.UUID, text string) error {
	if err := ix.DropDocument(docID); err != nil && kernelerrors.Code(err) != kernelerrors.CodeNotFound {
		return err
	}

	freq := TermFrequencies(text)
	// The document length counts every word token, stop words included,
	// so a stop word still makes the document it appears in longer.
	length := uint32(len(pipeline.Tokenizer.Tokenize([]byte(text))))
	terms := make(map[uint32]uint32, len(freq))
	for term, tf := range freq {
		hash := ix.termHash(term)
		terms[hash] = uint32(tf)
		if err := ix.tx.Put(storage.BucketBM25Postings, storage.PostingKey(hash, docID), storage.EncodeU32(uint32(tf))); err != nil {
			return err
		}
	}
	if err := ix.tx.Put(storage.BucketBM25Docs, storage.BM25DocKey(docID), encodeDocRecord(docRecord{length: length, terms: terms})); err != nil {
		return err
	}

	s, err := ix.stats()
	if err != nil {
		return err
	}
	s.docCount++
	s.sumLengths += uint64(length)
	return ix.putStats(s)
}

// DropDocument removes docID's postings and doc-length record and
// decrements stats accordingly. A no-op (NotFound) if docID was never
// indexed, e.g. the owning node carried no textual properties.
func (ix *Index) DropDocument(docID uuid.UUID) error {
	rec, ok, err := ix.docRecord(docID)
	if err != nil {
		return err
	}
	if !ok {
		return kernelerrors.NotFound("document not indexed")
	}
	for hash := range rec.terms {
		if err := ix.tx.Delete(storage.BucketBM25Postings, storage.PostingKey(hash, docID)); err != nil {
			return err
		}
	}
	if err := ix.tx.Delete(storage.BucketBM25Docs, storage.BM25DocKey(docID)); err != nil {
		return err
	}
	s, err := ix.stats()
	if err != nil {
		return err
	}
	if s.docCount > 0 {
		s.docCount--
	}
	if s.sumLengths >= uint64(rec.length) {
		s.sumLengths -= uint64(rec.length)
	} else {
		s.sumLengths = 0
	}
	return ix.putStats(s)
}

// Result is one ranked hit from Query.
type Result struct {
	DocID uuid.UUID
	Score float64
}

// Query tokenizes queryText, accumulates the Okapi BM25 score for every
// posted document across every query term, and returns the top k by
// score (descending), ties broken by ID for determinism. The running
// candidate map is capped at Params.AccumulatorCap; once full, a new
// document only displaces the current minimum-scoring candidate.
func (ix *Index) Query(queryText string, k int) ([]Result, error) {
	terms := Tokenize(queryText)
	if len(terms) == 0 {
		return nil, kernelerrors.EmptyQuery()
	}
	if k <= 0 {
		return nil, nil
	}

	s, err := ix.stats()
	if err != nil {
		return nil, err
	}
	if s.docCount == 0 {
		return nil, nil
	}
	avgdl := float64(s.sumLengths) / float64(s.docCount)

	scores := make(map[uuid.UUID]float64)
	for _, term := range terms {
		hash := ix.termHash(term)
		type posting struct {
			doc uuid.UUID
			tf  uint32
		}
		var postings []posting
		if err := ix.tx.ForEachPrefix(storage.BucketBM25Postings, storage.PostingTermPrefix(hash), func(key, val []byte) error {
			decoded, err := storage.DecodePostingKey(key)
			if err != nil {
				return err
			}
			tf, err := storage.DecodeU32(val)
			if err != nil {
				return err
			}
			postings = append(postings, posting{doc: decoded.DocID, tf: tf})
			return nil
		}); err != nil {
			return nil, err
		}
		if len(postings) == 0 {
			continue
		}
		df := float64(len(postings))
		idf := math.Log((float64(s.docCount)-df+0.5)/(df+0.5) + 1)

		for _, p := range postings {
			rec, ok, err := ix.docRecord(p.doc)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			tf := float64(p.tf)
			docLen := float64(rec.length)
			denom := tf + ix.params.K1*(1-ix.params.B+ix.params.B*(docLen/avgdl))
			contribution := idf * (tf * (ix.params.K1 + 1)) / denom

			if _, present := scores[p.doc]; !present && len(scores) >= ix.params.AccumulatorCap {
				minDoc, minScore, found := minEntry(scores)
				if !found || contribution <= minScore {
					continue
				}
				delete(scores, minDoc)
			}
			scores[p.doc] += contribution
		}
	}

	out := make([]Result, 0, len(scores))
	for doc, score := range scores {
		out = append(out, Result{DocID: doc, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return lessID(out[i].DocID, out[j].DocID)
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func minEntry(scores map[uuid.UUID]float64) (uuid.UUID, float64, bool) {
	var (
		minDoc   uuid.UUID
		minScore float64
		found    bool
	)
	for doc, score := range scores {
		if !found || score < minScore {
			minDoc, minScore, found = doc, score, true
		}
	}
	return minDoc, minScore, found
}

func lessID(a, b uuid.UUID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
