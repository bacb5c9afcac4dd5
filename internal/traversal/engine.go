package traversal

import (
	"strings"

	"github.com/google/uuid"

	"github.com/helix-kernel/helix/internal/bm25"
	"github.com/helix-kernel/helix/internal/config"
	"github.com/helix-kernel/helix/internal/graph"
	"github.com/helix-kernel/helix/internal/kernelerrors"
	"github.com/helix-kernel/helix/internal/storage"
	vectorpkg "github.com/helix-kernel/helix/internal/vector"
)

// VectorProvider resolves the per-label HNSW index used by V/SearchV,
// implemented by the top-level Engine (which alone knows each label's
// declared dimension and distance metric).
type VectorProvider interface {
	VectorIndex(label string) (*vectorpkg.Index, error)
}

// BM25Provider resolves the per-label BM25 index used by SearchBM25.
type BM25Provider interface {
	BM25Index(label string) (*bm25.Index, error)
}

// Engine executes a pipeline of Steps against a single storage
// transaction. One Engine is created per request and discarded at
// transaction scope exit.
type Engine struct {
	tx      *storage.Tx
	schema  *graph.Schema
	graph   *graph.Store
	vectors VectorProvider
	bm25    BM25Provider
	cfg     config.Config
}

// New scopes an Engine to tx.
func New(tx *storage.Tx, schema *graph.Schema, vectors VectorProvider, bm25s BM25Provider, cfg config.Config) *Engine {
	return &Engine{
		tx:      tx,
		schema:  schema,
		graph:   graph.New(tx, schema),
		vectors: vectors,
		bm25:    bm25s,
		cfg:     cfg,
	}
}

// NewCached scopes an Engine like New, additionally threading cache into
// the underlying graph store so repeated node decodes across hops (and
// across requests, since the cache outlives any one transaction) are
// cheap. cache may be nil.
func NewCached(tx *storage.Tx, schema *graph.Schema, cache *graph.NodeCache, vectors VectorProvider, bm25s BM25Provider, cfg config.Config) *Engine {
	e := New(tx, schema, vectors, bm25s, cfg)
	e.graph = graph.NewCached(tx, schema, cache)
	return e
}

// reindexBM25 derives node's virtual BM25 document from its schema's
// FullText-declared properties and writes it, replacing any prior
// indexed version of the same node. A node whose label declares no
// FullText property is left untouched: not every label carries
// searchable text.
func (e *Engine) reindexBM25(node graph.Node) error {
	fields := e.schema.FullTextProperties(node.Label)
	if len(fields) == 0 {
		return nil
	}
	ix, err := e.bm25.BM25Index(node.Label)
	if err != nil {
		return err
	}
	var text strings.Builder
	for _, name := range fields {
		v, ok := node.Properties[name]
		if !ok {
			continue
		}
		s, ok := v.AsString()
		if !ok {
			continue
		}
		if text.Len() > 0 {
			text.WriteByte(' ')
		}
		text.WriteString(s)
	}
	return ix.IndexDocument(node.ID, text.String())
}

// dropBM25 removes id's indexed document under label, if label declares
// any FullText property; a node never indexed is a silent no-op.
func (e *Engine) dropBM25(label string, id uuid.UUID) error {
	fields := e.schema.FullTextProperties(label)
	if len(fields) == 0 {
		return nil
	}
	ix, err := e.bm25.BM25Index(label)
	if err != nil {
		return err
	}
	if err := ix.DropDocument(id); err != nil {
		if kernelerrors.Code(err) == kernelerrors.CodeNotFound {
			return nil
		}
		return err
	}
	return nil
}

// Step transforms a pipeline's current sequence into the next one. A
// producer step (N, E, V, ShortestPath*) typically ignores in; a
// consumer step (Out, WHERE, COUNT, ...) maps or reduces it.
type Step func(e *Engine, in []Value) ([]Value, error)

// Run executes steps in order, threading each step's output into the
// next, matching the "steps compose by consumption" design note.
func (e *Engine) Run(steps ...Step) ([]Value, error) {
	cur := []Value{}
	for _, step := range steps {
		next, err := step(e, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
