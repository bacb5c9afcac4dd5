// Package engine wires Storage, GraphStore, VectorIndex, and BM25Index
// into the single embeddable Engine a host process opens, and exposes
// the handler registration surface: a routine `(request, engine) →
// response` bound to an operation name.
package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/helix-kernel/helix/internal/bm25"
	"github.com/helix-kernel/helix/internal/config"
	"github.com/helix-kernel/helix/internal/graph"
	"github.com/helix-kernel/helix/internal/kernelerrors"
	"github.com/helix-kernel/helix/internal/storage"
	"github.com/helix-kernel/helix/internal/traversal"
	vectorpkg "github.com/helix-kernel/helix/internal/vector"
)

const (
	defaultNodeCacheSize   = 4096
	defaultVectorCacheSize = 4096
)

// vectorLabelConfig is what the engine must remember about a vector
// label beyond its schema entry: the distance metric. Metric selection
// stays at this layer (rather than graph.VectorSchema or config.Config)
// because neither package may import internal/vector without creating
// a cycle back through traversal's VectorProvider.
type vectorLabelConfig struct {
	metric vectorpkg.Metric
	params config.HNSWParams
}

// Engine is the embeddable database kernel: one Storage environment,
// one additive Schema, and the registration surface for request
// handlers. A host process constructs exactly one Engine per data
// directory.
type Engine struct {
	storage *storage.Engine
	schema  *graph.Schema
	cfg     config.Config
	log     *slog.Logger

	vectorLabels map[string]vectorLabelConfig
	bm25Params   map[string]bm25.Params

	nodeCache   *graph.NodeCache
	vectorCache *vectorpkg.EntryCache

	readHandlers  map[string]Handler
	writeHandlers map[string]Handler
}

// Open starts an Engine rooted at path, applying cfg (use
// config.Default() merged with config.Load for environment overrides).
func Open(path string, cfg config.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	st, err := storage.Open(path, cfg.DBSizeGiB, logger)
	if err != nil {
		return nil, err
	}
	nodeCache, err := graph.NewNodeCache(defaultNodeCacheSize)
	if err != nil {
		return nil, kernelerrors.New(kernelerrors.CodeInvalidPath, "failed to allocate node decode cache", err)
	}
	vectorCache, err := vectorpkg.NewEntryCache(defaultVectorCacheSize)
	if err != nil {
		return nil, kernelerrors.New(kernelerrors.CodeInvalidPath, "failed to allocate vector decode cache", err)
	}
	return &Engine{
		storage:       st,
		schema:        graph.NewSchema(),
		cfg:           cfg,
		log:           logger,
		vectorLabels:  map[string]vectorLabelConfig{},
		bm25Params:    map[string]bm25.Params{},
		nodeCache:     nodeCache,
		vectorCache:   vectorCache,
		readHandlers:  map[string]Handler{},
		writeHandlers: map[string]Handler{},
	}, nil
}

// Close releases the underlying storage environment.
func (e *Engine) Close() error {
	return e.storage.Close()
}

// RegisterNodeLabel declares a node label's schema. Labels must be
// declared before any entity is written under them.
func (e *Engine) RegisterNodeLabel(def graph.NodeSchema) error {
	return e.schema.RegisterNode(def)
}

// RegisterEdgeLabel declares an edge label's schema.
func (e *Engine) RegisterEdgeLabel(def graph.EdgeSchema) error {
	return e.schema.RegisterEdge(def)
}

// RegisterVectorLabel declares a vector label's schema, distance
// metric, and (optionally overridden) HNSW parameters. Construction
// parameters are persisted in the meta sub-store on first
// registration; a data directory that already carries parameters for
// the label keeps them, since a graph built with one M cannot be
// searched correctly under another.
func (e *Engine) RegisterVectorLabel(def graph.VectorSchema, metric vectorpkg.Metric) error {
	if err := e.schema.RegisterVector(def); err != nil {
		return err
	}
	params := e.cfg.HNSWParamsFor(def.Label)
	key := []byte("hnsw_params:" + def.Label)
	err := e.storage.WithWrite(func(tx *storage.Tx) error {
		raw, err := tx.Get(storage.BucketMeta, key)
		if err != nil {
			return err
		}
		if raw != nil {
			params, err = decodeHNSWParams(raw)
			return err
		}
		return tx.Put(storage.BucketMeta, key, encodeHNSWParams(params))
	})
	if err != nil {
		return err
	}
	e.vectorLabels[def.Label] = vectorLabelConfig{metric: metric, params: params}
	return nil
}

func encodeHNSWParams(p config.HNSWParams) []byte {
	buf := make([]byte, 0, 12)
	buf = append(buf, storage.EncodeU32(uint32(p.M))...)
	buf = append(buf, storage.EncodeU32(uint32(p.EfConstruction))...)
	buf = append(buf, storage.EncodeU32(uint32(p.EfSearch))...)
	return buf
}

func decodeHNSWParams(raw []byte) (config.HNSWParams, error) {
	if len(raw) != 12 {
		return config.HNSWParams{}, kernelerrors.InvalidEncoding("hnsw params record has wrong length")
	}
	m, err := storage.DecodeU32(raw[0:4])
	if err != nil {
		return config.HNSWParams{}, err
	}
	efc, err := storage.DecodeU32(raw[4:8])
	if err != nil {
		return config.HNSWParams{}, err
	}
	efs, err := storage.DecodeU32(raw[8:12])
	if err != nil {
		return config.HNSWParams{}, err
	}
	return config.HNSWParams{M: int(m), EfConstruction: int(efc), EfSearch: int(efs)}.Clamp(), nil
}

// RegisterBM25Label sets the BM25 parameters a label's documents are
// scored with; if never called, DefaultParams() applies, with its
// accumulator cap replaced by Config.BM25AccumulatorCap when that is set.
func (e *Engine) RegisterBM25Label(label string, params bm25.Params) {
	e.bm25Params[label] = params
}

// vectorIndex constructs a per-transaction Index for label using its
// registered dimension and metric, backing traversal.VectorProvider.
func (e *Engine) vectorIndex(tx *storage.Tx, label string) (*vectorpkg.Index, error) {
	vs, ok := e.schema.Vector(label)
	if !ok {
		return nil, kernelerrors.SchemaViolation(fmt.Sprintf("vector label %q is not registered", label))
	}
	lc, ok := e.vectorLabels[label]
	if !ok {
		lc = vectorLabelConfig{metric: vectorpkg.MetricSquaredEuclidean, params: e.cfg.HNSWParamsFor(label)}
	}
	return vectorpkg.NewCached(tx, label, vs.Dimension, lc.params, lc.metric, e.vectorCache), nil
}

// bm25Index implements traversal.BM25Provider.
func (e *Engine) bm25Index(tx *storage.Tx, label string) (*bm25.Index, error) {
	params, ok := e.bm25Params[label]
	if !ok {
		params = bm25.DefaultParams()
		if e.cfg.BM25AccumulatorCap > 0 {
			params.AccumulatorCap = e.cfg.BM25AccumulatorCap
		}
	}
	return bm25.New(tx, label, params), nil
}

// txProviders adapts a single *storage.Tx to traversal.VectorProvider/
// BM25Provider, since both interfaces are per-call but the underlying
// construction needs the schema and tx together.
type txProviders struct {
	e  *Engine
	tx *storage.Tx
}

func (p txProviders) VectorIndex(label string) (*vectorpkg.Index, error) { return p.e.vectorIndex(p.tx, label) }
func (p txProviders) BM25Index(label string) (*bm25.Index, error)        { return p.e.bm25Index(p.tx, label) }

// newTraversal scopes a traversal.Engine to tx, using a cached
// graph.Store so repeated node decodes within (and across) requests
// are cheap.
func (e *Engine) newTraversal(tx *storage.Tx) *traversal.Engine {
	providers := txProviders{e: e, tx: tx}
	return traversal.NewCached(tx, e.schema, e.nodeCache, providers, providers, e.cfg)
}

// Read runs fn against a fresh read-only traversal.Engine. Handlers
// should hold a transaction for the shortest possible time: fn runs
// its pipeline and returns.
func (e *Engine) Read(fn func(te *traversal.Engine) error) error {
	return e.storage.WithRead(func(tx *storage.Tx) error {
		return fn(e.newTraversal(tx))
	})
}

// Write runs fn against a fresh read-write traversal.Engine, committing
// on success and rolling back on error or panic.
func (e *Engine) Write(fn func(te *traversal.Engine) error) error {
	return e.storage.WithWrite(func(tx *storage.Tx) error {
		return fn(e.newTraversal(tx))
	})
}

// Stats reports aggregate counts across every registered label, for
// operational visibility.
type Stats struct {
	NodeCounts   map[string]int
	EdgeCounts   map[string]int
	VectorCounts map[string]int
}

// Stats computes a snapshot under a fresh read transaction.
func (e *Engine) Stats() (Stats, error) {
	stats := Stats{
		NodeCounts:   map[string]int{},
		EdgeCounts:   map[string]int{},
		VectorCounts: map[string]int{},
	}
	err := e.storage.WithRead(func(tx *storage.Tx) error {
		gs := graph.NewCached(tx, e.schema, e.nodeCache)
		for _, label := range e.nodeLabels() {
			n, err := gs.CountByLabel(label)
			if err != nil {
				return err
			}
			stats.NodeCounts[label] = n
		}
		for _, label := range e.edgeLabels() {
			count := 0
			for edge, err := range gs.Edges(label) {
				if err != nil {
					return err
				}
				_ = edge
				count++
			}
			stats.EdgeCounts[label] = count
		}
		for _, label := range e.vectorLabelNames() {
			ix, err := e.vectorIndex(tx, label)
			if err != nil {
				return err
			}
			n, err := ix.Len()
			if err != nil {
				return err
			}
			stats.VectorCounts[label] = n
		}
		return nil
	})
	return stats, err
}

func (e *Engine) nodeLabels() []string {
	labels := e.schema.NodeLabels()
	sort.Strings(labels)
	return labels
}

func (e *Engine) edgeLabels() []string {
	labels := e.schema.EdgeLabels()
	sort.Strings(labels)
	return labels
}

func (e *Engine) vectorLabelNames() []string {
	labels := make([]string, 0, len(e.vectorLabels))
	for label := range e.vectorLabels {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Compact rebuilds label's HNSW graph from scratch, skipping every
// soft-deleted vector, reclaiming the links and layer assignments a
// long-running soft-delete-heavy workload accumulates. It is a manual,
// caller-invoked entry point, never scheduled automatically.
func (e *Engine) Compact(label string) error {
	lc, ok := e.vectorLabels[label]
	if !ok {
		lc = vectorLabelConfig{metric: vectorpkg.MetricSquaredEuclidean, params: e.cfg.HNSWParamsFor(label)}
	}
	return e.storage.WithWrite(func(tx *storage.Tx) error {
		return vectorpkg.Rebuild(tx, label, lc.params, lc.metric)
	})
}

// Request is one kernel operation invocation: an operation name plus
// its JSON-like argument map.
type Request struct {
	Op   string
	Args map[string]any
	// ID optionally names the entity a point-lookup operation targets.
	ID *uuid.UUID
}

// Response carries a handler's traversal result back to the gateway.
type Response struct {
	Results []traversal.Value
}

// Handler implements one registered operation against a scoped
// traversal.Engine.
type Handler func(te *traversal.Engine, req Request) (Response, error)

// ErrorEnvelope is the compact {code, message} form a handler failure
// takes on the wire back to the gateway.
type ErrorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Envelope translates a kernel error into its wire envelope. A non-nil
// error that is not a KernelError (which no kernel entry point should
// produce) is enveloped under the transaction-aborted code rather than
// leaked as an untyped string.
func Envelope(err error) *ErrorEnvelope {
	if err == nil {
		return nil
	}
	code := kernelerrors.Code(err)
	if code == "" {
		code = kernelerrors.CodeTransactionAborted
	}
	return &ErrorEnvelope{Code: code, Message: err.Error()}
}

// RegisterReadHandler binds op to h, executed inside a read
// transaction.
func (e *Engine) RegisterReadHandler(op string, h Handler) {
	e.readHandlers[op] = h
}

// RegisterWriteHandler binds op to h, executed inside the write
// transaction.
func (e *Engine) RegisterWriteHandler(op string, h Handler) {
	e.writeHandlers[op] = h
}

// Handle dispatches req to its registered handler, choosing the read
// or write transaction depending on which registry op was bound under.
// An operation registered under neither fails with UnsupportedStep.
func (e *Engine) Handle(req Request) (Response, error) {
	if h, ok := e.readHandlers[req.Op]; ok {
		var resp Response
		err := e.Read(func(te *traversal.Engine) error {
			var err error
			resp, err = h(te, req)
			return err
		})
		if err != nil {
			e.log.Error("handler_failed", slog.String("op", req.Op), slog.Any("error", err))
		}
		return resp, err
	}
	if h, ok := e.writeHandlers[req.Op]; ok {
		var resp Response
		err := e.Write(func(te *traversal.Engine) error {
			var err error
			resp, err = h(te, req)
			return err
		})
		if err != nil {
			e.log.Error("handler_failed", slog.String("op", req.Op), slog.Any("error", err))
		}
		return resp, err
	}
	err := kernelerrors.UnsupportedStep(fmt.Sprintf("no handler registered for operation %q", req.Op))
	e.log.Error("handler_not_found", slog.String("op", req.Op))
	return Response{}, err
}
