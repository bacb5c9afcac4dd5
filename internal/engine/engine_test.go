package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helix-kernel/helix/internal/config"
	"github.com/helix-kernel/helix/internal/graph"
	"github.com/helix-kernel/helix/internal/kernelerrors"
	"github.com/helix-kernel/helix/internal/traversal"
	"github.com/helix-kernel/helix/internal/value"
	vectorpkg "github.com/helix-kernel/helix/internal/vector"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.MkdirAll(filepath.Dir(dir), 0o755))
	e, err := Open(dir, config.Default(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestRegisterAndCountLabels(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, e.RegisterNodeLabel(graph.NodeSchema{Label: "Person", Properties: []graph.PropertyDef{
		{Name: "name", Kind: value.KindString},
	}}))
	require.NoError(t, e.RegisterVectorLabel(graph.VectorSchema{Label: "Doc", Dimension: 2}, vectorpkg.MetricCosine))

	err := e.Write(func(te *traversal.Engine) error {
		_, err := te.Run(traversal.AddN("Person", map[string]value.Value{"name": value.String("a")}))
		return err
	})
	require.NoError(t, err)

	err = e.Write(func(te *traversal.Engine) error {
		_, err := te.Run(traversal.AddV("Doc", []float32{1, 0}, nil))
		return err
	})
	require.NoError(t, err)

	stats, err := e.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.NodeCounts["Person"])
	assert.Equal(t, 1, stats.VectorCounts["Doc"])
}

func TestHandlerRegistrationDispatch(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, e.RegisterNodeLabel(graph.NodeSchema{Label: "Person", Properties: []graph.PropertyDef{
		{Name: "name", Kind: value.KindString},
	}}))

	e.RegisterWriteHandler("create_person", func(te *traversal.Engine, req Request) (Response, error) {
		name, _ := req.Args["name"].(string)
		out, err := te.Run(traversal.AddN("Person", map[string]value.Value{"name": value.String(name)}))
		if err != nil {
			return Response{}, err
		}
		return Response{Results: out}, nil
	})
	e.RegisterReadHandler("count_people", func(te *traversal.Engine, req Request) (Response, error) {
		out, err := te.Run(traversal.N("Person", nil), traversal.COUNT())
		if err != nil {
			return Response{}, err
		}
		return Response{Results: out}, nil
	})

	resp, err := e.Handle(Request{Op: "create_person", Args: map[string]any{"name": "ada"}})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	resp, err = e.Handle(Request{Op: "count_people"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	n, ok := resp.Results[0].Scalar.AsInt64()
	require.True(t, ok)
	assert.Equal(t, int64(1), n)

	_, err = e.Handle(Request{Op: "nonexistent"})
	assert.Error(t, err)

	env := Envelope(err)
	require.NotNil(t, env)
	assert.Equal(t, kernelerrors.CodeUnsupportedStep, env.Code)
	assert.NotEmpty(t, env.Message)
	assert.Nil(t, Envelope(nil))
}

func TestVectorParamsStickAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	cfg := config.Default()
	cfg.HNSW = map[string]config.HNSWParams{"Doc": {M: 8, EfConstruction: 64, EfSearch: 32}}
	e, err := Open(dir, cfg, nil)
	require.NoError(t, err)
	require.NoError(t, e.RegisterVectorLabel(graph.VectorSchema{Label: "Doc", Dimension: 2}, vectorpkg.MetricSquaredEuclidean))
	require.NoError(t, e.Close())

	e, err = Open(dir, config.Default(), nil)
	require.NoError(t, err)
	defer e.Close()
	require.NoError(t, e.RegisterVectorLabel(graph.VectorSchema{Label: "Doc", Dimension: 2}, vectorpkg.MetricSquaredEuclidean))
	assert.Equal(t, 8, e.vectorLabels["Doc"].params.M)
}

func TestCompactRebuildsVectorIndex(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, e.RegisterVectorLabel(graph.VectorSchema{Label: "Doc", Dimension: 2}, vectorpkg.MetricSquaredEuclidean))

	err := e.Write(func(te *traversal.Engine) error {
		if _, err := te.Run(traversal.AddV("Doc", []float32{1, 0}, nil)); err != nil {
			return err
		}
		b, err := te.Run(traversal.AddV("Doc", []float32{0, 1}, nil))
		if err != nil {
			return err
		}
		dropID := b[0].Vector.ID
		_, err = te.Run(traversal.V("Doc", &dropID), traversal.Drop("Doc"))
		return err
	})
	require.NoError(t, err)

	require.NoError(t, e.Compact("Doc"))

	stats, err := e.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.VectorCounts["Doc"])
}
