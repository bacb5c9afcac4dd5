package traversal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helix-kernel/helix/internal/bm25"
	"github.com/helix-kernel/helix/internal/config"
	"github.com/helix-kernel/helix/internal/graph"
	"github.com/helix-kernel/helix/internal/storage"
	"github.com/helix-kernel/helix/internal/value"
	vectorpkg "github.com/helix-kernel/helix/internal/vector"
)

// fakeIndices lazily builds one vector.Index / bm25.Index per label
// against the current transaction, standing in for the top-level
// engine package's real VectorProvider/BM25Provider implementation.
type fakeIndices struct {
	tx  *storage.Tx
	dim int
}

func (f *fakeIndices) VectorIndex(label string) (*vectorpkg.Index, error) {
	return vectorpkg.New(f.tx, label, f.dim, config.Default().HNSWParamsFor(label), vectorpkg.MetricSquaredEuclidean), nil
}

func (f *fakeIndices) BM25Index(label string) (*bm25.Index, error) {
	return bm25.New(f.tx, label, bm25.DefaultParams()), nil
}

func openTestEngine(t *testing.T) *storage.Engine {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.MkdirAll(filepath.Dir(dir), 0o755))
	eng, err := storage.Open(dir, 1, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func withEngine(t *testing.T, fn func(e *Engine) error) {
	t.Helper()
	store := openTestEngine(t)
	schema := graph.NewSchema()
	require.NoError(t, schema.RegisterNode(graph.NodeSchema{Label: "Person", Properties: []graph.PropertyDef{
		{Name: "name", Kind: value.KindString},
		{Name: "age", Kind: value.KindInt64},
	}}))
	require.NoError(t, schema.RegisterEdge(graph.EdgeSchema{Label: "FOLLOWS", From: "Person", To: "Person"}))
	require.NoError(t, schema.RegisterVector(graph.VectorSchema{Label: "Doc", Dimension: 3}))
	require.NoError(t, schema.RegisterEdge(graph.EdgeSchema{Label: "EMBEDS", From: "Person", To: "Doc"}))
	require.NoError(t, schema.RegisterNode(graph.NodeSchema{Label: "Article", Properties: []graph.PropertyDef{
		{Name: "body", Kind: value.KindString, FullText: true},
	}}))

	err := store.WithWrite(func(tx *storage.Tx) error {
		e := New(tx, schema, &fakeIndices{tx: tx, dim: 3}, &fakeIndices{tx: tx, dim: 3}, config.Default())
		return fn(e)
	})
	require.NoError(t, err)
}

func TestFollowsTwoHopBFS(t *testing.T) {
	withEngine(t, func(e *Engine) error {
		alice, err := e.Run(AddN("Person", map[string]value.Value{"name": value.String("alice")}))
		require.NoError(t, err)
		bob, err := e.Run(AddN("Person", map[string]value.Value{"name": value.String("bob")}))
		require.NoError(t, err)
		carol, err := e.Run(AddN("Person", map[string]value.Value{"name": value.String("carol")}))
		require.NoError(t, err)

		_, err = e.Run(AddE("FOLLOWS", alice[0].Node.ID, bob[0].Node.ID, nil))
		require.NoError(t, err)
		_, err = e.Run(AddE("FOLLOWS", bob[0].Node.ID, carol[0].Node.ID, nil))
		require.NoError(t, err)

		two, err := e.Run(
			N("Person", &alice[0].Node.ID),
			Out("FOLLOWS"),
			Out("FOLLOWS"),
		)
		require.NoError(t, err)
		require.Len(t, two, 1)
		assert.Equal(t, carol[0].Node.ID, two[0].Node.ID)

		path, err := e.Run(
			N("Person", &alice[0].Node.ID),
			ShortestPathBFS(graph.DirectionOut, "FOLLOWS", carol[0].Node.ID),
		)
		require.NoError(t, err)
		require.Len(t, path, 1)
		assert.Equal(t, 3, path[0].Group.Count)
		return nil
	})
}

func TestWhereFiltersByProperty(t *testing.T) {
	withEngine(t, func(e *Engine) error {
		_, err := e.Run(AddN("Person", map[string]value.Value{"name": value.String("young"), "age": value.Int64(12)}))
		require.NoError(t, err)
		_, err = e.Run(AddN("Person", map[string]value.Value{"name": value.String("old"), "age": value.Int64(80)}))
		require.NoError(t, err)

		adults, err := e.Run(
			N("Person", nil),
			WHERE(GTE(Prop("age"), value.Int64(18))),
		)
		require.NoError(t, err)
		require.Len(t, adults, 1)
		assert.Equal(t, "old", mustString(adults[0].Node.Properties["name"]))
		return nil
	})
}

func TestShortestPathDijkstraWeightsByProperty(t *testing.T) {
	withEngine(t, func(e *Engine) error {
		a, err := e.Run(AddN("Person", map[string]value.Value{"name": value.String("a")}))
		require.NoError(t, err)
		b, err := e.Run(AddN("Person", map[string]value.Value{"name": value.String("b")}))
		require.NoError(t, err)
		c, err := e.Run(AddN("Person", map[string]value.Value{"name": value.String("c")}))
		require.NoError(t, err)

		_, err = e.Run(AddE("FOLLOWS", a[0].Node.ID, c[0].Node.ID, map[string]value.Value{"weight": value.Float64(10)}))
		require.NoError(t, err)
		_, err = e.Run(AddE("FOLLOWS", a[0].Node.ID, b[0].Node.ID, map[string]value.Value{"weight": value.Float64(1)}))
		require.NoError(t, err)
		_, err = e.Run(AddE("FOLLOWS", b[0].Node.ID, c[0].Node.ID, map[string]value.Value{"weight": value.Float64(1)}))
		require.NoError(t, err)

		path, err := e.Run(
			N("Person", &a[0].Node.ID),
			ShortestPathDijkstra(graph.DirectionOut, "FOLLOWS", "weight", c[0].Node.ID),
		)
		require.NoError(t, err)
		require.Len(t, path, 1)
		require.Equal(t, 3, path[0].Group.Count)
		assert.Equal(t, b[0].Node.ID, path[0].Group.Items[1].Node.ID)
		return nil
	})
}

func TestSearchVAndRerankMMR(t *testing.T) {
	withEngine(t, func(e *Engine) error {
		_, err := e.Run(AddV("Doc", []float32{1, 0, 0}, nil))
		require.NoError(t, err)
		_, err = e.Run(AddV("Doc", []float32{0.9, 0.1, 0}, nil))
		require.NoError(t, err)
		_, err = e.Run(AddV("Doc", []float32{0, 1, 0}, nil))
		require.NoError(t, err)

		results, err := e.Run(SearchV("Doc", []float32{1, 0, 0}, 3, 64))
		require.NoError(t, err)
		require.Len(t, results, 3)

		diverse, err := e.Run(SearchV("Doc", []float32{1, 0, 0}, 3, 64), RerankMMR(0.5, 2))
		require.NoError(t, err)
		require.Len(t, diverse, 2)
		return nil
	})
}

func TestEdgesBridgeNodesAndVectors(t *testing.T) {
	withEngine(t, func(e *Engine) error {
		person, err := e.Run(AddN("Person", map[string]value.Value{"name": value.String("p")}))
		require.NoError(t, err)
		doc, err := e.Run(AddV("Doc", []float32{1, 0, 0}, nil))
		require.NoError(t, err)

		_, err = e.Run(AddE("EMBEDS", person[0].Node.ID, doc[0].Vector.ID, nil))
		require.NoError(t, err)

		out, err := e.Run(N("Person", &person[0].Node.ID), Out("EMBEDS"))
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, KindVector, out[0].Kind)
		assert.Equal(t, doc[0].Vector.ID, out[0].Vector.ID)

		endpoints, err := e.Run(N("Person", &person[0].Node.ID), OutE("EMBEDS"), ToN())
		require.NoError(t, err)
		require.Len(t, endpoints, 1)
		assert.Equal(t, KindVector, endpoints[0].Kind)

		_, err = e.Run(N("Person", &person[0].Node.ID), Drop(""))
		require.NoError(t, err)
		remaining, err := e.Run(E("EMBEDS", nil))
		require.NoError(t, err)
		assert.Empty(t, remaining)
		return nil
	})
}

func TestProjectDivisionByZeroYieldsEmptyRow(t *testing.T) {
	withEngine(t, func(e *Engine) error {
		_, err := e.Run(AddN("Person", map[string]value.Value{"name": value.String("a"), "age": value.Int64(10)}))
		require.NoError(t, err)

		out, err := e.Run(
			N("Person", nil),
			Project(map[string]Expr{
				"name":  PropExpr("name"),
				"ratio": DIV(PropExpr("age"), ConstExpr(value.Float64(0))),
			}, false),
		)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, KindEmpty, out[0].Kind)
		return nil
	})
}

func TestProjectExpressionsAndGroupBy(t *testing.T) {
	withEngine(t, func(e *Engine) error {
		_, err := e.Run(AddN("Person", map[string]value.Value{"name": value.String("a"), "age": value.Int64(10)}))
		require.NoError(t, err)
		_, err = e.Run(AddN("Person", map[string]value.Value{"name": value.String("b"), "age": value.Int64(20)}))
		require.NoError(t, err)

		projected, err := e.Run(
			N("Person", nil),
			Project(map[string]Expr{"doubled": MUL(PropExpr("age"), ConstExpr(value.Float64(2)))}, false),
		)
		require.NoError(t, err)
		require.Len(t, projected, 2)

		counted, err := e.Run(N("Person", nil), COUNT())
		require.NoError(t, err)
		require.Len(t, counted, 1)
		n, ok := counted[0].Scalar.AsInt64()
		require.True(t, ok)
		assert.Equal(t, int64(2), n)
		return nil
	})
}

// Among three documents, a query should rank the shortest document
// containing both query terms above a longer one that also contains
// both, and AddN must have indexed each one's BM25 document
// automatically for the query to find anything at all.
func TestSearchBM25RanksShortestMatchingDocHighest(t *testing.T) {
	withEngine(t, func(e *Engine) error {
		fox, err := e.Run(AddN("Article", map[string]value.Value{"body": value.String("the quick brown fox")}))
		require.NoError(t, err)
		_, err = e.Run(AddN("Article", map[string]value.Value{"body": value.String("the lazy dog")}))
		require.NoError(t, err)
		dog, err := e.Run(AddN("Article", map[string]value.Value{"body": value.String("quick brown dog")}))
		require.NoError(t, err)

		results, err := e.Run(SearchBM25("Article", "quick brown", 3))
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, dog[0].Node.ID, results[0].Node.ID)
		assert.Equal(t, fox[0].Node.ID, results[1].Node.ID)

		_, err = e.Run(N("Article", &dog[0].Node.ID), Drop(""))
		require.NoError(t, err)
		afterDrop, err := e.Run(SearchBM25("Article", "quick brown", 3))
		require.NoError(t, err)
		require.Len(t, afterDrop, 1)
		assert.Equal(t, fox[0].Node.ID, afterDrop[0].Node.ID)
		return nil
	})
}

func mustString(v value.Value) string {
	s, _ := v.AsString()
	return s
}
