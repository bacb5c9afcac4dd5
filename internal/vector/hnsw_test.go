package vector

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helix-kernel/helix/internal/config"
	"github.com/helix-kernel/helix/internal/storage"
)

func openTestEngine(t *testing.T) *storage.Engine {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.MkdirAll(filepath.Dir(dir), 0o755))
	eng, err := storage.Open(dir, 1, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func testParams() config.HNSWParams {
	return config.HNSWParams{M: 8, EfConstruction: 64, EfSearch: 32}.Clamp()
}

func gridVector(i, dim int) []float32 {
	v := make([]float32, dim)
	v[0] = float32(i)
	return v
}

func TestInsertAndSearchExactRecall(t *testing.T) {
	eng := openTestEngine(t)
	const dim = 4

	err := eng.WithWrite(func(tx *storage.Tx) error {
		ix := New(tx, "Item", dim, testParams(), MetricSquaredEuclidean)
		ids := make([]uuid.UUID, 20)
		for i := range ids {
			id := uuid.New()
			ids[i] = id
			if err := ix.Insert(id, gridVector(i, dim), nil); err != nil {
				return err
			}
		}
		results, err := ix.Search(gridVector(5, dim), 1, 32)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, ids[5], results[0].ID)
		assert.InDelta(t, 0, results[0].Distance, 1e-6)
		return nil
	})
	require.NoError(t, err)
}

func TestSearchKExceedsLiveCountReturnsAll(t *testing.T) {
	eng := openTestEngine(t)
	const dim = 3

	err := eng.WithWrite(func(tx *storage.Tx) error {
		ix := New(tx, "Item", dim, testParams(), MetricSquaredEuclidean)
		for i := 0; i < 3; i++ {
			if err := ix.Insert(uuid.New(), gridVector(i, dim), nil); err != nil {
				return err
			}
		}
		results, err := ix.Search(gridVector(0, dim), 50, 32)
		require.NoError(t, err)
		assert.Len(t, results, 3)
		return nil
	})
	require.NoError(t, err)
}

func TestSearchKZeroReturnsEmpty(t *testing.T) {
	eng := openTestEngine(t)
	const dim = 3

	err := eng.WithWrite(func(tx *storage.Tx) error {
		ix := New(tx, "Item", dim, testParams(), MetricSquaredEuclidean)
		require.NoError(t, ix.Insert(uuid.New(), gridVector(0, dim), nil))
		results, err := ix.Search(gridVector(0, dim), 0, 32)
		require.NoError(t, err)
		assert.Nil(t, results)
		return nil
	})
	require.NoError(t, err)
}

func TestSearchEmptyIndexReturnsEmpty(t *testing.T) {
	eng := openTestEngine(t)
	const dim = 3

	err := eng.WithWrite(func(tx *storage.Tx) error {
		ix := New(tx, "Item", dim, testParams(), MetricSquaredEuclidean)
		results, err := ix.Search(gridVector(0, dim), 5, 32)
		require.NoError(t, err)
		assert.Nil(t, results)
		return nil
	})
	require.NoError(t, err)
}

func TestInsertDimensionMismatch(t *testing.T) {
	eng := openTestEngine(t)
	const dim = 4

	err := eng.WithWrite(func(tx *storage.Tx) error {
		ix := New(tx, "Item", dim, testParams(), MetricSquaredEuclidean)
		err := ix.Insert(uuid.New(), make([]float32, dim-1), nil)
		assert.Error(t, err)
		return nil
	})
	require.NoError(t, err)
}

func TestSearchDimensionMismatch(t *testing.T) {
	eng := openTestEngine(t)
	const dim = 4

	err := eng.WithWrite(func(tx *storage.Tx) error {
		ix := New(tx, "Item", dim, testParams(), MetricSquaredEuclidean)
		require.NoError(t, ix.Insert(uuid.New(), gridVector(0, dim), nil))
		_, err := ix.Search(make([]float32, dim+1), 1, 32)
		assert.Error(t, err)
		return nil
	})
	require.NoError(t, err)
}

func TestDeleteExcludesFromSearchButKeepsGraphConnected(t *testing.T) {
	eng := openTestEngine(t)
	const dim = 4

	err := eng.WithWrite(func(tx *storage.Tx) error {
		ix := New(tx, "Item", dim, testParams(), MetricSquaredEuclidean)
		ids := make([]uuid.UUID, 15)
		for i := range ids {
			ids[i] = uuid.New()
			if err := ix.Insert(ids[i], gridVector(i, dim), nil); err != nil {
				return err
			}
		}
		require.NoError(t, ix.Delete(ids[5]))

		results, err := ix.Search(gridVector(5, dim), 3, 32)
		require.NoError(t, err)
		for _, r := range results {
			assert.NotEqual(t, ids[5], r.ID)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestDeletingEntryPointPromotesLiveSuccessor(t *testing.T) {
	eng := openTestEngine(t)
	const dim = 4

	err := eng.WithWrite(func(tx *storage.Tx) error {
		ix := New(tx, "Item", dim, testParams(), MetricSquaredEuclidean)
		ids := make([]uuid.UUID, 10)
		for i := range ids {
			ids[i] = uuid.New()
			if err := ix.Insert(ids[i], gridVector(i, dim), nil); err != nil {
				return err
			}
		}
		ep, err := ix.entryPoint()
		require.NoError(t, err)
		require.True(t, ep.ok)
		require.NoError(t, ix.Delete(ep.id))

		results, err := ix.Search(gridVector(0, dim), 1, 32)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.NotEqual(t, ep.id, results[0].ID)
		return nil
	})
	require.NoError(t, err)
}

func TestLenCountsOnlyLiveVectorsForLabel(t *testing.T) {
	eng := openTestEngine(t)
	const dim = 3

	err := eng.WithWrite(func(tx *storage.Tx) error {
		ix := New(tx, "Item", dim, testParams(), MetricSquaredEuclidean)
		other := New(tx, "Other", dim, testParams(), MetricSquaredEuclidean)
		ids := make([]uuid.UUID, 5)
		for i := range ids {
			ids[i] = uuid.New()
			require.NoError(t, ix.Insert(ids[i], gridVector(i, dim), nil))
		}
		require.NoError(t, other.Insert(uuid.New(), gridVector(0, dim), nil))
		require.NoError(t, ix.Delete(ids[0]))

		n, err := ix.Len()
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		return nil
	})
	require.NoError(t, err)
}

func TestCosineMetricOrdersByAngleNotMagnitude(t *testing.T) {
	eng := openTestEngine(t)
	const dim = 2

	err := eng.WithWrite(func(tx *storage.Tx) error {
		ix := New(tx, "Item", dim, testParams(), MetricCosine)
		sameDir := uuid.New()
		oppDir := uuid.New()
		require.NoError(t, ix.Insert(sameDir, []float32{10, 0}, nil))
		require.NoError(t, ix.Insert(oppDir, []float32{-1, 0}, nil))

		results, err := ix.Search([]float32{1, 0}, 1, 32)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, sameDir, results[0].ID)
		return nil
	})
	require.NoError(t, err)
}

func TestTransactionAbortDiscardsInserts(t *testing.T) {
	eng := openTestEngine(t)
	const dim = 3
	id := uuid.New()

	err := eng.WithWrite(func(tx *storage.Tx) error {
		ix := New(tx, "Item", dim, testParams(), MetricSquaredEuclidean)
		require.NoError(t, ix.Insert(id, gridVector(0, dim), nil))
		return fmt.Errorf("force rollback")
	})
	require.Error(t, err)

	err = eng.WithRead(func(tx *storage.Tx) error {
		ix := New(tx, "Item", dim, testParams(), MetricSquaredEuclidean)
		n, err := ix.Len()
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		return nil
	})
	require.NoError(t, err)
}
