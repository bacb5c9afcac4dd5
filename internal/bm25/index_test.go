package bm25

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helix-kernel/helix/internal/ids"
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

func TestTokenizeStripsStopWordsAndPunctuation(t *testing.T) {
	terms := Tokenize("The Quick, Brown Fox!")
	assert.Equal(t, []string{"quick", "brown", "fox"}, terms)
}

func TestEmptyQueryFails(t *testing.T) {
	eng := openTestEngine(t)
	err := eng.WithRead(func(tx *storage.Tx) error {
		ix := New(tx, "Doc", DefaultParams())
		_, err := ix.Query("   ", 10)
		assert.Error(t, err)
		return nil
	})
	require.NoError(t, err)
}

func TestBM25RankingPrefersShorterDocWithBothTerms(t *testing.T) {
	eng := openTestEngine(t)
	var fox, dog1, dog2 uuid.UUID

	err := eng.WithWrite(func(tx *storage.Tx) error {
		ix := New(tx, "Doc", DefaultParams())
		fox = ids.New()
		dog1 = ids.New()
		dog2 = ids.New()
		require.NoError(t, ix.IndexDocument(fox, "the quick brown fox"))
		require.NoError(t, ix.IndexDocument(dog1, "the lazy dog"))
		require.NoError(t, ix.IndexDocument(dog2, "quick brown dog"))
		return nil
	})
	require.NoError(t, err)

	err = eng.WithRead(func(tx *storage.Tx) error {
		ix := New(tx, "Doc", DefaultParams())
		results, err := ix.Query("quick brown", 3)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, dog2, results[0].DocID)
		return nil
	})
	require.NoError(t, err)
}

func TestDropDocumentDecrementsStats(t *testing.T) {
	eng := openTestEngine(t)
	var id uuid.UUID

	err := eng.WithWrite(func(tx *storage.Tx) error {
		ix := New(tx, "Doc", DefaultParams())
		id = ids.New()
		require.NoError(t, ix.IndexDocument(id, "alpha beta gamma"))
		s, err := ix.stats()
		require.NoError(t, err)
		assert.Equal(t, uint64(1), s.docCount)
		assert.Equal(t, uint64(3), s.sumLengths)
		return nil
	})
	require.NoError(t, err)

	err = eng.WithWrite(func(tx *storage.Tx) error {
		ix := New(tx, "Doc", DefaultParams())
		require.NoError(t, ix.DropDocument(id))
		s, err := ix.stats()
		require.NoError(t, err)
		assert.Equal(t, uint64(0), s.docCount)
		assert.Equal(t, uint64(0), s.sumLengths)
		return nil
	})
	require.NoError(t, err)
}

func TestReindexingDocumentReplacesPriorContribution(t *testing.T) {
	eng := openTestEngine(t)
	id := ids.New()

	err := eng.WithWrite(func(tx *storage.Tx) error {
		ix := New(tx, "Doc", DefaultParams())
		require.NoError(t, ix.IndexDocument(id, "alpha beta"))
		require.NoError(t, ix.IndexDocument(id, "gamma delta epsilon"))
		s, err := ix.stats()
		require.NoError(t, err)
		assert.Equal(t, uint64(1), s.docCount)
		assert.Equal(t, uint64(3), s.sumLengths)
		return nil
	})
	require.NoError(t, err)
}
