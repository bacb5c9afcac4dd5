package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helix-kernel/helix/internal/kernelerrors"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")
	eng, err := Open(dir, 1, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestOpenRejectsRelativePath(t *testing.T) {
	_, err := Open("relative/path", 1, nil)
	require.Error(t, err)
	assert.Equal(t, kernelerrors.CodeInvalidPath, kernelerrors.Code(err))
}

func TestOpenRejectsMissingParent(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope", "deeper", "data"), 1, nil)
	require.Error(t, err)
	assert.Equal(t, kernelerrors.CodeInvalidPath, kernelerrors.Code(err))
}

func TestOpenTwiceFailsOnLock(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	eng, err := Open(dir, 1, nil)
	require.NoError(t, err)
	defer eng.Close()

	_, err = Open(dir, 1, nil)
	assert.Error(t, err)
}

func TestCloseReleasesLockForReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	eng, err := Open(dir, 1, nil)
	require.NoError(t, err)
	require.NoError(t, eng.Close())

	eng, err = Open(dir, 1, nil)
	require.NoError(t, err)
	require.NoError(t, eng.Close())
}

func TestSchemaVersionMismatchRefusesOpen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	eng, err := Open(dir, 1, nil)
	require.NoError(t, err)
	err = eng.WithWrite(func(tx *Tx) error {
		return tx.Put(BucketMeta, metaSchemaVersionKey, []byte{currentSchemaVersion + 1})
	})
	require.NoError(t, err)
	require.NoError(t, eng.Close())

	_, err = Open(dir, 1, nil)
	assert.Error(t, err)
}

func TestGetMissingKeyReturnsNil(t *testing.T) {
	eng := openTestEngine(t)
	err := eng.WithRead(func(tx *Tx) error {
		v, err := tx.Get(BucketNodes, NodeKey(uuid.New()))
		require.NoError(t, err)
		assert.Nil(t, v)
		return nil
	})
	require.NoError(t, err)
}

func TestPutOnReadOnlyTransactionFails(t *testing.T) {
	eng := openTestEngine(t)
	err := eng.WithRead(func(tx *Tx) error {
		err := tx.Put(BucketNodes, NodeKey(uuid.New()), []byte{1})
		assert.Error(t, err)
		return nil
	})
	require.NoError(t, err)
}

func TestUnknownBucketIsInvalidKey(t *testing.T) {
	eng := openTestEngine(t)
	err := eng.WithRead(func(tx *Tx) error {
		_, err := tx.Get([]byte("no_such_store"), []byte("k"))
		require.Error(t, err)
		assert.Equal(t, kernelerrors.CodeInvalidKey, kernelerrors.Code(err))
		return nil
	})
	require.NoError(t, err)
}

func TestAbortDiscardsWrites(t *testing.T) {
	eng := openTestEngine(t)
	key := NodeKey(uuid.New())

	err := eng.WithWrite(func(tx *Tx) error {
		require.NoError(t, tx.Put(BucketNodes, key, []byte("v")))
		return assert.AnError
	})
	require.Error(t, err)

	err = eng.WithRead(func(tx *Tx) error {
		v, err := tx.Get(BucketNodes, key)
		require.NoError(t, err)
		assert.Nil(t, v)
		return nil
	})
	require.NoError(t, err)
}

func TestPanicInsideTransactionUnwindsToAbort(t *testing.T) {
	eng := openTestEngine(t)
	key := NodeKey(uuid.New())

	err := eng.WithWrite(func(tx *Tx) error {
		require.NoError(t, tx.Put(BucketNodes, key, []byte("v")))
		panic("boom")
	})
	require.Error(t, err)
	assert.Equal(t, kernelerrors.CodeTransactionAborted, kernelerrors.Code(err))

	err = eng.WithRead(func(tx *Tx) error {
		v, err := tx.Get(BucketNodes, key)
		require.NoError(t, err)
		assert.Nil(t, v)
		return nil
	})
	require.NoError(t, err)
}

func TestForEachPrefixScansInKeyOrder(t *testing.T) {
	eng := openTestEngine(t)
	from := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	other := uuid.MustParse("00000000-0000-0000-0000-0000000000ff")

	err := eng.WithWrite(func(tx *Tx) error {
		for i := byte(1); i <= 3; i++ {
			edge := uuid.UUID{15: i}
			to := uuid.UUID{15: i + 10}
			require.NoError(t, tx.Put(BucketOutAdjacency, OutAdjacencyKey(from, 7, edge, to), nil))
		}
		require.NoError(t, tx.Put(BucketOutAdjacency, OutAdjacencyKey(other, 7, uuid.New(), uuid.New()), nil))

		var seen []DecodedOutAdjacencyKey
		err := tx.ForEachPrefix(BucketOutAdjacency, OutAdjacencyPrefix(from, 0, false), func(key, _ []byte) error {
			d, err := DecodeOutAdjacencyKey(key)
			require.NoError(t, err)
			seen = append(seen, d)
			return nil
		})
		require.NoError(t, err)
		require.Len(t, seen, 3)
		for i := 1; i < len(seen); i++ {
			assert.True(t, string(seen[i-1].EdgeID[:]) < string(seen[i].EdgeID[:]))
		}
		return nil
	})
	require.NoError(t, err)
}

func TestDecodeRejectsWrongLengthKeys(t *testing.T) {
	_, err := DecodeNodeKey([]byte{1, 2, 3})
	assert.Equal(t, kernelerrors.CodeInvalidKey, kernelerrors.Code(err))

	_, err = DecodeOutAdjacencyKey(make([]byte, adjKeySize-1))
	assert.Equal(t, kernelerrors.CodeInvalidKey, kernelerrors.Code(err))

	_, err = DecodeSecondaryIndexKey(make([]byte, secondaryIndexFixedSize-1))
	assert.Equal(t, kernelerrors.CodeInvalidKey, kernelerrors.Code(err))

	_, _, err = DecodeVectorLayerKey(make([]byte, vectorLayerKeySize+1))
	assert.Equal(t, kernelerrors.CodeInvalidKey, kernelerrors.Code(err))

	_, err = DecodeVectorLinksKey(make([]byte, vectorLinksKeySize-1))
	assert.Equal(t, kernelerrors.CodeInvalidKey, kernelerrors.Code(err))

	_, err = DecodePostingKey(make([]byte, postingKeyFixedSize+3))
	assert.Equal(t, kernelerrors.CodeInvalidKey, kernelerrors.Code(err))
}

func TestAdjacencyKeyRoundTrip(t *testing.T) {
	from := uuid.New()
	to := uuid.New()
	edge := uuid.New()

	d, err := DecodeOutAdjacencyKey(OutAdjacencyKey(from, 42, edge, to))
	require.NoError(t, err)
	assert.Equal(t, from, d.From)
	assert.Equal(t, uint32(42), d.LabelHash)
	assert.Equal(t, edge, d.EdgeID)
	assert.Equal(t, to, d.To)

	in, err := DecodeInAdjacencyKey(InAdjacencyKey(to, 42, edge, from))
	require.NoError(t, err)
	assert.Equal(t, to, in.To)
	assert.Equal(t, from, in.From)
	assert.Equal(t, edge, in.EdgeID)
}

func TestSecondaryIndexKeyRoundTrip(t *testing.T) {
	id := uuid.New()
	valueBytes := []byte("some encoded value")

	d, err := DecodeSecondaryIndexKey(SecondaryIndexKey(1, 2, valueBytes, id))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), d.LabelHash)
	assert.Equal(t, uint32(2), d.PropertyHash)
	assert.Equal(t, valueBytes, d.ValueBytes)
	assert.Equal(t, id, d.ID)
}

func TestFixedWidthDecodeHelpers(t *testing.T) {
	f, err := DecodeF32(EncodeF32(3.25))
	require.NoError(t, err)
	assert.Equal(t, float32(3.25), f)
	_, err = DecodeF32([]byte{1, 2})
	assert.Equal(t, kernelerrors.CodeInvalidEncoding, kernelerrors.Code(err))

	u, err := DecodeU32(EncodeU32(7))
	require.NoError(t, err)
	assert.Equal(t, uint32(7), u)

	u64, err := DecodeU64(EncodeU64(1 << 40))
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<40), u64)
	_, err = DecodeU64([]byte{1})
	assert.Equal(t, kernelerrors.CodeInvalidEncoding, kernelerrors.Code(err))
}

func TestOpenCreatesDataDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	eng, err := Open(dir, 1, nil)
	require.NoError(t, err)
	defer eng.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, dir, eng.Path())
}
