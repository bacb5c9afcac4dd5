package storage

import (
	"bytes"

	bolt "go.etcd.io/bbolt"

	"github.com/helix-kernel/helix/internal/kernelerrors"
)

// Tx wraps a single bbolt transaction, read-only or read-write, whose
// methods each name one of the fixed sub-stores declared in buckets.go,
// so one Tx reaches all of them. Callers reach it
// only through Engine.WithRead/WithWrite/BeginRead/BeginWrite; it never
// escapes to a second goroutine.
type Tx struct {
	tx       *bolt.Tx
	writable bool
}

// Writable reports whether mutating methods are permitted.
func (t *Tx) Writable() bool {
	return t.writable
}

// Commit persists a write transaction's mutations.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return kernelerrors.TransactionAborted("commit failed", err)
	}
	return nil
}

// Rollback discards a transaction's mutations (or simply releases a read
// snapshot). Safe to call after Commit; bbolt treats it as a no-op then.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && err != bolt.ErrTxClosed {
		return kernelerrors.TransactionAborted("rollback failed", err)
	}
	return nil
}

func (t *Tx) bucket(name []byte) (*bolt.Bucket, error) {
	b := t.tx.Bucket(name)
	if b == nil {
		return nil, kernelerrors.InvalidKey("unknown sub-store " + string(name))
	}
	return b, nil
}

// Get reads a single value by exact key from the named sub-store. A
// missing key returns (nil, nil). The adjacency, secondary-index and
// vector-layer sub-stores hold keys with empty values; they are read by
// prefix scan rather than through Get.
func (t *Tx) Get(bucket, key []byte) ([]byte, error) {
	b, err := t.bucket(bucket)
	if err != nil {
		return nil, err
	}
	v := b.Get(key)
	if v == nil {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put writes key/value into the named sub-store. Requires a writable
// transaction.
func (t *Tx) Put(bucket, key, value []byte) error {
	if !t.writable {
		return kernelerrors.TransactionAborted("put on read-only transaction", nil)
	}
	b, err := t.bucket(bucket)
	if err != nil {
		return err
	}
	return b.Put(key, value)
}

// Delete removes a key from the named sub-store. Deleting an absent key
// is not an error.
func (t *Tx) Delete(bucket, key []byte) error {
	if !t.writable {
		return kernelerrors.TransactionAborted("delete on read-only transaction", nil)
	}
	b, err := t.bucket(bucket)
	if err != nil {
		return err
	}
	return b.Delete(key)
}

// ForEachPrefix walks every key/value pair whose key starts with prefix,
// in ascending lexicographic order, stopping early if fn returns an
// error. The packed key schemas in keys.go are designed so a single
// prefix scan enumerates exactly the logical set callers want (all edges
// out of a node, all vectors in a layer, all postings for a term, …).
func (t *Tx) ForEachPrefix(bucket, prefix []byte, fn func(key, value []byte) error) error {
	b, err := t.bucket(bucket)
	if err != nil {
		return err
	}
	c := b.Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return nil
}

// CountPrefix counts keys sharing prefix without materializing their
// values.
func (t *Tx) CountPrefix(bucket, prefix []byte) (int, error) {
	n := 0
	err := t.ForEachPrefix(bucket, prefix, func(_, _ []byte) error {
		n++
		return nil
	})
	return n, err
}
