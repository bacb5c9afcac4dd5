package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	bolt "go.etcd.io/bbolt"

	"github.com/helix-kernel/helix/internal/kernelerrors"
)

const (
	dbFileName   = "helix.db"
	lockFileName = "helix.lock"
	gib          = 1 << 30
)

// Engine owns the memory-mapped key-value environment for one on-disk
// directory. Open it once per process; share the handle across every
// index that reads/writes the same data directory.
type Engine struct {
	db   *bolt.DB
	lock *flock.Flock
	path string
	log  *slog.Logger
}

// Open opens (creating if necessary) the environment rooted at path:
// path must be absolute and its parent must exist. sizeGiB sets the
// initial memory-map size and the free space the parent filesystem must
// have; the data file still grows past it as data is written, so it is
// not an upper bound. An advisory file lock prevents two processes from
// opening the same path concurrently.
func Open(path string, sizeGiB int, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !filepath.IsAbs(path) {
		return nil, kernelerrors.InvalidPath(fmt.Sprintf("path %q must be absolute", path), nil)
	}
	parent := filepath.Dir(path)
	if _, err := os.Stat(parent); err != nil {
		return nil, kernelerrors.InvalidPath(fmt.Sprintf("parent directory %q does not exist", parent), err)
	}
	if sizeGiB <= 0 {
		sizeGiB = 1
	}
	if err := checkFreeSpace(parent, sizeGiB); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, kernelerrors.InvalidPath(fmt.Sprintf("cannot create data directory %q", path), err)
	}

	lock := flock.New(filepath.Join(path, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, kernelerrors.InvalidPath("failed to acquire engine lock", err)
	}
	if !locked {
		return nil, kernelerrors.InvalidPath(fmt.Sprintf("engine path %q is already open by another process", path), nil)
	}

	db, err := bolt.Open(filepath.Join(path, dbFileName), 0o600, &bolt.Options{
		Timeout:         time.Second,
		InitialMmapSize: sizeGiB * gib,
	})
	if err != nil {
		_ = lock.Unlock()
		return nil, kernelerrors.InvalidPath("failed to open storage environment", err)
	}

	if err := db.Update(func(btx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := btx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return ensureSchemaVersion(&Tx{tx: btx, writable: true})
	}); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, kernelerrors.InvalidPath("failed to initialize sub-stores", err)
	}

	logger.Info("engine_open", slog.String("path", path), slog.Int("size_gib", sizeGiB))
	return &Engine{db: db, lock: lock, path: path, log: logger}, nil
}

// Close releases the memory map and the advisory lock.
func (e *Engine) Close() error {
	err := e.db.Close()
	if unlockErr := e.lock.Unlock(); unlockErr != nil && err == nil {
		err = unlockErr
	}
	e.log.Info("engine_close", slog.String("path", e.path))
	return err
}

// Path returns the engine's data directory.
func (e *Engine) Path() string {
	return e.path
}

// BeginRead opens a read-only, snapshot-isolated transaction. Read
// transactions never block the writer and vice versa.
func (e *Engine) BeginRead() (*Tx, error) {
	btx, err := e.db.Begin(false)
	if err != nil {
		return nil, kernelerrors.TransactionAborted("failed to begin read transaction", err)
	}
	return &Tx{tx: btx, writable: false}, nil
}

// BeginWrite opens the single serialized read-write transaction. Only one
// write transaction may be open at a time; a second caller blocks until
// the first commits or aborts.
func (e *Engine) BeginWrite() (*Tx, error) {
	btx, err := e.db.Begin(true)
	if err != nil {
		return nil, kernelerrors.TransactionAborted("failed to begin write transaction", err)
	}
	return &Tx{tx: btx, writable: true}, nil
}

// WithRead runs fn inside a read transaction, always rolling back
// afterwards (read transactions never persist). Panics inside fn unwind
// to a clean rollback rather than leaking an open transaction.
func (e *Engine) WithRead(fn func(tx *Tx) error) (err error) {
	tx, beginErr := e.BeginRead()
	if beginErr != nil {
		return beginErr
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			err = kernelerrors.TransactionAborted(fmt.Sprintf("panic during read transaction: %v", r), nil)
		}
	}()
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Rollback()
}

// WithWrite runs fn inside the write transaction, committing on success
// and rolling back on error or panic so either all mutations persist or
// none do.
func (e *Engine) WithWrite(fn func(tx *Tx) error) (err error) {
	tx, beginErr := e.BeginWrite()
	if beginErr != nil {
		return beginErr
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			err = kernelerrors.TransactionAborted(fmt.Sprintf("panic during write transaction: %v", r), nil)
		}
	}()
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
