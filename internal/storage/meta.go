package storage

import "github.com/helix-kernel/helix/internal/kernelerrors"

var metaSchemaVersionKey = []byte("schema_version")

const currentSchemaVersion = 1

// ensureSchemaVersion records the current key schema version on first
// open and rejects opening a data directory written by an incompatible
// future version.
func ensureSchemaVersion(tx *Tx) error {
	existing, err := tx.Get(BucketMeta, metaSchemaVersionKey)
	if err != nil {
		return err
	}
	if existing == nil {
		return tx.Put(BucketMeta, metaSchemaVersionKey, []byte{currentSchemaVersion})
	}
	if len(existing) != 1 || existing[0] != currentSchemaVersion {
		return kernelerrors.InvalidEncoding("data directory was written by an incompatible schema version")
	}
	return nil
}
