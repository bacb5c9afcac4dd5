package vector

import (
	"bytes"
	"sort"

	"github.com/google/uuid"

	"github.com/helix-kernel/helix/internal/config"
	"github.com/helix-kernel/helix/internal/storage"
	"github.com/helix-kernel/helix/internal/value"
)

// Rebuild discards a label's entire HNSW graph (every layer assignment,
// link, and entry-point record, plus every soft-deleted vector record)
// and reinserts its live vectors fresh, in ID order. It backs the
// manual Compact entry point and runs only behind an explicit caller
// invocation, never on a schedule.
func Rebuild(tx *storage.Tx, label string, params config.HNSWParams, metric Metric) error {
	var allIDs []uuid.UUID
	live := map[uuid.UUID][]float32{}
	liveProps := map[uuid.UUID]map[string]value.Value{}

	err := tx.ForEachPrefix(storage.BucketVectorData, nil, func(key, val []byte) error {
		id, err := storage.DecodeVectorDataKey(key)
		if err != nil {
			return err
		}
		entry, err := decodeEntry(id, val)
		if err != nil {
			return err
		}
		if entry.Label != label {
			return nil
		}
		allIDs = append(allIDs, id)
		if !entry.Deleted {
			live[id] = entry.Vector
			liveProps[id] = entry.Properties
		}
		return nil
	})
	if err != nil {
		return err
	}

	idSet := make(map[uuid.UUID]bool, len(allIDs))
	for _, id := range allIDs {
		idSet[id] = true
	}

	var layerKeys [][]byte
	if err := tx.ForEachPrefix(storage.BucketVectorLayer, nil, func(key, _ []byte) error {
		_, id, err := storage.DecodeVectorLayerKey(key)
		if err != nil {
			return err
		}
		if idSet[id] {
			layerKeys = append(layerKeys, append([]byte(nil), key...))
		}
		return nil
	}); err != nil {
		return err
	}
	for _, k := range layerKeys {
		if err := tx.Delete(storage.BucketVectorLayer, k); err != nil {
			return err
		}
	}

	var linkKeys [][]byte
	if err := tx.ForEachPrefix(storage.BucketVectorLinks, nil, func(key, _ []byte) error {
		d, err := storage.DecodeVectorLinksKey(key)
		if err != nil {
			return err
		}
		if idSet[d.ID] || idSet[d.Neighbour] {
			linkKeys = append(linkKeys, append([]byte(nil), key...))
		}
		return nil
	}); err != nil {
		return err
	}
	for _, k := range linkKeys {
		if err := tx.Delete(storage.BucketVectorLinks, k); err != nil {
			return err
		}
	}

	for id := range idSet {
		if _, ok := live[id]; !ok {
			if err := tx.Delete(storage.BucketVectorData, storage.VectorDataKey(id)); err != nil {
				return err
			}
		}
	}

	placeholderDim := 0
	for _, vec := range live {
		placeholderDim = len(vec)
		break
	}
	ix := New(tx, label, placeholderDim, params, metric)
	if err := tx.Delete(storage.BucketMeta, ix.metaKey()); err != nil {
		return err
	}

	ids := make([]uuid.UUID, 0, len(live))
	for id := range live {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	for _, id := range ids {
		if err := ix.Insert(id, live[id], liveProps[id]); err != nil {
			return err
		}
	}
	return nil
}
