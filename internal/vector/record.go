package vector

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/helix-kernel/helix/internal/kernelerrors"
	"github.com/helix-kernel/helix/internal/storage"
	"github.com/helix-kernel/helix/internal/value"
)

// encodeEntry packs `label, dim, float32[dim], deleted, properties` for
// the vector_data bucket value. The label/dim/vector prefix matches the
// storage component's vector_data layout; the deleted flag and
// properties are appended so a soft delete and the vector's own scalar
// properties round-trip through the same record.
func encodeEntry(label string, vec []float32, deleted bool, props map[string]value.Value) []byte {
	buf := make([]byte, 0, 4+len(label)+4+4*len(vec)+1)
	buf = appendUint32(buf, uint32(len(label)))
	buf = append(buf, label...)
	buf = appendUint32(buf, uint32(len(vec)))
	for _, f := range vec {
		buf = append(buf, storage.EncodeF32(f)...)
	}
	if deleted {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, value.EncodeProperties(props)...)
	return buf
}

func decodeEntry(id uuid.UUID, raw []byte) (Entry, error) {
	if len(raw) < 4 {
		return Entry{}, kernelerrors.InvalidVectorData("vector record truncated before label length")
	}
	labelLen := binary.BigEndian.Uint32(raw[0:4])
	raw = raw[4:]
	if uint32(len(raw)) < labelLen {
		return Entry{}, kernelerrors.InvalidVectorData("vector record truncated within label")
	}
	label := string(raw[:labelLen])
	raw = raw[labelLen:]

	if len(raw) < 4 {
		return Entry{}, kernelerrors.InvalidVectorData("vector record truncated before dimension")
	}
	dim := binary.BigEndian.Uint32(raw[0:4])
	raw = raw[4:]
	if uint32(len(raw)) < 4*dim {
		return Entry{}, kernelerrors.InvalidVectorData("vector record truncated within float data")
	}
	vec := make([]float32, dim)
	for i := range vec {
		v, err := storage.DecodeF32(raw[:4])
		if err != nil {
			return Entry{}, err
		}
		vec[i] = v
		raw = raw[4:]
	}
	if len(raw) < 1 {
		return Entry{}, kernelerrors.InvalidVectorData("vector record truncated before deleted flag")
	}
	deleted := raw[0] != 0
	raw = raw[1:]
	props, err := value.DecodeProperties(raw)
	if err != nil {
		return Entry{}, err
	}
	return Entry{ID: id, Label: label, Vector: vec, Deleted: deleted, Properties: props}, nil
}

func appendUint32(buf []byte, v uint32) []byte {
	tmp := make([]byte, 4)
	binary.BigEndian.PutUint32(tmp, v)
	return append(buf, tmp...)
}

// Lookup reads a vector entry by ID directly from the vector_data
// sub-store, without requiring a per-label Index. Edge endpoints may
// name vectors as well as nodes, so the graph layer resolves an
// unknown ID through this before declaring it dangling. Callers check
// the returned Entry's Label and Deleted flag themselves.
func Lookup(tx *storage.Tx, id uuid.UUID) (Entry, bool, error) {
	raw, err := tx.Get(storage.BucketVectorData, storage.VectorDataKey(id))
	if err != nil {
		return Entry{}, false, err
	}
	if raw == nil {
		return Entry{}, false, nil
	}
	entry, err := decodeEntry(id, raw)
	if err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}
