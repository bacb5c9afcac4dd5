// Package storage implements the ACID, ordered key-value substrate
// backing every index: a memory-mapped environment (go.etcd.io/bbolt)
// with named sub-stores, snapshot-isolated readers concurrent with a
// single serialized writer, and big-endian length-fixed key packing so
// lexicographic byte order matches logical order. The packing schemes
// make every lookup a single get or a single prefix scan.
package storage

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"

	"github.com/helix-kernel/helix/internal/kernelerrors"
)

const idSize = 16 // uuid.UUID is already a 16-byte array.

// NodeKey packs a node ID for the nodes bucket: `id (16B)`.
func NodeKey(id uuid.UUID) []byte {
	buf := make([]byte, idSize)
	copy(buf, id[:])
	return buf
}

// DecodeNodeKey validates and unpacks a nodes-bucket key.
func DecodeNodeKey(key []byte) (uuid.UUID, error) {
	if len(key) != idSize {
		return uuid.UUID{}, kernelerrors.InvalidKey("node key must be 16 bytes")
	}
	var id uuid.UUID
	copy(id[:], key)
	return id, nil
}

// EdgeKey packs an edge ID for the edges bucket.
func EdgeKey(id uuid.UUID) []byte {
	return NodeKey(id)
}

// DecodeEdgeKey validates and unpacks an edges-bucket key.
func DecodeEdgeKey(key []byte) (uuid.UUID, error) {
	return DecodeNodeKey(key)
}

const adjKeySize = idSize + 4 + idSize + idSize // from/to + label-hash + edge-id + to/from

// OutAdjacencyKey packs `from-id (16B) · label-hash (4B) · edge-id (16B) ·
// to-id (16B)` so a prefix scan on from-id enumerates a node's outgoing
// edges grouped by label in hash order.
func OutAdjacencyKey(from uuid.UUID, labelHash uint32, edgeID, to uuid.UUID) []byte {
	buf := make([]byte, adjKeySize)
	copy(buf[0:16], from[:])
	binary.BigEndian.PutUint32(buf[16:20], labelHash)
	copy(buf[20:36], edgeID[:])
	copy(buf[36:52], to[:])
	return buf
}

// OutAdjacencyPrefix returns the range-scan prefix for every out_adj entry
// for a node, optionally narrowed to a single label hash.
func OutAdjacencyPrefix(from uuid.UUID, labelHash uint32, hasLabel bool) []byte {
	if !hasLabel {
		buf := make([]byte, idSize)
		copy(buf, from[:])
		return buf
	}
	buf := make([]byte, idSize+4)
	copy(buf[0:16], from[:])
	binary.BigEndian.PutUint32(buf[16:20], labelHash)
	return buf
}

// DecodedOutAdjacencyKey is the unpacked form of an out_adj key.
type DecodedOutAdjacencyKey struct {
	From      uuid.UUID
	LabelHash uint32
	EdgeID    uuid.UUID
	To        uuid.UUID
}

// DecodeOutAdjacencyKey validates and unpacks an out_adj-bucket key.
func DecodeOutAdjacencyKey(key []byte) (DecodedOutAdjacencyKey, error) {
	if len(key) != adjKeySize {
		return DecodedOutAdjacencyKey{}, kernelerrors.InvalidKey("out_adj key has wrong length")
	}
	var d DecodedOutAdjacencyKey
	copy(d.From[:], key[0:16])
	d.LabelHash = binary.BigEndian.Uint32(key[16:20])
	copy(d.EdgeID[:], key[20:36])
	copy(d.To[:], key[36:52])
	return d, nil
}

// InAdjacencyKey packs the mirror in_adj entry, leading with to-id.
func InAdjacencyKey(to uuid.UUID, labelHash uint32, edgeID, from uuid.UUID) []byte {
	buf := make([]byte, adjKeySize)
	copy(buf[0:16], to[:])
	binary.BigEndian.PutUint32(buf[16:20], labelHash)
	copy(buf[20:36], edgeID[:])
	copy(buf[36:52], from[:])
	return buf
}

// InAdjacencyPrefix mirrors OutAdjacencyPrefix for the in_adj bucket.
func InAdjacencyPrefix(to uuid.UUID, labelHash uint32, hasLabel bool) []byte {
	return OutAdjacencyPrefix(to, labelHash, hasLabel)
}

// DecodedInAdjacencyKey is the unpacked form of an in_adj key.
type DecodedInAdjacencyKey struct {
	To        uuid.UUID
	LabelHash uint32
	EdgeID    uuid.UUID
	From      uuid.UUID
}

// DecodeInAdjacencyKey validates and unpacks an in_adj-bucket key.
func DecodeInAdjacencyKey(key []byte) (DecodedInAdjacencyKey, error) {
	if len(key) != adjKeySize {
		return DecodedInAdjacencyKey{}, kernelerrors.InvalidKey("in_adj key has wrong length")
	}
	var d DecodedInAdjacencyKey
	copy(d.To[:], key[0:16])
	d.LabelHash = binary.BigEndian.Uint32(key[16:20])
	copy(d.EdgeID[:], key[20:36])
	copy(d.From[:], key[36:52])
	return d, nil
}

const secondaryIndexFixedSize = 4 + 4 + idSize // label-hash + property-hash + id; value-bytes is variable and sandwiched between

// SecondaryIndexKey packs `label-hash · property-hash · value-bytes · id`.
// value-bytes is variable length and has no explicit length prefix: it is
// recovered by slicing from the known-length head and tail, which is
// sufficient because both the head (8 bytes) and tail (16 bytes) are
// fixed width.
func SecondaryIndexKey(labelHash, propertyHash uint32, valueBytes []byte, id uuid.UUID) []byte {
	buf := make([]byte, secondaryIndexFixedSize+len(valueBytes))
	binary.BigEndian.PutUint32(buf[0:4], labelHash)
	binary.BigEndian.PutUint32(buf[4:8], propertyHash)
	copy(buf[8:8+len(valueBytes)], valueBytes)
	copy(buf[8+len(valueBytes):], id[:])
	return buf
}

// SecondaryIndexPrefix returns the scan prefix for a (label, property,
// value) tuple, matching every id stored under that exact value.
func SecondaryIndexPrefix(labelHash, propertyHash uint32, valueBytes []byte) []byte {
	buf := make([]byte, 8+len(valueBytes))
	binary.BigEndian.PutUint32(buf[0:4], labelHash)
	binary.BigEndian.PutUint32(buf[4:8], propertyHash)
	copy(buf[8:], valueBytes)
	return buf
}

// SecondaryIndexLabelPropPrefix returns the scan prefix for every value
// under a (label, property) pair, used for full index rebuilds.
func SecondaryIndexLabelPropPrefix(labelHash, propertyHash uint32) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], labelHash)
	binary.BigEndian.PutUint32(buf[4:8], propertyHash)
	return buf
}

// DecodedSecondaryIndexKey is the unpacked form of a secondary_index key.
type DecodedSecondaryIndexKey struct {
	LabelHash    uint32
	PropertyHash uint32
	ValueBytes   []byte
	ID           uuid.UUID
}

// DecodeSecondaryIndexKey validates and unpacks a secondary_index key.
func DecodeSecondaryIndexKey(key []byte) (DecodedSecondaryIndexKey, error) {
	if len(key) < secondaryIndexFixedSize {
		return DecodedSecondaryIndexKey{}, kernelerrors.InvalidKey("secondary_index key too short")
	}
	var d DecodedSecondaryIndexKey
	d.LabelHash = binary.BigEndian.Uint32(key[0:4])
	d.PropertyHash = binary.BigEndian.Uint32(key[4:8])
	valueEnd := len(key) - idSize
	d.ValueBytes = append([]byte(nil), key[8:valueEnd]...)
	copy(d.ID[:], key[valueEnd:])
	return d, nil
}

// VectorDataKey packs a vector entry's ID for the vector_data bucket.
func VectorDataKey(id uuid.UUID) []byte {
	return NodeKey(id)
}

// DecodeVectorDataKey validates and unpacks a vector_data key.
func DecodeVectorDataKey(key []byte) (uuid.UUID, error) {
	return DecodeNodeKey(key)
}

const vectorLayerKeySize = 1 + idSize

// VectorLayerKey packs `layer (1B) · id (16B)` for the vector_layer bucket.
func VectorLayerKey(layer uint8, id uuid.UUID) []byte {
	buf := make([]byte, vectorLayerKeySize)
	buf[0] = layer
	copy(buf[1:], id[:])
	return buf
}

// VectorLayerPrefix returns the scan prefix for every id assigned layer.
func VectorLayerPrefix(layer uint8) []byte {
	return []byte{layer}
}

// DecodeVectorLayerKey validates and unpacks a vector_layer key.
func DecodeVectorLayerKey(key []byte) (uint8, uuid.UUID, error) {
	if len(key) != vectorLayerKeySize {
		return 0, uuid.UUID{}, kernelerrors.InvalidKey("vector_layer key has wrong length")
	}
	var id uuid.UUID
	copy(id[:], key[1:])
	return key[0], id, nil
}

const vectorLinksKeySize = 1 + idSize + idSize

// VectorLinksKey packs `level (1B) · id (16B) · neighbour-id (16B)` for
// the vector_links bucket. The value is the f32 distance at that edge.
func VectorLinksKey(level uint8, id, neighbour uuid.UUID) []byte {
	buf := make([]byte, vectorLinksKeySize)
	buf[0] = level
	copy(buf[1:17], id[:])
	copy(buf[17:33], neighbour[:])
	return buf
}

// VectorLinksPrefix returns the scan prefix for every neighbour of id at
// level.
func VectorLinksPrefix(level uint8, id uuid.UUID) []byte {
	buf := make([]byte, 1+idSize)
	buf[0] = level
	copy(buf[1:], id[:])
	return buf
}

// DecodedVectorLinksKey is the unpacked form of a vector_links key.
type DecodedVectorLinksKey struct {
	Level     uint8
	ID        uuid.UUID
	Neighbour uuid.UUID
}

// DecodeVectorLinksKey validates and unpacks a vector_links key.
func DecodeVectorLinksKey(key []byte) (DecodedVectorLinksKey, error) {
	if len(key) != vectorLinksKeySize {
		return DecodedVectorLinksKey{}, kernelerrors.InvalidKey("vector_links key has wrong length")
	}
	var d DecodedVectorLinksKey
	d.Level = key[0]
	copy(d.ID[:], key[1:17])
	copy(d.Neighbour[:], key[17:33])
	return d, nil
}

const postingKeyFixedSize = 4 + idSize // term-hash + doc-id

// PostingKey packs `term-hash (4B) · doc-id (16B)` for the bm25_postings
// bucket; the value is the term frequency (uint32).
func PostingKey(termHash uint32, docID uuid.UUID) []byte {
	buf := make([]byte, postingKeyFixedSize)
	binary.BigEndian.PutUint32(buf[0:4], termHash)
	copy(buf[4:], docID[:])
	return buf
}

// PostingTermPrefix returns the scan prefix for every doc posted under a
// term hash.
func PostingTermPrefix(termHash uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, termHash)
	return buf
}

// DecodedPostingKey is the unpacked form of a bm25_postings key.
type DecodedPostingKey struct {
	TermHash uint32
	DocID    uuid.UUID
}

// DecodePostingKey validates and unpacks a bm25_postings key.
func DecodePostingKey(key []byte) (DecodedPostingKey, error) {
	if len(key) != postingKeyFixedSize {
		return DecodedPostingKey{}, kernelerrors.InvalidKey("bm25_postings key has wrong length")
	}
	var d DecodedPostingKey
	d.TermHash = binary.BigEndian.Uint32(key[0:4])
	copy(d.DocID[:], key[4:])
	return d, nil
}

// BM25DocKey packs a doc ID for the bm25_docs bucket.
func BM25DocKey(docID uuid.UUID) []byte {
	return NodeKey(docID)
}

// DecodeBM25DocKey validates and unpacks a bm25_docs key.
func DecodeBM25DocKey(key []byte) (uuid.UUID, error) {
	return DecodeNodeKey(key)
}

// BM25StatsKey is the sole key stored in the bm25_stats bucket, scoped
// per label so each node label's corpus keeps independent stats.
func BM25StatsKey(label string) []byte {
	return []byte("stats:" + label)
}

// EncodeF32 big-endian encodes a float32 (used for vector_links distances
// and the vector_data float array), so fixed-width values decode
// with the same bounds-checked discipline as keys.
func EncodeF32(v float32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, math.Float32bits(v))
	return buf
}

// DecodeF32 bounds-checks and decodes a big-endian float32.
func DecodeF32(b []byte) (float32, error) {
	if len(b) != 4 {
		return 0, kernelerrors.InvalidEncoding("expected 4 bytes for float32")
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
}

// EncodeU32 big-endian encodes a uint32.
func EncodeU32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

// DecodeU32 bounds-checks and decodes a big-endian uint32.
func DecodeU32(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, kernelerrors.InvalidEncoding("expected 4 bytes for uint32")
	}
	return binary.BigEndian.Uint32(b), nil
}

// EncodeU64 big-endian encodes a uint64.
func EncodeU64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

// DecodeU64 bounds-checks and decodes a big-endian uint64.
func DecodeU64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, kernelerrors.InvalidEncoding("expected 8 bytes for uint64")
	}
	return binary.BigEndian.Uint64(b), nil
}
