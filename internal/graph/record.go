package graph

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/helix-kernel/helix/internal/kernelerrors"
	"github.com/helix-kernel/helix/internal/value"
)

func encodeLabel(label string) []byte {
	buf := make([]byte, 4+len(label))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(label)))
	copy(buf[4:], label)
	return buf
}

func decodeLabel(b []byte) (string, []byte, error) {
	if len(b) < 4 {
		return "", nil, kernelerrors.InvalidEncoding("record truncated before label length")
	}
	n := binary.BigEndian.Uint32(b[0:4])
	if uint32(len(b)-4) < n {
		return "", nil, kernelerrors.InvalidEncoding("record truncated within label")
	}
	return string(b[4 : 4+n]), b[4+n:], nil
}

// encodeNodeRecord packs `label, properties` for the nodes bucket value.
func encodeNodeRecord(label string, props map[string]value.Value) []byte {
	buf := encodeLabel(label)
	return append(buf, value.EncodeProperties(props)...)
}

func decodeNodeRecord(id uuid.UUID, raw []byte) (Node, error) {
	label, rest, err := decodeLabel(raw)
	if err != nil {
		return Node{}, err
	}
	props, err := value.DecodeProperties(rest)
	if err != nil {
		return Node{}, err
	}
	return Node{ID: id, Label: label, Properties: props}, nil
}

// encodeEdgeRecord packs `label, from-id, to-id, properties` for the
// edges bucket value.
func encodeEdgeRecord(label string, from, to uuid.UUID, props map[string]value.Value) []byte {
	buf := encodeLabel(label)
	buf = append(buf, from[:]...)
	buf = append(buf, to[:]...)
	return append(buf, value.EncodeProperties(props)...)
}

func decodeEdgeRecord(id uuid.UUID, raw []byte) (Edge, error) {
	label, rest, err := decodeLabel(raw)
	if err != nil {
		return Edge{}, err
	}
	if len(rest) < 32 {
		return Edge{}, kernelerrors.InvalidEncoding("edge record truncated before endpoints")
	}
	var from, to uuid.UUID
	copy(from[:], rest[0:16])
	copy(to[:], rest[16:32])
	props, err := value.DecodeProperties(rest[32:])
	if err != nil {
		return Edge{}, err
	}
	return Edge{ID: id, Label: label, From: from, To: to, Properties: props}, nil
}
