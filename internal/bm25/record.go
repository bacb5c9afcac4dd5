package bm25

import (
	"encoding/binary"

	"github.com/helix-kernel/helix/internal/kernelerrors"
)

// docRecord is the bm25_docs bucket value: the document's term-count
// length plus every (term-hash, tf) pair it contributed to postings,
// so DropDocument can recover exactly what to decrement without
// rescanning the whole postings bucket.
type docRecord struct {
	length uint32
	terms  map[uint32]uint32 // term-hash -> term frequency
}

func encodeDocRecord(rec docRecord) []byte {
	buf := make([]byte, 0, 8+8*len(rec.terms))
	buf = appendU32(buf, rec.length)
	buf = appendU32(buf, uint32(len(rec.terms)))
	for hash, tf := range rec.terms {
		buf = appendU32(buf, hash)
		buf = appendU32(buf, tf)
	}
	return buf
}

func decodeDocRecord(raw []byte) (docRecord, error) {
	if len(raw) < 8 {
		return docRecord{}, kernelerrors.InvalidEncoding("bm25 doc record truncated before header")
	}
	length := binary.BigEndian.Uint32(raw[0:4])
	count := binary.BigEndian.Uint32(raw[4:8])
	raw = raw[8:]
	terms := make(map[uint32]uint32, count)
	for i := uint32(0); i < count; i++ {
		if len(raw) < 8 {
			return docRecord{}, kernelerrors.InvalidEncoding("bm25 doc record truncated within term list")
		}
		hash := binary.BigEndian.Uint32(raw[0:4])
		tf := binary.BigEndian.Uint32(raw[4:8])
		terms[hash] = tf
		raw = raw[8:]
	}
	return docRecord{length: length, terms: terms}, nil
}

// statsRecord is the bm25_stats bucket value: corpus-wide document count
// and summed length, maintained incrementally on every ingest/drop so
// the average document length never requires a full rescan.
type statsRecord struct {
	docCount   uint64
	sumLengths uint64
}

func encodeStatsRecord(s statsRecord) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], s.docCount)
	binary.BigEndian.PutUint64(buf[8:16], s.sumLengths)
	return buf
}

func decodeStatsRecord(raw []byte) (statsRecord, error) {
	if raw == nil {
		return statsRecord{}, nil
	}
	if len(raw) != 16 {
		return statsRecord{}, kernelerrors.InvalidEncoding("bm25 stats record has wrong length")
	}
	return statsRecord{
		docCount:   binary.BigEndian.Uint64(raw[0:8]),
		sumLengths: binary.BigEndian.Uint64(raw[8:16]),
	}, nil
}

func appendU32(buf []byte, v uint32) []byte {
	tmp := make([]byte, 4)
	binary.BigEndian.PutUint32(tmp, v)
	return append(buf, tmp...)
}
