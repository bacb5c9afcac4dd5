// Package ids generates the 128-bit time-ordered identifiers used for
// nodes, edges, and vectors: UUID version 6, whose byte layout sorts
// lexicographically in time order. google/uuid supplies the UUID type,
// parsing, and string rendering; the version-6 bit layout itself
// (RFC 9562 §5.6) is constructed by hand since that constructor isn't
// exposed by the pinned release.
package ids

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/google/uuid"
)

// gregorianEpochOffset100ns is the number of 100ns intervals between the
// Gregorian epoch (1582-10-15) and the Unix epoch (1970-01-01), per
// RFC 9562's timestamp definition.
const gregorianEpochOffset100ns = 0x01B21DD213814000

// New returns a fresh time-ordered v6 UUID. IDs are opaque to callers;
// only their lexicographic ordering is load-bearing.
func New() uuid.UUID {
	u, err := newV6At(time.Now())
	if err != nil {
		// crypto/rand failure is an environment-level fault, not a
		// recoverable input error; the kernel has no well-formed
		// response to "no entropy available".
		panic("ids: failed to read randomness: " + err.Error())
	}
	return u
}

func newV6At(t time.Time) (uuid.UUID, error) {
	var u uuid.UUID

	ts := (uint64(t.UnixNano())/100 + gregorianEpochOffset100ns) & ((1 << 60) - 1)
	timeHigh := ts >> 12   // 48 bits, time-ordered
	timeLow := uint16(ts & 0xFFF) // remaining 12 bits

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], timeHigh)
	copy(u[0:6], buf[2:8])

	u[6] = 0x60 | byte((timeLow>>8)&0x0F) // version 6 nibble + high bits of timeLow
	u[7] = byte(timeLow & 0xFF)

	var tail [8]byte
	if _, err := rand.Read(tail[:]); err != nil {
		return uuid.UUID{}, err
	}
	clockSeq := binary.BigEndian.Uint16(tail[0:2]) & 0x3FFF
	u[8] = 0x80 | byte((clockSeq>>8)&0x3F) // RFC 4122 variant + high bits of clock seq
	u[9] = byte(clockSeq & 0xFF)
	copy(u[10:16], tail[2:8])

	return u, nil
}

// Parse decodes a string-form UUID, as handed back to callers.
func Parse(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}
