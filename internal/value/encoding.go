package value

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"time"
)

// Encode serializes v as a self-describing tag-length-value byte string.
// Every container (array, object) recurses, so a full property map
// round-trips through a single Encode/Decode pair.
func Encode(v Value) []byte {
	var buf []byte
	buf = append(buf, byte(v.kind))
	switch v.kind {
	case KindNull, KindEmpty:
		// no payload
	case KindBool:
		if v.b {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case KindInt8:
		buf = append(buf, byte(int8(v.i)))
	case KindInt16:
		buf = appendUint(buf, uint64(uint16(int16(v.i))), 2)
	case KindInt32:
		buf = appendUint(buf, uint64(uint32(int32(v.i))), 4)
	case KindInt64:
		buf = appendUint(buf, uint64(v.i), 8)
	case KindUint8:
		buf = append(buf, byte(v.u))
	case KindUint16:
		buf = appendUint(buf, v.u, 2)
	case KindUint32:
		buf = appendUint(buf, v.u, 4)
	case KindUint64:
		buf = appendUint(buf, v.u, 8)
	case KindInt128, KindUint128:
		raw := v.big.Bytes()
		if v.big.Sign() < 0 {
			// store sign separately; big.Int.Bytes() drops it
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		buf = appendUint(buf, uint64(len(raw)), 2)
		buf = append(buf, raw...)
	case KindFloat32:
		buf = appendUint(buf, uint64(math.Float32bits(float32(v.f))), 4)
	case KindFloat64:
		buf = appendUint(buf, math.Float64bits(v.f), 8)
	case KindString:
		buf = appendUint(buf, uint64(len(v.s)), 4)
		buf = append(buf, v.s...)
	case KindTime:
		buf = appendUint(buf, uint64(v.t.UnixNano()), 8)
	case KindBytes:
		buf = appendUint(buf, uint64(len(v.bytes)), 4)
		buf = append(buf, v.bytes...)
	case KindArray:
		buf = appendUint(buf, uint64(len(v.arr)), 4)
		for _, elem := range v.arr {
			buf = append(buf, Encode(elem)...)
		}
	case KindObject:
		buf = appendUint(buf, uint64(len(v.obj)), 4)
		for k, elem := range v.obj {
			buf = appendUint(buf, uint64(len(k)), 4)
			buf = append(buf, k...)
			buf = append(buf, Encode(elem)...)
		}
	}
	return buf
}

func appendUint(buf []byte, u uint64, width int) []byte {
	tmp := make([]byte, 8)
	binary.BigEndian.PutUint64(tmp, u)
	return append(buf, tmp[8-width:]...)
}

// Decode parses a byte string produced by Encode, returning the decoded
// value and the number of bytes consumed. Every fixed-width read is
// bounds-checked; a truncated input returns an error rather than
// panicking.
func Decode(b []byte) (Value, int, error) {
	if len(b) < 1 {
		return Value{}, 0, fmt.Errorf("value: empty input")
	}
	kind := Kind(b[0])
	rest := b[1:]
	pos := 1

	need := func(n int) error {
		if len(rest) < n {
			return fmt.Errorf("value: truncated payload for kind %s: need %d, have %d", kind, n, len(rest))
		}
		return nil
	}
	readUint := func(width int) (uint64, error) {
		if err := need(width); err != nil {
			return 0, err
		}
		tmp := make([]byte, 8)
		copy(tmp[8-width:], rest[:width])
		rest = rest[width:]
		pos += width
		return binary.BigEndian.Uint64(tmp), nil
	}

	switch kind {
	case KindNull, KindEmpty:
		return Value{kind: kind}, pos, nil
	case KindBool:
		if err := need(1); err != nil {
			return Value{}, 0, err
		}
		v := rest[0] != 0
		return Bool(v), pos + 1, nil
	case KindInt8:
		if err := need(1); err != nil {
			return Value{}, 0, err
		}
		return Int8(int8(rest[0])), pos + 1, nil
	case KindInt16:
		u, err := readUint(2)
		if err != nil {
			return Value{}, 0, err
		}
		return Int16(int16(uint16(u))), pos, nil
	case KindInt32:
		u, err := readUint(4)
		if err != nil {
			return Value{}, 0, err
		}
		return Int32(int32(uint32(u))), pos, nil
	case KindInt64:
		u, err := readUint(8)
		if err != nil {
			return Value{}, 0, err
		}
		return Int64(int64(u)), pos, nil
	case KindUint8:
		if err := need(1); err != nil {
			return Value{}, 0, err
		}
		return Uint8(rest[0]), pos + 1, nil
	case KindUint16:
		u, err := readUint(2)
		if err != nil {
			return Value{}, 0, err
		}
		return Uint16(uint16(u)), pos, nil
	case KindUint32:
		u, err := readUint(4)
		if err != nil {
			return Value{}, 0, err
		}
		return Uint32(uint32(u)), pos, nil
	case KindUint64:
		u, err := readUint(8)
		if err != nil {
			return Value{}, 0, err
		}
		return Uint64(u), pos, nil
	case KindInt128, KindUint128:
		if err := need(1); err != nil {
			return Value{}, 0, err
		}
		negative := rest[0] != 0
		rest = rest[1:]
		pos++
		length, err := readUint(2)
		if err != nil {
			return Value{}, 0, err
		}
		if err := need(int(length)); err != nil {
			return Value{}, 0, err
		}
		raw := rest[:length]
		rest = rest[length:]
		pos += int(length)
		n := new(big.Int).SetBytes(raw)
		if negative {
			n.Neg(n)
		}
		if kind == KindInt128 {
			return Int128(n), pos, nil
		}
		return Uint128(n), pos, nil
	case KindFloat32:
		u, err := readUint(4)
		if err != nil {
			return Value{}, 0, err
		}
		return Float32(math.Float32frombits(uint32(u))), pos, nil
	case KindFloat64:
		u, err := readUint(8)
		if err != nil {
			return Value{}, 0, err
		}
		return Float64(math.Float64frombits(u)), pos, nil
	case KindString:
		length, err := readUint(4)
		if err != nil {
			return Value{}, 0, err
		}
		if err := need(int(length)); err != nil {
			return Value{}, 0, err
		}
		s := string(rest[:length])
		pos += int(length)
		return String(s), pos, nil
	case KindTime:
		u, err := readUint(8)
		if err != nil {
			return Value{}, 0, err
		}
		return Time(time.Unix(0, int64(u)).UTC()), pos, nil
	case KindBytes:
		length, err := readUint(4)
		if err != nil {
			return Value{}, 0, err
		}
		if err := need(int(length)); err != nil {
			return Value{}, 0, err
		}
		out := append([]byte(nil), rest[:length]...)
		pos += int(length)
		return Bytes(out), pos, nil
	case KindArray:
		count, err := readUint(4)
		if err != nil {
			return Value{}, 0, err
		}
		elems := make([]Value, 0, count)
		for i := uint64(0); i < count; i++ {
			elem, n, err := Decode(rest)
			if err != nil {
				return Value{}, 0, err
			}
			elems = append(elems, elem)
			rest = rest[n:]
			pos += n
		}
		return Array(elems), pos, nil
	case KindObject:
		count, err := readUint(4)
		if err != nil {
			return Value{}, 0, err
		}
		obj := make(map[string]Value, count)
		for i := uint64(0); i < count; i++ {
			klen, err := readUint(4)
			if err != nil {
				return Value{}, 0, err
			}
			if err := need(int(klen)); err != nil {
				return Value{}, 0, err
			}
			key := string(rest[:klen])
			rest = rest[klen:]
			pos += int(klen)
			elem, n, err := Decode(rest)
			if err != nil {
				return Value{}, 0, err
			}
			obj[key] = elem
			rest = rest[n:]
			pos += n
		}
		return Object(obj), pos, nil
	default:
		return Value{}, 0, fmt.Errorf("value: unknown kind tag %d", kind)
	}
}
