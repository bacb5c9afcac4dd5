// Package value implements the closed property-value sum type shared by
// every index: null, boolean, signed/unsigned integers up to 128 bits,
// floating point, string, a time instant, raw bytes, arrays, objects,
// and an empty marker. Nodes, edges, and vector entries all carry a
// map[string]Value as their property record.
package value

import (
	"fmt"
	"math/big"
	"time"
)

// Kind tags which field of a Value is populated.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindInt128
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindUint128
	KindFloat32
	KindFloat64
	KindString
	KindTime
	KindBytes
	KindArray
	KindObject
	KindEmpty
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt8, KindInt16, KindInt32, KindInt64, KindInt128:
		return "int"
	case KindUint8, KindUint16, KindUint32, KindUint64, KindUint128:
		return "uint"
	case KindFloat32, KindFloat64:
		return "float"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	case KindBytes:
		return "bytes"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Value is an immutable tagged union. Zero value is KindNull.
type Value struct {
	kind  Kind
	b     bool
	i     int64
	u     uint64
	big   *big.Int
	f     float64
	s     string
	t     time.Time
	bytes []byte
	arr   []Value
	obj   map[string]Value
}

func (v Value) Kind() Kind { return v.kind }

func Null() Value  { return Value{kind: KindNull} }
func Empty() Value { return Value{kind: KindEmpty} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Int8(i int8) Value   { return Value{kind: KindInt8, i: int64(i)} }
func Int16(i int16) Value { return Value{kind: KindInt16, i: int64(i)} }
func Int32(i int32) Value { return Value{kind: KindInt32, i: int64(i)} }
func Int64(i int64) Value { return Value{kind: KindInt64, i: i} }

func Int128(i *big.Int) Value { return Value{kind: KindInt128, big: i} }

func Uint8(u uint8) Value   { return Value{kind: KindUint8, u: uint64(u)} }
func Uint16(u uint16) Value { return Value{kind: KindUint16, u: uint64(u)} }
func Uint32(u uint32) Value { return Value{kind: KindUint32, u: uint64(u)} }
func Uint64(u uint64) Value { return Value{kind: KindUint64, u: u} }

func Uint128(u *big.Int) Value { return Value{kind: KindUint128, big: u} }

func Float32(f float32) Value { return Value{kind: KindFloat32, f: float64(f)} }
func Float64(f float64) Value { return Value{kind: KindFloat64, f: f} }

func String(s string) Value { return Value{kind: KindString, s: s} }
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }
func Bytes(b []byte) Value  { return Value{kind: KindBytes, bytes: append([]byte(nil), b...)} }

func Array(vs []Value) Value { return Value{kind: KindArray, arr: vs} }
func Object(m map[string]Value) Value { return Value{kind: KindObject, obj: m} }

// IsNull reports whether v is the null marker (not the empty marker).
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsEmpty reports whether v is the traversal-empty marker.
func (v Value) IsEmpty() bool { return v.kind == KindEmpty }

// AsBool returns v's boolean payload and whether v is KindBool.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsInt64 widens any integer kind (except 128-bit) to int64.
func (v Value) AsInt64() (int64, bool) {
	switch v.kind {
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return v.i, true
	case KindUint8, KindUint16, KindUint32:
		return int64(v.u), true
	case KindUint64:
		if v.u > 1<<63-1 {
			return 0, false
		}
		return int64(v.u), true
	default:
		return 0, false
	}
}

// AsUint64 widens any unsigned integer kind (except 128-bit) to uint64.
func (v Value) AsUint64() (uint64, bool) {
	switch v.kind {
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return v.u, true
	case KindInt8, KindInt16, KindInt32, KindInt64:
		if v.i < 0 {
			return 0, false
		}
		return uint64(v.i), true
	default:
		return 0, false
	}
}

// AsBigInt returns the 128-bit payload, or a widened 64-bit integer as a
// *big.Int for any other integer kind.
func (v Value) AsBigInt() (*big.Int, bool) {
	switch v.kind {
	case KindInt128, KindUint128:
		return v.big, true
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return big.NewInt(v.i), true
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return new(big.Int).SetUint64(v.u), true
	default:
		return nil, false
	}
}

// AsFloat64 widens any numeric kind to float64, used for comparisons and
// math-expression evaluation.
func (v Value) AsFloat64() (float64, bool) {
	switch v.kind {
	case KindFloat32, KindFloat64:
		return v.f, true
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return float64(v.i), true
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return float64(v.u), true
	case KindInt128, KindUint128:
		f := new(big.Float).SetInt(v.big)
		out, _ := f.Float64()
		return out, true
	default:
		return 0, false
	}
}

func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

func (v Value) AsTime() (time.Time, bool) {
	return v.t, v.kind == KindTime
}

func (v Value) AsBytes() ([]byte, bool) {
	return v.bytes, v.kind == KindBytes
}

func (v Value) AsArray() ([]Value, bool) {
	return v.arr, v.kind == KindArray
}

func (v Value) AsObject() (map[string]Value, bool) {
	return v.obj, v.kind == KindObject
}

// IsNumeric reports whether v is any integer or float kind.
func (v Value) IsNumeric() bool {
	switch v.kind {
	case KindInt8, KindInt16, KindInt32, KindInt64, KindInt128,
		KindUint8, KindUint16, KindUint32, KindUint64, KindUint128,
		KindFloat32, KindFloat64:
		return true
	default:
		return false
	}
}

// Equal reports deep equality, numeric-coercing when both sides are
// numeric (so Int32(5) equals Float64(5.0)).
func (v Value) Equal(other Value) bool {
	if v.kind == other.kind {
		switch v.kind {
		case KindNull, KindEmpty:
			return true
		case KindBool:
			return v.b == other.b
		case KindString:
			return v.s == other.s
		case KindTime:
			return v.t.Equal(other.t)
		case KindBytes:
			return string(v.bytes) == string(other.bytes)
		case KindArray:
			if len(v.arr) != len(other.arr) {
				return false
			}
			for i := range v.arr {
				if !v.arr[i].Equal(other.arr[i]) {
					return false
				}
			}
			return true
		case KindObject:
			if len(v.obj) != len(other.obj) {
				return false
			}
			for k, vv := range v.obj {
				ov, ok := other.obj[k]
				if !ok || !vv.Equal(ov) {
					return false
				}
			}
			return true
		}
	}
	if v.IsNumeric() && other.IsNumeric() {
		if v.kind == KindInt128 || v.kind == KindUint128 || other.kind == KindInt128 || other.kind == KindUint128 {
			a, _ := v.AsBigInt()
			b, _ := other.AsBigInt()
			return a != nil && b != nil && a.Cmp(b) == 0
		}
		a, _ := v.AsFloat64()
		b, _ := other.AsFloat64()
		return a == b
	}
	return false
}

// Compare orders two numeric, string, or time values. Non-comparable
// combinations (e.g. array vs object) return an error rather than an
// arbitrary ordering.
func Compare(a, b Value) (int, error) {
	switch {
	case a.IsNumeric() && b.IsNumeric():
		af, _ := a.AsFloat64()
		bf, _ := b.AsFloat64()
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	case a.kind == KindString && b.kind == KindString:
		switch {
		case a.s < b.s:
			return -1, nil
		case a.s > b.s:
			return 1, nil
		default:
			return 0, nil
		}
	case a.kind == KindTime && b.kind == KindTime:
		switch {
		case a.t.Before(b.t):
			return -1, nil
		case a.t.After(b.t):
			return 1, nil
		default:
			return 0, nil
		}
	default:
		return 0, fmt.Errorf("values of kind %s and %s are not comparable", a.kind, b.kind)
	}
}
