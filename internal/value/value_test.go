package value

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Value{
		Null(),
		Empty(),
		Bool(true),
		Int8(-12),
		Int16(-1000),
		Int32(-100000),
		Int64(-1 << 40),
		Uint8(200),
		Uint16(60000),
		Uint32(4000000000),
		Uint64(1 << 63),
		Int128(big.NewInt(-123456789)),
		Uint128(new(big.Int).SetUint64(987654321)),
		Float32(3.5),
		Float64(-2.718281828),
		String("hello, world"),
		Bytes([]byte{0x01, 0x02, 0xFF}),
		Time(time.Unix(1700000000, 123).UTC()),
		Array([]Value{Int64(1), String("two"), Bool(false)}),
		Object(map[string]Value{"a": Int64(1), "b": String("x")}),
	}

	for _, v := range cases {
		encoded := Encode(v)
		decoded, n, err := Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, len(encoded), n)
		assert.True(t, v.Equal(decoded), "kind %s round-trip mismatch", v.Kind())
	}
}

func TestDecodeTruncatedFailsCleanly(t *testing.T) {
	encoded := Encode(String("this is a longer string"))
	_, _, err := Decode(encoded[:len(encoded)-3])
	assert.Error(t, err)
}

func TestDecodeEmptyInputFails(t *testing.T) {
	_, _, err := Decode(nil)
	assert.Error(t, err)
}

func TestEqualCoercesNumericKinds(t *testing.T) {
	assert.True(t, Int32(5).Equal(Float64(5.0)))
	assert.True(t, Uint8(7).Equal(Int64(7)))
	assert.False(t, Int32(5).Equal(Float64(5.1)))
}

func TestCompareOrdersNumericAndString(t *testing.T) {
	c, err := Compare(Int64(3), Float64(4.5))
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	c, err = Compare(String("b"), String("a"))
	require.NoError(t, err)
	assert.Equal(t, 1, c)
}

func TestCompareRejectsIncomparableKinds(t *testing.T) {
	_, err := Compare(Array(nil), Object(nil))
	assert.Error(t, err)
}

func TestPropertiesRoundTrip(t *testing.T) {
	props := map[string]Value{
		"name": String("Alice"),
		"age":  Int32(30),
	}
	encoded := EncodeProperties(props)
	decoded, err := DecodeProperties(encoded)
	require.NoError(t, err)
	assert.True(t, Object(props).Equal(Object(decoded)))
}

func TestMergeProperties(t *testing.T) {
	base := map[string]Value{"a": Int64(1), "b": Int64(2)}
	patch := map[string]Value{"b": Int64(3), "c": Int64(4)}
	merged := MergeProperties(base, patch)

	assert.Equal(t, int64(1), mustInt64(t, merged["a"]))
	assert.Equal(t, int64(3), mustInt64(t, merged["b"]))
	assert.Equal(t, int64(4), mustInt64(t, merged["c"]))
	assert.Equal(t, int64(2), mustInt64(t, base["b"]), "base must not mutate")
}

func mustInt64(t *testing.T, v Value) int64 {
	t.Helper()
	i, ok := v.AsInt64()
	require.True(t, ok)
	return i
}
