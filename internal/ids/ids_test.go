package ids

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducesVersion6(t *testing.T) {
	id := New()
	assert.Equal(t, byte(6), id[6]>>4)
	assert.Equal(t, byte(0x80), id[8]&0xC0)
}

func TestNewIsLexicographicallyTimeOrdered(t *testing.T) {
	first, err := newV6At(time.Now())
	require.NoError(t, err)
	second, err := newV6At(time.Now().Add(10 * time.Millisecond))
	require.NoError(t, err)

	assert.Less(t, string(first[:8]), string(second[:8]))
}

func TestNewUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New()
		assert.False(t, seen[id.String()])
		seen[id.String()] = true
	}
}

func TestParseRoundTrip(t *testing.T) {
	id := New()
	parsed, err := Parse(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}
