package kernelerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesKindAndRetryable(t *testing.T) {
	err := New(CodeDanglingEdge, "node 1 has dangling edge", nil)
	require.NotNil(t, err)
	assert.Equal(t, KindGraph, err.Kind)
	assert.False(t, err.Retryable)

	retryable := New(CodeTransactionAborted, "aborted", nil)
	assert.True(t, retryable.Retryable)
	assert.Equal(t, KindStorage, retryable.Kind)
}

func TestIsMatchesByCode(t *testing.T) {
	err := DanglingEdge("e1")
	sentinel := New(CodeDanglingEdge, "", nil)
	assert.True(t, errors.Is(err, sentinel))

	other := NotFound("missing")
	assert.False(t, errors.Is(err, other))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CodeInsufficientSpace, cause)
	require.NotNil(t, err)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Equal(t, "disk full", err.Message)
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(CodeInvalidPath, nil))
}

func TestWithDetail(t *testing.T) {
	err := NotFound("node missing").WithDetail("id", "abc")
	assert.Equal(t, "abc", err.Details["id"])
}

func TestDimensionMismatchMessage(t *testing.T) {
	err := DimensionMismatch(128, 64)
	assert.Contains(t, err.Error(), "128")
	assert.Contains(t, err.Error(), "64")
	assert.Equal(t, KindVector, err.Kind)
}
