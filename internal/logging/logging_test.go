package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevelFallsBackToInfo(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, parseLevel("not-a-level"))
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
}

func TestNewWritesJSON(t *testing.T) {
	r, w, err := os.Pipe()
	assert.NoError(t, err)
	logger := New(w, "info")
	logger.Info("engine_open", slog.String("path", "/tmp/x"))
	w.Close()

	var buf bytes.Buffer
	buf.ReadFrom(r)
	assert.Contains(t, buf.String(), "engine_open")
	assert.Contains(t, buf.String(), "/tmp/x")
}

func TestContextRoundTrip(t *testing.T) {
	logger := slog.Default()
	ctx := WithContext(context.Background(), logger)
	assert.Equal(t, logger, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}
