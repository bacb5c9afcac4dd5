// Package logging configures the structured logger shared by every kernel
// subsystem: a package-level default plus an explicit constructor for
// tests and embedders that want their own sink.
package logging

import (
	"context"
	"log/slog"
	"os"
)

// contextKey avoids collisions with other packages' context keys.
type contextKey struct{}

var loggerKey = contextKey{}

// New builds a structured logger writing JSON to w at the given level.
// level accepts the standard slog names ("debug", "info", "warn", "error");
// unrecognized values fall back to "info".
func New(w *os.File, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// WithContext attaches a logger to ctx so request-scoped handlers can
// retrieve it without threading it through every call explicitly.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger attached to ctx, or slog.Default() if
// none was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}
