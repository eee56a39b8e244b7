// Package logging configures the process-wide structured logger.
// Everything logs through *slog.Logger handles handed down from here;
// goerr attributes unpack into structured fields via the clog hook.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/m-mizutani/clog"
)

type contextKey struct{}

var (
	loggerKey = contextKey{}
	current   *slog.Logger
	currentMu sync.RWMutex
)

func init() {
	current = New("info", os.Stderr)
}

// parseLevel maps a config level string to a slog.Level. Unknown or
// empty strings fall back to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a console logger at the given level. Writes go to stderr
// when w is nil, keeping stdout free for command output.
func New(level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := clog.New(
		clog.WithWriter(w),
		clog.WithLevel(parseLevel(level)),
		clog.WithTimeFmt("15:04:05"),
		clog.WithSource(false),
		clog.WithAttrHook(clog.GoerrHook),
	)
	return slog.New(handler)
}

// Default returns the process logger.
func Default() *slog.Logger {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return current
}

// SetDefault replaces the process logger.
func SetDefault(logger *slog.Logger) {
	currentMu.Lock()
	defer currentMu.Unlock()
	current = logger
}

// With returns a new context with the logger attached.
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// From retrieves the logger from the context, falling back to the
// process logger.
func From(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return Default()
}
