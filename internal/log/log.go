// Package log sets up the process-wide slog logger for go-rgbd commands.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	logger *slog.Logger
	once   sync.Once
)

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
// Anything else is info.
func ParseLevel(level string) slog.Level {
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

// New builds a logger writing to w. Production (GO_ENV=production) gets
// JSON lines, everything else human-readable text.
func New(w io.Writer, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if os.Getenv("GO_ENV") == "production" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Init installs the global logger at level. Only the first call has an
// effect.
func Init(level string) *slog.Logger {
	once.Do(func() {
		logger = New(os.Stderr, level)
		slog.SetDefault(logger)
	})
	return logger
}

// L returns the global logger, initialising it at info if needed.
func L() *slog.Logger {
	return Init("info")
}
