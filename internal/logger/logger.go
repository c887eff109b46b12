// Package logger provides structured logging setup for Engram.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/engram-ai/engram/internal/config"
)

// New creates a *slog.Logger from the given Logging config, JSON to
// stdout with a "service" attribute on every record. When cfg.Async is
// set, records are handed off to a worker pool (see async.go) so
// request-path logging never blocks on stdout I/O; callers must call
// the returned Closer.Close before process exit to flush pending
// records.
func New(cfg config.Logging) (*slog.Logger, Closer) {
	level := parseLevel(cfg.Level)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})

	var handler slog.Handler = jsonHandler
	closer := Closer(nopCloser{})
	if cfg.Async {
		bufSize := cfg.AsyncBufferSize
		if bufSize <= 0 {
			bufSize = 4096
		}
		workers := cfg.AsyncWorkers
		if workers <= 0 {
			workers = 2
		}
		async := NewAsyncHandler(jsonHandler, bufSize, workers)
		handler = async
		closer = async
	}

	return slog.New(handler).With("service", cfg.Service), closer
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
