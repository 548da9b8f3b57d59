package chunkstore

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with chunkstore-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// WithStore tags the logger with a store name.
func (l *Logger) WithStore(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("store", name),
	}
}

// LogPut logs a put operation.
func (l *Logger) LogPut(ctx context.Context, index, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "put failed",
			"index", index,
			"size", size,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "put completed",
			"index", index,
			"size", size,
		)
	}
}

// LogGet logs a get operation. source names where the bytes came from
// ("memory", "cache", "files").
func (l *Logger) LogGet(ctx context.Context, index int, source string, size int, err error) {
	if err != nil {
		l.DebugContext(ctx, "get failed",
			"index", index,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "get completed",
			"index", index,
			"source", source,
			"size", size,
		)
	}
}

// LogCleanup logs a cache reset.
func (l *Logger) LogCleanup(ctx context.Context, artifacts, queues int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "cleanup failed",
			"artifacts", artifacts,
			"write_queues", queues,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "cleanup completed",
			"artifacts", artifacts,
			"write_queues", queues,
			"elapsed", elapsed,
		)
	}
}

// LogClose logs a close or destroy.
func (l *Logger) LogClose(ctx context.Context, destroy bool, err error) {
	op := "close"
	if destroy {
		op = "destroy"
	}
	if err != nil {
		l.ErrorContext(ctx, op+" failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, op+" completed")
	}
}
