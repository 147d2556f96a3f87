package annex

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with index-specific context.
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
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithIndex tags the logger with an index's shape.
func (l *Logger) WithIndex(metric, quantization string, dimensions int) *Logger {
	return &Logger{
		Logger: l.Logger.With("metric", metric, "quantization", quantization, "dimensions", dimensions),
	}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(ctx context.Context, label uint32, dimension int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed",
			"label", label,
			"dimension", dimension,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "insert completed",
			"label", label,
		)
	}
}

// LogBatchInsert logs a batch insert operation.
func (l *Logger) LogBatchInsert(ctx context.Context, count, failed int) {
	if failed > 0 {
		l.WarnContext(ctx, "batch insert completed with failures",
			"total", count,
			"failed", failed,
			"success", count-failed,
		)
	} else {
		l.InfoContext(ctx, "batch insert completed",
			"count", count,
		)
	}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, k, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"k", k,
			"results", resultsFound,
		)
	}
}

// LogReserve logs a capacity change.
func (l *Logger) LogReserve(ctx context.Context, from, to int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "reserve failed",
			"capacity", from,
			"requested", to,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "capacity grown",
			"from", from,
			"to", to,
		)
	}
}

// LogSave logs a save operation.
func (l *Logger) LogSave(ctx context.Context, target string, size int, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"target", target,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index saved",
			"target", target,
			"size", size,
			"bytes", bytes,
		)
	}
}

// LogLoad logs a load or view operation. mode is "load" or "view".
func (l *Logger) LogLoad(ctx context.Context, mode, source string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, mode+" failed",
			"source", source,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, mode+" completed",
			"source", source,
			"size", size,
		)
	}
}
