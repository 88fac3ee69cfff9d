package toyfat

import (
	"context"
	"errors"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with filesystem-specific context.
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

// WithPath adds a path field to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// WithBlock adds a block field to the logger.
func (l *Logger) WithBlock(block int) *Logger {
	return &Logger{
		Logger: l.Logger.With("block", block),
	}
}

// errLevel logs device failures as errors and rejected requests at debug.
func errLevel(err error) slog.Level {
	if errors.Is(err, ErrIO) {
		return slog.LevelError
	}
	return slog.LevelDebug
}

// LogCreate logs a directory or file creation.
func (l *Logger) LogCreate(ctx context.Context, path string, block int, err error) {
	if err != nil {
		l.Log(ctx, errLevel(err), "create failed",
			"path", path,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "create completed",
			"path", path,
			"block", block,
		)
	}
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(ctx context.Context, path string, freed int, err error) {
	if err != nil {
		l.Log(ctx, errLevel(err), "delete failed",
			"path", path,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "delete completed",
			"path", path,
			"freed_blocks", freed,
		)
	}
}

// LogOpen logs an open operation.
func (l *Logger) LogOpen(ctx context.Context, path string, modes OpenMode, length int, err error) {
	if err != nil {
		l.Log(ctx, errLevel(err), "open failed",
			"path", path,
			"modes", modes,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "open completed",
			"path", path,
			"modes", modes,
			"length", length,
		)
	}
}

// LogIO logs a failed device transfer.
func (l *Logger) LogIO(ctx context.Context, op string, block int, err error) {
	l.ErrorContext(ctx, "device i/o failed",
		"op", op,
		"block", block,
		"error", err,
	)
}
