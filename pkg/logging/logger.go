// Package logging provides structured logging for the simulation and its
// commands. It wraps Go's slog package with context-first methods and carries
// a run ID through the context so every record of one simulation run can be
// correlated.
package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with context-aware helpers.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger writing JSON to stdout.
// The log level is read from NBODY_LOG_LEVEL (DEBUG, INFO, WARN, ERROR) and
// defaults to INFO.
func NewLogger() *Logger {
	return NewEnvLogger(os.Stdout)
}

// NewEnvLogger creates a JSON Logger writing to w at the level read from
// NBODY_LOG_LEVEL.
func NewEnvLogger(w io.Writer) *Logger {
	return NewLoggerWithWriter(w, getLogLevelFromEnv())
}

// NewLoggerWithWriter creates a JSON Logger writing to w at the given level.
func NewLoggerWithWriter(w io.Writer, level slog.Level) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return &Logger{slog.New(handler)}
}

// Component returns a child logger tagging every record with the component name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{l.Logger.With("component", name)}
}

// LogWithContext logs a message, adding the run ID from ctx when present.
func (l *Logger) LogWithContext(ctx context.Context, level slog.Level, msg string, args ...any) {
	if runID := GetRunID(ctx); runID != "" {
		args = append(args, "run_id", runID)
	}
	l.Log(ctx, level, msg, args...)
}

// Info logs an informational message with context.
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.LogWithContext(ctx, slog.LevelInfo, msg, args...)
}

// Warn logs a warning message with context.
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.LogWithContext(ctx, slog.LevelWarn, msg, args...)
}

// Error logs an error message with context and the error text.
func (l *Logger) Error(ctx context.Context, msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.LogWithContext(ctx, slog.LevelError, msg, args...)
}

// Debug logs a debug message with context.
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.LogWithContext(ctx, slog.LevelDebug, msg, args...)
}

type runIDKey struct{}

// WithRunID adds a run ID to the context, generating one if runID is empty.
func WithRunID(ctx context.Context, runID string) context.Context {
	if runID == "" {
		runID = GenerateRunID()
	}
	return context.WithValue(ctx, runIDKey{}, runID)
}

// GetRunID returns the run ID stored in ctx, or "".
func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok {
		return id
	}
	return ""
}

// GenerateRunID creates a random 16 character hex ID.
func GenerateRunID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func getLogLevelFromEnv() slog.Level {
	switch strings.ToUpper(os.Getenv("NBODY_LOG_LEVEL")) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WrapError wraps an error with additional context information.
// The context may be a format string for args.
func WrapError(err error, context string, args ...any) error {
	if err == nil {
		return nil
	}
	if len(args) > 0 {
		context = fmt.Sprintf(context, args...)
	}
	return fmt.Errorf("%s: %w", context, err)
}
