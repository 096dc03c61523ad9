// Package log provides the structured logging interface used by every stage of
// the housing pipeline.
//
// The interface is slog-shaped (key/value pairs after the message) so stages do
// not depend on a concrete backend. The default backend is zerolog, see
// NewZerologProvider; tests swap in a TestLogger to assert on emitted fields.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("splitter").With(
//	    log.StageKey, log.StageSplit,
//	    log.RunIDKey, runID,
//	)
//	logger.Info("Split completed",
//	    log.SamplesKey, 20640,
//	    "test_size", 0.2,
//	)
package log

import (
	"context"
)

// Logger is a leveled, structured logger.
//
// fields are alternating key/value pairs. An error value passed under the
// ErrAttrKey key (or as the first field of Error) is rendered with its message
// and, when available, the cockroachdb stack trace.
type Logger interface {
	// Debug logs detailed diagnostic information, usually disabled outside development.
	Debug(msg string, fields ...any)

	// Info logs routine progress of a pipeline stage.
	Info(msg string, fields ...any)

	// Warn logs conditions that do not stop the run, such as unseen category levels.
	Warn(msg string, fields ...any)

	// Error logs a failure. Pipeline failures are fatal, so this is usually the
	// last line a run prints before exiting.
	//
	//	logger.Error("Stage failed", err,
	//	    log.StageKey, log.StageTrain,
	//	)
	Error(msg string, fields ...any)

	// With returns a child logger that adds fields to every record.
	With(fields ...any) Logger

	// Enabled reports whether records at level would be emitted.
	Enabled(ctx context.Context, level Level) bool
}

// Level is a logging level with slog-compatible values.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates loggers that share a backend and level.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum level for all loggers created by this provider.
	SetLevel(level Level)
}
