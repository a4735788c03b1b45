package logging

import (
	"log/slog"
	"os"
)

// Logger wraps slog with the small surface the rest of the service uses.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new structured logger writing to stdout.
func NewLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(os.Stdout, nil)),
	}
}

// NewLoggerWithLevel creates a logger honoring the given minimum level
// ("debug", "info", "warn", "error"). Unknown values fall back to info.
func NewLoggerWithLevel(level string) *Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})),
	}
}

// With returns a logger with the given attributes attached to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}
