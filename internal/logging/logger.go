// Package logging wraps slog with the handler choice used by the binaries.
package logging

import (
	"io"
	"log/slog"
	"os"
)

type Logger struct {
	*slog.Logger
}

// NewLogger returns a JSON logger at info level for "prod" and a text logger
// at debug level otherwise.
func NewLogger(env string) *Logger {
	return newLogger(env, os.Stdout)
}

func newLogger(env string, w io.Writer) *Logger {
	var handler slog.Handler

	if env == "prod" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}

	return &Logger{slog.New(handler)}
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{l.Logger.With(args...)}
}
