// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Logger is a type wrapper for the Go stdlib slog.Logger
type Logger struct {
	*slog.Logger
}

// New returns a new Logger that writes human-readable output to STDERR.
func New(level slog.Level) *Logger {
	return NewLogger(level)
}

// NewLogger returns a new Logger with the given log level. If one or more writers are
// provided, log output is written to them using the plain text handler. Without a
// writer the Logger writes colorized output to STDERR.
func NewLogger(level slog.Level, writers ...io.Writer) *Logger {
	if len(writers) == 0 {
		handler := tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		})
		return &Logger{slog.New(handler)}
	}
	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: level})
	return &Logger{slog.New(handler)}
}

// Err returns a slog.Attr for the given error that can be used in log messages
func Err(err error) slog.Attr {
	return slog.Any("error", err)
}
