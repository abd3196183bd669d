// Package logger adapts log/slog to the domain.Logger port.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Slog writes structured log messages through a slog.Logger.
type Slog struct {
	l *slog.Logger
}

// NewStderr creates a logger that writes text-formatted records to stderr.
// Stdout stays reserved for command output.
func NewStderr(verbose bool) *Slog {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return New(os.Stderr, level)
}

// New creates a logger writing to w at the given level.
func New(w io.Writer, level slog.Level) *Slog {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return &Slog{l: slog.New(h)}
}

// Info logs an informational message with key/value pairs.
func (s *Slog) Info(msg string, args ...any) { s.l.Info(msg, args...) }

// Warn logs a warning with key/value pairs.
func (s *Slog) Warn(msg string, args ...any) { s.l.Warn(msg, args...) }

// Error logs an error message with key/value pairs.
func (s *Slog) Error(msg string, args ...any) { s.l.Error(msg, args...) }
