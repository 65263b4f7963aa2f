// Package klog builds the kernel's structured logger on top of the HAL line
// logger.
package klog

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"kestrel/hal"
)

// lineWriter hands each complete line to a hal.Logger.
type lineWriter struct {
	l hal.Logger
}

func (w lineWriter) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte{'\n'}) {
		w.l.WriteLineBytes(line)
	}
	return len(p), nil
}

// Writer returns an io.Writer that emits one log line per written line.
func Writer(l hal.Logger) io.Writer { return lineWriter{l: l} }

// New returns a text logger at level writing to l. A nil l discards.
func New(l hal.Logger, level slog.Level) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return slog.New(slog.NewTextHandler(Writer(l), &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
