package klog

import (
	"log/slog"
	"strings"
	"testing"
)

type captureLogger struct{ lines []string }

func (c *captureLogger) WriteLineString(s string) { c.lines = append(c.lines, s) }
func (c *captureLogger) WriteLineBytes(b []byte)  { c.lines = append(c.lines, string(b)) }

func TestNewWritesOneLinePerRecord(t *testing.T) {
	var c captureLogger
	l := New(&c, slog.LevelInfo)
	l.Info("exec", "pid", 2, "cmd", "ls")
	l.Debug("hidden")
	if len(c.lines) != 1 {
		t.Fatalf("lines = %q; want 1 line", c.lines)
	}
	if !strings.Contains(c.lines[0], "msg=exec") || !strings.Contains(c.lines[0], "pid=2") {
		t.Fatalf("line = %q", c.lines[0])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"loud", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v ok=%v", tt.in, got, err, tt.want, tt.ok)
		}
	}
}

func TestNilLoggerDiscards(t *testing.T) {
	l := New(nil, slog.LevelDebug)
	l.Error("dropped")
}
