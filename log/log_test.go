package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestModuleAddsAttribute(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	l := NewWithHandler(h).Module("disputes")

	l.Info("verdict applied", "target", "0xabc")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v (line: %s)", err, buf.String())
	}
	if entry["module"] != "disputes" {
		t.Fatalf("module = %v, want disputes", entry["module"])
	}
	if entry["target"] != "0xabc" {
		t.Fatalf("target = %v, want 0xabc", entry["target"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	l := NewWithHandler(h)

	l.Debug("should not appear")
	l.Info("should not appear either")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below Warn level, got %q", buf.String())
	}

	l.Warn("this should appear")
	if !strings.Contains(buf.String(), "this should appear") {
		t.Fatalf("expected warn message in output, got %q", buf.String())
	}
}

func TestDefaultLoggerConvenienceFunctions(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	old := Default()
	SetDefault(NewWithHandler(h))
	defer SetDefault(old)

	Info("block imported", "slot", 42)
	if !strings.Contains(buf.String(), "block imported") {
		t.Fatalf("expected message in output, got %q", buf.String())
	}
}
