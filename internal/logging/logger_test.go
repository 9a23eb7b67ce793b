package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogger_JSONEntry(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LevelInfo, FormatJSON)
	logger.SetOutput(&buf)

	logger.WithField(FieldUserID, 42).WithComponent("periodic").Info("totals computed")

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode entry %q: %v", buf.String(), err)
	}
	if entry.Message != "totals computed" {
		t.Errorf("Message = %q", entry.Message)
	}
	if entry.Fields[FieldComponent] != "periodic" {
		t.Errorf("component field = %v", entry.Fields[FieldComponent])
	}
	if entry.Fields[FieldUserID] != float64(42) {
		t.Errorf("user_id field = %v", entry.Fields[FieldUserID])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LevelWarn, FormatText)
	logger.SetOutput(&buf)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("expected debug/info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "warn: shown") {
		t.Errorf("expected warn line, got %q", out)
	}
}

func TestLogger_DerivedSharesOutput(t *testing.T) {
	var buf bytes.Buffer
	root := NewLogger(LevelInfo, FormatText)
	child := root.WithField("k", "v")
	root.SetOutput(&buf)

	child.Info("from child")

	if !strings.Contains(buf.String(), "from child") {
		t.Errorf("derived logger did not follow SetOutput: %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	logger := NewLogger(LevelDebug, FormatText)
	ctx := WithLogger(context.Background(), logger)

	if FromContext(ctx) != logger {
		t.Error("expected the context logger")
	}
	if FromContext(context.Background()) != GetGlobalLogger() {
		t.Error("expected fallback to the global logger")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LevelDebug,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
