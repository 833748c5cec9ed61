package utils

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    LogLevel
		wantErr bool
	}{
		{"debug", DEBUG, false},
		{"INFO", INFO, false},
		{"Warning", WARN, false},
		{"error", ERROR, false},
		{"bogus", INFO, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestStructuredLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewStructuredLogger(&StructuredLoggerConfig{
		Level:  WARN,
		Output: &buf,
		Format: FormatText,
	})
	if err != nil {
		t.Fatalf("NewStructuredLogger: %v", err)
	}

	logger.Debug("dropped")
	logger.Info("dropped too")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("expected sub-threshold messages to be filtered, got %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("expected warn message in output, got %q", out)
	}
}

func TestStructuredLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := NewStructuredLogger(&StructuredLoggerConfig{
		Level:  INFO,
		Output: &buf,
		Format: FormatJSON,
	})

	logger.WithComponent("cache").Info("eviction complete", map[string]interface{}{
		"evicted": 3,
	})

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry.Message != "eviction complete" {
		t.Errorf("unexpected message: %q", entry.Message)
	}
	if entry.Fields["component"] != "cache" {
		t.Errorf("expected component field, got %v", entry.Fields)
	}
}

func TestStructuredLogger_ComponentLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := NewStructuredLogger(&StructuredLoggerConfig{
		Level:  ERROR,
		Output: &buf,
		Format: FormatText,
	})
	logger.SetComponentLevel("optimizer", DEBUG)

	logger.WithComponent("optimizer").Debug("visible despite global level")
	logger.WithComponent("metrics").Debug("filtered by global level")

	out := buf.String()
	if !strings.Contains(out, "visible despite global level") {
		t.Errorf("component-level override not applied: %q", out)
	}
	if strings.Contains(out, "filtered by global level") {
		t.Errorf("global level not applied to other components: %q", out)
	}
}
