package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Debug("should be dropped")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 log lines, got %d", len(lines))
	}

	var entry LogEntry
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Failed to parse log line: %v", err)
	}
	if entry.Level != "INFO" {
		t.Errorf("Expected level INFO, got %s", entry.Level)
	}
	if entry.Message != "info message" {
		t.Errorf("Expected 'info message', got %q", entry.Message)
	}
}

func TestJSONLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	logger.Info("object written", TableID(7), ObjectID(42), Version(3))

	var entry LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("Failed to parse log line: %v", err)
	}

	if entry.Fields["table_id"] != float64(7) {
		t.Errorf("Expected table_id 7, got %v", entry.Fields["table_id"])
	}
	if entry.Fields["object_id"] != float64(42) {
		t.Errorf("Expected object_id 42, got %v", entry.Fields["object_id"])
	}
}

func TestJSONLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	child := logger.With(Component("recovery"))
	child.Info("started")

	var entry LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("Failed to parse log line: %v", err)
	}
	if entry.Fields["component"] != "recovery" {
		t.Errorf("Expected component field from parent, got %v", entry.Fields)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"warning": WarnLevel,
		"ERROR":   ErrorLevel,
		"bogus":   InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCaptureLogger(t *testing.T) {
	capture := NewCaptureLogger()

	capture.Info("Recovering master 99, partition 0, 3 hosts")
	capture.Info("Segment 87 replay complete")

	if !capture.Contains("partition 0") {
		t.Error("Expected capture to contain 'partition 0'")
	}
	if capture.Contains("Segment 12") {
		t.Error("Did not expect 'Segment 12'")
	}

	joined := capture.String()
	want := "Recovering master 99, partition 0, 3 hosts | Segment 87 replay complete"
	if joined != want {
		t.Errorf("String() = %q, want %q", joined, want)
	}

	// Children share the parent's store
	child := capture.With(Component("recovery"))
	child.Warn("getRecoveryData failed on mock:host=backup1")
	if len(capture.Messages()) != 3 {
		t.Errorf("Expected 3 messages, got %d", len(capture.Messages()))
	}

	capture.Reset()
	if len(capture.Messages()) != 0 {
		t.Error("Expected no messages after Reset")
	}
}
