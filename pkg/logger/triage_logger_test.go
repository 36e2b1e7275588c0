package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %q (%v)", line, err)
	}
	return entry
}

func TestLoggerWritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelInfo, Output: &buf, Service: "triage-test"})

	log.WithField("batch", 2).WithError(errors.New("timeout")).Warn("batch %d degraded", 2)

	entry := decodeLine(t, &buf)
	if entry["level"] != "warn" {
		t.Errorf("expected level warn, got %v", entry["level"])
	}
	if entry["message"] != "batch 2 degraded" {
		t.Errorf("unexpected message %v", entry["message"])
	}
	if entry["service"] != "triage-test" {
		t.Errorf("expected service field, got %v", entry["service"])
	}
	if entry["error"] != "timeout" {
		t.Errorf("expected error field, got %v", entry["error"])
	}
	if entry["batch"] != float64(2) {
		t.Errorf("expected batch field 2, got %v", entry["batch"])
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelWarn, Output: &buf})

	log.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered, got %q", buf.String())
	}

	log.Error("kept")
	if buf.Len() == 0 {
		t.Error("expected error to be written")
	}
}

func TestWithContextRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelDebug, Output: &buf})

	ctx := ContextWithRequestID(context.Background(), "req-123")
	log.WithContext(ctx).Debug("hello")

	entry := decodeLine(t, &buf)
	if entry["request_id"] != "req-123" {
		t.Errorf("expected request_id, got %v", entry["request_id"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"Error":   LevelError,
		"fatal":   LevelFatal,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
