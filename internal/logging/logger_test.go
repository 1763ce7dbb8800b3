package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLoggerWritesJSONToFile(t *testing.T) {
	dir := t.TempDir()

	log, err := NewLogger(dir, LevelDebug)
	if err != nil {
		t.Fatalf("NewLogger() error: %v", err)
	}
	log.Info("lock acquired", "file_path", "src/auth.ts")
	if err := log.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "relay.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "lock acquired" {
		t.Errorf("msg = %v, want %q", entry["msg"], "lock acquired")
	}
	if entry["file_path"] != "src/auth.ts" {
		t.Errorf("file_path = %v, want src/auth.ts", entry["file_path"])
	}
}

func TestChildLoggersInheritAttributes(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLogger(dir, LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger() error: %v", err)
	}

	child := log.WithScope("acme@main").WithHolder("alice").With("mode", "WRITING")
	child.Info("acquired")
	if err := log.Close(); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(filepath.Join(dir, "relay.log"))
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["scope"] != "acme@main" || entry["holder_id"] != "alice" || entry["mode"] != "WRITING" {
		t.Errorf("attributes missing from entry: %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNopLogger(t *testing.T) {
	log := NopLogger()
	log.Info("discarded")
	if err := log.Close(); err != nil {
		t.Errorf("Close() on nop logger: %v", err)
	}
}
