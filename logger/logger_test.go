package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"resxwatch/config"
)

// go test -v --run TestNewWithWriter
func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(config.LogConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	log.Debug("hidden")
	log.Info("price tick")
	_ = log.Sync()

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug line written at info level")
	}
	if !strings.Contains(out, `"msg":"price tick"`) {
		t.Errorf("expected json line, got %q", out)
	}
}

// go test -v --run TestInvalidLevel
func TestInvalidLevel(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

// go test -v --run TestFileOutput
func TestFileOutput(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "resxwatch.log")
	var buf bytes.Buffer
	log, err := NewWithWriter(config.LogConfig{Level: "warn", OutputFile: file}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	log.Warn("feed unreachable")
	_ = log.Sync()

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "feed unreachable") {
		t.Errorf("log file missing entry: %q", data)
	}
}
