package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesJSONWithProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "hookchatd.log")

	logger, err := New(Options{Path: path, Profile: "work", Level: zapcore.InfoLevel})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hello", zap.String("k", "v"))
	logger.Debug("hidden")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1", len(lines))
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["msg"] != "hello" || entry["profile"] != "work" || entry["k"] != "v" {
		t.Errorf("entry = %v", entry)
	}
	if _, ok := entry["pid"]; !ok {
		t.Error("pid field missing")
	}
}

func TestNewFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.log")
	if _, err := New(Options{Path: path}); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("log permission = %o, want 0600", perm)
	}
}
