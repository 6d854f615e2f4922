package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeRedactsSecrets(t *testing.T) {
	t.Setenv("LOG_REDACTION_ENABLED", "")
	got := sanitizeKVs([]interface{}{"neo4j_password", "hunter2", "backend", "neo4j", "dangling"})
	want := []interface{}{"neo4j_password", "[REDACTED]", "backend", "neo4j", "dangling"}
	if len(got) != len(want) {
		t.Fatalf("len: want=%d got=%d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("kv[%d]: want=%v got=%v", i, want[i], got[i])
		}
	}
}

func TestSanitizeDisabled(t *testing.T) {
	t.Setenv("LOG_REDACTION_ENABLED", "off")
	got := sanitizeKVs([]interface{}{"api_key", "abc"})
	if got[1] != "abc" {
		t.Fatalf("redaction disabled: want=abc got=%v", got[1])
	}
}

func TestNewWithFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skillgraph.log")
	log, err := NewWithOptions(Options{Mode: "production", File: path})
	if err != nil {
		t.Fatalf("NewWithOptions: %v", err)
	}
	log.Info("rebuild finished", "entities", 2)
	log.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(raw) == 0 {
		t.Fatalf("expected log output in %s", path)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := NewWithOptions(Options{Level: "loud"}); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}
