package logging

import (
	"os"
	"testing"
)

func TestNew_CreatesDirAndLogger(t *testing.T) {
	dir := t.TempDir()
	log, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = log.Sync() }()

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("log dir missing: %v", err)
	}

	// Write once; just ensuring no panic / basic functionality.
	log.Info("test_message_from_logging_test")
}

func TestNew_EmptyDirUsesStderr(t *testing.T) {
	log, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("stderr_logger_ok")
}
