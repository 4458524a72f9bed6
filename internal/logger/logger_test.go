package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewDebugModeWritesToStdout(t *testing.T) {
	log := New("debug", Options{})
	if log == nil {
		t.Fatalf("expected logger instance, got nil")
	}
	if !log.Core().Enabled(-1) {
		t.Fatalf("expected debug level enabled in debug mode")
	}
}

func TestNewReleaseModeCreatesLogFile(t *testing.T) {
	dir := t.TempDir()
	log := New("release", Options{Dir: dir, Filename: "test.log"})
	if log == nil {
		t.Fatalf("expected logger instance, got nil")
	}
	log.Sugar().Infow("probe", "key", "value")
	_ = log.Sync()
	if _, err := os.Stat(filepath.Join(dir, "test.log")); err != nil {
		t.Fatalf("expected log file to exist: %v", err)
	}
}

func TestZFallsBackWhenUninitialized(t *testing.T) {
	saved := L
	L = nil
	defer func() { L = saved }()
	if Z() == nil {
		t.Fatalf("expected fallback logger, got nil")
	}
}

func TestNormalizePositiveInt(t *testing.T) {
	if got := normalizePositiveInt(0, 7); got != 7 {
		t.Fatalf("expected fallback 7, got %d", got)
	}
	if got := normalizePositiveInt(3, 7); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}
