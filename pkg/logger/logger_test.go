package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestInit_WritesLogFile(t *testing.T) {
	dir := t.TempDir()
	log := Init(true, dir)
	t.Cleanup(func() { Close() })

	if log.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", log.GetLevel())
	}
	log.Info("[Test] hello")

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "[Test] hello") {
		t.Fatalf("expected message in log file, got %q", data)
	}
	if strings.Contains(string(data), "\x1b[") {
		t.Fatalf("log file must not contain color codes: %q", data)
	}
}

func TestInit_MissingDirFallsBackToStdout(t *testing.T) {
	log := Init(false, filepath.Join(t.TempDir(), "missing"))
	if log.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level, got %s", log.GetLevel())
	}
	if logFile != nil {
		t.Fatalf("expected no log file")
	}
}
