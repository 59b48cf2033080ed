package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"zestsync/internal/logging"
	"zestsync/internal/services"
	"zestsync/internal/testsupport"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(data)
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from config")
	content := readLog(t, filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if !strings.Contains(content, "hello from config") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerFormatsComponentAndLanguage(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithLanguage(services.WithTaskID(context.Background(), "abc"), "fr")
	log := logging.WithContext(ctx, logging.NewComponentLogger(logger, "translate"))
	log.Info("translation complete", logging.Int("cues", 12), logging.String("output", "/tmp/a b.srt"))

	content := readLog(t, logPath)
	for _, fragment := range []string{"INFO translate [fr]: translation complete", "task_id=abc", "cues=12", `output="/tmp/a b.srt"`} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %q in %q", fragment, content)
		}
	}
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestDebugLevelIncludesCaller(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("with caller")
	if content := readLog(t, logPath); !strings.Contains(content, ".go:") {
		t.Fatalf("expected caller information, got %q", content)
	}
}

func TestJSONLoggerFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	failure := services.Wrap(services.ErrToolNotFound, "transcribe", "locate ffmpeg", "no candidate responded", nil)
	logger.Error("task failed", logging.Args(logging.Failure(failure)...)...)

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["level"] != "error" {
		t.Fatalf("expected lowercase level, got %v", entry["level"])
	}
	if entry[logging.FieldErrorKind] != "tool_not_found" {
		t.Fatalf("expected error kind, got %v", entry[logging.FieldErrorKind])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "vad unavailable", "vad_unavailable", logging.Error(errors.New("no onnxruntime")))
	content := readLog(t, logPath)
	for _, fragment := range []string{"event_type=vad_unavailable", "error_hint=", "impact="} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %q in %q", fragment, content)
		}
	}
}

func TestPruneLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "zestsync-1.log")
	fresh := filepath.Join(dir, "zestsync-2.log")
	active := filepath.Join(dir, logging.LogFileName)
	for _, p := range []string{old, fresh, active} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().AddDate(0, 0, -30)
	for _, p := range []string{old, active} {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatal(err)
		}
	}
	if removed := logging.PruneLogs(logging.NewNop(), dir, "*.log", 7, time.Now()); removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("expected old log removed")
	}
	for _, p := range []string{fresh, active} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s kept: %v", p, err)
		}
	}
	if logging.PruneLogs(nil, dir, "*.log", 0, time.Now()) != 0 {
		t.Fatal("expected retention 0 to disable pruning")
	}
}
