package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteSRT writes a subtitle file with one cue per text, each two seconds long.
func WriteSRT(t testing.TB, path string, texts ...string) {
	t.Helper()
	var b strings.Builder
	for i, text := range texts {
		fmt.Fprintf(&b, "%d\n00:00:%02d,000 --> 00:00:%02d,500\n%s\n\n", i+1, i*2, i*2+1, text)
	}
	WriteFile(t, path, b.String())
}

// WriteStubBinary writes an executable shell script with the given body.
func WriteStubBinary(t testing.TB, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", path, err)
	}
}

// AssertLineCount fails the test unless path holds exactly want lines.
func AssertLineCount(t testing.TB, path string, want int) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	got := len(strings.Split(strings.TrimRight(string(data), "\n"), "\n"))
	if strings.TrimSpace(string(data)) == "" {
		got = 0
	}
	if got != want {
		t.Fatalf("%s: expected %d lines, got %d", path, want, got)
	}
}
