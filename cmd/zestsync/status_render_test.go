package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"zestsync/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Whisper model", statusError, "model.bin missing", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Whisper model:", "[FAIL] model.bin missing")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("FFmpeg", statusOK, "", true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green line, got %q", got)
	}
	if !strings.Contains(got, "[OK]") {
		t.Fatalf("expected bare status, got %q", got)
	}
}

func TestCheckKind(t *testing.T) {
	tests := []struct {
		result preflight.Result
		want   statusKind
	}{
		{preflight.Result{Passed: true}, statusOK},
		{preflight.Result{Optional: true}, statusWarn},
		{preflight.Result{}, statusError},
	}
	for _, tt := range tests {
		if got := checkKind(tt.result); got != tt.want {
			t.Fatalf("checkKind(%+v) = %v, want %v", tt.result, got, tt.want)
		}
	}
}

func TestGPULines(t *testing.T) {
	lines := gpuLines(preflight.SystemInfo{GPUNote: "no NVIDIA GPU detected"}, false)
	if len(lines) != 1 || !strings.Contains(lines[0], "no NVIDIA GPU detected") {
		t.Fatalf("unexpected lines: %q", lines)
	}
	lines = gpuLines(preflight.SystemInfo{GPUs: []preflight.GPU{{Name: "RTX 4090", Memory: "24564 MiB"}, {Name: "T4", Memory: "15360 MiB"}}}, false)
	if len(lines) != 2 || !strings.Contains(lines[0], "RTX 4090 (24564 MiB)") {
		t.Fatalf("unexpected lines: %q", lines)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"only"}}, nil)
	if !strings.Contains(out, "only") {
		t.Fatalf("missing row: %s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty table without headers")
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
