package ffprobe

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"zestsync/internal/services"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{Index: 0, CodecType: "video"},
			{Index: 1, CodecType: "audio"},
			{Index: 2, CodecType: "AUDIO"},
		},
		Format: Format{Duration: "123.45"},
	}
	if n := len(result.AudioStreams()); n != 2 {
		t.Fatalf("expected 2 audio streams, got %d", n)
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
}

func TestDurationFallsBackToStreams(t *testing.T) {
	result := Result{Streams: []Stream{{Duration: "10.5"}, {Duration: "42.0"}}}
	if got := result.DurationSeconds(); got != 42 {
		t.Fatalf("expected longest stream duration, got %v", got)
	}
	bad := Result{Format: Format{Duration: "bad"}}
	if !math.IsNaN(bad.DurationSeconds()) {
		t.Fatalf("expected NaN, got %v", bad.DurationSeconds())
	}
}

func TestInspectWithStub(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs")
	}
	stub := filepath.Join(t.TempDir(), "ffprobe")
	script := "#!/bin/sh\ncat <<'JSON'\n{\"streams\":[{\"index\":1,\"codec_type\":\"audio\",\"tags\":{\"language\":\"eng\"}}],\"format\":{\"duration\":\"624.0\"}}\nJSON\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	d, err := Duration(context.Background(), stub, "/videos/movie.mp4")
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if d != 624 {
		t.Fatalf("expected 624, got %v", d)
	}
}

func TestInspectFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs")
	}
	stub := filepath.Join(t.TempDir(), "ffprobe")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\necho 'No such file' >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	_, err := Inspect(context.Background(), stub, "/missing.mp4")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if _, err := Inspect(context.Background(), stub, " "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
