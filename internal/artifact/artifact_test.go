package artifact_test

import (
	"os"
	"path/filepath"
	"testing"

	"zestsync/internal/artifact"
	"zestsync/internal/testsupport"
)

func TestPath(t *testing.T) {
	tests := []struct {
		video string
		code  string
		want  string
	}{
		{"/videos/movie.mp4", "en", "/videos/movie.en.srt"},
		{"/videos/my.show.s01e01.mkv", "fr", "/videos/my.show.s01e01.fr.srt"},
		{"/videos/noext", "jap", "/videos/noext.jap.srt"},
		{"relative/clip.avi", " DE ", "relative/clip.de.srt"},
	}
	for _, tt := range tests {
		if got := artifact.Path(tt.video, tt.code); got != filepath.FromSlash(tt.want) {
			t.Errorf("Path(%q, %q) = %q, want %q", tt.video, tt.code, got, tt.want)
		}
	}
	if artifact.BasePath("/v/a.mp4") != filepath.FromSlash("/v/a.en.srt") {
		t.Fatalf("unexpected base path %q", artifact.BasePath("/v/a.mp4"))
	}
}

func TestExistsAndInventory(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	testsupport.WriteFile(t, video, "video")
	testsupport.WriteSRT(t, artifact.Path(video, "en"), "Hello")
	if err := os.Mkdir(artifact.Path(video, "fr"), 0o755); err != nil {
		t.Fatal(err)
	}

	if !artifact.Exists(artifact.Path(video, "en")) {
		t.Fatal("expected base artifact to exist")
	}
	if artifact.Exists(artifact.Path(video, "fr")) {
		t.Fatal("a directory must not count as an artifact")
	}

	inv := artifact.Inventory(video)
	if len(inv) != 14 {
		t.Fatalf("expected 14 entries, got %d", len(inv))
	}
	present := 0
	for _, e := range inv {
		if e.Exists {
			present++
			if e.Language.Code != "en" {
				t.Fatalf("unexpected present artifact %q", e.Language.Code)
			}
		}
	}
	if present != 1 {
		t.Fatalf("expected one present artifact, got %d", present)
	}
}
