package deps

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"zestsync/internal/services"
)

// versionProbeTimeout bounds each `ffmpeg -version` call.
const versionProbeTimeout = 5 * time.Second

var executablePath = os.Executable

// FFmpegCandidates returns the ordered list of ffmpeg locations to try:
// configured paths, copies bundled next to the executable, PATH, then the
// usual platform install locations. Duplicates are dropped.
func FFmpegCandidates(configured []string) []string {
	name := executableName("ffmpeg")
	var out []string
	seen := make(map[string]struct{})
	add := func(c string) {
		c = strings.TrimSpace(c)
		if c == "" {
			return
		}
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}

	for _, c := range configured {
		add(c)
	}
	if exe, err := executablePath(); err == nil {
		dir := filepath.Dir(exe)
		add(filepath.Join(dir, "ffmpeg", name))
		add(filepath.Join(dir, name))
	}
	add("ffmpeg")
	for _, c := range platformFFmpegPaths() {
		add(c)
	}
	return out
}

func platformFFmpegPaths() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{`C:\ffmpeg\bin\ffmpeg.exe`, `C:\Program Files\ffmpeg\bin\ffmpeg.exe`}
	case "darwin":
		return []string{"/opt/homebrew/bin/ffmpeg", "/usr/local/bin/ffmpeg"}
	default:
		return []string{"/usr/bin/ffmpeg", "/usr/local/bin/ffmpeg", "/snap/bin/ffmpeg"}
	}
}

// LocateFFmpeg returns the first candidate that answers `-version` with a
// zero exit status.
func LocateFFmpeg(ctx context.Context, candidates []string) (string, error) {
	var tried []string
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		resolved, err := exec.LookPath(candidate)
		if err != nil {
			tried = append(tried, candidate)
			continue
		}
		if probeVersion(ctx, resolved) {
			return resolved, nil
		}
		tried = append(tried, candidate)
	}
	return "", services.Wrap(services.ErrToolNotFound, "deps", "locate ffmpeg",
		"no working ffmpeg among: "+strings.Join(tried, ", "), errors.New("ffmpeg not found"))
}

// CheckFFmpeg reports the ffmpeg binary audio extraction will execute.
func CheckFFmpeg(ctx context.Context, configured []string) Status {
	result := Status{Name: "FFmpeg"}
	path, err := LocateFFmpeg(ctx, FFmpegCandidates(configured))
	if err != nil {
		result.Command = "ffmpeg"
		result.Detail = err.Error()
		return result
	}
	result.Command = path
	result.Available = true
	return result
}

func probeVersion(ctx context.Context, binary string) bool {
	ctx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, binary, "-version") //nolint:gosec
	return cmd.Run() == nil
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}
