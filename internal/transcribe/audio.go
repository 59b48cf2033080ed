package transcribe

import (
	"context"
	"os/exec"
	"strings"

	"zestsync/internal/services"
)

// buildExtractArgs returns the ffmpeg arguments that produce mono 16 kHz
// 128 kb/s MP3 audio. mapArg selects a specific audio stream when non-empty.
func buildExtractArgs(video, dest, mapArg string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-i", video}
	if mapArg != "" {
		args = append(args, "-map", mapArg)
	}
	return append(args,
		"-vn",
		"-acodec", "libmp3lame",
		"-ac", "1",
		"-ar", "16000",
		"-b:a", "128k",
		"-y", dest,
	)
}

// ExtractAudio runs ffmpeg to write the audio track of video to dest.
func ExtractAudio(ctx context.Context, ffmpeg, video, dest, mapArg string) error {
	cmd := exec.CommandContext(ctx, ffmpeg, buildExtractArgs(video, dest, mapArg)...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return services.Wrap(services.ErrExternalTool, "transcribe", "extract audio", strings.TrimSpace(string(output)), err)
	}
	return nil
}
