package transcribe

import (
	"context"
	"strings"

	"zestsync/internal/srt"
)

// Options are the per-call engine parameters.
type Options struct {
	Language  string
	VADFilter bool
}

// Engine is a speech-to-text backend.
type Engine interface {
	// Transcribe starts recognition of audio. Initialization failures are
	// reported here; recognition failures end the stream with an error.
	Transcribe(ctx context.Context, audio string, opts Options) (*Stream, error)
	// SupportsVAD reports whether voice-activity filtering is available.
	SupportsVAD(ctx context.Context) bool
}

// Normalize trims text, drops empty segments and clamps end to start.
func Normalize(segments []Segment) []srt.Cue {
	cues := make([]srt.Cue, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		start := seg.Start
		if start < 0 {
			start = 0
		}
		end := seg.End
		if end < start {
			end = start
		}
		cues = append(cues, srt.Cue{Start: start, End: end, Text: text})
	}
	return cues
}
