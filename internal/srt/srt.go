// Package srt reads and writes SubRip subtitle files.
//
// Parsing is lenient: blocks that lack a sequence line, a timing line or any
// text are skipped rather than failing the whole file. Writing always goes
// through a temp file and rename so a player never observes half a file.
package srt

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"zestsync/internal/fileutil"
	"zestsync/internal/services"
	"zestsync/internal/timecode"
)

// Cue is one subtitle block.
type Cue struct {
	Start float64
	End   float64
	// Timing holds the original timing line when the cue was parsed, so a
	// rewrite keeps the source timestamps byte for byte.
	Timing string
	Text   string
}

// TimingLine returns the timing line written for the cue.
func (c Cue) TimingLine() string {
	if c.Timing != "" {
		return c.Timing
	}
	return timecode.FormatRange(c.Start, c.End)
}

// Write serializes cues with 1-based sequential indices. Cues whose text is
// empty after trimming are dropped.
func Write(w io.Writer, cues []Cue) error {
	bw := bufio.NewWriter(w)
	index := 0
	for _, cue := range cues {
		text := cueText(cue.Text)
		if text == "" {
			continue
		}
		index++
		if _, err := fmt.Fprintf(bw, "%d\n%s\n%s\n\n", index, cue.TimingLine(), text); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// cueText trims every line and drops blank ones so text never opens a new
// block.
func cueText(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// WriteFile writes cues to path atomically.
func WriteFile(path string, cues []Cue) error {
	return fileutil.WriteAtomicFunc(path, 0o644, func(w io.Writer) error {
		return Write(w, cues)
	})
}

// Parse reads blank-line separated blocks. Multi-line cue text is joined with
// a single space. Input that contains text but no valid block is reported as
// malformed.
func Parse(r io.Reader) ([]Cue, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}

	var cues []Cue
	for _, block := range splitBlocks(content) {
		cue, ok := parseBlock(block)
		if ok {
			cues = append(cues, cue)
		}
	}
	if len(cues) == 0 {
		return nil, services.Wrap(services.ErrMalformedInput, "srt", "parse", "no valid subtitle blocks", nil)
	}
	return cues, nil
}

// ParseFile parses the subtitle file at path.
func ParseFile(path string) ([]Cue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cues, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cues, nil
}

func splitBlocks(content string) [][]string {
	var blocks [][]string
	var current []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, strings.TrimRight(line, " \t"))
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

func parseBlock(lines []string) (Cue, bool) {
	if len(lines) < 3 {
		return Cue{}, false
	}
	if _, err := strconv.Atoi(strings.TrimSpace(lines[0])); err != nil {
		return Cue{}, false
	}
	timing := strings.TrimSpace(lines[1])
	start, end, err := timecode.ParseRange(timing)
	if err != nil {
		return Cue{}, false
	}
	parts := make([]string, 0, len(lines)-2)
	for _, line := range lines[2:] {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return Cue{Start: start, End: end, Timing: timing, Text: strings.Join(parts, " ")}, true
}

// Stats summarizes a subtitle file for status displays.
type Stats struct {
	Cues     int
	FirstCue float64
	LastCue  float64
}

// StatFile parses path and reports its cue count and time bounds.
func StatFile(path string) (Stats, error) {
	cues, err := ParseFile(path)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Cues: len(cues)}
	for i, cue := range cues {
		if i == 0 || cue.Start < stats.FirstCue {
			stats.FirstCue = cue.Start
		}
		if cue.End > stats.LastCue {
			stats.LastCue = cue.End
		}
	}
	return stats, nil
}
