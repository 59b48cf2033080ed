// Package timecode converts between seconds and the clock and SRT timestamp
// notations used by the subtitle pipeline.
package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatClock renders whole seconds as HH:MM:SS. Hours are zero padded to two
// digits and grow beyond that when needed. Negative input clamps to zero.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// FormatSRT renders seconds as an SRT timestamp (HH:MM:SS,mmm), rounding to
// the nearest millisecond.
func FormatSRT(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	msTotal := int64(math.Round(seconds * 1000))
	hours := msTotal / 3_600_000
	msTotal %= 3_600_000
	minutes := msTotal / 60_000
	msTotal %= 60_000
	secs := msTotal / 1_000
	millis := msTotal % 1_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// ParseSRT parses an SRT timestamp. A period is accepted in place of the
// comma, and a missing millisecond part reads as zero.
func ParseSRT(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	clock, fraction, hasFraction := strings.Cut(value, ",")
	hms := strings.Split(clock, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	secs, errS := strconv.Atoi(hms[2])
	if errH != nil || errM != nil || errS != nil || hours < 0 || minutes < 0 || minutes > 59 || secs < 0 || secs > 59 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	var millis int
	if hasFraction {
		if fraction == "" || len(fraction) > 3 {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		ms, err := strconv.Atoi(fraction)
		if err != nil || ms < 0 {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		for i := len(fraction); i < 3; i++ {
			ms *= 10
		}
		millis = ms
	}
	return float64(hours*3600+minutes*60+secs) + float64(millis)/1000, nil
}

// ParseRange parses a "start --> end" timing line.
func ParseRange(line string) (float64, float64, error) {
	left, right, ok := strings.Cut(line, "-->")
	if !ok {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	start, err := ParseSRT(left)
	if err != nil {
		return 0, 0, err
	}
	// Some writers append positioning hints after the end timestamp.
	fields := strings.Fields(right)
	if len(fields) == 0 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	end, err := ParseSRT(fields[0])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// FormatRange renders a timing line from start and end seconds.
func FormatRange(start, end float64) string {
	return FormatSRT(start) + " --> " + FormatSRT(end)
}

// FormatETA renders a duration as H:MM:SS, the form shown next to progress
// percentages.
func FormatETA(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// FormatMinutes renders a duration as "Xm Ys" for estimate notices.
func FormatMinutes(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%dm %ds", total/60, total%60)
}
