// Package progress estimates how long subtitle generation takes and turns
// elapsed time into a percentage while a task runs.
package progress

import (
	"strings"

	"zestsync/internal/language"
)

// ReferenceClipSeconds is the length of the clip the factor table was
// measured against.
const ReferenceClipSeconds = 614.0

// Seconds each language took to generate for the reference clip on an
// i5-10300H class laptop CPU. The numbers are approximate calibration data;
// real hardware will differ.
var referenceSeconds = map[string]float64{
	"en":  85,
	"nl":  77,
	"fr":  72,
	"de":  80,
	"it":  120,
	"jap": 110,
	"ru":  108,
	"es":  100,
	"sv":  106,
	"ur":  62,
	"hi":  74,
	"zh":  240,
	"ar":  195,
	"uk":  40,
}

// Factor returns the reference time for code. Unknown codes use the base
// language factor.
func Factor(code string) float64 {
	if f, ok := referenceSeconds[strings.ToLower(strings.TrimSpace(code))]; ok {
		return f
	}
	return referenceSeconds[language.BaseCode]
}

// Estimate returns the expected generation time in seconds for a video of the
// given duration.
func Estimate(durationSeconds float64, code string) float64 {
	if durationSeconds <= 0 {
		return 0
	}
	return durationSeconds * Factor(code) / ReferenceClipSeconds
}
