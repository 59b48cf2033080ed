package language

import (
	"strings"

	"github.com/dustin/go-humanize"
	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Entry describes one selectable subtitle language.
type Entry struct {
	DisplayName string
	Code        string
	// ApproxSizeBytes is the download size of the translation model.
	ApproxSizeBytes int64
}

const (
	mb = 1_000_000
	gb = 1_000_000_000
)

// BaseCode is the pivot language transcribed directly from audio.
const BaseCode = "en"

var entries = [...]Entry{
	{"English", "en", 300 * mb},
	{"Spanish", "es", 1160 * mb},
	{"French", "fr", 1100 * mb},
	{"German", "de", 1600 * mb},
	{"Italian", "it", 958 * mb},
	{"Japanese", "jap", 820 * mb},
	{"Russian", "ru", 1380 * mb},
	{"Arabic", "ar", 1380 * mb},
	{"Chinese", "zh", 620 * mb},
	{"Hindi", "hi", 587 * mb},
	{"Dutch", "nl", 1430 * mb},
	{"Swedish", "sv", 1310 * mb},
	{"Ukrainian", "uk", 585 * mb},
	{"Urdu", "ur", 870 * mb},
}

// The opus-mt model for Japanese is published under "jap"; BCP 47 uses "ja".
var bcp47Overrides = map[string]string{"jap": "ja"}

var (
	byCode map[string]int
	byName map[string]int
)

func init() {
	byCode = make(map[string]int, len(entries))
	byName = make(map[string]int, len(entries))
	for i, e := range entries {
		byCode[e.Code] = i
		byName[strings.ToLower(e.DisplayName)] = i
	}
}

// All returns the language table in display order. The slice is a copy.
func All() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries[:])
	return out
}

// Codes returns every language code in display order.
func Codes() []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Code
	}
	return out
}

// Base returns the pivot language entry.
func Base() Entry {
	return entries[byCode[BaseCode]]
}

// IsBase reports whether code names the pivot language.
func IsBase(code string) bool {
	return normalize(code) == BaseCode
}

// ByCode looks up an entry by code.
func ByCode(code string) (Entry, bool) {
	i, ok := byCode[normalize(code)]
	if !ok {
		return Entry{}, false
	}
	return entries[i], true
}

// ByName looks up an entry by display name, case-insensitively.
func ByName(name string) (Entry, bool) {
	i, ok := byName[normalize(name)]
	if !ok {
		return Entry{}, false
	}
	return entries[i], true
}

// Resolve accepts either a code or a display name.
func Resolve(value string) (Entry, bool) {
	if e, ok := ByCode(value); ok {
		return e, true
	}
	return ByName(value)
}

// Name returns the display name for code, or the upper-cased code when unknown.
func Name(code string) string {
	if e, ok := ByCode(code); ok {
		return e.DisplayName
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// SizeLabel renders the approximate model size, e.g. "1.2 GB".
func SizeLabel(code string) string {
	e, ok := ByCode(code)
	if !ok || e.ApproxSizeBytes <= 0 {
		return ""
	}
	return humanize.Bytes(uint64(e.ApproxSizeBytes))
}

// Tag returns the BCP 47 tag for code.
func Tag(code string) (xlanguage.Tag, bool) {
	code = normalize(code)
	if _, ok := byCode[code]; !ok {
		return xlanguage.Und, false
	}
	if override, ok := bcp47Overrides[code]; ok {
		code = override
	}
	tag, err := xlanguage.Parse(code)
	if err != nil {
		return xlanguage.Und, false
	}
	return tag, true
}

// ISO2 returns the two-letter code speech engines expect as a language hint.
func ISO2(code string) string {
	tag, ok := Tag(code)
	if !ok {
		return ""
	}
	base, _ := tag.Base()
	return base.String()
}

// NativeName returns the language's name written in that language, e.g.
// "français" for fr. Falls back to the English display name.
func NativeName(code string) string {
	tag, ok := Tag(code)
	if !ok {
		return Name(code)
	}
	if native := display.Self.Name(tag); native != "" {
		return native
	}
	return Name(code)
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
