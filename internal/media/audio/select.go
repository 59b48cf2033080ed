package audio

import (
	"strconv"
	"strings"

	"zestsync/internal/media/ffprobe"
)

// Selection identifies the track to hand to ffmpeg.
type Selection struct {
	Stream ffprobe.Stream
	// Order is the position among audio streams, as used by `-map 0:a:N`.
	Order int
	// Ambiguous is true when the container carries more than one audio track.
	Ambiguous bool
}

// MapArg returns the ffmpeg stream specifier for the selection.
func (s Selection) MapArg() string {
	return "0:a:" + strconv.Itoa(s.Order)
}

// Label returns a short human-readable summary of the selected stream.
func (s Selection) Label() string {
	parts := make([]string, 0, 3)
	if lang := tagValue(s.Stream.Tags, "language"); lang != "" {
		parts = append(parts, strings.ToLower(lang))
	}
	if s.Stream.CodecName != "" {
		parts = append(parts, s.Stream.CodecName)
	}
	if s.Stream.Channels > 0 {
		parts = append(parts, strconv.Itoa(s.Stream.Channels)+"ch")
	}
	if len(parts) == 0 {
		return "audio"
	}
	return strings.Join(parts, " | ")
}

// Select returns the preferred speech track for lang (ISO 639-1 or -2 code).
// ok is false when streams has no audio.
func Select(streams []ffprobe.Stream, lang string) (Selection, bool) {
	candidates := buildCandidates(streams, lang)
	if len(candidates) == 0 {
		return Selection{}, false
	}
	pool := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.matchesLang {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		pool = candidates
	}
	best := pool[0]
	for _, c := range pool[1:] {
		if c.score() > best.score() {
			best = c
		}
	}
	return Selection{Stream: best.stream, Order: best.order, Ambiguous: len(candidates) > 1}, true
}

type candidate struct {
	stream      ffprobe.Stream
	order       int
	matchesLang bool
	secondary   bool
	isDefault   bool
}

func (c candidate) score() float64 {
	score := 0.0
	if !c.secondary {
		score += 100
	}
	if c.isDefault {
		score += 10
	}
	return score - float64(c.order)*0.1
}

var secondaryKeywords = []string{"commentary", "director", "audio description", "descriptive", "visually impaired"}

func buildCandidates(streams []ffprobe.Stream, lang string) []candidate {
	var out []candidate
	order := 0
	for _, stream := range streams {
		if !strings.EqualFold(stream.CodecType, "audio") {
			continue
		}
		title := strings.ToLower(tagValue(stream.Tags, "title"))
		c := candidate{
			stream:      stream,
			order:       order,
			matchesLang: languageMatches(tagValue(stream.Tags, "language"), lang),
			isDefault:   stream.Disposition["default"] == 1,
		}
		if stream.Disposition["comment"] == 1 || stream.Disposition["visual_impaired"] == 1 {
			c.secondary = true
		}
		for _, kw := range secondaryKeywords {
			if strings.Contains(title, kw) {
				c.secondary = true
			}
		}
		out = append(out, c)
		order++
	}
	return out
}

func languageMatches(tag, lang string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	lang = strings.ToLower(strings.TrimSpace(lang))
	if tag == "" || lang == "" {
		return false
	}
	if tag == lang || strings.HasPrefix(tag, lang+"-") {
		return true
	}
	// Containers usually carry ISO 639-2 tags ("eng").
	return len(lang) == 2 && len(tag) == 3 && strings.HasPrefix(tag, lang)
}

func tagValue(tags map[string]string, key string) string {
	if len(tags) == 0 {
		return ""
	}
	for _, k := range []string{key, strings.ToUpper(key)} {
		if v, ok := tags[k]; ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
