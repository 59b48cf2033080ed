package audio

import (
	"testing"

	"zestsync/internal/media/ffprobe"
)

func TestSelectPrefersLanguageAndMainTrack(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 0, CodecType: "video"},
		{Index: 1, CodecType: "audio", CodecName: "ac3", Channels: 6, Tags: map[string]string{"language": "fre"}, Disposition: map[string]int{"default": 1}},
		{Index: 2, CodecType: "audio", CodecName: "aac", Channels: 2, Tags: map[string]string{"language": "eng", "title": "Director's Commentary"}},
		{Index: 3, CodecType: "audio", CodecName: "eac3", Channels: 6, Tags: map[string]string{"LANGUAGE": "eng"}},
	}
	sel, ok := Select(streams, "en")
	if !ok {
		t.Fatal("expected a selection")
	}
	if sel.Stream.Index != 3 || sel.Order != 2 {
		t.Fatalf("expected stream 3 (audio order 2), got index %d order %d", sel.Stream.Index, sel.Order)
	}
	if !sel.Ambiguous || sel.MapArg() != "0:a:2" {
		t.Fatalf("unexpected selection %+v map=%s", sel, sel.MapArg())
	}
	if sel.Label() != "eng | eac3 | 6ch" {
		t.Fatalf("unexpected label %q", sel.Label())
	}
}

func TestSelectFallsBackWhenNoLanguageMatch(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 0, CodecType: "audio", Tags: map[string]string{"language": "ger"}},
		{Index: 1, CodecType: "audio", Tags: map[string]string{"language": "spa"}, Disposition: map[string]int{"default": 1}},
	}
	sel, ok := Select(streams, "en")
	if !ok || sel.Order != 1 {
		t.Fatalf("expected default track, got %+v ok=%v", sel, ok)
	}
}

func TestSelectNoAudio(t *testing.T) {
	if _, ok := Select([]ffprobe.Stream{{CodecType: "video"}}, "en"); ok {
		t.Fatal("expected no selection")
	}
	sel, ok := Select([]ffprobe.Stream{{CodecType: "audio"}}, "en")
	if !ok || sel.Ambiguous || sel.Label() != "audio" {
		t.Fatalf("unexpected single-track selection %+v", sel)
	}
}
