package main

import (
	"bytes"
	"strings"
	"testing"

	"zestsync/internal/logging"
	"zestsync/internal/player"
)

type recordingSession struct {
	selected  []string
	generated int
}

func (r *recordingSession) SelectLanguage(code string) { r.selected = append(r.selected, code) }
func (r *recordingSession) Generate()                  { r.generated++ }

func newTestDriver(target string, allowDownload bool) (*headlessDriver, *recordingSession, *bytes.Buffer) {
	session := &recordingSession{}
	var stderr bytes.Buffer
	return &headlessDriver{
		session:  session,
		req:      headlessRequest{Language: target, AllowDownload: allowDownload, Out: &bytes.Buffer{}, Err: &stderr},
		logger:   logging.NewNop(),
		progress: newProgressReporter(&bytes.Buffer{}, logging.NewNop()),
	}, session, &stderr
}

func TestHeadlessDriverSwitchesToTargetAfterBase(t *testing.T) {
	d, session, stderr := newTestDriver("fr", false)

	steps := []player.UIEvent{
		player.LanguageSelected{Code: "en"},
		player.Toast{Level: player.ToastInfo, Message: "English subtitles are required first."},
		player.Progress{Visible: true, Percent: 40, Text: "Transcribing"},
		player.Progress{Visible: false},
		player.TaskSettled{Kind: "transcribe", Language: "en", Output: "/v/a.en.srt"},
		player.SubtitleLoaded{Path: "/v/a.en.srt", Language: "en"},
	}
	for _, ev := range steps {
		if _, done, err := d.handle(ev); err != nil || done {
			t.Fatalf("handle %T: done=%v err=%v", ev, done, err)
		}
	}
	if len(session.selected) != 1 || session.selected[0] != "fr" {
		t.Fatalf("expected switch to fr, got %v", session.selected)
	}
	if !strings.Contains(stderr.String(), "required first") {
		t.Fatalf("expected toast on stderr, got %q", stderr.String())
	}

	d.handle(player.LanguageSelected{Code: "fr"})
	d.handle(player.Controls{GenerateVisible: true, GenerateEnabled: true, GenerateLabel: "Generate", SelectorEnabled: true})
	d.handle(player.Controls{GenerateVisible: true, GenerateEnabled: true, GenerateLabel: "Generate", SelectorEnabled: true})
	if session.generated != 1 {
		t.Fatalf("expected a single generate request, got %d", session.generated)
	}

	path, done, err := d.handle(player.SubtitleLoaded{Path: "/v/a.fr.srt", Language: "fr"})
	if err != nil || !done || path != "/v/a.fr.srt" {
		t.Fatalf("expected completion, got %q %v %v", path, done, err)
	}
}

func TestHeadlessDriverDownloadOffer(t *testing.T) {
	offer := player.Controls{GenerateVisible: true, GenerateEnabled: true, GenerateLabel: "Download (1.2 GB)", SelectorEnabled: true}

	d, _, _ := newTestDriver("es", false)
	if _, _, err := d.handle(offer); err == nil || !strings.Contains(err.Error(), "models download es") {
		t.Fatalf("expected download refusal, got %v", err)
	}

	d, session, _ := newTestDriver("es", true)
	d.handle(offer)
	d.handle(player.Controls{GenerateVisible: true, GenerateLabel: "Downloading...", SelectorEnabled: true})
	d.handle(player.DownloadProgress{Code: "es", BytesDone: 10, BytesTotal: 100})
	d.handle(offer)
	if session.generated != 1 {
		t.Fatalf("expected one download request, got %d", session.generated)
	}
}

func TestHeadlessDriverFailsOnSettledError(t *testing.T) {
	d, _, _ := newTestDriver("en", false)
	_, _, err := d.handle(player.TaskSettled{Kind: "transcribe", Language: "en", Error: "ffmpeg exited 1"})
	if err == nil || !strings.Contains(err.Error(), "ffmpeg exited 1") {
		t.Fatalf("expected settled error, got %v", err)
	}
}

func TestProgressReporterWithoutTerminal(t *testing.T) {
	var out bytes.Buffer
	p := newProgressReporter(&out, logging.NewNop())
	p.generation(true, 10, "Transcribing", false)
	p.download("es", 50, 100)
	p.generation(false, 0, "", false)
	if p.bar != nil || out.Len() != 0 {
		t.Fatalf("expected no bar output on a non-terminal writer, got %q", out.String())
	}
}
