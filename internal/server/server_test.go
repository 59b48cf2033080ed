package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"zestsync/internal/config"
	"zestsync/internal/history"
	"zestsync/internal/logging"
	"zestsync/internal/models"
	"zestsync/internal/player"
	"zestsync/internal/services"
	"zestsync/internal/testsupport"
)

type fakeController struct {
	mu     sync.Mutex
	calls  []string
	feeds  []player.Feed
	state  player.State
	events chan player.UIEvent
}

func newFakeController() *fakeController {
	return &fakeController{events: make(chan player.UIEvent, 8)}
}

func (c *fakeController) record(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *fakeController) recorded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *fakeController) AddMedia(path string)         { c.record("add:" + path) }
func (c *fakeController) RemoveMedia(index int)        { c.record("remove:" + strconv.Itoa(index)) }
func (c *fakeController) SelectMedia(index int)        { c.record("select:" + strconv.Itoa(index)) }
func (c *fakeController) SelectLanguage(code string)   { c.record("language:" + code) }
func (c *fakeController) Generate()                    { c.record("generate") }
func (c *fakeController) DownloadModel(code string)    { c.record("download:" + code) }
func (c *fakeController) LoadSubtitleFile(path string) { c.record("load:" + path) }
func (c *fakeController) Events() <-chan player.UIEvent {
	return c.events
}

func (c *fakeController) Post(feed player.Feed) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.feeds = append(c.feeds, feed)
}

func (c *fakeController) Snapshot(context.Context) (player.State, error) {
	return c.state, nil
}

type fixture struct {
	cfg     *config.Config
	ctrl    *fakeController
	store   *history.Store
	server  *Server
	handler http.Handler
}

func newFixture(t *testing.T, token string) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = token
	ctrl := newFakeController()
	store := testsupport.MustOpenHistory(t, cfg)
	srv := New(cfg, ctrl, models.NewRegistry(cfg.Models, nil), store, nil, logging.NewNop())
	return &fixture{cfg: cfg, ctrl: ctrl, store: store, server: srv, handler: srv.Routes()}
}

func (f *fixture) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthSkipsAuth(t *testing.T) {
	f := newFixture(t, "secret")
	rec := f.do(t, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["service"] != "zestsync" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestBearerTokenRequired(t *testing.T) {
	f := newFixture(t, "secret")
	if rec := f.do(t, http.MethodGet, "/api/v1/languages", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/v1/languages", "", "Authorization", "Bearer wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/v1/languages", "", "Authorization", "Bearer secret"); rec.Code != http.StatusOK {
		t.Fatalf("valid token status = %d", rec.Code)
	}
}

func TestLanguagesAndModels(t *testing.T) {
	f := newFixture(t, "")
	if err := os.MkdirAll(models.NewRegistry(f.cfg.Models, nil).CachePath("fr"), 0o755); err != nil {
		t.Fatal(err)
	}

	var langs []languageView
	rec := f.do(t, http.MethodGet, "/api/v1/languages", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &langs); err != nil {
		t.Fatalf("decode languages: %v", err)
	}
	byCode := map[string]languageView{}
	for _, l := range langs {
		byCode[l.Code] = l
	}
	if !byCode["en"].Base || byCode["en"].Model != "downloaded" {
		t.Fatalf("unexpected base entry %+v", byCode["en"])
	}
	if byCode["fr"].Model != "downloaded" || byCode["de"].Model != "not_downloaded" {
		t.Fatalf("unexpected model states fr=%+v de=%+v", byCode["fr"], byCode["de"])
	}

	var list []modelView
	rec = f.do(t, http.MethodGet, "/api/v1/models", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode models: %v", err)
	}
	for _, m := range list {
		if m.Code == "en" {
			t.Fatal("the base language has no model")
		}
		if m.Code == "de" && !strings.HasSuffix(m.Repo, "opus-mt-en-de") {
			t.Fatalf("unexpected repo %q", m.Repo)
		}
	}
}

func TestDownloadEndpoint(t *testing.T) {
	f := newFixture(t, "")
	cases := []struct {
		path string
		want int
	}{
		{"/api/v1/models/xx/download", http.StatusBadRequest},
		{"/api/v1/models/en/download", http.StatusBadRequest},
		{"/api/v1/models/fr/download", http.StatusAccepted},
	}
	for _, tc := range cases {
		if rec := f.do(t, http.MethodPost, tc.path, ""); rec.Code != tc.want {
			t.Fatalf("%s: status = %d, want %d", tc.path, rec.Code, tc.want)
		}
	}
	if got := f.ctrl.recorded(); len(got) != 1 || got[0] != "download:fr" {
		t.Fatalf("unexpected calls %v", got)
	}

	if err := os.MkdirAll(models.NewRegistry(f.cfg.Models, nil).CachePath("nl"), 0o755); err != nil {
		t.Fatal(err)
	}
	if rec := f.do(t, http.MethodPost, "/api/v1/models/nl/download", ""); rec.Code != http.StatusOK {
		t.Fatalf("downloaded model status = %d", rec.Code)
	}
}

func TestMediaIntents(t *testing.T) {
	f := newFixture(t, "")
	video := filepath.Join(testsupport.BaseDir(f.cfg), "movie.mkv")
	testsupport.WriteFile(t, video, "video")

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodPost, "/api/v1/media", `{"path":"movie.mkv"}`, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/media", `{"path":"/nope/missing.mkv"}`, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/media", `{"path":` + quote(video) + `}`, http.StatusAccepted},
		{http.MethodPost, "/api/v1/media", `{"file":"x"}`, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/media/1/select", "", http.StatusAccepted},
		{http.MethodPost, "/api/v1/media/abc/select", "", http.StatusBadRequest},
		{http.MethodDelete, "/api/v1/media/0", "", http.StatusAccepted},
		{http.MethodPost, "/api/v1/language", `{"code":"French"}`, http.StatusAccepted},
		{http.MethodPost, "/api/v1/language", `{"code":"klingon"}`, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/generate", "", http.StatusAccepted},
		{http.MethodPost, "/api/v1/subtitles/load", `{"path":"/subs/manual.srt"}`, http.StatusAccepted},
		{http.MethodPost, "/api/v1/subtitles/load", `{"path":""}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		if rec := f.do(t, tc.method, tc.path, tc.body); rec.Code != tc.want {
			t.Fatalf("%s %s %s: status = %d, want %d (%s)", tc.method, tc.path, tc.body, rec.Code, tc.want, rec.Body.String())
		}
	}
	want := []string{"add:" + video, "select:1", "remove:0", "language:fr", "generate", "load:/subs/manual.srt"}
	got := f.ctrl.recorded()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("calls = %v, want %v", got, want)
	}
}

func TestMediaSnapshot(t *testing.T) {
	f := newFixture(t, "")
	f.ctrl.state = player.State{Media: []player.MediaItem{{Path: "/v/a.mkv", DurationSeconds: 60}}, Current: 0, Language: "fr"}
	rec := f.do(t, http.MethodGet, "/api/v1/media", "")
	var st player.State
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Language != "fr" || len(st.Media) != 1 || st.Media[0].DurationSeconds != 60 {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestFeedIngress(t *testing.T) {
	f := newFixture(t, "")
	if rec := f.do(t, http.MethodPost, "/api/v1/playback/feed", `{"type":"duration","seconds":1228}`); rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/api/v1/playback/feed", `{"type":"subtitle","text":"Hi"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/api/v1/playback/feed", `{"type":"volume"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown feed status = %d", rec.Code)
	}
	f.ctrl.mu.Lock()
	defer f.ctrl.mu.Unlock()
	if len(f.ctrl.feeds) != 2 || f.ctrl.feeds[0] != (player.DurationUpdate{Seconds: 1228}) {
		t.Fatalf("unexpected feeds %+v", f.ctrl.feeds)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	rec, err := f.store.Start(ctx, history.Record{Kind: "transcribe", Video: "/v/a.mkv", Language: "en"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.store.Finish(ctx, rec.ID, "/v/a.en.srt", nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if _, err := f.store.Start(ctx, history.Record{Kind: "download", Language: "fr"}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var all []historyView
	resp := f.do(t, http.MethodGet, "/api/v1/history?limit=10", "")
	if err := json.Unmarshal(resp.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d records, want 2", len(all))
	}

	var forVideo []historyView
	resp = f.do(t, http.MethodGet, "/api/v1/history?video=/v/a.mkv", "")
	if err := json.Unmarshal(resp.Body.Bytes(), &forVideo); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(forVideo) != 1 || forVideo[0].Status != "succeeded" || forVideo[0].Output != "/v/a.en.srt" {
		t.Fatalf("unexpected records %+v", forVideo)
	}
}

func TestEventsStreamRelaysSessionAndPlayback(t *testing.T) {
	f := newFixture(t, "")
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.server.Events().Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		f.server.Relay()
		close(done)
	}()
	f.ctrl.events <- player.Toast{Level: player.ToastInfo, Message: "hello"}
	close(f.ctrl.events)
	<-done
	if err := NewEventPlayback(f.server.Events()).AddSubtitle("/v/a.fr.srt"); err != nil {
		t.Fatalf("AddSubtitle: %v", err)
	}

	reader := bufio.NewReader(resp.Body)
	var names []string
	for len(names) < 2 {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v (got %v)", err, names)
		}
		data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: ")
		if !ok {
			continue
		}
		var msg struct {
			Event   string          `json:"event"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		names = append(names, msg.Event)
	}
	if names[0] != "toast" || names[1] != "subtitle.load" {
		t.Fatalf("events = %v", names)
	}
}

func TestInstanceLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "zestsync.lock")
	first, err := AcquireInstanceLock(path)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, err := AcquireInstanceLock(path); !errors.Is(err, services.ErrAlreadyInProgress) {
		t.Fatalf("second acquire err = %v, want already in progress", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	again, err := AcquireInstanceLock(path)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	_ = again.Release()
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
