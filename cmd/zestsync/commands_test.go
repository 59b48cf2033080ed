package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"zestsync/internal/artifact"
	"zestsync/internal/history"
	"zestsync/internal/models"
	"zestsync/internal/testsupport"
)

func writeVideo(t *testing.T, dir string) string {
	t.Helper()
	video := filepath.Join(dir, "media", "Movie.mkv")
	testsupport.WriteFile(t, video, "video")
	return video
}

func TestLanguagesCommand(t *testing.T) {
	out, _, err := runCLI(t, []string{"languages"}, "")
	if err != nil {
		t.Fatalf("languages: %v", err)
	}
	requireContains(t, out, "Spanish")
	requireContains(t, out, "transcribed")

	out, _, err = runCLI(t, []string{"languages", "--json"}, "")
	if err != nil {
		t.Fatalf("languages --json: %v", err)
	}
	var views []struct {
		Code      string `json:"code"`
		Base      bool   `json:"base"`
		ModelSize string `json:"model_size"`
	}
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 14 || views[0].Code != "en" || !views[0].Base {
		t.Fatalf("unexpected languages: %+v", views)
	}
	if views[1].ModelSize == "" {
		t.Fatalf("expected model size for %s", views[1].Code)
	}
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	video := writeVideo(t, env.baseDir)

	out, _, err := runCLI(t, []string{"status", video}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "No subtitles generated yet")

	testsupport.WriteSRT(t, artifact.Path(video, "en"), "Hello", "World")
	testsupport.WriteFile(t, artifact.Path(video, "fr"), "not a subtitle")

	out, _, err = runCLI(t, []string{"status", video, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var views []artifactView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected two cached artifacts, got %+v", views)
	}
	if views[0].Code != "en" || views[0].Cues != 2 {
		t.Fatalf("unexpected en view: %+v", views[0])
	}

	out, _, err = runCLI(t, []string{"status", video, "--all"}, env.configPath)
	if err != nil {
		t.Fatalf("status --all: %v", err)
	}
	requireContains(t, out, "Urdu")
	requireContains(t, out, "English")

	if _, _, err := runCLI(t, []string{"status", filepath.Join(env.baseDir, "missing.mkv")}, env.configPath); err == nil {
		t.Fatal("expected missing video to fail")
	}
}

func TestModelsListAndPath(t *testing.T) {
	env := setupCLITestEnv(t)
	registry := models.NewRegistry(env.cfg.Models, nil)
	if err := os.MkdirAll(registry.CachePath("de"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	out, _, err := runCLI(t, []string{"models", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("models list: %v", err)
	}
	var views []struct {
		Code  string `json:"code"`
		State string `json:"state"`
		Repo  string `json:"repo"`
	}
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	states := make(map[string]string)
	for _, v := range views {
		states[v.Code] = v.State
	}
	if _, ok := states["en"]; ok {
		t.Fatal("base language should not be listed")
	}
	if states["de"] != "downloaded" || states["es"] != "not_downloaded" {
		t.Fatalf("unexpected states: %v", states)
	}

	out, _, err = runCLI(t, []string{"models", "path", "Spanish"}, env.configPath)
	if err != nil {
		t.Fatalf("models path: %v", err)
	}
	if strings.TrimSpace(out) != registry.CachePath("es") {
		t.Fatalf("unexpected path %q", out)
	}
	if _, _, err := runCLI(t, []string{"models", "path", "en"}, env.configPath); err == nil {
		t.Fatal("expected base language path to fail")
	}
}

func TestModelsDownloadRejectsDownloadedModel(t *testing.T) {
	env := setupCLITestEnv(t)
	registry := models.NewRegistry(env.cfg.Models, nil)
	if err := os.MkdirAll(registry.CachePath("it"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	_, _, err := runCLI(t, []string{"models", "download", "it"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "already downloaded") {
		t.Fatalf("expected already downloaded error, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"models", "download", "klingon"}, env.configPath); err == nil {
		t.Fatal("expected unknown language to fail")
	}
}

func TestHistoryCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	store, err := history.Open(env.cfg)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	ctx := context.Background()
	video := writeVideo(t, env.baseDir)
	rec, err := store.Start(ctx, history.Record{Kind: "transcribe", Video: video, Language: "en"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := store.Finish(ctx, rec.ID, "", errors.New("ffmpeg exited 1")); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if _, err := store.Start(ctx, history.Record{Kind: "download", Language: "es"}); err != nil {
		t.Fatalf("start download: %v", err)
	}
	store.Close()

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "ffmpeg exited 1")
	requireContains(t, out, "Spanish")

	out, _, err = runCLI(t, []string{"history", "--video", video, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history --video: %v", err)
	}
	var records []history.Record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 || records[0].Kind != "transcribe" || records[0].Status != history.StatusFailed {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestGenerateReusesCachedSubtitle(t *testing.T) {
	env := setupCLITestEnv(t)
	video := writeVideo(t, env.baseDir)
	cached := artifact.Path(video, "en")
	testsupport.WriteSRT(t, cached, "Hello")

	out, _, err := runCLI(t, []string{"generate", video}, env.configPath)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	requireContains(t, out, "English subtitles: "+cached)
}

func TestGenerateRequiresDownloadFlagForMissingModel(t *testing.T) {
	env := setupCLITestEnv(t)
	video := writeVideo(t, env.baseDir)
	testsupport.WriteSRT(t, artifact.BasePath(video), "Hello")

	_, _, err := runCLI(t, []string{"generate", video, "--lang", "Spanish"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--download") {
		t.Fatalf("expected --download hint, got %v", err)
	}
}

func TestGenerateValidatesArguments(t *testing.T) {
	env := setupCLITestEnv(t)
	video := writeVideo(t, env.baseDir)

	if _, _, err := runCLI(t, []string{"generate", video, "--lang", "xx"}, env.configPath); err == nil {
		t.Fatal("expected unknown language to fail")
	}
	if _, _, err := runCLI(t, []string{"generate", filepath.Join(env.baseDir, "nope.mkv")}, env.configPath); err == nil {
		t.Fatal("expected missing video to fail")
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "not configured")
}

func TestDoctorReportsChecks(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"doctor", "--json"}, env.configPath)
	var report struct {
		Checks []struct {
			Name   string
			Passed bool
		} `json:"checks"`
		Healthy bool `json:"healthy"`
	}
	if decodeErr := json.Unmarshal([]byte(out), &report); decodeErr != nil {
		t.Fatalf("decode: %v\n%s", decodeErr, out)
	}
	if report.Healthy != (err == nil) {
		t.Fatalf("healthy=%v but err=%v", report.Healthy, err)
	}
	// the whisper model directory is empty in tests
	if report.Healthy {
		t.Fatal("expected missing whisper model to fail doctor")
	}
	found := false
	for _, c := range report.Checks {
		if c.Name == "State directory" {
			found = c.Passed
		}
	}
	if !found {
		t.Fatalf("expected passing state directory check: %+v", report.Checks)
	}

	out, _, _ = runCLI(t, []string{"doctor"}, env.configPath)
	requireContains(t, out, "== Checks ==")
	requireContains(t, out, "[FAIL]")
}
