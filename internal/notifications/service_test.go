package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"zestsync/internal/config"
	"zestsync/internal/notifications"
	"zestsync/internal/testsupport"
)

type captured struct {
	title, tags, priority, body string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *[]captured) {
	t.Helper()
	var got []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(status)
		_, _ = w.Write([]byte("rate limited"))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyGenerationFailed(context.Background(), "/v/a.mp4", "fr", errors.New("boom")); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(srv.URL))
	svc := notifications.NewService(cfg)
	ctx := context.Background()

	tests := []struct {
		name           string
		send           func() error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "generation completed",
			send: func() error {
				return svc.NotifyGenerationCompleted(ctx, "/videos/Heat.mkv", "fr", "/videos/Heat.fr.srt", 95*time.Second+400*time.Millisecond)
			},
			expectTitle:   "zestsync - Subtitles Ready",
			expectMessage: "✅ French subtitles ready: Heat.mkv (1m35s)\nFile: /videos/Heat.fr.srt",
			expectTags:    "zestsync,subtitles,fr",
		},
		{
			name: "generation failed",
			send: func() error {
				return svc.NotifyGenerationFailed(ctx, "/videos/Heat.mkv", "en", errors.New("tool not found: no working ffmpeg"))
			},
			expectTitle:    "zestsync - Error",
			expectMessage:  "❌ English subtitles failed for Heat.mkv: tool not found: no working ffmpeg",
			expectTags:     "zestsync,error,en",
			expectPriority: "high",
		},
		{
			name:          "model downloaded",
			send:          func() error { return svc.NotifyModelDownloaded(ctx, "de") },
			expectTitle:   "zestsync - Model Downloaded",
			expectMessage: "📦 German translation model downloaded (1.6 GB)",
			expectTags:    "zestsync,model,de",
		},
		{
			name:           "test",
			send:           func() error { return svc.TestNotification(ctx) },
			expectTitle:    "zestsync - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "zestsync,test",
			expectPriority: "low",
		},
	}
	for i, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.send(); err != nil {
				t.Fatalf("send: %v", err)
			}
			if len(*got) != i+1 {
				t.Fatalf("expected %d requests, got %d", i+1, len(*got))
			}
			req := (*got)[i]
			if req.title != tc.expectTitle || req.body != tc.expectMessage || req.tags != tc.expectTags || req.priority != tc.expectPriority {
				t.Fatalf("unexpected request %+v", req)
			}
		})
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusTooManyRequests)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(srv.URL))
	err := notifications.NewService(cfg).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("expected status error, got %v", err)
	}
}
