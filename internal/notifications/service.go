package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"zestsync/internal/config"
	"zestsync/internal/language"
)

const userAgent = "zestsync/0.1.0"

// Service defines the notification surface exposed to the session.
type Service interface {
	NotifyGenerationCompleted(ctx context.Context, video, code, output string, elapsed time.Duration) error
	NotifyGenerationFailed(ctx context.Context, video, code string, err error) error
	NotifyModelDownloaded(ctx context.Context, code string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyGenerationCompleted(ctx context.Context, video, code, output string, elapsed time.Duration) error {
	elapsed = elapsed.Round(time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	message := fmt.Sprintf("✅ %s subtitles ready: %s (%s)", language.Name(code), filepath.Base(strings.TrimSpace(video)), elapsed)
	if output = strings.TrimSpace(output); output != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, output)
	}
	return n.send(ctx, payload{
		title:   "zestsync - Subtitles Ready",
		message: message,
		tags:    []string{"zestsync", "subtitles", code},
	})
}

func (n *ntfyService) NotifyGenerationFailed(ctx context.Context, video, code string, err error) error {
	var builder strings.Builder
	fmt.Fprintf(&builder, "❌ %s subtitles failed for %s: ", language.Name(code), filepath.Base(strings.TrimSpace(video)))
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "zestsync - Error",
		message:  builder.String(),
		tags:     []string{"zestsync", "error", code},
		priority: "high",
	})
}

func (n *ntfyService) NotifyModelDownloaded(ctx context.Context, code string) error {
	return n.send(ctx, payload{
		title:   "zestsync - Model Downloaded",
		message: fmt.Sprintf("📦 %s translation model downloaded (%s)", language.Name(code), language.SizeLabel(code)),
		tags:    []string{"zestsync", "model", code},
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "zestsync - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"zestsync", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyGenerationCompleted(context.Context, string, string, string, time.Duration) error {
	return nil
}
func (noopService) NotifyGenerationFailed(context.Context, string, string, error) error { return nil }
func (noopService) NotifyModelDownloaded(context.Context, string) error                 { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
