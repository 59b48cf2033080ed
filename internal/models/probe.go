package models

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"zestsync/internal/services"
)

// Prober checks that the model host is reachable.
type Prober interface {
	Probe(ctx context.Context) error
}

// HTTPProber issues a HEAD request against URL with a bounded timeout. Any
// HTTP response counts as reachable; only transport failures do not.
type HTTPProber struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

// Probe implements Prober.
func (p HTTPProber) Probe(ctx context.Context) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "models", "probe", fmt.Sprintf("invalid hub url %q", p.URL), err)
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrNetworkUnavailable, "models", "probe", p.URL+" unreachable", err)
	}
	resp.Body.Close()
	return nil
}
