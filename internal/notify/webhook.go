package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dev-tams/cronkit/internal/config"
)

const (
	webhookTimeout  = 10 * time.Second
	maxErrorBodyLen = 512
	userAgent       = "cronkit"
)

// webhookNotifier POSTs each event as a JSON object.
type webhookNotifier struct {
	endpoint *url.URL
	header   http.Header
	client   *http.Client
}

func NewWebhook(d config.NotificationDetails) (Notifier, error) {
	raw := strings.TrimSpace(d.URL)
	if raw == "" {
		return nil, fmt.Errorf("config.url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("config.url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("config.url must be an absolute http or https URL, got %q", raw)
	}

	header := make(http.Header, len(d.Headers)+2)
	header.Set("Content-Type", "application/json")
	header.Set("User-Agent", userAgent)
	for k, v := range d.Headers {
		header.Set(k, v)
	}

	return &webhookNotifier{
		endpoint: u,
		header:   header,
		client:   &http.Client{Timeout: webhookTimeout},
	}, nil
}

func (w *webhookNotifier) Notify(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header = w.header.Clone()
	req.Header.Set("X-Cronkit-Event", event.Kind)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to %s: %w", w.endpoint.Redacted(), err)
	}
	defer resp.Body.Close()
	return checkResponse(resp)
}

// checkResponse drains a 2xx body and turns anything else into an error
// carrying the start of the response body.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode/100 == 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
	if msg := strings.TrimSpace(string(snippet)); msg != "" {
		return fmt.Errorf("webhook returned %s: %s", resp.Status, msg)
	}
	return fmt.Errorf("webhook returned %s", resp.Status)
}
