package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/atlasbot/country-agent/internal/a2a"
)

// Pusher performs the single outbound callback POST for a completed task.
type Pusher interface {
	Push(ctx context.Context, url, token string, response a2a.Response) error
}

type WebhookPusher struct {
	client *http.Client
}

func NewWebhookPusher(timeout time.Duration) *WebhookPusher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebhookPusher{
		client: &http.Client{Timeout: timeout},
	}
}

func (p *WebhookPusher) Push(ctx context.Context, url, token string, response a2a.Response) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return fmt.Errorf("push url is required")
	}
	if !strings.HasPrefix(strings.ToLower(url), "http://") && !strings.HasPrefix(strings.ToLower(url), "https://") {
		return fmt.Errorf("unsupported push url scheme")
	}

	body, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	responseBody, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("push failed: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(responseBody)))
	}
	return nil
}
