// Package chat sends plain messages to the chat platform's channel API.
// The scheduler uses it to deliver daily facts outside any inbound
// request.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type Config struct {
	APIBase  string
	SendPath string
	BotToken string
	Timeout  time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

type sendPayload struct {
	Type      string `json:"type"`
	ChannelID string `json:"channel_id"`
	Text      string `json:"text"`
}

// SendMessage posts a text message to a channel. Best effort: the caller
// has nothing useful to do on failure beyond what we log here, but the
// error is returned so the scheduler can degrade its heartbeat.
func (c *Client) SendMessage(ctx context.Context, channelID, text string) error {
	if strings.TrimSpace(channelID) == "" {
		return fmt.Errorf("channel id is required")
	}

	body, err := json.Marshal(sendPayload{Type: "message", ChannelID: channelID, Text: text})
	if err != nil {
		return fmt.Errorf("marshal chat message: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.APIBase, "/") + "/" + strings.TrimLeft(c.cfg.SendPath, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.BotToken)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	responseBody, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("chat send failed: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(responseBody)))
	}

	c.logger.Info("chat message sent", "channel_id", channelID)
	return nil
}
