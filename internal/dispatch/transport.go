// Package dispatch delivers pending notifications to agents through a
// pluggable transport.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/groundctl/groundctl/internal/models"
)

// Transport pushes a single notification to its target agent.
type Transport interface {
	// Name returns the transport identifier.
	Name() string

	// Deliver pushes the notification. A nil error marks it delivered;
	// an error leaves it pending for the next sweep.
	Deliver(ctx context.Context, n *models.Notification) error
}

// LogTransport writes notifications to the process log. It is the default
// transport and always succeeds, so deliveries are effectively a durable
// handoff to whoever tails the log.
type LogTransport struct {
	logger *slog.Logger
}

func NewLogTransport(logger *slog.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Name() string { return "log" }

func (t *LogTransport) Deliver(_ context.Context, n *models.Notification) error {
	t.logger.Info("notification delivered",
		"id", n.ID,
		"target", n.TargetAgent,
		"source", n.SourceAgent,
		"type", n.Type,
		"content", n.Content)
	return nil
}

// WebhookTransport POSTs each notification as JSON to a fixed endpoint.
type WebhookTransport struct {
	url    string
	client *http.Client
}

func NewWebhookTransport(url string) *WebhookTransport {
	return &WebhookTransport{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *WebhookTransport) Name() string { return "webhook" }

func (t *WebhookTransport) Deliver(ctx context.Context, n *models.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
