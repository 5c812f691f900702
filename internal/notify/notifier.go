package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/place5-inc/pinkroom-api-sub000/internal/infra"
)

// EventCollectionReady is sent when every design variant of a photo is done.
const EventCollectionReady = "collection_ready"

// Notifier delivers an event to a customer. Delivery is best-effort: callers
// log failures and move on, the generation work itself is already committed.
type Notifier interface {
	Notify(ctx context.Context, customerID, event string, payload map[string]any) error
}

// WebhookNotifier hands events to the messaging relay (SMS/chat bridge) over
// a plain JSON webhook.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

// NewWebhookNotifier creates a notifier posting to the given relay URL.
func NewWebhookNotifier(url string, httpClient *http.Client) (*WebhookNotifier, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("notify: webhook url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookNotifier{url: url, httpClient: httpClient}, nil
}

// Notify posts the event. Non-2xx responses are errors so the caller can log
// them; they are never retried here.
func (n *WebhookNotifier) Notify(ctx context.Context, customerID, event string, payload map[string]any) error {
	body := map[string]any{
		"customer_id": customerID,
		"event":       event,
		"payload":     payload,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("notify: marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("notify: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: deliver event: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notify: relay status %d", resp.StatusCode)
	}
	return nil
}

// LogNotifier records events to the log only. Used when no relay is
// configured (development, tests).
type LogNotifier struct {
	logger infra.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(logger infra.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the event and always succeeds.
func (n *LogNotifier) Notify(ctx context.Context, customerID, event string, payload map[string]any) error {
	n.logger.Info().
		Str("customer_id", customerID).
		Str("event", event).
		Interface("payload", payload).
		Msg("notify: event (log only)")
	return nil
}

var (
	_ Notifier = (*WebhookNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
)
