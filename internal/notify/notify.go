// Package notify delivers downtime notifications. Delivery is
// best-effort: callers log failures and move on.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Notifier sends one notification to a target. For the webhook sink the
// configured URL wins and target is informational; for the SMTP sink the
// target is the recipient address.
type Notifier interface {
	Notify(ctx context.Context, target, subject, body string) error
}

// Webhook posts notifications as JSON to a fixed URL.
type Webhook struct {
	URL    string
	Client *http.Client
}

// NewWebhook returns a webhook sink, or nil when no URL is configured.
func NewWebhook(url string) *Webhook {
	if url == "" {
		return nil
	}
	return &Webhook{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Target  string `json:"target,omitempty"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Source  string `json:"source"`
}

func (w *Webhook) Notify(ctx context.Context, target, subject, body string) error {
	payload, err := json.Marshal(webhookPayload{
		Target:  target,
		Subject: subject,
		Body:    body,
		Source:  "apimon",
	})
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
