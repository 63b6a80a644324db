package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/procurehub/purchase-workflow/internal/application/port"
)

// WebhookDispatcher implements port.NotificationDispatcher by posting a JSON
// payload to a configured webhook endpoint
type WebhookDispatcher struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// Config holds webhook dispatcher configuration
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// NewWebhookDispatcher creates a webhook-backed notification dispatcher
func NewWebhookDispatcher(cfg Config, logger *zap.Logger) *WebhookDispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &WebhookDispatcher{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Notify posts the notification to the webhook endpoint
// Implements port.NotificationDispatcher interface
func (d *WebhookDispatcher) Notify(ctx context.Context, requestID, event string, recipients []string) error {
	if d.endpoint == "" {
		return fmt.Errorf("webhook endpoint not configured")
	}

	payload := map[string]interface{}{
		"request_id": requestID,
		"event":      event,
		"recipients": recipients,
		"sent_at":    time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}

	d.logger.Debug("Notification delivered",
		zap.String("request_id", requestID),
		zap.String("event", event),
		zap.Int("recipients", len(recipients)))

	return nil
}

// Verify interface compliance
var _ port.NotificationDispatcher = (*WebhookDispatcher)(nil)
