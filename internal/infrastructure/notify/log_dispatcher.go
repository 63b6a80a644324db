package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/procurehub/purchase-workflow/internal/application/port"
)

// LogDispatcher implements port.NotificationDispatcher by logging the
// notification. Used when no webhook endpoint is configured, typically in
// development and tests.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher creates a log-only notification dispatcher
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// Notify logs the notification and always succeeds
func (d *LogDispatcher) Notify(ctx context.Context, requestID, event string, recipients []string) error {
	d.logger.Info("Notification (log only)",
		zap.String("request_id", requestID),
		zap.String("event", event),
		zap.Strings("recipients", recipients))
	return nil
}

// Verify interface compliance
var _ port.NotificationDispatcher = (*LogDispatcher)(nil)
