package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/procurehub/purchase-workflow/internal/application/service"
)

// NotificationWorkerConfig holds configuration for the notification worker
type NotificationWorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// DefaultNotificationWorkerConfig returns default configuration
func DefaultNotificationWorkerConfig() NotificationWorkerConfig {
	return NotificationWorkerConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    20,
	}
}

// NotificationWorker retries queued notifications that failed immediate
// delivery. Delivery is best-effort: a notification that keeps failing stays
// queued with its attempt count, it never blocks the workflow.
type NotificationWorker struct {
	config  NotificationWorkerConfig
	service service.NotificationService
	logger  *zap.Logger

	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	isRunning bool
	sentCount int
	lastError error
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(
	config NotificationWorkerConfig,
	svc service.NotificationService,
	logger *zap.Logger,
) *NotificationWorker {
	return &NotificationWorker{
		config:  config,
		service: svc,
		logger:  logger,
	}
}

// Start begins the worker polling loop
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("notification worker already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("NotificationWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize))

	go w.pollLoop()

	return nil
}

// Stop gracefully terminates the worker
func (w *NotificationWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}

	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	w.logger.Info("NotificationWorker stopped",
		zap.Int("sent_count", w.sentCount))

	return nil
}

// Name returns the worker name for identification
func (w *NotificationWorker) Name() string {
	return "NotificationWorker"
}

// pollLoop runs the main polling loop in background
func (w *NotificationWorker) pollLoop() {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("Poll loop context cancelled")
			return

		case <-ticker.C:
			sent, err := w.service.DeliverPending(w.ctx, w.config.BatchSize)

			w.mu.Lock()
			w.sentCount += sent
			w.lastError = err
			w.mu.Unlock()

			if err != nil {
				w.logger.Error("Failed to deliver pending notifications", zap.Error(err))
				continue
			}
			if sent > 0 {
				w.logger.Info("Delivered pending notifications", zap.Int("sent", sent))
			}
		}
	}
}
