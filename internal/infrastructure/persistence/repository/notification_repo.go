package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/procurehub/purchase-workflow/internal/application/port"
	"github.com/procurehub/purchase-workflow/internal/domain/entity"
	domainwf "github.com/procurehub/purchase-workflow/internal/domain/workflow"
)

// NotificationRepository implements port.NotificationRepository for SQLite
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new outbox row and sets n.ID
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	query := `
		INSERT INTO notifications (request_id, event, recipients, status, error_msg, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`

	result, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		n.RequestID, n.Event, n.Recipients, n.Status, n.ErrorMsg, n.Attempts,
	)
	if err != nil {
		r.logger.Error("Failed to create notification",
			zap.String("request_id", n.RequestID),
			zap.String("event", n.Event),
			zap.Error(err))
		return fmt.Errorf("%w: create notification: %v", domainwf.ErrStorage, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: notification id: %v", domainwf.ErrStorage, err)
	}
	n.ID = id

	return nil
}

// GetPending returns up to limit notifications that have not been sent yet,
// oldest first
func (r *NotificationRepository) GetPending(ctx context.Context, limit int) ([]*entity.Notification, error) {
	query := `
		SELECT id, request_id, event, recipients, status, error_msg, attempts, created_at, sent_at
		FROM notifications
		WHERE status IN (?, ?)
		ORDER BY created_at ASC
		LIMIT ?
	`

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query,
		entity.NotificationStatusPending, entity.NotificationStatusFailed, limit,
	)
	if err != nil {
		r.logger.Error("Failed to get pending notifications", zap.Error(err))
		return nil, fmt.Errorf("%w: get pending notifications: %v", domainwf.ErrStorage, err)
	}
	defer rows.Close()

	var notifications []*entity.Notification
	for rows.Next() {
		n := &entity.Notification{}
		var sentAt sql.NullTime
		if err := rows.Scan(
			&n.ID, &n.RequestID, &n.Event, &n.Recipients, &n.Status,
			&n.ErrorMsg, &n.Attempts, &n.CreatedAt, &sentAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan notification: %v", domainwf.ErrStorage, err)
		}
		if sentAt.Valid {
			n.SentAt = &sentAt.Time
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate notifications: %v", domainwf.ErrStorage, err)
	}

	return notifications, nil
}

// MarkSent records a successful delivery
func (r *NotificationRepository) MarkSent(ctx context.Context, id int64) error {
	query := `
		UPDATE notifications
		SET status = ?, error_msg = '', attempts = attempts + 1, sent_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := executorFor(ctx, r.db).ExecContext(ctx, query, entity.NotificationStatusSent, id)
	if err != nil {
		r.logger.Error("Failed to mark notification sent", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("%w: mark notification sent: %v", domainwf.ErrStorage, err)
	}

	return nil
}

// MarkFailed records a failed delivery attempt with its error message
func (r *NotificationRepository) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	query := `
		UPDATE notifications
		SET status = ?, error_msg = ?, attempts = attempts + 1
		WHERE id = ?
	`

	_, err := executorFor(ctx, r.db).ExecContext(ctx, query, entity.NotificationStatusFailed, errMsg, id)
	if err != nil {
		r.logger.Error("Failed to mark notification failed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("%w: mark notification failed: %v", domainwf.ErrStorage, err)
	}

	return nil
}

// Verify interface compliance
var _ port.NotificationRepository = (*NotificationRepository)(nil)
