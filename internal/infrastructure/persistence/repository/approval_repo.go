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

// ApprovalRepository implements port.ApprovalRepository. Rows are
// insert-only; there are no update or delete operations.
type ApprovalRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApprovalRepository creates a new approval audit repository
func NewApprovalRepository(db *sql.DB, logger *zap.Logger) port.ApprovalRepository {
	return &ApprovalRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts one audit row
func (r *ApprovalRepository) Create(ctx context.Context, approval *entity.WorkflowApproval) error {
	query := `
		INSERT INTO workflow_approvals (
			request_id, stage, actor_id, actor_role, action, comments,
			payload, previous_status, new_status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		approval.RequestID,
		approval.Stage,
		approval.ActorID,
		approval.ActorRole,
		approval.Action,
		approval.Comments,
		approval.Payload,
		approval.PreviousStatus,
		approval.NewStatus,
		approval.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create approval row", zap.Error(err))
		return fmt.Errorf("%w: create approval: %v", domainwf.ErrStorage, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: last insert id: %v", domainwf.ErrStorage, err)
	}

	approval.ID = id
	return nil
}

// GetByRequestID retrieves all audit rows for a request in insertion order
func (r *ApprovalRepository) GetByRequestID(ctx context.Context, requestID string) ([]*entity.WorkflowApproval, error) {
	query := `
		SELECT id, request_id, stage, actor_id, actor_role, action, comments,
			payload, previous_status, new_status, created_at
		FROM workflow_approvals
		WHERE request_id = ?
		ORDER BY id ASC
	`

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to get approvals", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("%w: get approvals: %v", domainwf.ErrStorage, err)
	}
	defer rows.Close()

	var approvals []*entity.WorkflowApproval
	for rows.Next() {
		var a entity.WorkflowApproval
		err := rows.Scan(
			&a.ID,
			&a.RequestID,
			&a.Stage,
			&a.ActorID,
			&a.ActorRole,
			&a.Action,
			&a.Comments,
			&a.Payload,
			&a.PreviousStatus,
			&a.NewStatus,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scan approval: %v", domainwf.ErrStorage, err)
		}
		approvals = append(approvals, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: get approvals: %v", domainwf.ErrStorage, err)
	}
	return approvals, nil
}

// Verify interface compliance
var _ port.ApprovalRepository = (*ApprovalRepository)(nil)
