package port

import (
	"context"
	"time"

	"github.com/procurehub/purchase-workflow/internal/domain/entity"
)

// RequestFilter narrows request list queries
type RequestFilter struct {
	Statuses    []string
	RequesterID string
	ManagerID   string
	Department  string
	Priority    string
	Limit       int
	Offset      int
}

// StatusCount is one row of the dashboard status breakdown
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
	Total  string `json:"total_amount"`
}

// RequestRepository defines persistence operations for PurchaseRequest
type RequestRepository interface {
	Create(ctx context.Context, req *entity.PurchaseRequest) error
	GetByID(ctx context.Context, id string) (*entity.PurchaseRequest, error)
	GetByCode(ctx context.Context, code string) (*entity.PurchaseRequest, error)

	// UpdateStatus performs a compare-and-swap write: the row is updated only
	// when its stored version still equals expectedVersion. A stale version
	// fails with workflow.ErrInvalidState so racing writers lose cleanly.
	UpdateStatus(ctx context.Context, id, status string, expectedVersion int64) error

	SetCompletedAt(ctx context.Context, id string, t time.Time) error
	List(ctx context.Context, filter RequestFilter) ([]*entity.PurchaseRequest, error)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
}

// ApprovalRepository defines persistence operations for WorkflowApproval
// audit rows. Rows are insert-only and never mutated.
type ApprovalRepository interface {
	Create(ctx context.Context, approval *entity.WorkflowApproval) error
	GetByRequestID(ctx context.Context, requestID string) ([]*entity.WorkflowApproval, error)
}

// SettingRepository defines persistence operations for workflow configuration
// scalars such as the procurement-review threshold
type SettingRepository interface {
	// Get returns the stored value for key, or "" when unset
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// ManagerRepository defines persistence operations for ManagerAssignment
type ManagerRepository interface {
	GetByID(ctx context.Context, managerID string) (*entity.ManagerAssignment, error)
	ListActive(ctx context.Context) ([]*entity.ManagerAssignment, error)
	Upsert(ctx context.Context, assignment *entity.ManagerAssignment) error
}

// NotificationRepository defines persistence operations for queued
// notification intents
type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	GetPending(ctx context.Context, limit int) ([]*entity.Notification, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, errorMsg string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
