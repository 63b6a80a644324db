package service

import (
	"context"
	"fmt"

	"github.com/procurehub/purchase-workflow/internal/application/port"
	"github.com/procurehub/purchase-workflow/internal/domain/entity"
	domainwf "github.com/procurehub/purchase-workflow/internal/domain/workflow"
)

// DashboardStats is the read-side summary served to dashboards
type DashboardStats struct {
	ByStatus       []port.StatusCount `json:"by_status"`
	TotalRequests  int                `json:"total_requests"`
	OpenRequests   int                `json:"open_requests"`
	CompletedCount int                `json:"completed_count"`
	RejectedCount  int                `json:"rejected_count"`
	CancelledCount int                `json:"cancelled_count"`
}

// rolePendingStatuses maps a role to the statuses whose requests sit in that
// role's work queue
var rolePendingStatuses = map[entity.Role][]domainwf.Status{
	entity.RoleProcurement: {domainwf.StatusPendingProcurementReview},
	entity.RoleFinance: {
		domainwf.StatusPendingFinanceApproval,
		domainwf.StatusPaymentInProgress,
		domainwf.StatusAwaitingPaymentConfirmation,
	},
	entity.RoleOperations: {domainwf.StatusAwaitingDeliveryConfirmation},
}

// QueryService serves read-only projections over requests and their history.
// All reads reflect committed state only.
type QueryService interface {
	GetRequest(ctx context.Context, id string) (*entity.PurchaseRequest, error)
	List(ctx context.Context, filter port.RequestFilter) ([]*entity.PurchaseRequest, error)
	FindByStatus(ctx context.Context, status domainwf.Status, filter port.RequestFilter) ([]*entity.PurchaseRequest, error)
	FindPendingForRole(ctx context.Context, role entity.Role) ([]*entity.PurchaseRequest, error)
	FindPendingForManager(ctx context.Context, managerID string) ([]*entity.PurchaseRequest, error)
	FindByRequester(ctx context.Context, requesterID string) ([]*entity.PurchaseRequest, error)
	Stats(ctx context.Context) (*DashboardStats, error)
}

type queryServiceImpl struct {
	requestRepo port.RequestRepository
	logger      Logger
}

// NewQueryService creates a new QueryService
func NewQueryService(requestRepo port.RequestRepository, logger Logger) QueryService {
	return &queryServiceImpl{
		requestRepo: requestRepo,
		logger:      logger,
	}
}

// GetRequest returns a single request by ID
func (s *queryServiceImpl) GetRequest(ctx context.Context, id string) (*entity.PurchaseRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: %s", domainwf.ErrNotFound, id)
	}
	return req, nil
}

// List returns requests matching the filter, newest first
func (s *queryServiceImpl) List(ctx context.Context, filter port.RequestFilter) ([]*entity.PurchaseRequest, error) {
	return s.requestRepo.List(ctx, filter)
}

// FindByStatus returns requests in the given status with optional filters
func (s *queryServiceImpl) FindByStatus(ctx context.Context, status domainwf.Status, filter port.RequestFilter) ([]*entity.PurchaseRequest, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", domainwf.ErrValidation, status)
	}
	filter.Statuses = []string{status.String()}
	return s.requestRepo.List(ctx, filter)
}

// FindPendingForRole returns the work queue for a role
func (s *queryServiceImpl) FindPendingForRole(ctx context.Context, role entity.Role) ([]*entity.PurchaseRequest, error) {
	statuses, ok := rolePendingStatuses[role]
	if !ok {
		return nil, fmt.Errorf("%w: role %q has no pending queue", domainwf.ErrValidation, role)
	}

	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = st.String()
	}
	return s.requestRepo.List(ctx, port.RequestFilter{Statuses: names})
}

// FindPendingForManager returns requests awaiting a specific manager's approval
func (s *queryServiceImpl) FindPendingForManager(ctx context.Context, managerID string) ([]*entity.PurchaseRequest, error) {
	return s.requestRepo.List(ctx, port.RequestFilter{
		Statuses:  []string{domainwf.StatusPendingApproval.String()},
		ManagerID: managerID,
	})
}

// FindByRequester returns all requests submitted by a requester
func (s *queryServiceImpl) FindByRequester(ctx context.Context, requesterID string) ([]*entity.PurchaseRequest, error) {
	return s.requestRepo.List(ctx, port.RequestFilter{RequesterID: requesterID})
}

// Stats aggregates the dashboard counters
func (s *queryServiceImpl) Stats(ctx context.Context) (*DashboardStats, error) {
	counts, err := s.requestRepo.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("Failed to aggregate dashboard stats", "error", err)
		return nil, err
	}

	stats := &DashboardStats{ByStatus: counts}
	for _, c := range counts {
		stats.TotalRequests += c.Count
		switch domainwf.Status(c.Status) {
		case domainwf.StatusCompleted:
			stats.CompletedCount += c.Count
		case domainwf.StatusRejected:
			stats.RejectedCount += c.Count
		case domainwf.StatusCancelled:
			stats.CancelledCount += c.Count
		default:
			stats.OpenRequests += c.Count
		}
	}
	return stats, nil
}
