package service

import (
	"context"
	"fmt"

	"github.com/procurehub/purchase-workflow/internal/application/port"
	"github.com/procurehub/purchase-workflow/internal/domain/entity"
	domainwf "github.com/procurehub/purchase-workflow/internal/domain/workflow"
)

// AuditTrail exposes the append-only transition history of a request.
// Appends happen inside engine transactions; reads are safe to re-enumerate.
type AuditTrail interface {
	Append(ctx context.Context, approval *entity.WorkflowApproval) error
	History(ctx context.Context, requestID string) ([]*entity.WorkflowApproval, error)
}

type auditTrailImpl struct {
	requestRepo  port.RequestRepository
	approvalRepo port.ApprovalRepository
	logger       Logger
}

// NewAuditTrail creates a new AuditTrail
func NewAuditTrail(requestRepo port.RequestRepository, approvalRepo port.ApprovalRepository, logger Logger) AuditTrail {
	return &auditTrailImpl{
		requestRepo:  requestRepo,
		approvalRepo: approvalRepo,
		logger:       logger,
	}
}

// Append writes one audit row. Storage errors propagate to the caller,
// never swallowed.
func (s *auditTrailImpl) Append(ctx context.Context, approval *entity.WorkflowApproval) error {
	if approval.RequestID == "" {
		return fmt.Errorf("%w: audit row needs a request id", domainwf.ErrValidation)
	}
	if err := s.approvalRepo.Create(ctx, approval); err != nil {
		s.logger.Error("Failed to append audit row", "error", err, "request_id", approval.RequestID)
		return err
	}
	return nil
}

// History returns all audit rows for a request in chronological order
func (s *auditTrailImpl) History(ctx context.Context, requestID string) ([]*entity.WorkflowApproval, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: %s", domainwf.ErrNotFound, requestID)
	}

	return s.approvalRepo.GetByRequestID(ctx, requestID)
}
