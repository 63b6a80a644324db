package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/procurehub/purchase-workflow/internal/application/port"
	"github.com/procurehub/purchase-workflow/internal/domain/entity"
	domainwf "github.com/procurehub/purchase-workflow/internal/domain/workflow"
)

// ManagerDirectory resolves which actors may act at each workflow stage and
// administers manager assignments
type ManagerDirectory interface {
	IsAuthorized(ctx context.Context, actor entity.Actor, req *entity.PurchaseRequest, status domainwf.Status) (bool, error)
	Exists(ctx context.Context, managerID string) (bool, error)
	ListActive(ctx context.Context) ([]*entity.ManagerAssignment, error)
	Register(ctx context.Context, assignment *entity.ManagerAssignment) error
}

// stageRoles maps each in-flight status to the role whose holders may act
// there. The manager-approval status is absent: it is gated on the assigned
// manager's identity, not on a role.
var stageRoles = map[domainwf.Status]entity.Role{
	domainwf.StatusPendingProcurementReview:     entity.RoleProcurement,
	domainwf.StatusPendingFinanceApproval:       entity.RoleFinance,
	domainwf.StatusPaymentInProgress:            entity.RoleFinance,
	domainwf.StatusAwaitingPaymentConfirmation:  entity.RoleFinance,
	domainwf.StatusAwaitingDeliveryConfirmation: entity.RoleOperations,
}

type managerDirectoryImpl struct {
	managerRepo port.ManagerRepository
	logger      Logger
}

// NewManagerDirectory creates a new ManagerDirectory
func NewManagerDirectory(managerRepo port.ManagerRepository, logger Logger) ManagerDirectory {
	return &managerDirectoryImpl{
		managerRepo: managerRepo,
		logger:      logger,
	}
}

// IsAuthorized applies the stage authorization predicate over (actor, request).
// Side-effect free.
func (d *managerDirectoryImpl) IsAuthorized(ctx context.Context, actor entity.Actor, req *entity.PurchaseRequest, status domainwf.Status) (bool, error) {
	if status == domainwf.StatusPendingApproval {
		return actor.ID != "" && actor.ID == req.ApprovingManagerID, nil
	}

	required, ok := stageRoles[status]
	if !ok {
		return false, nil
	}
	return actor.Role == required, nil
}

// Exists reports whether an active manager assignment exists for the ID
func (d *managerDirectoryImpl) Exists(ctx context.Context, managerID string) (bool, error) {
	assignment, err := d.managerRepo.GetByID(ctx, managerID)
	if err != nil {
		d.logger.Error("Failed to look up manager", "error", err, "manager_id", managerID)
		return false, err
	}
	return assignment != nil && assignment.Active, nil
}

// ListActive returns all active manager assignments
func (d *managerDirectoryImpl) ListActive(ctx context.Context) ([]*entity.ManagerAssignment, error) {
	return d.managerRepo.ListActive(ctx)
}

// Register creates or updates a manager assignment (directory admin operation)
func (d *managerDirectoryImpl) Register(ctx context.Context, assignment *entity.ManagerAssignment) error {
	if strings.TrimSpace(assignment.ManagerID) == "" {
		return fmt.Errorf("%w: manager id is required", domainwf.ErrValidation)
	}
	if strings.TrimSpace(assignment.Name) == "" {
		return fmt.Errorf("%w: manager name is required", domainwf.ErrValidation)
	}

	if err := d.managerRepo.Upsert(ctx, assignment); err != nil {
		d.logger.Error("Failed to register manager", "error", err, "manager_id", assignment.ManagerID)
		return err
	}

	d.logger.Info("Manager registered", "manager_id", assignment.ManagerID, "department", assignment.Department)
	return nil
}
