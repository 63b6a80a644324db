package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/procurehub/purchase-workflow/internal/application/dispatcher"
	"github.com/procurehub/purchase-workflow/internal/application/port"
	"github.com/procurehub/purchase-workflow/internal/domain/entity"
	"github.com/procurehub/purchase-workflow/internal/domain/event"
	domainwf "github.com/procurehub/purchase-workflow/internal/domain/workflow"
	"github.com/procurehub/purchase-workflow/pkg/utils"
)

// engineImpl is the concrete implementation of WorkflowEngine
type engineImpl struct {
	requestRepo  port.RequestRepository
	approvalRepo port.ApprovalRepository
	txManager    port.TransactionManager
	threshold    ThresholdPolicy
	directory    ManagerDirectory
	dispatcher   dispatcher.Dispatcher
	now          func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithClock overrides the engine clock (used in tests)
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	requestRepo port.RequestRepository,
	approvalRepo port.ApprovalRepository,
	txManager port.TransactionManager,
	threshold ThresholdPolicy,
	directory ManagerDirectory,
	opts ...EngineOption,
) WorkflowEngine {
	e := &engineImpl{
		requestRepo:  requestRepo,
		approvalRepo: approvalRepo,
		txManager:    txManager,
		threshold:    threshold,
		directory:    directory,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Create registers a new purchase request in PENDING_APPROVAL
func (e *engineImpl) Create(ctx context.Context, input CreateRequestInput) (*entity.PurchaseRequest, error) {
	if err := e.validateCreate(ctx, input); err != nil {
		return nil, err
	}

	now := e.now()
	req := &entity.PurchaseRequest{
		ID:                 uuid.NewString(),
		Code:               newRequestCode(now),
		RequesterID:        input.RequesterID,
		RequesterName:      input.RequesterName,
		RequesterEmail:     input.RequesterEmail,
		Department:         input.Department,
		Description:        input.Description,
		Amount:             input.Amount,
		Currency:           input.Currency,
		VendorName:         input.VendorName,
		VendorBankDetails:  input.VendorBankDetails,
		Priority:           input.Priority,
		ApprovingManagerID: input.ApprovingManagerID,
		Status:             domainwf.StatusPendingApproval.String(),
		DocumentRef:        input.DocumentRef,
		Notes:              input.Notes,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.requestRepo.Create(txCtx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		approval := &entity.WorkflowApproval{
			RequestID:      req.ID,
			Stage:          domainwf.StageApproval.String(),
			ActorID:        input.RequesterID,
			ActorRole:      entity.RoleRequester.String(),
			Action:         "CREATE",
			PreviousStatus: "",
			NewStatus:      req.Status,
			CreatedAt:      now,
		}
		if err := e.approvalRepo.Create(txCtx, approval); err != nil {
			return fmt.Errorf("create audit row: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, event.TypeRequestCreated, req.ID, map[string]interface{}{
		"code":       req.Code,
		"new_status": req.Status,
		"manager_id": req.ApprovingManagerID,
	})

	return req, nil
}

// ApproveManagerStage advances a request past manager approval, routing to
// procurement review or directly to finance depending on amount vs. threshold
func (e *engineImpl) ApproveManagerStage(ctx context.Context, requestID string, actor entity.Actor, comments string) (*entity.PurchaseRequest, error) {
	return e.execute(ctx, requestID, transitionRequest{
		action:   domainwf.ActionApprove,
		from:     domainwf.StatusPendingApproval,
		actor:    actor,
		comments: comments,
	})
}

// RejectManagerStage rejects at manager stage; comments are required
func (e *engineImpl) RejectManagerStage(ctx context.Context, requestID string, actor entity.Actor, comments string) (*entity.PurchaseRequest, error) {
	return e.execute(ctx, requestID, transitionRequest{
		action:   domainwf.ActionReject,
		from:     domainwf.StatusPendingApproval,
		actor:    actor,
		comments: comments,
		required: []requiredField{{comments, "comments are required when rejecting"}},
	})
}

// ApproveProcurement passes procurement review
func (e *engineImpl) ApproveProcurement(ctx context.Context, requestID string, actor entity.Actor, comments, vendorVerificationStatus string) (*entity.PurchaseRequest, error) {
	return e.execute(ctx, requestID, transitionRequest{
		action:   domainwf.ActionApprove,
		from:     domainwf.StatusPendingProcurementReview,
		actor:    actor,
		comments: comments,
		payload:  map[string]string{"vendor_verification_status": vendorVerificationStatus},
	})
}

// RejectProcurement rejects at procurement review; comments are required
func (e *engineImpl) RejectProcurement(ctx context.Context, requestID string, actor entity.Actor, comments string) (*entity.PurchaseRequest, error) {
	return e.execute(ctx, requestID, transitionRequest{
		action:   domainwf.ActionReject,
		from:     domainwf.StatusPendingProcurementReview,
		actor:    actor,
		comments: comments,
		required: []requiredField{{comments, "comments are required when rejecting"}},
	})
}

// RequestAlternativeVendor keeps the request in procurement review while
// recording the requested vendor change as an audit row
func (e *engineImpl) RequestAlternativeVendor(ctx context.Context, requestID string, actor entity.Actor, comments, alternativeVendor string) (*entity.PurchaseRequest, error) {
	return e.execute(ctx, requestID, transitionRequest{
		action:   domainwf.ActionRequestAlternative,
		from:     domainwf.StatusPendingProcurementReview,
		actor:    actor,
		comments: comments,
		payload:  map[string]string{"alternative_vendor": alternativeVendor},
		required: []requiredField{{alternativeVendor, "alternative vendor name is required"}},
	})
}

// ApproveFinance grants budget approval; a budget code is required
func (e *engineImpl) ApproveFinance(ctx context.Context, requestID string, actor entity.Actor, comments, budgetCode, paymentMethod string) (*entity.PurchaseRequest, error) {
	return e.execute(ctx, requestID, transitionRequest{
		action:   domainwf.ActionApprove,
		from:     domainwf.StatusPendingFinanceApproval,
		actor:    actor,
		comments: comments,
		payload: map[string]string{
			"budget_code":    budgetCode,
			"payment_method": paymentMethod,
		},
		required: []requiredField{{budgetCode, "budget code is required for finance approval"}},
	})
}

// RejectFinance rejects at finance approval; comments are required
func (e *engineImpl) RejectFinance(ctx context.Context, requestID string, actor entity.Actor, comments string) (*entity.PurchaseRequest, error) {
	return e.execute(ctx, requestID, transitionRequest{
		action:   domainwf.ActionReject,
		from:     domainwf.StatusPendingFinanceApproval,
		actor:    actor,
		comments: comments,
		required: []requiredField{{comments, "comments are required when rejecting"}},
	})
}

// SubmitPaymentLetter records the payment letter and moves the request to
// awaiting payment confirmation
func (e *engineImpl) SubmitPaymentLetter(ctx context.Context, requestID string, actor entity.Actor, letterheadRef, documentTemplate string) (*entity.PurchaseRequest, error) {
	return e.execute(ctx, requestID, transitionRequest{
		action: domainwf.ActionSubmitPaymentLetter,
		from:   domainwf.StatusPaymentInProgress,
		actor:  actor,
		payload: map[string]string{
			"letterhead_ref":    letterheadRef,
			"document_template": documentTemplate,
		},
		required: []requiredField{{letterheadRef, "letterhead reference is required"}},
	})
}

// ConfirmPayment records payment execution; a payment reference is required
func (e *engineImpl) ConfirmPayment(ctx context.Context, requestID string, actor entity.Actor, input ConfirmPaymentInput) (*entity.PurchaseRequest, error) {
	return e.execute(ctx, requestID, transitionRequest{
		action:   domainwf.ActionConfirmPayment,
		from:     domainwf.StatusAwaitingPaymentConfirmation,
		actor:    actor,
		comments: input.Comments,
		payload: map[string]string{
			"payment_reference": input.PaymentReference,
			"transaction_id":    input.TransactionID,
			"payment_date":      input.PaymentDate,
			"payment_method":    input.PaymentMethod,
		},
		required: []requiredField{{input.PaymentReference, "payment reference is required"}},
	})
}

// ConfirmDelivery completes the request
func (e *engineImpl) ConfirmDelivery(ctx context.Context, requestID string, actor entity.Actor, comments string) (*entity.PurchaseRequest, error) {
	return e.execute(ctx, requestID, transitionRequest{
		action:   domainwf.ActionConfirmDelivery,
		from:     domainwf.StatusAwaitingDeliveryConfirmation,
		actor:    actor,
		comments: comments,
	})
}

// Cancel terminates a non-terminal request; comments are required
func (e *engineImpl) Cancel(ctx context.Context, requestID string, actor entity.Actor, comments string) (*entity.PurchaseRequest, error) {
	return e.execute(ctx, requestID, transitionRequest{
		action:   domainwf.ActionCancel,
		actor:    actor,
		comments: comments,
		required: []requiredField{{comments, "comments are required when cancelling"}},
	})
}

// requiredField is a payload field that must be non-blank for the transition
// to proceed
type requiredField struct {
	value   string
	missing string
}

// transitionRequest describes one attempted transition. An empty "from"
// accepts any non-terminal status (cancel). Required fields are checked only
// after the request has been loaded and the actor authorized, so a caller
// always learns about a missing or foreign request before input problems.
type transitionRequest struct {
	action   domainwf.Action
	from     domainwf.Status
	actor    entity.Actor
	comments string
	payload  map[string]string
	required []requiredField
}

// execute runs the shared transition contract: load and status checks, then
// authorization, then required-field validation, then the state machine fire
// and one transaction writing the new status (compare-and-swap on version)
// together with the audit row.
func (e *engineImpl) execute(ctx context.Context, requestID string, tr transitionRequest) (*entity.PurchaseRequest, error) {
	req, err := e.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: %s", domainwf.ErrNotFound, requestID)
	}

	current := domainwf.Status(req.Status)
	if current.IsTerminal() {
		return nil, fmt.Errorf("%w: request %s is already %s", domainwf.ErrInvalidState, req.Code, current)
	}
	if tr.from != "" && current != tr.from {
		return nil, fmt.Errorf("%w: request %s is %s, expected %s", domainwf.ErrInvalidState, req.Code, current, tr.from)
	}

	if err := e.authorize(ctx, tr, req, current); err != nil {
		return nil, err
	}

	for _, f := range tr.required {
		if strings.TrimSpace(f.value) == "" {
			return nil, fmt.Errorf("%w: %s", domainwf.ErrValidation, f.missing)
		}
	}

	machine := BuildPurchaseStateMachine(current)
	if !machine.CanFire(tr.action) {
		return nil, fmt.Errorf("%w: action %s not permitted from %s", domainwf.ErrInvalidState, tr.action, current)
	}

	fireCtx := ctx
	if current == domainwf.StatusPendingApproval && tr.action == domainwf.ActionApprove {
		threshold, err := e.threshold.Threshold(ctx)
		if err != nil {
			return nil, err
		}
		fireCtx = WithRoutingDecision(ctx, RequiresProcurementReview(req.Amount, threshold))
	}

	if err := machine.Fire(fireCtx, tr.action); err != nil {
		return nil, fmt.Errorf("%w: %v", domainwf.ErrInvalidState, err)
	}
	newStatus := machine.Status()

	payloadJSON, err := marshalPayload(tr.payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode payload: %v", domainwf.ErrValidation, err)
	}

	now := e.now()
	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.requestRepo.UpdateStatus(txCtx, req.ID, newStatus.String(), req.Version); err != nil {
			return err
		}

		approval := &entity.WorkflowApproval{
			RequestID:      req.ID,
			Stage:          domainwf.StageOf(current).String(),
			ActorID:        tr.actor.ID,
			ActorRole:      tr.actor.Role.String(),
			Action:         tr.action.String(),
			Comments:       tr.comments,
			Payload:        payloadJSON,
			PreviousStatus: current.String(),
			NewStatus:      newStatus.String(),
			CreatedAt:      now,
		}
		if err := e.approvalRepo.Create(txCtx, approval); err != nil {
			return fmt.Errorf("create audit row: %w", err)
		}

		if newStatus == domainwf.StatusCompleted {
			if err := e.requestRepo.SetCompletedAt(txCtx, req.ID, now); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := e.requestRepo.GetByID(ctx, req.ID)
	if err != nil || updated == nil {
		// The transition committed; fall back to the in-memory view
		updated = req
		updated.Status = newStatus.String()
		updated.Version = req.Version + 1
	}

	e.emit(ctx, eventTypeFor(newStatus), req.ID, map[string]interface{}{
		"previous_status": current.String(),
		"new_status":      newStatus.String(),
		"action":          tr.action.String(),
		"actor_id":        tr.actor.ID,
		"manager_id":      req.ApprovingManagerID,
		"requester_id":    req.RequesterID,
	})

	return updated, nil
}

// authorize applies the stage authorization predicate. Cancel has its own
// rule: the original requester or an admin.
func (e *engineImpl) authorize(ctx context.Context, tr transitionRequest, req *entity.PurchaseRequest, current domainwf.Status) error {
	if tr.action == domainwf.ActionCancel {
		if tr.actor.ID == req.RequesterID || tr.actor.Role == entity.RoleAdmin {
			return nil
		}
		return fmt.Errorf("%w: only the requester or an admin may cancel this request", domainwf.ErrUnauthorized)
	}

	ok, err := e.directory.IsAuthorized(ctx, tr.actor, req, current)
	if err != nil {
		return err
	}
	if !ok {
		if current == domainwf.StatusPendingApproval {
			return fmt.Errorf("%w: only the assigned manager may act on this request", domainwf.ErrUnauthorized)
		}
		return fmt.Errorf("%w: actor role %s may not act at stage %s", domainwf.ErrUnauthorized, tr.actor.Role, domainwf.StageOf(current))
	}
	return nil
}

func (e *engineImpl) validateCreate(ctx context.Context, input CreateRequestInput) error {
	if strings.TrimSpace(input.RequesterID) == "" || strings.TrimSpace(input.RequesterName) == "" {
		return fmt.Errorf("%w: requester identity is required", domainwf.ErrValidation)
	}
	if strings.TrimSpace(input.Description) == "" {
		return fmt.Errorf("%w: description is required", domainwf.ErrValidation)
	}
	if strings.TrimSpace(input.VendorName) == "" {
		return fmt.Errorf("%w: vendor name is required", domainwf.ErrValidation)
	}
	if !input.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", domainwf.ErrValidation)
	}
	if input.Priority != "" && !input.Priority.IsValid() {
		return fmt.Errorf("%w: unknown priority %q", domainwf.ErrValidation, input.Priority)
	}
	if input.RequesterEmail != "" {
		if err := utils.ValidateEmail(input.RequesterEmail); err != nil {
			return fmt.Errorf("%w: %v", domainwf.ErrValidation, err)
		}
	}
	if input.Currency != "" {
		if err := utils.ValidateCurrency(input.Currency); err != nil {
			return fmt.Errorf("%w: %v", domainwf.ErrValidation, err)
		}
	}
	if strings.TrimSpace(input.ApprovingManagerID) == "" {
		return fmt.Errorf("%w: approving manager is required", domainwf.ErrValidation)
	}

	exists, err := e.directory.Exists(ctx, input.ApprovingManagerID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: approving manager %s not found in directory", domainwf.ErrValidation, input.ApprovingManagerID)
	}
	return nil
}

// emit dispatches a domain event asynchronously; never blocks the transition
func (e *engineImpl) emit(ctx context.Context, t event.Type, requestID string, payload map[string]interface{}) {
	if e.dispatcher == nil {
		return
	}
	e.dispatcher.DispatchAsync(ctx, event.NewEvent(t, requestID, payload))
}

func eventTypeFor(status domainwf.Status) event.Type {
	switch status {
	case domainwf.StatusCompleted:
		return event.TypeRequestCompleted
	case domainwf.StatusRejected:
		return event.TypeRequestRejected
	case domainwf.StatusCancelled:
		return event.TypeRequestCancelled
	default:
		return event.TypeStatusChanged
	}
}

func marshalPayload(payload map[string]string) (string, error) {
	if len(payload) == 0 {
		return "", nil
	}
	// Drop empty optional fields so the audit row stays compact
	compact := make(map[string]string, len(payload))
	for k, v := range payload {
		if v != "" {
			compact[k] = v
		}
	}
	if len(compact) == 0 {
		return "", nil
	}
	b, err := json.Marshal(compact)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// newRequestCode derives a human-readable code from the creation date and a
// random suffix, e.g. PR-20260831-1a2b3c
func newRequestCode(t time.Time) string {
	suffix := strings.Split(uuid.NewString(), "-")[0][:6]
	return fmt.Sprintf("PR-%s-%s", t.Format("20060102"), suffix)
}
