package workflow

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurehub/purchase-workflow/internal/application/port"
	"github.com/procurehub/purchase-workflow/internal/domain/entity"
	domainwf "github.com/procurehub/purchase-workflow/internal/domain/workflow"
)

// memRequestRepo is an in-memory RequestRepository with the same
// compare-and-swap semantics as the SQLite implementation
type memRequestRepo struct {
	mu       sync.Mutex
	requests map[string]*entity.PurchaseRequest

	// beforeUpdate runs inside UpdateStatus before the version check,
	// used to simulate a concurrent writer
	beforeUpdate func()
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{requests: make(map[string]*entity.PurchaseRequest)}
}

func (r *memRequestRepo) Create(ctx context.Context, req *entity.PurchaseRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *memRequestRepo) GetByID(ctx context.Context, id string) (*entity.PurchaseRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (r *memRequestRepo) GetByCode(ctx context.Context, code string) (*entity.PurchaseRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.Code == code {
			cp := *req
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memRequestRepo) UpdateStatus(ctx context.Context, id, status string, expectedVersion int64) error {
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.Version != expectedVersion {
		return fmt.Errorf("%w: request %s was modified concurrently", domainwf.ErrInvalidState, id)
	}
	req.Status = status
	req.Version++
	req.UpdatedAt = time.Now()
	return nil
}

func (r *memRequestRepo) SetCompletedAt(ctx context.Context, id string, t time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req, ok := r.requests[id]; ok {
		req.CompletedAt = &t
	}
	return nil
}

func (r *memRequestRepo) List(ctx context.Context, filter port.RequestFilter) ([]*entity.PurchaseRequest, error) {
	return nil, nil
}

func (r *memRequestRepo) CountByStatus(ctx context.Context) ([]port.StatusCount, error) {
	return nil, nil
}

// memApprovalRepo is an in-memory append-only audit store
type memApprovalRepo struct {
	mu        sync.Mutex
	approvals []*entity.WorkflowApproval
}

func (r *memApprovalRepo) Create(ctx context.Context, approval *entity.WorkflowApproval) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	approval.ID = int64(len(r.approvals) + 1)
	cp := *approval
	r.approvals = append(r.approvals, &cp)
	return nil
}

func (r *memApprovalRepo) GetByRequestID(ctx context.Context, requestID string) ([]*entity.WorkflowApproval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.WorkflowApproval
	for _, a := range r.approvals {
		if a.RequestID == requestID {
			out = append(out, a)
		}
	}
	return out, nil
}

// noopTxManager runs the function without a real transaction
type noopTxManager struct{}

func (noopTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fixedThreshold always returns the same threshold
type fixedThreshold struct {
	value decimal.Decimal
}

func (t fixedThreshold) Threshold(ctx context.Context) (decimal.Decimal, error) {
	return t.value, nil
}

// stubDirectory mirrors the production authorization rules for tests
type stubDirectory struct {
	managers map[string]bool
}

func (d stubDirectory) IsAuthorized(ctx context.Context, actor entity.Actor, req *entity.PurchaseRequest, status domainwf.Status) (bool, error) {
	switch status {
	case domainwf.StatusPendingApproval:
		return actor.ID == req.ApprovingManagerID, nil
	case domainwf.StatusPendingProcurementReview:
		return actor.Role == entity.RoleProcurement, nil
	case domainwf.StatusPendingFinanceApproval,
		domainwf.StatusPaymentInProgress,
		domainwf.StatusAwaitingPaymentConfirmation:
		return actor.Role == entity.RoleFinance, nil
	case domainwf.StatusAwaitingDeliveryConfirmation:
		return actor.Role == entity.RoleOperations, nil
	}
	return false, nil
}

func (d stubDirectory) Exists(ctx context.Context, managerID string) (bool, error) {
	return d.managers[managerID], nil
}

type engineFixture struct {
	engine       WorkflowEngine
	requestRepo  *memRequestRepo
	approvalRepo *memApprovalRepo
}

func newEngineFixture(t *testing.T, threshold decimal.Decimal) *engineFixture {
	t.Helper()
	requestRepo := newMemRequestRepo()
	approvalRepo := &memApprovalRepo{}
	engine := NewEngine(
		requestRepo,
		approvalRepo,
		noopTxManager{},
		fixedThreshold{value: threshold},
		stubDirectory{managers: map[string]bool{"mgr-1": true}},
	)
	return &engineFixture{
		engine:       engine,
		requestRepo:  requestRepo,
		approvalRepo: approvalRepo,
	}
}

func validInput() CreateRequestInput {
	return CreateRequestInput{
		RequesterID:        "emp-7",
		RequesterName:      "Dana Smith",
		RequesterEmail:     "dana@example.com",
		Department:         "Engineering",
		Description:        "Ten workstation laptops",
		Amount:             decimal.NewFromInt(450_000),
		Currency:           "USD",
		VendorName:         "TechSupply Ltd",
		Priority:           entity.PriorityHigh,
		ApprovingManagerID: "mgr-1",
	}
}

var (
	manager     = entity.Actor{ID: "mgr-1", Name: "Morgan Lee", Role: entity.RoleManager}
	procurement = entity.Actor{ID: "proc-1", Role: entity.RoleProcurement}
	finance     = entity.Actor{ID: "fin-1", Role: entity.RoleFinance}
	operations  = entity.Actor{ID: "ops-1", Role: entity.RoleOperations}
)

func TestCreateRequest(t *testing.T) {
	f := newEngineFixture(t, decimal.NewFromInt(1_000_000))

	req, err := f.engine.Create(context.Background(), validInput())
	require.NoError(t, err)

	assert.NotEmpty(t, req.ID)
	assert.Regexp(t, `^PR-\d{8}-[0-9a-f]{6}$`, req.Code)
	assert.Equal(t, domainwf.StatusPendingApproval.String(), req.Status)
	assert.Equal(t, int64(1), req.Version)

	history, err := f.approvalRepo.GetByRequestID(context.Background(), req.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "CREATE", history[0].Action)
	assert.Equal(t, "", history[0].PreviousStatus)
	assert.Equal(t, domainwf.StatusPendingApproval.String(), history[0].NewStatus)
}

func TestCreateRequestValidation(t *testing.T) {
	f := newEngineFixture(t, decimal.NewFromInt(1_000_000))

	tests := []struct {
		name   string
		mutate func(*CreateRequestInput)
	}{
		{"missing requester", func(in *CreateRequestInput) { in.RequesterID = "" }},
		{"missing description", func(in *CreateRequestInput) { in.Description = "" }},
		{"missing vendor", func(in *CreateRequestInput) { in.VendorName = "" }},
		{"zero amount", func(in *CreateRequestInput) { in.Amount = decimal.Zero }},
		{"negative amount", func(in *CreateRequestInput) { in.Amount = decimal.NewFromInt(-50) }},
		{"unknown priority", func(in *CreateRequestInput) { in.Priority = "WHENEVER" }},
		{"bad email", func(in *CreateRequestInput) { in.RequesterEmail = "not-an-email" }},
		{"bad currency", func(in *CreateRequestInput) { in.Currency = "dollars" }},
		{"missing manager", func(in *CreateRequestInput) { in.ApprovingManagerID = "" }},
		{"unknown manager", func(in *CreateRequestInput) { in.ApprovingManagerID = "mgr-404" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(&input)

			_, err := f.engine.Create(context.Background(), input)
			require.Error(t, err)
			assert.ErrorIs(t, err, domainwf.ErrValidation)
		})
	}
}

// Standard flow below the threshold: procurement review is skipped
func TestStandardFlowBelowThreshold(t *testing.T) {
	f := newEngineFixture(t, decimal.NewFromInt(1_000_000))
	ctx := context.Background()

	req, err := f.engine.Create(ctx, validInput())
	require.NoError(t, err)

	req, err = f.engine.ApproveManagerStage(ctx, req.ID, manager, "approved for Q3")
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusPendingFinanceApproval.String(), req.Status)

	req, err = f.engine.ApproveFinance(ctx, req.ID, finance, "", "BUD-2026-114", "wire")
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusPaymentInProgress.String(), req.Status)

	req, err = f.engine.SubmitPaymentLetter(ctx, req.ID, finance, "LH-88", "standard")
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusAwaitingPaymentConfirmation.String(), req.Status)

	req, err = f.engine.ConfirmPayment(ctx, req.ID, finance, ConfirmPaymentInput{
		PaymentReference: "PAY-4410",
		TransactionID:    "TX-991",
	})
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusAwaitingDeliveryConfirmation.String(), req.Status)

	req, err = f.engine.ConfirmDelivery(ctx, req.ID, operations, "delivered in full")
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusCompleted.String(), req.Status)
	assert.NotNil(t, req.CompletedAt)

	// CREATE plus five transitions
	history, err := f.approvalRepo.GetByRequestID(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, history, 6)

	// Each row links the previous status to the new one
	for i := 1; i < len(history); i++ {
		assert.Equal(t, history[i-1].NewStatus, history[i].PreviousStatus,
			"audit row %d does not chain from its predecessor", i)
	}
}

// High-value flow: procurement review is mandatory, including an
// alternative-vendor round trip
func TestHighValueFlowWithProcurement(t *testing.T) {
	f := newEngineFixture(t, decimal.NewFromInt(1_000_000))
	ctx := context.Background()

	input := validInput()
	input.Amount = decimal.NewFromInt(2_500_000)
	req, err := f.engine.Create(ctx, input)
	require.NoError(t, err)

	req, err = f.engine.ApproveManagerStage(ctx, req.ID, manager, "")
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusPendingProcurementReview.String(), req.Status)

	// Procurement asks for a different vendor; status must not change
	req, err = f.engine.RequestAlternativeVendor(ctx, req.ID, procurement, "pricing concerns", "CompuParts GmbH")
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusPendingProcurementReview.String(), req.Status)

	req, err = f.engine.ApproveProcurement(ctx, req.ID, procurement, "vendor verified", "VERIFIED")
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusPendingFinanceApproval.String(), req.Status)

	history, err := f.approvalRepo.GetByRequestID(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, domainwf.ActionRequestAlternative.String(), history[2].Action)
	assert.Contains(t, history[2].Payload, "CompuParts GmbH")
}

func TestRejectAtProcurementStage(t *testing.T) {
	f := newEngineFixture(t, decimal.NewFromInt(1_000_000))
	ctx := context.Background()

	input := validInput()
	input.Amount = decimal.NewFromInt(3_000_000)
	req, err := f.engine.Create(ctx, input)
	require.NoError(t, err)
	req, err = f.engine.ApproveManagerStage(ctx, req.ID, manager, "")
	require.NoError(t, err)

	req, err = f.engine.RejectProcurement(ctx, req.ID, procurement, "vendor unverified")
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusRejected.String(), req.Status)

	history, err := f.approvalRepo.GetByRequestID(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domainwf.ActionReject.String(), history[2].Action)
	assert.Equal(t, "vendor unverified", history[2].Comments)
}

func TestConfirmDeliveryIsConsumedOnce(t *testing.T) {
	f := newEngineFixture(t, decimal.NewFromInt(1_000_000))
	ctx := context.Background()

	req, err := f.engine.Create(ctx, validInput())
	require.NoError(t, err)
	req, err = f.engine.ApproveManagerStage(ctx, req.ID, manager, "")
	require.NoError(t, err)
	req, err = f.engine.ApproveFinance(ctx, req.ID, finance, "", "BUD-3", "wire")
	require.NoError(t, err)
	req, err = f.engine.SubmitPaymentLetter(ctx, req.ID, finance, "LH-1", "standard")
	require.NoError(t, err)
	req, err = f.engine.ConfirmPayment(ctx, req.ID, finance, ConfirmPaymentInput{PaymentReference: "PAY-1"})
	require.NoError(t, err)

	req, err = f.engine.ConfirmDelivery(ctx, req.ID, operations, "received")
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusCompleted.String(), req.Status)

	_, err = f.engine.ConfirmDelivery(ctx, req.ID, operations, "received again")
	assert.ErrorIs(t, err, domainwf.ErrInvalidState)
}

// An amount exactly at the threshold routes to procurement
func TestAmountExactlyAtThresholdRoutesToProcurement(t *testing.T) {
	f := newEngineFixture(t, decimal.NewFromInt(1_000_000))
	ctx := context.Background()

	input := validInput()
	input.Amount = decimal.NewFromInt(1_000_000)
	req, err := f.engine.Create(ctx, input)
	require.NoError(t, err)

	req, err = f.engine.ApproveManagerStage(ctx, req.ID, manager, "")
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusPendingProcurementReview.String(), req.Status)
}

func TestRejectRequiresComments(t *testing.T) {
	f := newEngineFixture(t, decimal.NewFromInt(1_000_000))
	ctx := context.Background()

	req, err := f.engine.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = f.engine.RejectManagerStage(ctx, req.ID, manager, "   ")
	assert.ErrorIs(t, err, domainwf.ErrValidation)

	rejected, err := f.engine.RejectManagerStage(ctx, req.ID, manager, "budget freeze")
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusRejected.String(), rejected.Status)
}

func TestTerminalRequestsAreImmutable(t *testing.T) {
	f := newEngineFixture(t, decimal.NewFromInt(1_000_000))
	ctx := context.Background()

	req, err := f.engine.Create(ctx, validInput())
	require.NoError(t, err)
	_, err = f.engine.RejectManagerStage(ctx, req.ID, manager, "not needed")
	require.NoError(t, err)

	_, err = f.engine.ApproveManagerStage(ctx, req.ID, manager, "")
	assert.ErrorIs(t, err, domainwf.ErrInvalidState)

	_, err = f.engine.Cancel(ctx, req.ID, entity.Actor{ID: "emp-7", Role: entity.RoleRequester}, "changed my mind")
	assert.ErrorIs(t, err, domainwf.ErrInvalidState)
}

func TestAuthorizationFailures(t *testing.T) {
	f := newEngineFixture(t, decimal.NewFromInt(1_000_000))
	ctx := context.Background()

	req, err := f.engine.Create(ctx, validInput())
	require.NoError(t, err)

	// A different manager cannot act at the manager stage
	otherManager := entity.Actor{ID: "mgr-2", Role: entity.RoleManager}
	_, err = f.engine.ApproveManagerStage(ctx, req.ID, otherManager, "")
	assert.ErrorIs(t, err, domainwf.ErrUnauthorized)

	// Advance past the manager stage
	req, err = f.engine.ApproveManagerStage(ctx, req.ID, manager, "")
	require.NoError(t, err)
	require.Equal(t, domainwf.StatusPendingFinanceApproval.String(), req.Status)

	// Procurement role cannot grant finance approval
	_, err = f.engine.ApproveFinance(ctx, req.ID, procurement, "", "BUD-1", "")
	assert.ErrorIs(t, err, domainwf.ErrUnauthorized)

	// A failed attempt leaves no audit row behind
	history, err := f.approvalRepo.GetByRequestID(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestWrongStageAction(t *testing.T) {
	f := newEngineFixture(t, decimal.NewFromInt(1_000_000))
	ctx := context.Background()

	req, err := f.engine.Create(ctx, validInput())
	require.NoError(t, err)

	// Payment confirmation is not valid while pending manager approval
	_, err = f.engine.ConfirmPayment(ctx, req.ID, finance, ConfirmPaymentInput{PaymentReference: "PAY-1"})
	assert.ErrorIs(t, err, domainwf.ErrInvalidState)
}

func TestFinanceApprovalRequiresBudgetCode(t *testing.T) {
	f := newEngineFixture(t, decimal.NewFromInt(1_000_000))
	ctx := context.Background()

	req, err := f.engine.Create(ctx, validInput())
	require.NoError(t, err)
	req, err = f.engine.ApproveManagerStage(ctx, req.ID, manager, "")
	require.NoError(t, err)

	_, err = f.engine.ApproveFinance(ctx, req.ID, finance, "", "", "wire")
	assert.ErrorIs(t, err, domainwf.ErrValidation)
}

func TestConfirmPaymentRequiresReference(t *testing.T) {
	f := newEngineFixture(t, decimal.NewFromInt(1_000_000))
	ctx := context.Background()

	req, err := f.engine.Create(ctx, validInput())
	require.NoError(t, err)
	req, err = f.engine.ApproveManagerStage(ctx, req.ID, manager, "")
	require.NoError(t, err)
	req, err = f.engine.ApproveFinance(ctx, req.ID, finance, "", "BUD-5", "wire")
	require.NoError(t, err)
	req, err = f.engine.SubmitPaymentLetter(ctx, req.ID, finance, "LH-2", "standard")
	require.NoError(t, err)

	_, err = f.engine.ConfirmPayment(ctx, req.ID, finance, ConfirmPaymentInput{})
	assert.ErrorIs(t, err, domainwf.ErrValidation)
}

// Missing-input errors must never mask a missing request or a forbidden
// actor: the caller has to learn the request is gone or not theirs first
func TestMissingRequestReportedBeforeMissingInput(t *testing.T) {
	f := newEngineFixture(t, decimal.NewFromInt(1_000_000))
	ctx := context.Background()

	_, err := f.engine.ConfirmPayment(ctx, "no-such-id", finance, ConfirmPaymentInput{})
	assert.ErrorIs(t, err, domainwf.ErrNotFound)

	_, err = f.engine.RejectManagerStage(ctx, "no-such-id", manager, "")
	assert.ErrorIs(t, err, domainwf.ErrNotFound)

	_, err = f.engine.Cancel(ctx, "no-such-id", entity.Actor{ID: "emp-7", Role: entity.RoleRequester}, "")
	assert.ErrorIs(t, err, domainwf.ErrNotFound)
}

func TestUnauthorizedReportedBeforeMissingInput(t *testing.T) {
	f := newEngineFixture(t, decimal.NewFromInt(1_000_000))
	ctx := context.Background()

	req, err := f.engine.Create(ctx, validInput())
	require.NoError(t, err)

	// Not the assigned manager, and no comments either
	otherManager := entity.Actor{ID: "mgr-2", Role: entity.RoleManager}
	_, err = f.engine.RejectManagerStage(ctx, req.ID, otherManager, "")
	assert.ErrorIs(t, err, domainwf.ErrUnauthorized)

	// Neither the requester nor an admin, and no comments either
	stranger := entity.Actor{ID: "emp-99", Role: entity.RoleRequester}
	_, err = f.engine.Cancel(ctx, req.ID, stranger, "")
	assert.ErrorIs(t, err, domainwf.ErrUnauthorized)
}

func TestWrongStatusReportedBeforeMissingInput(t *testing.T) {
	f := newEngineFixture(t, decimal.NewFromInt(1_000_000))
	ctx := context.Background()

	req, err := f.engine.Create(ctx, validInput())
	require.NoError(t, err)

	// Still pending manager approval; the stage mismatch wins over the
	// missing payment reference
	_, err = f.engine.ConfirmPayment(ctx, req.ID, finance, ConfirmPaymentInput{})
	assert.ErrorIs(t, err, domainwf.ErrInvalidState)
}

func TestCancelAuthorization(t *testing.T) {
	f := newEngineFixture(t, decimal.NewFromInt(1_000_000))
	ctx := context.Background()

	requester := entity.Actor{ID: "emp-7", Role: entity.RoleRequester}
	stranger := entity.Actor{ID: "emp-99", Role: entity.RoleRequester}
	admin := entity.Actor{ID: "admin-1", Role: entity.RoleAdmin}

	req, err := f.engine.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = f.engine.Cancel(ctx, req.ID, stranger, "mine now")
	assert.ErrorIs(t, err, domainwf.ErrUnauthorized)

	cancelled, err := f.engine.Cancel(ctx, req.ID, requester, "no longer needed")
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusCancelled.String(), cancelled.Status)

	// Admins may cancel someone else's request
	req2, err := f.engine.Create(ctx, validInput())
	require.NoError(t, err)
	cancelled2, err := f.engine.Cancel(ctx, req2.ID, admin, "duplicate request")
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusCancelled.String(), cancelled2.Status)
}

func TestCancelFromMidWorkflow(t *testing.T) {
	f := newEngineFixture(t, decimal.NewFromInt(1_000_000))
	ctx := context.Background()

	req, err := f.engine.Create(ctx, validInput())
	require.NoError(t, err)
	req, err = f.engine.ApproveManagerStage(ctx, req.ID, manager, "")
	require.NoError(t, err)
	req, err = f.engine.ApproveFinance(ctx, req.ID, finance, "", "BUD-7", "")
	require.NoError(t, err)
	require.Equal(t, domainwf.StatusPaymentInProgress.String(), req.Status)

	requester := entity.Actor{ID: "emp-7", Role: entity.RoleRequester}
	cancelled, err := f.engine.Cancel(ctx, req.ID, requester, "vendor went under")
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusCancelled.String(), cancelled.Status)
}

func TestNotFound(t *testing.T) {
	f := newEngineFixture(t, decimal.NewFromInt(1_000_000))

	_, err := f.engine.ApproveManagerStage(context.Background(), "req-missing", manager, "")
	assert.ErrorIs(t, err, domainwf.ErrNotFound)
}

// A concurrent writer bumps the version between load and write; the
// compare-and-swap must fail and no audit row may be written
func TestConcurrentModificationLoses(t *testing.T) {
	f := newEngineFixture(t, decimal.NewFromInt(1_000_000))
	ctx := context.Background()

	req, err := f.engine.Create(ctx, validInput())
	require.NoError(t, err)

	interfered := false
	f.requestRepo.beforeUpdate = func() {
		if interfered {
			return
		}
		interfered = true
		f.requestRepo.mu.Lock()
		f.requestRepo.requests[req.ID].Version++
		f.requestRepo.mu.Unlock()
	}

	_, err = f.engine.ApproveManagerStage(ctx, req.ID, manager, "")
	assert.ErrorIs(t, err, domainwf.ErrInvalidState)

	history, err := f.approvalRepo.GetByRequestID(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1, "losing transition must not append an audit row")
}

func TestVersionIncrementsPerTransition(t *testing.T) {
	f := newEngineFixture(t, decimal.NewFromInt(1_000_000))
	ctx := context.Background()

	req, err := f.engine.Create(ctx, validInput())
	require.NoError(t, err)
	require.Equal(t, int64(1), req.Version)

	req, err = f.engine.ApproveManagerStage(ctx, req.ID, manager, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), req.Version)

	req, err = f.engine.ApproveFinance(ctx, req.ID, finance, "", "BUD-3", "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), req.Version)
}

func TestThresholdReadAtApprovalTime(t *testing.T) {
	requestRepo := newMemRequestRepo()
	approvalRepo := &memApprovalRepo{}
	threshold := &mutableThreshold{value: decimal.NewFromInt(1_000_000)}
	engine := NewEngine(
		requestRepo,
		approvalRepo,
		noopTxManager{},
		threshold,
		stubDirectory{managers: map[string]bool{"mgr-1": true}},
	)
	ctx := context.Background()

	input := validInput()
	input.Amount = decimal.NewFromInt(450_000)
	req, err := engine.Create(ctx, input)
	require.NoError(t, err)

	// Lowering the threshold before approval changes the route
	threshold.value = decimal.NewFromInt(400_000)

	req, err = engine.ApproveManagerStage(ctx, req.ID, manager, "")
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusPendingProcurementReview.String(), req.Status)
}

type mutableThreshold struct {
	value decimal.Decimal
}

func (t *mutableThreshold) Threshold(ctx context.Context) (decimal.Decimal, error) {
	return t.value, nil
}
