package workflow

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/procurehub/purchase-workflow/internal/domain/entity"
	domainwf "github.com/procurehub/purchase-workflow/internal/domain/workflow"
)

// ThresholdPolicy resolves the monetary threshold above which procurement
// review is mandatory. Read on every routing decision; a later threshold
// change never re-routes requests already past manager approval.
type ThresholdPolicy interface {
	Threshold(ctx context.Context) (decimal.Decimal, error)
}

// ManagerDirectory resolves transition authorization. For the manager stage
// it compares the actor to the request's assigned approving manager; for
// later stages it compares the actor's role to the stage's required role.
type ManagerDirectory interface {
	IsAuthorized(ctx context.Context, actor entity.Actor, req *entity.PurchaseRequest, status domainwf.Status) (bool, error)
	Exists(ctx context.Context, managerID string) (bool, error)
}

// CreateRequestInput carries the fields a requester submits
type CreateRequestInput struct {
	RequesterID        string          `json:"requester_id"`
	RequesterName      string          `json:"requester_name"`
	RequesterEmail     string          `json:"requester_email"`
	Department         string          `json:"department"`
	Description        string          `json:"description"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	VendorName         string          `json:"vendor_name"`
	VendorBankDetails  string          `json:"vendor_bank_details"`
	Priority           entity.Priority `json:"priority"`
	ApprovingManagerID string          `json:"approving_manager_id"`
	DocumentRef        string          `json:"document_ref"`
	Notes              string          `json:"notes"`
}

// ConfirmPaymentInput carries the payment confirmation payload
type ConfirmPaymentInput struct {
	PaymentReference string `json:"payment_reference"`
	TransactionID    string `json:"transaction_id"`
	PaymentDate      string `json:"payment_date"`
	PaymentMethod    string `json:"payment_method"`
	Comments         string `json:"comments"`
}

// WorkflowEngine is the sole authority permitted to change a purchase
// request's status. Every method is one atomic transition: the status write
// and the audit row succeed or fail together, and the notification intent is
// dispatched only after commit, fire-and-forget.
type WorkflowEngine interface {
	// Create registers a new request in PENDING_APPROVAL
	Create(ctx context.Context, input CreateRequestInput) (*entity.PurchaseRequest, error)

	// Manager stage: only the assigned approving manager may act
	ApproveManagerStage(ctx context.Context, requestID string, actor entity.Actor, comments string) (*entity.PurchaseRequest, error)
	RejectManagerStage(ctx context.Context, requestID string, actor entity.Actor, comments string) (*entity.PurchaseRequest, error)

	// Procurement stage
	ApproveProcurement(ctx context.Context, requestID string, actor entity.Actor, comments, vendorVerificationStatus string) (*entity.PurchaseRequest, error)
	RejectProcurement(ctx context.Context, requestID string, actor entity.Actor, comments string) (*entity.PurchaseRequest, error)
	RequestAlternativeVendor(ctx context.Context, requestID string, actor entity.Actor, comments, alternativeVendor string) (*entity.PurchaseRequest, error)

	// Finance stage
	ApproveFinance(ctx context.Context, requestID string, actor entity.Actor, comments, budgetCode, paymentMethod string) (*entity.PurchaseRequest, error)
	RejectFinance(ctx context.Context, requestID string, actor entity.Actor, comments string) (*entity.PurchaseRequest, error)
	SubmitPaymentLetter(ctx context.Context, requestID string, actor entity.Actor, letterheadRef, documentTemplate string) (*entity.PurchaseRequest, error)
	ConfirmPayment(ctx context.Context, requestID string, actor entity.Actor, input ConfirmPaymentInput) (*entity.PurchaseRequest, error)

	// Delivery stage
	ConfirmDelivery(ctx context.Context, requestID string, actor entity.Actor, comments string) (*entity.PurchaseRequest, error)

	// Cancel is allowed from any non-terminal status for the requester or an admin
	Cancel(ctx context.Context, requestID string, actor entity.Actor, comments string) (*entity.PurchaseRequest, error)
}
