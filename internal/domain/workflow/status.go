package workflow

// Status represents the authoritative state of a purchase request in the
// approval lifecycle
type Status string

const (
	StatusPendingApproval              Status = "PENDING_APPROVAL"
	StatusPendingProcurementReview     Status = "PENDING_PROCUREMENT_REVIEW"
	StatusPendingFinanceApproval       Status = "PENDING_FINANCE_APPROVAL"
	StatusPaymentInProgress            Status = "PAYMENT_IN_PROGRESS"
	StatusAwaitingPaymentConfirmation  Status = "AWAITING_PAYMENT_CONFIRMATION"
	StatusAwaitingDeliveryConfirmation Status = "AWAITING_DELIVERY_CONFIRMATION"
	StatusCompleted                    Status = "COMPLETED"
	StatusRejected                     Status = "REJECTED"
	StatusCancelled                    Status = "CANCELLED"
)

var validStatuses = map[Status]bool{
	StatusPendingApproval:              true,
	StatusPendingProcurementReview:     true,
	StatusPendingFinanceApproval:       true,
	StatusPaymentInProgress:            true,
	StatusAwaitingPaymentConfirmation:  true,
	StatusAwaitingDeliveryConfirmation: true,
	StatusCompleted:                    true,
	StatusRejected:                     true,
	StatusCancelled:                    true,
}

var terminalStatuses = map[Status]bool{
	StatusCompleted: true,
	StatusRejected:  true,
	StatusCancelled: true,
}

// IsTerminal returns true if the status is terminal (no further transitions allowed)
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is a valid workflow status
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// Stage is the coarse workflow phase presented to users. It is always
// derived from Status, never stored independently.
type Stage string

const (
	StageApproval    Stage = "APPROVAL"
	StageProcurement Stage = "PROCUREMENT"
	StageFinance     Stage = "FINANCE"
	StagePayment     Stage = "PAYMENT"
	StageDelivery    Stage = "DELIVERY"
	StageClosed      Stage = "CLOSED"
)

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}

// StageOf maps a status to its display stage
func StageOf(status Status) Stage {
	switch status {
	case StatusPendingApproval:
		return StageApproval
	case StatusPendingProcurementReview:
		return StageProcurement
	case StatusPendingFinanceApproval:
		return StageFinance
	case StatusPaymentInProgress, StatusAwaitingPaymentConfirmation:
		return StagePayment
	case StatusAwaitingDeliveryConfirmation:
		return StageDelivery
	default:
		return StageClosed
	}
}
