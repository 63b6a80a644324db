package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Priority of a purchase request
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// IsValid returns true if the priority is one of the defined constants
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// PurchaseRequest is the central entity of the approval workflow. Status is
// the single authoritative state field; the display stage is derived from it.
// Version is a monotonic counter used for optimistic-concurrency updates:
// every status change must name the version it read, and a stale write fails.
type PurchaseRequest struct {
	ID                 string          `json:"id"`
	Code               string          `json:"code"`
	RequesterID        string          `json:"requester_id"`
	RequesterName      string          `json:"requester_name"`
	RequesterEmail     string          `json:"requester_email"`
	Department         string          `json:"department"`
	Description        string          `json:"description"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	VendorName         string          `json:"vendor_name"`
	VendorBankDetails  string          `json:"vendor_bank_details"`
	Priority           Priority        `json:"priority"`
	ApprovingManagerID string          `json:"approving_manager_id"`
	Status             string          `json:"status"`
	DocumentRef        string          `json:"document_ref,omitempty"`
	Notes              string          `json:"notes,omitempty"`
	Version            int64           `json:"version"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
}
