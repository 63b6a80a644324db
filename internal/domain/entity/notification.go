package entity

import "time"

// Notification status constants
const (
	NotificationStatusPending = "PENDING"
	NotificationStatusSent    = "SENT"
	NotificationStatusFailed  = "FAILED"
)

// Notification is a queued notification intent recorded when a transition
// commits. Delivery is best-effort and retried by a background worker;
// it is never part of the transition's success criteria.
type Notification struct {
	ID         int64      `json:"id"`
	RequestID  string     `json:"request_id"`
	Event      string     `json:"event"`
	Recipients string     `json:"recipients"`
	Status     string     `json:"status"`
	ErrorMsg   string     `json:"error_msg,omitempty"`
	Attempts   int        `json:"attempts"`
	CreatedAt  time.Time  `json:"created_at"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
}
