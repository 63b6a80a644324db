package entity

import "time"

// WorkflowApproval is one immutable audit row recording a single transition
// decision. The ordered rows for a request reconstruct its full history.
type WorkflowApproval struct {
	ID             int64     `json:"id"`
	RequestID      string    `json:"request_id"`
	Stage          string    `json:"stage"`
	ActorID        string    `json:"actor_id"`
	ActorRole      string    `json:"actor_role"`
	Action         string    `json:"action"`
	Comments       string    `json:"comments,omitempty"`
	Payload        string    `json:"payload,omitempty"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	CreatedAt      time.Time `json:"created_at"`
}
