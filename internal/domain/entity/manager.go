package entity

import "time"

// ManagerAssignment maps a manager identity to approval eligibility.
// Read-only from the workflow engine's perspective; mutated through the
// directory admin API.
type ManagerAssignment struct {
	ManagerID  string    `json:"manager_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
