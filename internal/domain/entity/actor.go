package entity

// Role held by an actor invoking workflow operations
type Role string

const (
	RoleRequester   Role = "REQUESTER"
	RoleManager     Role = "MANAGER"
	RoleProcurement Role = "PROCUREMENT"
	RoleFinance     Role = "FINANCE"
	RoleOperations  Role = "OPERATIONS"
	RoleAdmin       Role = "ADMIN"
)

// IsValid returns true if the role is one of the defined constants
func (r Role) IsValid() bool {
	switch r {
	case RoleRequester, RoleManager, RoleProcurement, RoleFinance, RoleOperations, RoleAdmin:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// Actor is any identity invoking a transition. Authorization predicates
// match on (ID, Role) against the request and stage.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role Role   `json:"role"`
}
