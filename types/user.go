package types

import "time"

// User roles govern endpoint authorization.
const (
	RoleCitizen  = "citizen"
	RoleBusiness = "business"
	RoleAdmin    = "admin"
)

// ValidRole reports whether role is one of the known user roles.
func ValidRole(role string) bool {
	switch role {
	case RoleCitizen, RoleBusiness, RoleAdmin:
		return true
	}
	return false
}

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user, a random UUID rendered as text.
	ID string `json:"user_id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's email address, unique across all users.
	Email string `json:"email" db:"email"`

	// Role indicates the user's authorization level within the system:
	// "citizen", "business", or "admin". Immutable after creation.
	Role string `json:"role" db:"role"`

	// CompanyName is set for business accounts and identifies the company
	// the account registers phone numbers for.
	CompanyName string `json:"company_name,omitempty" db:"company_name"`

	// Points is the reward balance earned by submitting fraud reports.
	Points int `json:"points" db:"points"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// IsActive marks the account as active. Accounts are never hard-deleted.
	IsActive bool `json:"is_active" db:"is_active"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
