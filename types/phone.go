package types

import "time"

// PhoneNumber represents a phone number registered by a business for
// verification lookups.
type PhoneNumber struct {
	// ID is the unique identifier of the record, a random UUID rendered as text.
	ID string `json:"phone_id" db:"id"`

	// Number is the phone number string, unique among active records.
	Number string `json:"phone_number" db:"phone_number"`

	// CompanyName is the business the number belongs to.
	CompanyName string `json:"company_name" db:"company_name"`

	// Description is an optional free-text note, e.g. "Customer Service Line".
	Description string `json:"description,omitempty" db:"description"`

	// RegisteredBy is the identifier of the user that registered the number.
	RegisteredBy string `json:"registered_by" db:"registered_by"`

	// Verified marks the number as verified. Set on registration.
	Verified bool `json:"verified" db:"verified"`

	// VerificationCount is the number of successful lookups against this
	// number. Monotonically non-decreasing.
	VerificationCount int `json:"verification_count" db:"verification_count"`

	// IsActive marks the record as active. Inactive numbers are excluded
	// from lookups and listings; records are never hard-deleted.
	IsActive bool `json:"is_active" db:"is_active"`

	// LastVerified is the timestamp of the most recent successful lookup.
	LastVerified *time.Time `json:"last_verified,omitempty" db:"last_verified"`

	// CreatedAt is the timestamp at which the number was registered.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
