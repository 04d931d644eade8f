package types

import "time"

// Verification lookup results.
const (
	VerificationResultVerified    = "verified"
	VerificationResultNotVerified = "not_verified"
)

// VerificationLog is an append-only record of a verification lookup,
// written regardless of outcome.
type VerificationLog struct {
	ID          string    `json:"log_id" db:"id"`
	PhoneNumber string    `json:"phone_number" db:"phone_number"`
	Result      string    `json:"result" db:"result"`
	CreatedAt   time.Time `json:"timestamp" db:"created_at"`
}
