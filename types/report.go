package types

import "time"

// Report kinds describe the channel the suspected fraud arrived through.
const (
	ReportTypeCall   = "call"
	ReportTypeEmail  = "email"
	ReportTypeAIChat = "ai_chat"
)

// ValidReportType reports whether t is one of the known report kinds.
func ValidReportType(t string) bool {
	switch t {
	case ReportTypeCall, ReportTypeEmail, ReportTypeAIChat:
		return true
	}
	return false
}

// Report statuses. Reports transition to StatusAnalyzed at submission time;
// StatusVerified and StatusRejected are declared for moderation flows but no
// endpoint currently transitions into them.
const (
	StatusPending  = "pending"
	StatusAnalyzed = "analyzed"
	StatusVerified = "verified"
	StatusRejected = "rejected"
)

// Risk levels produced by the risk scorer.
const (
	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
)

// Report represents a fraud report submitted by a citizen. The embedded risk
// verdict is computed once at submission time and never mutated afterwards.
type Report struct {
	// ID is the unique identifier of the report, a random UUID rendered as text.
	ID string `json:"report_id" db:"id"`

	// UserID is the identifier of the citizen that submitted the report.
	UserID string `json:"user_id" db:"user_id"`

	// ReportType is the channel of the suspected fraud: "call", "email",
	// or "ai_chat".
	ReportType string `json:"report_type" db:"report_type"`

	// PhoneNumber is the suspicious phone number, if any.
	PhoneNumber string `json:"phone_number,omitempty" db:"phone_number"`

	// EmailAddress is the suspicious email address, if any.
	EmailAddress string `json:"email_address,omitempty" db:"email_address"`

	// Description is the reporter's free-text account of the incident.
	Description string `json:"description" db:"description"`

	// Screenshot holds an inline base64-encoded screenshot when no object
	// storage backend is configured. Empty once uploaded.
	Screenshot string `json:"screenshot,omitempty" db:"screenshot"`

	// ScreenshotKey is the object-storage key of the uploaded screenshot.
	ScreenshotKey string `json:"screenshot_key,omitempty" db:"screenshot_key"`

	// Status is the report lifecycle state.
	Status string `json:"status" db:"status"`

	// Analysis is the risk verdict attached at submission time.
	Analysis RiskVerdict `json:"ai_analysis" db:"analysis"`

	// CreatedAt is the timestamp at which the report was submitted.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the report.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// RiskVerdict is the structured output of the risk scorer.
type RiskVerdict struct {
	// RiskLevel is "LOW", "MEDIUM", or "HIGH".
	RiskLevel string `json:"risk_level"`

	// Recommendation is a human-readable advisory matching the risk level.
	Recommendation string `json:"recommendation"`

	// ConfidenceScore is an integer in [0, 100].
	ConfidenceScore int `json:"confidence_score"`

	// Reasons lists the explanations generated by each scoring rule that
	// fired, in rule evaluation order.
	Reasons []string `json:"reasons"`

	// PointsAwarded is credited to the submitting user's point balance.
	PointsAwarded int `json:"points_awarded"`

	// ScoreBreakdown attributes the raw risk score to rule categories.
	ScoreBreakdown ScoreBreakdown `json:"score_breakdown"`
}

// ScoreBreakdown attributes the raw risk score to the rule categories that
// produced it. Total is the sum of the other fields.
type ScoreBreakdown struct {
	Keywords int `json:"keywords"`
	Phone    int `json:"phone"`
	Email    int `json:"email"`
	Context  int `json:"context"`
	Total    int `json:"total"`
}
