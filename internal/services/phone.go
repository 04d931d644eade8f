package services

import (
	"context"
	"errors"
	"strings"

	"github.com/check-vero/apiserver/internal/store"
	"github.com/check-vero/apiserver/types"
	"github.com/google/uuid"
)

// PhoneNumberRepository defines persistence operations for registered
// phone numbers.
type PhoneNumberRepository interface {
	Create(ctx context.Context, phone types.PhoneNumber) (types.PhoneNumber, error)
	GetByNumber(ctx context.Context, number string) (types.PhoneNumber, error)
	ListByOwner(ctx context.Context, ownerID string) ([]types.PhoneNumber, error)
	ListAll(ctx context.Context) ([]types.PhoneNumber, error)
	IncrementVerificationCount(ctx context.Context, id string) (int, error)
	Deactivate(ctx context.Context, id string) error
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	Count(ctx context.Context) (int, error)
}

// VerificationLogRepository defines the append-only verification log.
type VerificationLogRepository interface {
	Append(ctx context.Context, log types.VerificationLog) (types.VerificationLog, error)
	Count(ctx context.Context) (int, error)
	ListRecent(ctx context.Context, limit int) ([]types.VerificationLog, error)
}

// PhoneService encapsulates phone-number registry use-cases.
type PhoneService struct {
	phones PhoneNumberRepository
	logs   VerificationLogRepository
}

func NewPhoneService(phones PhoneNumberRepository, logs VerificationLogRepository) *PhoneService {
	return &PhoneService{phones: phones, logs: logs}
}

// RegisterPhoneInput carries a validated phone registration request.
type RegisterPhoneInput struct {
	Number       string
	CompanyName  string
	Description  string
	RegisteredBy string
}

// Register creates a verified, active phone-number record. Returns
// store.ErrConflict when the number is already registered and active.
func (s *PhoneService) Register(ctx context.Context, in RegisterPhoneInput) (types.PhoneNumber, error) {
	return s.phones.Create(ctx, types.PhoneNumber{
		ID:           uuid.NewString(),
		Number:       strings.TrimSpace(in.Number),
		CompanyName:  in.CompanyName,
		Description:  in.Description,
		RegisteredBy: in.RegisteredBy,
		Verified:     true,
		IsActive:     true,
	})
}

// VerificationResult is the outcome of a verification lookup.
type VerificationResult struct {
	Found bool
	Phone types.PhoneNumber
}

// Verify looks up a phone number, bumps its verification counter when
// registered, and appends exactly one log entry regardless of outcome.
func (s *PhoneService) Verify(ctx context.Context, number string) (VerificationResult, error) {
	number = strings.TrimSpace(number)

	phone, err := s.phones.GetByNumber(ctx, number)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return VerificationResult{}, err
		}
		// A miss is a legitimate "not verified" outcome, not an error.
		if _, err := s.appendLog(ctx, number, types.VerificationResultNotVerified); err != nil {
			return VerificationResult{}, err
		}
		return VerificationResult{Found: false}, nil
	}

	count, err := s.phones.IncrementVerificationCount(ctx, phone.ID)
	if err != nil {
		return VerificationResult{}, err
	}
	phone.VerificationCount = count

	if _, err := s.appendLog(ctx, number, types.VerificationResultVerified); err != nil {
		return VerificationResult{}, err
	}
	return VerificationResult{Found: true, Phone: phone}, nil
}

// ListForUser returns the caller's numbers; admins see every active number.
func (s *PhoneService) ListForUser(ctx context.Context, userID, role string) ([]types.PhoneNumber, error) {
	if role == types.RoleAdmin {
		return s.phones.ListAll(ctx)
	}
	return s.phones.ListByOwner(ctx, userID)
}

// Deactivate soft-deletes a phone-number record.
func (s *PhoneService) Deactivate(ctx context.Context, id string) error {
	return s.phones.Deactivate(ctx, id)
}

func (s *PhoneService) appendLog(ctx context.Context, number, result string) (types.VerificationLog, error) {
	return s.logs.Append(ctx, types.VerificationLog{
		ID:          uuid.NewString(),
		PhoneNumber: number,
		Result:      result,
	})
}

// SeedDemoNumbers registers a handful of well-known verified numbers for
// demo deployments. Existing registrations are left untouched.
func (s *PhoneService) SeedDemoNumbers(ctx context.Context) error {
	demo := []RegisterPhoneInput{
		{Number: "+31612345678", CompanyName: "Acme Bank", Description: "Customer Service Line", RegisteredBy: "system"},
		{Number: "+61298765432", CompanyName: "Gov Australia", Description: "Government Services", RegisteredBy: "system"},
		{Number: "+14155552020", CompanyName: "TechCorp Support", Description: "Technical Support Hotline", RegisteredBy: "system"},
		{Number: "+442071234567", CompanyName: "British Telecom", Description: "Customer Services", RegisteredBy: "system"},
	}
	for _, in := range demo {
		if _, err := s.Register(ctx, in); err != nil && !errors.Is(err, store.ErrConflict) {
			return err
		}
	}
	return nil
}
