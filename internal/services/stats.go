package services

import (
	"context"

	"github.com/check-vero/apiserver/types"
)

// StatsService assembles the role-shaped dashboard statistics.
type StatsService struct {
	users   UserRepository
	phones  PhoneNumberRepository
	reports ReportRepository
	logs    VerificationLogRepository
}

func NewStatsService(users UserRepository, phones PhoneNumberRepository, reports ReportRepository, logs VerificationLogRepository) *StatsService {
	return &StatsService{users: users, phones: phones, reports: reports, logs: logs}
}

const recentVerificationLimit = 10

// Dashboard returns statistics shaped for the caller's role.
func (s *StatsService) Dashboard(ctx context.Context, userID, role string) (map[string]any, error) {
	switch role {
	case types.RoleCitizen:
		return s.citizenStats(ctx, userID)
	case types.RoleBusiness:
		return s.businessStats(ctx, userID)
	case types.RoleAdmin:
		return s.adminStats(ctx)
	default:
		return map[string]any{}, nil
	}
}

func (s *StatsService) citizenStats(ctx context.Context, userID string) (map[string]any, error) {
	totalReports, err := s.reports.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	highRisk, err := s.reports.CountHighRisk(ctx, userID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"total_reports":     totalReports,
		"points_earned":     user.Points,
		"high_risk_reports": highRisk,
	}, nil
}

func (s *StatsService) businessStats(ctx context.Context, userID string) (map[string]any, error) {
	registered, err := s.phones.CountByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	owned, err := s.phones.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	checks := 0
	numbers := make([]string, 0, len(owned))
	for _, phone := range owned {
		checks += phone.VerificationCount
		numbers = append(numbers, phone.Number)
	}

	mentioning, err := s.reports.CountMentioningNumbers(ctx, numbers)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"registered_numbers":  registered,
		"verification_checks": checks,
		"reports_mentioning":  mentioning,
	}, nil
}

func (s *StatsService) adminStats(ctx context.Context) (map[string]any, error) {
	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalReports, err := s.reports.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalPhones, err := s.phones.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalVerifications, err := s.logs.Count(ctx)
	if err != nil {
		return nil, err
	}
	highRisk, err := s.reports.CountHighRisk(ctx, "")
	if err != nil {
		return nil, err
	}
	pending, err := s.reports.CountByStatus(ctx, types.StatusPending)
	if err != nil {
		return nil, err
	}
	recent, err := s.logs.ListRecent(ctx, recentVerificationLimit)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"total_users":          totalUsers,
		"total_reports":        totalReports,
		"total_phone_numbers":  totalPhones,
		"total_verifications":  totalVerifications,
		"high_risk_reports":    highRisk,
		"pending_reports":      pending,
		"recent_verifications": recent,
	}, nil
}
