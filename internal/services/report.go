package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/check-vero/apiserver/internal/risk"
	"github.com/check-vero/apiserver/internal/storage"
	"github.com/check-vero/apiserver/internal/store"
	"github.com/check-vero/apiserver/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReportRepository defines persistence operations for fraud reports.
type ReportRepository interface {
	Create(ctx context.Context, report types.Report) (types.Report, error)
	GetByID(ctx context.Context, id string) (types.Report, error)
	ListByUser(ctx context.Context, userID string) ([]types.Report, error)
	ListAll(ctx context.Context) ([]types.Report, error)
	Count(ctx context.Context) (int, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	CountByStatus(ctx context.Context, status string) (int, error)
	CountHighRisk(ctx context.Context, userID string) (int, error)
	CountMentioningNumbers(ctx context.Context, numbers []string) (int, error)
}

// EventPublisher publishes broker events. Implementations must be safe for
// concurrent use.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// ReportAnalyzedChannel carries an event for every successfully submitted
// and scored report.
const ReportAnalyzedChannel = "report-analyzed"

// ReportAnalyzedEvent is the payload published on ReportAnalyzedChannel.
type ReportAnalyzedEvent struct {
	ReportID      string `json:"report_id"`
	UserID        string `json:"user_id"`
	ReportType    string `json:"report_type"`
	RiskLevel     string `json:"risk_level"`
	RiskScore     int    `json:"risk_score"`
	PointsAwarded int    `json:"points_awarded"`
}

// ReportService encapsulates fraud-report use-cases: scoring, persistence,
// reporter rewards, screenshot storage, and event publication.
type ReportService struct {
	reports ReportRepository
	users   UserRepository
	objects *storage.Storage // nil: screenshots stored inline
	events  EventPublisher   // nil: events disabled
	logger  *zap.Logger
}

func NewReportService(reports ReportRepository, users UserRepository, objects *storage.Storage, events EventPublisher, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		reports: reports,
		users:   users,
		objects: objects,
		events:  events,
		logger:  logger,
	}
}

// SubmitReportInput carries a validated report submission.
type SubmitReportInput struct {
	UserID       string
	ReportType   string
	PhoneNumber  string
	EmailAddress string
	Description  string
	Screenshot   string // optional base64 image payload
}

// Submit scores the report, persists it with an "analyzed" status, credits
// the reporter's point balance by the verdict's points, and publishes a
// report-analyzed event when a broker is configured.
func (s *ReportService) Submit(ctx context.Context, in SubmitReportInput) (types.Report, error) {
	verdict := risk.Analyze(risk.Input{
		Description:  in.Description,
		PhoneNumber:  in.PhoneNumber,
		EmailAddress: in.EmailAddress,
	})

	report := types.Report{
		ID:           uuid.NewString(),
		UserID:       in.UserID,
		ReportType:   in.ReportType,
		PhoneNumber:  in.PhoneNumber,
		EmailAddress: in.EmailAddress,
		Description:  in.Description,
		Status:       types.StatusAnalyzed,
		Analysis:     verdict,
	}

	if in.Screenshot != "" {
		if err := s.storeScreenshot(ctx, &report, in.Screenshot); err != nil {
			return types.Report{}, err
		}
	}

	created, err := s.reports.Create(ctx, report)
	if err != nil {
		return types.Report{}, err
	}

	// The report is persisted before the points credit. A failed credit
	// surfaces as an error but does not roll the report back; the stored
	// verdict stays queryable.
	if err := s.users.AddPoints(ctx, in.UserID, verdict.PointsAwarded); err != nil {
		return types.Report{}, err
	}

	s.publishAnalyzed(ctx, created)
	return created, nil
}

func (s *ReportService) GetByID(ctx context.Context, id string) (types.Report, error) {
	return s.reports.GetByID(ctx, id)
}

func (s *ReportService) ListByUser(ctx context.Context, userID string) ([]types.Report, error) {
	return s.reports.ListByUser(ctx, userID)
}

func (s *ReportService) ListAll(ctx context.Context) ([]types.Report, error) {
	return s.reports.ListAll(ctx)
}

// Screenshot returns the stored screenshot bytes and content type for a
// report, from object storage or the inline fallback. Returns
// store.ErrNotFound when the report has no screenshot.
func (s *ReportService) Screenshot(ctx context.Context, report types.Report) ([]byte, string, error) {
	switch {
	case report.ScreenshotKey != "" && s.objects != nil:
		reader, err := s.objects.Get(ctx, report.ScreenshotKey)
		if err != nil {
			return nil, "", err
		}
		defer reader.Close()
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, "", err
		}
		return data, http.DetectContentType(data), nil
	case report.Screenshot != "":
		data, err := decodeScreenshot(report.Screenshot)
		if err != nil {
			return nil, "", err
		}
		return data, http.DetectContentType(data), nil
	default:
		return nil, "", store.ErrNotFound
	}
}

func (s *ReportService) storeScreenshot(ctx context.Context, report *types.Report, screenshot string) error {
	if s.objects == nil {
		report.Screenshot = screenshot
		return nil
	}

	data, err := decodeScreenshot(screenshot)
	if err != nil {
		return fmt.Errorf("decode screenshot: %w", err)
	}

	key := "reports/" + report.ID
	contentType := http.DetectContentType(data)
	if err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return fmt.Errorf("upload screenshot: %w", err)
	}
	report.ScreenshotKey = key
	return nil
}

func decodeScreenshot(encoded string) ([]byte, error) {
	// Accept both raw base64 and data URLs ("data:image/png;base64,...").
	if idx := strings.Index(encoded, ","); idx >= 0 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[idx+1:]
	}
	return base64.StdEncoding.DecodeString(encoded)
}

// publishAnalyzed emits the event best-effort; a broker outage never fails
// the submission.
func (s *ReportService) publishAnalyzed(ctx context.Context, report types.Report) {
	if s.events == nil {
		return
	}

	payload, err := json.Marshal(ReportAnalyzedEvent{
		ReportID:      report.ID,
		UserID:        report.UserID,
		ReportType:    report.ReportType,
		RiskLevel:     report.Analysis.RiskLevel,
		RiskScore:     report.Analysis.ScoreBreakdown.Total,
		PointsAwarded: report.Analysis.PointsAwarded,
	})
	if err != nil {
		s.logger.Error("marshal report-analyzed event", zap.Error(err))
		return
	}

	attrs := map[string]string{"risk_level": report.Analysis.RiskLevel}
	if _, err := s.events.Publish(ctx, ReportAnalyzedChannel, payload, attrs); err != nil {
		s.logger.Warn("publish report-analyzed event",
			zap.String("report_id", report.ID),
			zap.Error(err),
		)
	}
}
