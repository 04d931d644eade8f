package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/check-vero/apiserver/internal/store"
	"github.com/check-vero/apiserver/internal/store/memory"
	"github.com/check-vero/apiserver/types"
	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	channels []string
	payloads [][]byte
	err      error
}

func (p *capturingPublisher) Publish(_ context.Context, channel string, data []byte, _ map[string]string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.channels = append(p.channels, channel)
	p.payloads = append(p.payloads, data)
	return "msg-1", nil
}

func newReportFixture(t *testing.T, events EventPublisher) (*ReportService, *memory.Store, types.User) {
	t.Helper()
	mem := memory.New()
	svc := NewReportService(mem.Reports(), mem.Users(), nil, events, nil)

	user, err := mem.Users().Create(context.Background(), types.User{
		ID:       "u1",
		Username: "alice",
		Email:    "alice@example.com",
		Role:     types.RoleCitizen,
		IsActive: true,
	})
	require.NoError(t, err)
	return svc, mem, user
}

func TestReportServiceSubmitScoresAndAwardsPoints(t *testing.T) {
	ctx := context.Background()
	svc, mem, user := newReportFixture(t, nil)

	report, err := svc.Submit(ctx, SubmitReportInput{
		UserID:      user.ID,
		ReportType:  types.ReportTypeCall,
		PhoneNumber: "+1 800 555 0199",
		Description: "URGENT! verify account now or suspended, click here",
	})
	require.NoError(t, err)

	require.NotEmpty(t, report.ID)
	require.Equal(t, types.StatusAnalyzed, report.Status)
	require.Equal(t, types.RiskHigh, report.Analysis.RiskLevel)
	require.Equal(t, 30, report.Analysis.PointsAwarded)

	stored, err := mem.Reports().GetByID(ctx, report.ID)
	require.NoError(t, err)
	require.Equal(t, report.Analysis, stored.Analysis)

	updated, err := mem.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, 30, updated.Points)
}

func TestReportServiceSubmitLowRiskAwardsBasePoints(t *testing.T) {
	ctx := context.Background()
	svc, mem, user := newReportFixture(t, nil)

	report, err := svc.Submit(ctx, SubmitReportInput{
		UserID:      user.ID,
		ReportType:  types.ReportTypeEmail,
		Description: "The message just asked about an old order.",
	})
	require.NoError(t, err)
	require.Equal(t, types.RiskLow, report.Analysis.RiskLevel)

	updated, err := mem.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, 10, updated.Points)
}

func TestReportServiceSubmitPublishesEvent(t *testing.T) {
	ctx := context.Background()
	publisher := &capturingPublisher{}
	svc, _, user := newReportFixture(t, publisher)

	report, err := svc.Submit(ctx, SubmitReportInput{
		UserID:      user.ID,
		ReportType:  types.ReportTypeCall,
		Description: "They demanded a wire transfer right away.",
	})
	require.NoError(t, err)

	require.Equal(t, []string{ReportAnalyzedChannel}, publisher.channels)

	var event ReportAnalyzedEvent
	require.NoError(t, json.Unmarshal(publisher.payloads[0], &event))
	require.Equal(t, report.ID, event.ReportID)
	require.Equal(t, user.ID, event.UserID)
	require.Equal(t, report.Analysis.RiskLevel, event.RiskLevel)
	require.Equal(t, report.Analysis.ScoreBreakdown.Total, event.RiskScore)
}

func TestReportServiceSubmitSurvivesBrokerOutage(t *testing.T) {
	ctx := context.Background()
	publisher := &capturingPublisher{err: context.DeadlineExceeded}
	svc, _, user := newReportFixture(t, publisher)

	_, err := svc.Submit(ctx, SubmitReportInput{
		UserID:      user.ID,
		ReportType:  types.ReportTypeCall,
		Description: "They demanded a wire transfer right away.",
	})
	require.NoError(t, err)
}

type failingPointsRepo struct {
	UserRepository
}

func (failingPointsRepo) AddPoints(context.Context, string, int) error {
	return errors.New("credit failed")
}

func TestReportServiceSubmitKeepsReportWhenPointsCreditFails(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	svc := NewReportService(mem.Reports(), failingPointsRepo{mem.Users()}, nil, nil, nil)

	user, err := mem.Users().Create(ctx, types.User{
		ID: "u1", Username: "alice", Email: "alice@example.com", Role: types.RoleCitizen,
	})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, SubmitReportInput{
		UserID:      user.ID,
		ReportType:  types.ReportTypeCall,
		Description: "They demanded a wire transfer right away.",
	})
	require.Error(t, err)

	// The report outlives the failed credit; points stay at zero.
	reports, err := mem.Reports().ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, reports, 1)

	unchanged, err := mem.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Zero(t, unchanged.Points)
}

func TestReportServiceInlineScreenshot(t *testing.T) {
	ctx := context.Background()
	svc, _, user := newReportFixture(t, nil)

	raw := []byte("screenshot bytes")
	encoded := base64.StdEncoding.EncodeToString(raw)

	report, err := svc.Submit(ctx, SubmitReportInput{
		UserID:      user.ID,
		ReportType:  types.ReportTypeAIChat,
		Description: "The chat bot asked for my password twice.",
		Screenshot:  encoded,
	})
	require.NoError(t, err)
	require.Empty(t, report.ScreenshotKey)

	data, contentType, err := svc.Screenshot(ctx, report)
	require.NoError(t, err)
	require.Equal(t, raw, data)
	require.NotEmpty(t, contentType)
}

func TestReportServiceScreenshotMissing(t *testing.T) {
	ctx := context.Background()
	svc, _, user := newReportFixture(t, nil)

	report, err := svc.Submit(ctx, SubmitReportInput{
		UserID:      user.ID,
		ReportType:  types.ReportTypeCall,
		Description: "No screenshot was attached to this one.",
	})
	require.NoError(t, err)

	_, _, err = svc.Screenshot(ctx, report)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDecodeScreenshotAcceptsDataURL(t *testing.T) {
	raw := []byte{0x89, 0x50, 0x4e, 0x47}
	encoded := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)

	data, err := decodeScreenshot(encoded)
	require.NoError(t, err)
	require.Equal(t, raw, data)
}
