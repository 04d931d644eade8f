package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/check-vero/apiserver/types"
	"github.com/lib/pq"
)

// ReportRepository handles persistence for fraud reports. The risk verdict
// is stored as a JSON document alongside the report row.
type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, user_id, report_type, phone_number, email_address, description, screenshot, screenshot_key, status, analysis, created_at, updated_at`

func (r *ReportRepository) Create(ctx context.Context, report types.Report) (types.Report, error) {
	now := time.Now().UTC()
	report.CreatedAt = now
	report.UpdatedAt = now

	analysisJSON, err := json.Marshal(report.Analysis)
	if err != nil {
		return types.Report{}, err
	}

	const query = `
		INSERT INTO reports (id, user_id, report_type, phone_number, email_address, description, screenshot, screenshot_key, status, analysis, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = r.db.ExecContext(
		ctx,
		query,
		report.ID,
		report.UserID,
		report.ReportType,
		nullableString(report.PhoneNumber),
		nullableString(report.EmailAddress),
		report.Description,
		nullableString(report.Screenshot),
		nullableString(report.ScreenshotKey),
		report.Status,
		analysisJSON,
		report.CreatedAt,
		report.UpdatedAt,
	)
	if err != nil {
		return types.Report{}, err
	}
	return report, nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id string) (types.Report, error) {
	const query = `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE id = $1`
	report, err := scanReport(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Report{}, ErrNotFound
		}
		return types.Report{}, err
	}
	return report, nil
}

func (r *ReportRepository) ListByUser(ctx context.Context, userID string) ([]types.Report, error) {
	const query = `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE user_id = $1
		ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *ReportRepository) ListAll(ctx context.Context) ([]types.Report, error) {
	const query = `
		SELECT ` + reportColumns + `
		FROM reports
		ORDER BY created_at DESC`
	return r.list(ctx, query)
}

func (r *ReportRepository) Count(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(1) FROM reports`)
}

func (r *ReportRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	return r.count(ctx, `SELECT COUNT(1) FROM reports WHERE user_id = $1`, userID)
}

func (r *ReportRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	return r.count(ctx, `SELECT COUNT(1) FROM reports WHERE status = $1`, status)
}

// CountHighRisk counts reports whose verdict is HIGH; userID narrows the
// count to a single reporter when non-empty.
func (r *ReportRepository) CountHighRisk(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return r.count(ctx, `SELECT COUNT(1) FROM reports WHERE analysis->>'risk_level' = 'HIGH'`)
	}
	return r.count(ctx, `SELECT COUNT(1) FROM reports WHERE analysis->>'risk_level' = 'HIGH' AND user_id = $1`, userID)
}

// CountMentioningNumbers counts reports whose phone number is one of the
// given numbers.
func (r *ReportRepository) CountMentioningNumbers(ctx context.Context, numbers []string) (int, error) {
	if len(numbers) == 0 {
		return 0, nil
	}
	return r.count(ctx, `SELECT COUNT(1) FROM reports WHERE phone_number = ANY($1)`, pq.Array(numbers))
}

func (r *ReportRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *ReportRepository) list(ctx context.Context, query string, args ...any) ([]types.Report, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := make([]types.Report, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

func scanReport(row rowScanner) (types.Report, error) {
	var report types.Report
	var phoneNumber, emailAddress, screenshot, screenshotKey sql.NullString
	var analysisJSON []byte
	err := row.Scan(
		&report.ID,
		&report.UserID,
		&report.ReportType,
		&phoneNumber,
		&emailAddress,
		&report.Description,
		&screenshot,
		&screenshotKey,
		&report.Status,
		&analysisJSON,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		return types.Report{}, err
	}
	report.PhoneNumber = phoneNumber.String
	report.EmailAddress = emailAddress.String
	report.Screenshot = screenshot.String
	report.ScreenshotKey = screenshotKey.String
	if err := json.Unmarshal(analysisJSON, &report.Analysis); err != nil {
		return types.Report{}, err
	}
	return report, nil
}
