package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/check-vero/apiserver/types"
)

// VerificationLogRepository handles the append-only log of verification
// lookups.
type VerificationLogRepository struct {
	db *sql.DB
}

func NewVerificationLogRepository(db *sql.DB) *VerificationLogRepository {
	return &VerificationLogRepository{db: db}
}

func (r *VerificationLogRepository) Append(ctx context.Context, log types.VerificationLog) (types.VerificationLog, error) {
	log.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO verification_logs (id, phone_number, result, created_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, log.ID, log.PhoneNumber, log.Result, log.CreatedAt)
	if err != nil {
		return types.VerificationLog{}, err
	}
	return log, nil
}

func (r *VerificationLogRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(1) FROM verification_logs`
	var total int
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// ListRecent returns the most recent log entries, newest first. A limit of
// zero or less returns all entries.
func (r *VerificationLogRepository) ListRecent(ctx context.Context, limit int) ([]types.VerificationLog, error) {
	query := `
		SELECT id, phone_number, result, created_at
		FROM verification_logs
		ORDER BY created_at DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+` LIMIT $1`, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]types.VerificationLog, 0)
	for rows.Next() {
		var log types.VerificationLog
		if err := rows.Scan(&log.ID, &log.PhoneNumber, &log.Result, &log.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}
