package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/check-vero/apiserver/types"
)

// PhoneNumberRepository handles persistence for registered phone numbers.
type PhoneNumberRepository struct {
	db *sql.DB
}

func NewPhoneNumberRepository(db *sql.DB) *PhoneNumberRepository {
	return &PhoneNumberRepository{db: db}
}

const phoneColumns = `id, phone_number, company_name, description, registered_by, verified, verification_count, is_active, last_verified, created_at`

func (r *PhoneNumberRepository) Create(ctx context.Context, phone types.PhoneNumber) (types.PhoneNumber, error) {
	phone.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO phone_numbers (id, phone_number, company_name, description, registered_by, verified, verification_count, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		phone.ID,
		phone.Number,
		phone.CompanyName,
		phone.Description,
		phone.RegisteredBy,
		phone.Verified,
		phone.VerificationCount,
		phone.IsActive,
		phone.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.PhoneNumber{}, ErrConflict
		}
		return types.PhoneNumber{}, err
	}
	return phone, nil
}

// GetByNumber returns the active record for the given phone number string.
func (r *PhoneNumberRepository) GetByNumber(ctx context.Context, number string) (types.PhoneNumber, error) {
	const query = `
		SELECT ` + phoneColumns + `
		FROM phone_numbers
		WHERE phone_number = $1 AND is_active`
	return r.scanOne(r.db.QueryRowContext(ctx, query, number))
}

func (r *PhoneNumberRepository) ListByOwner(ctx context.Context, ownerID string) ([]types.PhoneNumber, error) {
	const query = `
		SELECT ` + phoneColumns + `
		FROM phone_numbers
		WHERE registered_by = $1 AND is_active
		ORDER BY created_at DESC`
	return r.list(ctx, query, ownerID)
}

func (r *PhoneNumberRepository) ListAll(ctx context.Context) ([]types.PhoneNumber, error) {
	const query = `
		SELECT ` + phoneColumns + `
		FROM phone_numbers
		WHERE is_active
		ORDER BY created_at DESC`
	return r.list(ctx, query)
}

// IncrementVerificationCount bumps the counter atomically and returns the
// new count.
func (r *PhoneNumberRepository) IncrementVerificationCount(ctx context.Context, id string) (int, error) {
	const query = `
		UPDATE phone_numbers
		SET verification_count = verification_count + 1,
			last_verified = $1
		WHERE id = $2
		RETURNING verification_count`
	var count int
	err := r.db.QueryRowContext(ctx, query, time.Now().UTC(), id).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return count, nil
}

// Deactivate soft-deletes the record; the number becomes available for
// re-registration and disappears from lookups and listings.
func (r *PhoneNumberRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE phone_numbers SET is_active = FALSE WHERE id = $1 AND is_active`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PhoneNumberRepository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	const query = `SELECT COUNT(1) FROM phone_numbers WHERE registered_by = $1 AND is_active`
	var total int
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *PhoneNumberRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(1) FROM phone_numbers WHERE is_active`
	var total int
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *PhoneNumberRepository) list(ctx context.Context, query string, args ...any) ([]types.PhoneNumber, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	phones := make([]types.PhoneNumber, 0)
	for rows.Next() {
		phone, err := scanPhone(rows)
		if err != nil {
			return nil, err
		}
		phones = append(phones, phone)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return phones, nil
}

func (r *PhoneNumberRepository) scanOne(row *sql.Row) (types.PhoneNumber, error) {
	phone, err := scanPhone(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.PhoneNumber{}, ErrNotFound
		}
		return types.PhoneNumber{}, err
	}
	return phone, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPhone(row rowScanner) (types.PhoneNumber, error) {
	var phone types.PhoneNumber
	var lastVerified sql.NullTime
	err := row.Scan(
		&phone.ID,
		&phone.Number,
		&phone.CompanyName,
		&phone.Description,
		&phone.RegisteredBy,
		&phone.Verified,
		&phone.VerificationCount,
		&phone.IsActive,
		&lastVerified,
		&phone.CreatedAt,
	)
	if err != nil {
		return types.PhoneNumber{}, err
	}
	if lastVerified.Valid {
		t := lastVerified.Time
		phone.LastVerified = &t
	}
	return phone, nil
}
