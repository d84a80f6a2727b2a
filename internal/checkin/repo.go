package checkin

import (
	"context"
	"database/sql"
	"errors"
)

// Repository persists pending OTP records in Postgres.
type Repository struct {
	db *sql.DB
}

var _ OTPStore = (*Repository)(nil)

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// UpsertOTP overwrites any pending code for the email.
func (r *Repository) UpsertOTP(ctx context.Context, rec OTPRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO otp_records (email, code, issued_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (email) DO UPDATE SET
			code = EXCLUDED.code,
			issued_at = EXCLUDED.issued_at
	`, rec.Email, rec.Code, rec.IssuedAt)
	return err
}

// GetOTP loads the pending record for an email.
func (r *Repository) GetOTP(ctx context.Context, email string) (OTPRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT email, code, issued_at FROM otp_records WHERE email = $1
	`, email)
	var rec OTPRecord
	if err := row.Scan(&rec.Email, &rec.Code, &rec.IssuedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return OTPRecord{}, ErrNotFound
		}
		return OTPRecord{}, err
	}
	return rec, nil
}

// DeleteOTP consumes the record after a successful verification.
func (r *Repository) DeleteOTP(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM otp_records WHERE email = $1`, email)
	return err
}
