package store

import "context"

// Statements are idempotent so startup can run them on every boot.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS teachers (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		department  TEXT NOT NULL,
		gender      TEXT NOT NULL DEFAULT 'Male',
		phone       TEXT NOT NULL DEFAULT '',
		email       TEXT NOT NULL DEFAULT '',
		temporary   BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS venues (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL UNIQUE,
		required    BOOLEAN NOT NULL DEFAULT FALSE,
		staff_count INT NOT NULL DEFAULT 1 CHECK (staff_count >= 1)
	)`,
	`CREATE TABLE IF NOT EXISTS assignments (
		id          BIGSERIAL PRIMARY KEY,
		teacher_id  TEXT NOT NULL REFERENCES teachers(id) ON DELETE CASCADE,
		venue_id    BIGINT NOT NULL REFERENCES venues(id) ON DELETE CASCADE,
		status      TEXT NOT NULL DEFAULT 'Absent',
		assigned_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (teacher_id, venue_id)
	)`,
	`CREATE TABLE IF NOT EXISTS otp_records (
		email     TEXT PRIMARY KEY,
		code      TEXT NOT NULL,
		issued_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the tables when they do not exist yet.
func (d *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
