package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Repository persists teachers and venues in Postgres.
type Repository struct {
	db *sql.DB
}

var _ Store = (*Repository)(nil)

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateTeacher inserts a teacher, minting an identifier when none is set.
func (r *Repository) CreateTeacher(ctx context.Context, t Teacher) (Teacher, error) {
	if t.ID == "" {
		t.ID = NewTeacherID(t.Temporary)
	}
	if t.Gender == "" {
		t.Gender = "Male"
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO teachers (id, name, department, gender, phone, email, temporary)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, t.ID, t.Name, t.Department, t.Gender, t.Phone, t.Email, t.Temporary)
	if err := row.Scan(&t.CreatedAt); err != nil {
		return Teacher{}, err
	}
	return t, nil
}

// GetTeacherByIDEmail resolves a teacher only when both identifier and email
// match exactly.
func (r *Repository) GetTeacherByIDEmail(ctx context.Context, id, email string) (Teacher, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, department, gender, phone, email, temporary, created_at
		FROM teachers WHERE id = $1 AND email = $2
	`, id, email)
	var t Teacher
	if err := row.Scan(&t.ID, &t.Name, &t.Department, &t.Gender, &t.Phone, &t.Email, &t.Temporary, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Teacher{}, ErrNotFound
		}
		return Teacher{}, err
	}
	return t, nil
}

// ListTeachers returns all teachers ordered by identifier.
func (r *Repository) ListTeachers(ctx context.Context) ([]Teacher, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, department, gender, phone, email, temporary, created_at
		FROM teachers
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teachers []Teacher
	for rows.Next() {
		var t Teacher
		if err := rows.Scan(&t.ID, &t.Name, &t.Department, &t.Gender, &t.Phone, &t.Email, &t.Temporary, &t.CreatedAt); err != nil {
			return nil, err
		}
		teachers = append(teachers, t)
	}
	return teachers, rows.Err()
}

// BulkUpsertTeachers upserts an imported batch inside one transaction so a
// bad row never leaves earlier rows half-committed.
func (r *Repository) BulkUpsertTeachers(ctx context.Context, teachers []Teacher) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range teachers {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO teachers (id, name, department, gender, phone, email, temporary)
			VALUES ($1,$2,$3,$4,$5,$6,FALSE)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				department = EXCLUDED.department,
				gender = EXCLUDED.gender,
				phone = EXCLUDED.phone,
				email = EXCLUDED.email
		`, t.ID, t.Name, t.Department, t.Gender, t.Phone, t.Email); err != nil {
			return fmt.Errorf("upsert teacher %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

// CreateVenue inserts a venue. Name uniqueness is enforced by the store.
func (r *Repository) CreateVenue(ctx context.Context, v Venue) (Venue, error) {
	if v.StaffCount < 1 {
		v.StaffCount = 1
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO venues (name, required, staff_count)
		VALUES ($1,$2,$3)
		RETURNING id
	`, v.Name, v.Required, v.StaffCount)
	if err := row.Scan(&v.ID); err != nil {
		return Venue{}, err
	}
	return v, nil
}

// ListVenues returns all venues ordered by name.
func (r *Repository) ListVenues(ctx context.Context) ([]Venue, error) {
	return r.queryVenues(ctx, `SELECT id, name, required, staff_count FROM venues ORDER BY name`)
}

// ListRequiredVenues returns the venues participating in the current round.
func (r *Repository) ListRequiredVenues(ctx context.Context) ([]Venue, error) {
	return r.queryVenues(ctx, `SELECT id, name, required, staff_count FROM venues WHERE required ORDER BY id`)
}

func (r *Repository) queryVenues(ctx context.Context, query string) ([]Venue, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var venues []Venue
	for rows.Next() {
		var v Venue
		if err := rows.Scan(&v.ID, &v.Name, &v.Required, &v.StaffCount); err != nil {
			return nil, err
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}

// UpdateVenueStaffing flips the required flag and quota. The name column is
// deliberately untouched.
func (r *Repository) UpdateVenueStaffing(ctx context.Context, id int64, required bool, staffCount int) error {
	if staffCount < 1 {
		return fmt.Errorf("%w: staff_count must be at least 1", ErrValidation)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE venues SET required = $2, staff_count = $3 WHERE id = $1
	`, id, required, staffCount)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
