package assignment

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Repository persists assignments in Postgres.
type Repository struct {
	db *sql.DB
}

var _ Store = (*Repository)(nil)

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ReplaceAll swaps the whole assignment set inside one transaction.
func (r *Repository) ReplaceAll(ctx context.Context, assignments []Assignment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM assignments`); err != nil {
		return err
	}
	for _, a := range assignments {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO assignments (teacher_id, venue_id, status, assigned_at)
			VALUES ($1,$2,$3,$4)
		`, a.TeacherID, a.VenueID, a.Status, a.AssignedAt); err != nil {
			return fmt.Errorf("insert assignment %s/%d: %w", a.TeacherID, a.VenueID, err)
		}
	}
	return tx.Commit()
}

// List returns joined assignment records with optional venue and status
// filters.
func (r *Repository) List(ctx context.Context, f Filter) ([]Record, error) {
	query := `
		SELECT a.id, a.teacher_id, t.name, t.department, a.venue_id, v.name, a.status, a.assigned_at
		FROM assignments a
		JOIN teachers t ON t.id = a.teacher_id
		JOIN venues v ON v.id = a.venue_id`
	var clauses []string
	var args []any
	if f.Venue != "" {
		args = append(args, f.Venue)
		clauses = append(clauses, fmt.Sprintf("v.name = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		clauses = append(clauses, fmt.Sprintf("a.status = $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY v.name, a.teacher_id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.TeacherID, &rec.TeacherName, &rec.Department,
			&rec.VenueID, &rec.VenueName, &rec.Status, &rec.AssignedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SetPresent applies a full manual attendance save: listed ids go Present,
// everything else goes Absent.
func (r *Repository) SetPresent(ctx context.Context, presentIDs []int64) error {
	if presentIDs == nil {
		presentIDs = []int64{}
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE assignments
		SET status = CASE WHEN id = ANY($1) THEN 'Present' ELSE 'Absent' END
	`, presentIDs)
	return err
}

// MarkPresent flips a single pair to Present; false means the assignment no
// longer exists.
func (r *Repository) MarkPresent(ctx context.Context, teacherID string, venueID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE assignments SET status = 'Present'
		WHERE teacher_id = $1 AND venue_id = $2
	`, teacherID, venueID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteOlderThan purges assignments created before the cutoff.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE assigned_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpiredGuests removes temporary teachers whose latest assignment
// predates the cutoff. Their assignments go with them via cascade.
func (r *Repository) DeleteExpiredGuests(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM teachers t
		WHERE t.temporary
		  AND EXISTS (SELECT 1 FROM assignments a WHERE a.teacher_id = t.id)
		  AND NOT EXISTS (
			SELECT 1 FROM assignments a
			WHERE a.teacher_id = t.id AND a.assigned_at >= $1
		  )
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
