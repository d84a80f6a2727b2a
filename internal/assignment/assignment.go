package assignment

import (
	"context"
	"time"
)

// Status is the attendance state of one assignment.
type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
)

// Assignment pairs one teacher with one venue for the current round. A given
// pair exists at most once at any instant.
type Assignment struct {
	ID         int64     `json:"id"`
	TeacherID  string    `json:"teacher_id"`
	VenueID    int64     `json:"venue_id"`
	Status     Status    `json:"status"`
	AssignedAt time.Time `json:"assigned_at"`
}

// Record is an assignment joined with its teacher and venue for listings and
// exports.
type Record struct {
	ID          int64     `json:"id"`
	TeacherID   string    `json:"teacher_id"`
	TeacherName string    `json:"teacher_name"`
	Department  string    `json:"department"`
	VenueID     int64     `json:"venue_id"`
	VenueName   string    `json:"venue_name"`
	Status      Status    `json:"status"`
	AssignedAt  time.Time `json:"assigned_at"`
}

// Filter narrows a listing; zero values mean "all".
type Filter struct {
	Venue  string
	Status Status
}

// Store is the persistence surface for assignments.
type Store interface {
	// ReplaceAll deletes every assignment and writes the new round in a
	// single transaction; a failure leaves the prior round intact.
	ReplaceAll(ctx context.Context, assignments []Assignment) error
	List(ctx context.Context, f Filter) ([]Record, error)
	// SetPresent marks the listed assignments Present and every other
	// assignment Absent, mirroring a full manual attendance sheet save.
	SetPresent(ctx context.Context, presentIDs []int64) error
	// MarkPresent flips one (teacher, venue) pair to Present. Reports false
	// when no such assignment exists, including one deleted mid-flight by a
	// concurrent reassignment.
	MarkPresent(ctx context.Context, teacherID string, venueID int64) (bool, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	// DeleteExpiredGuests removes temporary teachers whose most recent
	// assignment predates the cutoff. Guests who were never assigned stay.
	DeleteExpiredGuests(ctx context.Context, cutoff time.Time) (int64, error)
}

// Counts summarizes attendance over a filtered listing.
type Counts struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	All     int `json:"all"`
}

// Count tallies a listing the way the assignment overview reports it.
func Count(records []Record) Counts {
	var c Counts
	for _, rec := range records {
		switch rec.Status {
		case StatusPresent:
			c.Present++
		case StatusAbsent:
			c.Absent++
		}
	}
	c.All = len(records)
	return c
}
