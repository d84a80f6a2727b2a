package roster

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a teacher or venue lookup misses.
	ErrNotFound = errors.New("not found")
	// ErrValidation wraps malformed input; callers get a descriptive message.
	ErrValidation = errors.New("validation failed")
)

// Teacher is a staff member eligible for venue duty. Permanent teachers carry
// INT- identifiers and never expire; temporary guests carry EXT- identifiers
// and are purged once their latest assignment ages out.
type Teacher struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Department string    `json:"department"`
	Gender     string    `json:"gender"`
	Phone      string    `json:"phone"`
	Email      string    `json:"email"`
	Temporary  bool      `json:"temporary"`
	CreatedAt  time.Time `json:"created_at"`
}

// Venue is a duty location. Name is immutable after creation; Required marks
// it for the current assignment round and StaffCount is its seat quota.
type Venue struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Required   bool   `json:"required"`
	StaffCount int    `json:"staff_count"`
}

// Store is the persistence surface for teachers and venues.
type Store interface {
	CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
	GetTeacherByIDEmail(ctx context.Context, id, email string) (Teacher, error)
	ListTeachers(ctx context.Context) ([]Teacher, error)
	BulkUpsertTeachers(ctx context.Context, teachers []Teacher) error

	CreateVenue(ctx context.Context, v Venue) (Venue, error)
	ListVenues(ctx context.Context) ([]Venue, error)
	ListRequiredVenues(ctx context.Context) ([]Venue, error)
	UpdateVenueStaffing(ctx context.Context, id int64, required bool, staffCount int) error
}

// NewTeacherID mints an identifier with an origin prefix and a short random
// token, e.g. INT-3fa2c1 or EXT-909b4d.
func NewTeacherID(temporary bool) string {
	u := uuid.New()
	token := hex.EncodeToString(u[:])[:6]
	if temporary {
		return "EXT-" + token
	}
	return "INT-" + token
}

// Validate checks the fields a registration or import row must carry.
func (t Teacher) Validate() error {
	switch {
	case strings.TrimSpace(t.Name) == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case strings.TrimSpace(t.Department) == "":
		return fmt.Errorf("%w: department is required", ErrValidation)
	case !strings.Contains(t.Email, "@"):
		return fmt.Errorf("%w: %q is not a valid email", ErrValidation, t.Email)
	}
	return nil
}

// DefaultVenueNames seeds a fresh install, matching the venues an event
// typically starts with.
var DefaultVenueNames = []string{
	"Hall A", "Hall B", "Hall C", "Lab 1", "Lab 2",
	"Auditorium", "Seminar Room", "Conference Room",
	"Library", "Sports Complex",
}

// SeedDefaultVenues creates the default venues when the venue table is empty.
func SeedDefaultVenues(ctx context.Context, s Store) error {
	existing, err := s.ListVenues(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, name := range DefaultVenueNames {
		if _, err := s.CreateVenue(ctx, Venue{Name: name, StaffCount: 1}); err != nil {
			return err
		}
	}
	return nil
}
