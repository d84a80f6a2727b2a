// Package memstore holds the whole entity store in process memory. It backs
// tests and the STORE_BACKEND=memory dev mode, and implements the same store
// surfaces as the Postgres repositories.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"rollcall/internal/assignment"
	"rollcall/internal/checkin"
	"rollcall/internal/roster"
)

// DB is a map-backed entity store guarded by one RWMutex.
type DB struct {
	mu          sync.RWMutex
	teachers    map[string]roster.Teacher
	venues      map[int64]roster.Venue
	venueSeq    int64
	assignments map[int64]assignment.Assignment
	asgSeq      int64
	otps        map[string]checkin.OTPRecord
}

var (
	_ roster.Store     = (*DB)(nil)
	_ assignment.Store = (*DB)(nil)
	_ checkin.OTPStore = (*DB)(nil)
)

// Open creates an empty store.
func Open() *DB {
	return &DB{
		teachers:    make(map[string]roster.Teacher),
		venues:      make(map[int64]roster.Venue),
		assignments: make(map[int64]assignment.Assignment),
		otps:        make(map[string]checkin.OTPRecord),
	}
}

// --- roster.Store ---

func (d *DB) CreateTeacher(_ context.Context, t roster.Teacher) (roster.Teacher, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t.ID == "" {
		t.ID = roster.NewTeacherID(t.Temporary)
	}
	if t.Gender == "" {
		t.Gender = "Male"
	}
	if _, exists := d.teachers[t.ID]; exists {
		return roster.Teacher{}, fmt.Errorf("teacher %s already exists", t.ID)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	d.teachers[t.ID] = t
	return t, nil
}

func (d *DB) GetTeacherByIDEmail(_ context.Context, id, email string) (roster.Teacher, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	t, ok := d.teachers[id]
	if !ok || t.Email != email {
		return roster.Teacher{}, roster.ErrNotFound
	}
	return t, nil
}

func (d *DB) ListTeachers(_ context.Context) ([]roster.Teacher, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	teachers := make([]roster.Teacher, 0, len(d.teachers))
	for _, t := range d.teachers {
		teachers = append(teachers, t)
	}
	sort.Slice(teachers, func(i, j int) bool { return teachers[i].ID < teachers[j].ID })
	return teachers, nil
}

func (d *DB) BulkUpsertTeachers(_ context.Context, teachers []roster.Teacher) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, t := range teachers {
		if existing, ok := d.teachers[t.ID]; ok {
			t.Temporary = existing.Temporary
			t.CreatedAt = existing.CreatedAt
		} else if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
		d.teachers[t.ID] = t
	}
	return nil
}

func (d *DB) CreateVenue(_ context.Context, v roster.Venue) (roster.Venue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, existing := range d.venues {
		if existing.Name == v.Name {
			return roster.Venue{}, fmt.Errorf("venue %q already exists", v.Name)
		}
	}
	if v.StaffCount < 1 {
		v.StaffCount = 1
	}
	d.venueSeq++
	v.ID = d.venueSeq
	d.venues[v.ID] = v
	return v, nil
}

func (d *DB) ListVenues(_ context.Context) ([]roster.Venue, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	venues := make([]roster.Venue, 0, len(d.venues))
	for _, v := range d.venues {
		venues = append(venues, v)
	}
	sort.Slice(venues, func(i, j int) bool { return venues[i].Name < venues[j].Name })
	return venues, nil
}

func (d *DB) ListRequiredVenues(_ context.Context) ([]roster.Venue, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var venues []roster.Venue
	for _, v := range d.venues {
		if v.Required {
			venues = append(venues, v)
		}
	}
	sort.Slice(venues, func(i, j int) bool { return venues[i].ID < venues[j].ID })
	return venues, nil
}

func (d *DB) UpdateVenueStaffing(_ context.Context, id int64, required bool, staffCount int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := d.venues[id]
	if !ok {
		return roster.ErrNotFound
	}
	if staffCount < 1 {
		return fmt.Errorf("%w: staff_count must be at least 1", roster.ErrValidation)
	}
	v.Required = required
	v.StaffCount = staffCount
	d.venues[id] = v
	return nil
}

// --- assignment.Store ---

func (d *DB) ReplaceAll(_ context.Context, assignments []assignment.Assignment) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, a := range assignments {
		if _, ok := d.teachers[a.TeacherID]; !ok {
			return fmt.Errorf("unknown teacher %s", a.TeacherID)
		}
		if _, ok := d.venues[a.VenueID]; !ok {
			return fmt.Errorf("unknown venue %d", a.VenueID)
		}
	}

	d.assignments = make(map[int64]assignment.Assignment, len(assignments))
	for _, a := range assignments {
		d.asgSeq++
		a.ID = d.asgSeq
		d.assignments[a.ID] = a
	}
	return nil
}

func (d *DB) List(_ context.Context, f assignment.Filter) ([]assignment.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var records []assignment.Record
	for _, a := range d.assignments {
		t, ok := d.teachers[a.TeacherID]
		if !ok {
			continue
		}
		v, ok := d.venues[a.VenueID]
		if !ok {
			continue
		}
		if f.Venue != "" && v.Name != f.Venue {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		records = append(records, assignment.Record{
			ID:          a.ID,
			TeacherID:   a.TeacherID,
			TeacherName: t.Name,
			Department:  t.Department,
			VenueID:     a.VenueID,
			VenueName:   v.Name,
			Status:      a.Status,
			AssignedAt:  a.AssignedAt,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].VenueName != records[j].VenueName {
			return records[i].VenueName < records[j].VenueName
		}
		return records[i].TeacherID < records[j].TeacherID
	})
	return records, nil
}

func (d *DB) SetPresent(_ context.Context, presentIDs []int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	present := make(map[int64]struct{}, len(presentIDs))
	for _, id := range presentIDs {
		present[id] = struct{}{}
	}
	for id, a := range d.assignments {
		if _, ok := present[id]; ok {
			a.Status = assignment.StatusPresent
		} else {
			a.Status = assignment.StatusAbsent
		}
		d.assignments[id] = a
	}
	return nil
}

func (d *DB) MarkPresent(_ context.Context, teacherID string, venueID int64) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, a := range d.assignments {
		if a.TeacherID == teacherID && a.VenueID == venueID {
			a.Status = assignment.StatusPresent
			d.assignments[id] = a
			return true, nil
		}
	}
	return false, nil
}

func (d *DB) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var n int64
	for id, a := range d.assignments {
		if a.AssignedAt.Before(cutoff) {
			delete(d.assignments, id)
			n++
		}
	}
	return n, nil
}

func (d *DB) DeleteExpiredGuests(_ context.Context, cutoff time.Time) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var n int64
	for tid, t := range d.teachers {
		if !t.Temporary {
			continue
		}
		assigned, latest := d.latestAssignment(tid)
		if !assigned || !latest.Before(cutoff) {
			continue
		}
		delete(d.teachers, tid)
		for id, a := range d.assignments {
			if a.TeacherID == tid {
				delete(d.assignments, id)
			}
		}
		n++
	}
	return n, nil
}

func (d *DB) latestAssignment(teacherID string) (bool, time.Time) {
	var found bool
	var latest time.Time
	for _, a := range d.assignments {
		if a.TeacherID != teacherID {
			continue
		}
		if !found || a.AssignedAt.After(latest) {
			latest = a.AssignedAt
		}
		found = true
	}
	return found, latest
}

// --- checkin.OTPStore ---

func (d *DB) UpsertOTP(_ context.Context, rec checkin.OTPRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.otps[rec.Email] = rec
	return nil
}

func (d *DB) GetOTP(_ context.Context, email string) (checkin.OTPRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.otps[email]
	if !ok {
		return checkin.OTPRecord{}, checkin.ErrNotFound
	}
	return rec, nil
}

func (d *DB) DeleteOTP(_ context.Context, email string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.otps, email)
	return nil
}
