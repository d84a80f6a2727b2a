package assignment_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/assignment"
	"rollcall/internal/roster"
	"rollcall/internal/store/memstore"
)

func newEngine(t *testing.T, db *memstore.DB, seed int64) *assignment.Engine {
	t.Helper()
	sweeper := assignment.NewSweeper(db, 3*time.Hour)
	return assignment.NewEngine(db, db, sweeper, rand.New(rand.NewSource(seed)))
}

func addTeacher(t *testing.T, db *memstore.DB, id, name string, temporary bool) roster.Teacher {
	t.Helper()
	teacher, err := db.CreateTeacher(context.Background(), roster.Teacher{
		ID:         id,
		Name:       name,
		Department: "Physics",
		Email:      id + "@example.com",
		Temporary:  temporary,
	})
	require.NoError(t, err)
	return teacher
}

func addVenue(t *testing.T, db *memstore.DB, name string, required bool, staff int) roster.Venue {
	t.Helper()
	v, err := db.CreateVenue(context.Background(), roster.Venue{Name: name, Required: required, StaffCount: staff})
	require.NoError(t, err)
	return v
}

func placedTeachers(t *testing.T, db *memstore.DB) map[string]struct{} {
	t.Helper()
	records, err := db.List(context.Background(), assignment.Filter{})
	require.NoError(t, err)
	placed := make(map[string]struct{}, len(records))
	for _, rec := range records {
		placed[rec.TeacherID] = struct{}{}
	}
	return placed
}

func TestReassignAll_FillsEveryRequiredVenueQuota(t *testing.T) {
	db := memstore.Open()
	for _, id := range []string{"INT-a1", "INT-a2", "INT-a3", "INT-a4", "INT-a5"} {
		addTeacher(t, db, id, "Teacher "+id, false)
	}
	hallA := addVenue(t, db, "Hall A", true, 2)
	lab := addVenue(t, db, "Lab 1", true, 3)
	addVenue(t, db, "Library", false, 4) // not required, must stay empty

	engine := newEngine(t, db, 1)
	require.NoError(t, engine.ReassignAll(context.Background()))

	records, err := db.List(context.Background(), assignment.Filter{})
	require.NoError(t, err)
	assert.Len(t, records, 5)

	byVenue := make(map[int64]int)
	for _, rec := range records {
		byVenue[rec.VenueID]++
		assert.Equal(t, assignment.StatusAbsent, rec.Status)
	}
	assert.Equal(t, 2, byVenue[hallA.ID])
	assert.Equal(t, 3, byVenue[lab.ID])
}

func TestReassignAll_PairUniqueness(t *testing.T) {
	db := memstore.Open()
	for _, id := range []string{"INT-b1", "INT-b2", "INT-b3"} {
		addTeacher(t, db, id, id, false)
	}
	addVenue(t, db, "Hall A", true, 3)
	addVenue(t, db, "Hall B", true, 3)

	engine := newEngine(t, db, 7)
	require.NoError(t, engine.ReassignAll(context.Background()))

	records, err := db.List(context.Background(), assignment.Filter{})
	require.NoError(t, err)
	seen := make(map[[2]string]bool)
	for _, rec := range records {
		key := [2]string{rec.TeacherID, rec.VenueName}
		assert.False(t, seen[key], "duplicate pair %v", key)
		seen[key] = true
	}
}

func TestReassignAll_GuestsPlacedFirst(t *testing.T) {
	db := memstore.Open()
	addTeacher(t, db, "INT-t1", "T1", false)
	addTeacher(t, db, "INT-t2", "T2", false)
	addTeacher(t, db, "INT-t3", "T3", false)
	addTeacher(t, db, "EXT-e1", "E1", true)
	addVenue(t, db, "Hall A", true, 2)

	// Any seed must include the guest: guests head the candidate list.
	for seed := int64(1); seed <= 5; seed++ {
		engine := newEngine(t, db, seed)
		require.NoError(t, engine.ReassignAll(context.Background()))

		placed := placedTeachers(t, db)
		assert.Len(t, placed, 2)
		assert.Contains(t, placed, "EXT-e1", "seed %d", seed)
	}
}

func TestReassignAll_RotatesAwayFromPreviousRound(t *testing.T) {
	db := memstore.Open()
	ids := []string{"INT-r1", "INT-r2", "INT-r3", "INT-r4"}
	for _, id := range ids {
		addTeacher(t, db, id, id, false)
	}
	addVenue(t, db, "Hall A", true, 2)

	engine := newEngine(t, db, 42)

	require.NoError(t, engine.ReassignAll(context.Background()))
	round1 := placedTeachers(t, db)
	require.Len(t, round1, 2)

	require.NoError(t, engine.ReassignAll(context.Background()))
	round2 := placedTeachers(t, db)
	require.Len(t, round2, 2)

	// While never-used teachers remain, round N teachers sit out round N+1.
	for id := range round1 {
		assert.NotContains(t, round2, id)
	}

	require.NoError(t, engine.ReassignAll(context.Background()))
	round3 := placedTeachers(t, db)
	for id := range round3 {
		assert.Contains(t, round1, id, "round N teachers are eligible again in round N+2")
	}
}

func TestReassignAll_UnderStaffingIsSilent(t *testing.T) {
	db := memstore.Open()
	addTeacher(t, db, "INT-u1", "U1", false)
	addVenue(t, db, "Hall A", true, 3)
	addVenue(t, db, "Hall B", true, 2)

	engine := newEngine(t, db, 3)
	require.NoError(t, engine.ReassignAll(context.Background()))

	records, err := db.List(context.Background(), assignment.Filter{})
	require.NoError(t, err)
	assert.Len(t, records, 1, "one teacher can fill only one seat")
}

func TestReassignAll_NoTeachersOrNoVenuesIsNoOp(t *testing.T) {
	ctx := context.Background()

	db := memstore.Open()
	addVenue(t, db, "Hall A", true, 2)
	require.NoError(t, newEngine(t, db, 1).ReassignAll(ctx))
	records, err := db.List(ctx, assignment.Filter{})
	require.NoError(t, err)
	assert.Empty(t, records)

	db = memstore.Open()
	addTeacher(t, db, "INT-n1", "N1", false)
	addVenue(t, db, "Hall A", false, 2)
	require.NoError(t, newEngine(t, db, 1).ReassignAll(ctx))
	records, err = db.List(ctx, assignment.Filter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReassignAll_SameSeedSameDraw(t *testing.T) {
	build := func() *memstore.DB {
		db := memstore.Open()
		for _, id := range []string{"INT-s1", "INT-s2", "INT-s3", "INT-s4", "EXT-s5"} {
			addTeacher(t, db, id, id, id == "EXT-s5")
		}
		addVenue(t, db, "Hall A", true, 2)
		addVenue(t, db, "Hall B", true, 2)
		return db
	}

	dbA, dbB := build(), build()
	require.NoError(t, newEngine(t, dbA, 99).ReassignAll(context.Background()))
	require.NoError(t, newEngine(t, dbB, 99).ReassignAll(context.Background()))

	recsA, err := dbA.List(context.Background(), assignment.Filter{})
	require.NoError(t, err)
	recsB, err := dbB.List(context.Background(), assignment.Filter{})
	require.NoError(t, err)

	require.Equal(t, len(recsA), len(recsB))
	for i := range recsA {
		assert.Equal(t, recsA[i].TeacherID, recsB[i].TeacherID)
		assert.Equal(t, recsA[i].VenueName, recsB[i].VenueName)
	}
}

// failingStore rejects the replace step to simulate a transaction aborting.
type failingStore struct {
	assignment.Store
	fail bool
}

func (f *failingStore) ReplaceAll(ctx context.Context, assignments []assignment.Assignment) error {
	if f.fail {
		return errors.New("transaction aborted")
	}
	return f.Store.ReplaceAll(ctx, assignments)
}

func TestReassignAll_FailedReplaceKeepsPriorRoundAndMemory(t *testing.T) {
	db := memstore.Open()
	for _, id := range []string{"INT-f1", "INT-f2", "INT-f3", "INT-f4"} {
		addTeacher(t, db, id, id, false)
	}
	addVenue(t, db, "Hall A", true, 2)

	wrapped := &failingStore{Store: db}
	sweeper := assignment.NewSweeper(wrapped, 3*time.Hour)
	engine := assignment.NewEngine(wrapped, db, sweeper, rand.New(rand.NewSource(5)))

	require.NoError(t, engine.ReassignAll(context.Background()))
	before := placedTeachers(t, db)
	require.Len(t, before, 2)

	wrapped.fail = true
	require.Error(t, engine.ReassignAll(context.Background()))

	assert.Equal(t, before, placedTeachers(t, db), "prior round must survive a failed replace")
	for id := range before {
		assert.True(t, engine.LastPlaced(id), "rotation memory must not advance on failure")
	}
}
