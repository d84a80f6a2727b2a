package assignment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/assignment"
	"rollcall/internal/store/memstore"
)

func TestSweep_PurgesOnlyExpiredAssignments(t *testing.T) {
	ctx := context.Background()
	db := memstore.Open()
	addTeacher(t, db, "INT-sw1", "SW1", false)
	addTeacher(t, db, "INT-sw2", "SW2", false)
	v := addVenue(t, db, "Hall A", true, 2)

	now := time.Now().UTC()
	require.NoError(t, db.ReplaceAll(ctx, []assignment.Assignment{
		{TeacherID: "INT-sw1", VenueID: v.ID, Status: assignment.StatusAbsent, AssignedAt: now.Add(-4 * time.Hour)},
		{TeacherID: "INT-sw2", VenueID: v.ID, Status: assignment.StatusAbsent, AssignedAt: now},
	}))

	sweeper := assignment.NewSweeper(db, 3*time.Hour)
	require.NoError(t, sweeper.Sweep(ctx))

	records, err := db.List(ctx, assignment.Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "INT-sw2", records[0].TeacherID)
}

func TestSweep_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := memstore.Open()
	addTeacher(t, db, "INT-id1", "ID1", false)
	v := addVenue(t, db, "Hall A", true, 1)

	require.NoError(t, db.ReplaceAll(ctx, []assignment.Assignment{
		{TeacherID: "INT-id1", VenueID: v.ID, Status: assignment.StatusAbsent, AssignedAt: time.Now().UTC().Add(-4 * time.Hour)},
	}))

	sweeper := assignment.NewSweeper(db, 3*time.Hour)
	require.NoError(t, sweeper.Sweep(ctx))
	require.NoError(t, sweeper.Sweep(ctx), "second sweep with no new work must not fail")

	records, err := db.List(ctx, assignment.Filter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSweep_GuestExpiry(t *testing.T) {
	ctx := context.Background()
	db := memstore.Open()
	addTeacher(t, db, "EXT-old", "Old Guest", true)
	addTeacher(t, db, "EXT-new", "New Guest", true)
	addTeacher(t, db, "EXT-idle", "Idle Guest", true) // never assigned
	v := addVenue(t, db, "Hall A", true, 2)

	now := time.Now().UTC()
	require.NoError(t, db.ReplaceAll(ctx, []assignment.Assignment{
		{TeacherID: "EXT-old", VenueID: v.ID, Status: assignment.StatusAbsent, AssignedAt: now.Add(-4 * time.Hour)},
		{TeacherID: "EXT-new", VenueID: v.ID, Status: assignment.StatusAbsent, AssignedAt: now},
	}))

	sweeper := assignment.NewSweeper(db, 3*time.Hour)
	require.NoError(t, sweeper.Sweep(ctx))

	teachers, err := db.ListTeachers(ctx)
	require.NoError(t, err)
	var ids []string
	for _, teacher := range teachers {
		ids = append(ids, teacher.ID)
	}
	assert.ElementsMatch(t, []string{"EXT-new", "EXT-idle"}, ids,
		"expired guest goes, recent and never-assigned guests stay")

	records, err := db.List(ctx, assignment.Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "EXT-new", records[0].TeacherID, "expired guest's assignments cascade away")
}
