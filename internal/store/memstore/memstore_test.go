package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/roster"
)

func TestVenueNameUniqueness(t *testing.T) {
	db := Open()
	ctx := context.Background()

	_, err := db.CreateVenue(ctx, roster.Venue{Name: "Hall A", StaffCount: 2})
	require.NoError(t, err)
	_, err = db.CreateVenue(ctx, roster.Venue{Name: "Hall A", StaffCount: 1})
	assert.Error(t, err)
}

func TestUpdateVenueStaffingLeavesNameAlone(t *testing.T) {
	db := Open()
	ctx := context.Background()

	v, err := db.CreateVenue(ctx, roster.Venue{Name: "Hall A", StaffCount: 1})
	require.NoError(t, err)

	require.NoError(t, db.UpdateVenueStaffing(ctx, v.ID, true, 3))

	venues, err := db.ListVenues(ctx)
	require.NoError(t, err)
	require.Len(t, venues, 1)
	assert.Equal(t, "Hall A", venues[0].Name)
	assert.True(t, venues[0].Required)
	assert.Equal(t, 3, venues[0].StaffCount)

	assert.ErrorIs(t, db.UpdateVenueStaffing(ctx, 999, true, 1), roster.ErrNotFound)
}

func TestBulkUpsertTeachersOverwritesFields(t *testing.T) {
	db := Open()
	ctx := context.Background()

	_, err := db.CreateTeacher(ctx, roster.Teacher{ID: "INT-aa1", Name: "Ada", Department: "Math", Email: "ada@old.example.com"})
	require.NoError(t, err)

	require.NoError(t, db.BulkUpsertTeachers(ctx, []roster.Teacher{
		{ID: "INT-aa1", Name: "Ada Lovelace", Department: "Math", Email: "ada@example.com"},
		{ID: "INT-bb2", Name: "Alan", Department: "CS", Email: "alan@example.com"},
	}))

	teachers, err := db.ListTeachers(ctx)
	require.NoError(t, err)
	require.Len(t, teachers, 2)
	assert.Equal(t, "Ada Lovelace", teachers[0].Name)
	assert.Equal(t, "ada@example.com", teachers[0].Email)
	assert.False(t, teachers[0].Temporary, "imports never flip a teacher to temporary")
}

func TestSeedDefaultVenuesOnlyWhenEmpty(t *testing.T) {
	db := Open()
	ctx := context.Background()

	require.NoError(t, roster.SeedDefaultVenues(ctx, db))
	venues, err := db.ListVenues(ctx)
	require.NoError(t, err)
	assert.Len(t, venues, len(roster.DefaultVenueNames))

	// Second call must not duplicate or reset anything.
	require.NoError(t, roster.SeedDefaultVenues(ctx, db))
	venues, err = db.ListVenues(ctx)
	require.NoError(t, err)
	assert.Len(t, venues, len(roster.DefaultVenueNames))
}
