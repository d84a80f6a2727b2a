package assignment

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteAttendanceXLSX(t *testing.T) {
	records := []Record{
		{TeacherID: "INT-aa1", TeacherName: "Ada", Department: "Math", VenueName: "Hall A", Status: StatusPresent, AssignedAt: time.Now()},
		{TeacherID: "EXT-bb2", TeacherName: "Guest", Department: "CS", VenueName: "Lab 1", Status: StatusAbsent, AssignedAt: time.Now()},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAttendanceXLSX(&buf, records))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Teacher ID", "Name", "Department", "Venue", "Attendance"}, rows[0])
	assert.Equal(t, []string{"INT-aa1", "Ada", "Math", "Hall A", "Present"}, rows[1])
	assert.Equal(t, []string{"EXT-bb2", "Guest", "CS", "Lab 1", "Absent"}, rows[2])
}

func TestCount(t *testing.T) {
	records := []Record{
		{Status: StatusPresent},
		{Status: StatusAbsent},
		{Status: StatusAbsent},
	}
	c := Count(records)
	assert.Equal(t, Counts{Present: 1, Absent: 2, All: 3}, c)
}
