package assignment

import (
	"io"

	"github.com/xuri/excelize/v2"
)

var exportColumns = []string{"Teacher ID", "Name", "Department", "Venue", "Attendance"}

// WriteAttendanceXLSX renders the current assignment set as a downloadable
// attendance sheet, one row per assignment.
func WriteAttendanceXLSX(w io.Writer, records []Record) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, col := range exportColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}

	for i, rec := range records {
		values := []any{rec.TeacherID, rec.TeacherName, rec.Department, rec.VenueName, string(rec.Status)}
		for j, v := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return f.Write(w)
}
