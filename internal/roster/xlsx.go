package roster

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// importColumns is the header contract for bulk teacher uploads.
var importColumns = []string{"id", "name", "dept", "gender", "ph", "email"}

// ParseTeachersXLSX reads an uploaded spreadsheet into teacher rows. The
// whole file is validated before anything is returned so callers can commit
// it in one transaction.
func ParseTeachersXLSX(r io.Reader) ([]Teacher, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable spreadsheet: %v", ErrValidation, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: spreadsheet has no header row", ErrValidation)
	}

	idx, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	var teachers []Teacher
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		t := Teacher{
			ID:         cell(row, idx["id"]),
			Name:       cell(row, idx["name"]),
			Department: cell(row, idx["dept"]),
			Gender:     cell(row, idx["gender"]),
			Phone:      cell(row, idx["ph"]),
			Email:      cell(row, idx["email"]),
		}
		if t.ID == "" {
			return nil, fmt.Errorf("%w: row %d: id is required", ErrValidation, i+2)
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		teachers = append(teachers, t)
	}
	return teachers, nil
}

// WriteTemplateXLSX produces an empty upload template carrying only the
// expected header row.
func WriteTemplateXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, col := range importColumns {
		cellName, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cellName, col); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func headerIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range importColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrValidation, col)
		}
	}
	return idx, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
