package salesrecords

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-pipeline/internal/model"
)

// XLSXSource reads sale records from a spreadsheet export. The first row of
// the selected sheet is the header.
type XLSXSource struct {
	Path      string
	SheetName string // if empty, the first sheet is used
}

func (s *XLSXSource) Fetch(ctx context.Context) ([]model.ExternalRecord, error) {
	f, err := xlsx.OpenFile(s.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "salesrecords: open %s", s.Path)
	}

	sheet, err := s.sheet(f)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	idx := mapHeader(rowToStrings(sheet.Rows[0]))

	var records []model.ExternalRecord
	for _, row := range sheet.Rows[1:] {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "salesrecords: xlsx read cancelled")
		}
		rec := idx.record(rowToStrings(row))
		if !usable(rec) {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *XLSXSource) sheet(f *xlsx.File) (*xlsx.Sheet, error) {
	if s.SheetName != "" {
		sheet, ok := f.Sheet[s.SheetName]
		if !ok {
			return nil, eris.Errorf("salesrecords: sheet %q not found in %s", s.SheetName, s.Path)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("salesrecords: %s has no sheets", s.Path)
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
