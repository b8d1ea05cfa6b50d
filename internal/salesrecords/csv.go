package salesrecords

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-pipeline/internal/model"
)

// CSVSource reads sale records from a CSV export. The first row is the
// header; columns are located by folded name so Portuguese exports work
// without remapping.
type CSVSource struct {
	Path string
}

func (s *CSVSource) Fetch(ctx context.Context) ([]model.ExternalRecord, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "salesrecords: open %s", s.Path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "salesrecords: read header of %s", s.Path)
	}
	idx := mapHeader(header)

	var records []model.ExternalRecord
	skipped := 0
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "salesrecords: csv read cancelled")
		}
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "salesrecords: read row of %s", s.Path)
		}
		rec := idx.record(row)
		if !usable(rec) {
			skipped++
			continue
		}
		records = append(records, rec)
	}

	if skipped > 0 {
		zap.L().Debug("skipped identity-less sale records",
			zap.String("component", "salesrecords"),
			zap.String("path", s.Path),
			zap.Int("skipped", skipped),
		)
	}
	return records, nil
}
