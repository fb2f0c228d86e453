package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// WriteCSV serializes the frame with a header row. Missing values are
// written as empty cells. This is the transport format for intermediate
// stage outputs in the object store.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Names()); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	n := f.NumRows()
	record := make([]string, len(f.columns))
	for i := 0; i < n; i++ {
		for j, c := range f.columns {
			switch {
			case c.missingAt(i):
				record[j] = ""
			case c.Type == Numeric:
				record[j] = strconv.FormatFloat(c.Floats[i], 'g', -1, 64)
			default:
				record[j] = c.Strings[i]
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a frame written by WriteCSV. A column is numeric when every
// non-empty cell parses as a float; empty cells are read back as missing.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv input has no header row")
	}

	header := records[0]
	rows := records[1:]

	f := New()
	for j, name := range header {
		numeric := true
		for _, row := range rows {
			if row[j] == "" {
				continue
			}
			if _, err := strconv.ParseFloat(row[j], 64); err != nil {
				numeric = false
				break
			}
		}

		if numeric {
			vals := make([]float64, len(rows))
			for i, row := range rows {
				if row[j] == "" {
					vals[i] = math.NaN()
					continue
				}
				vals[i], _ = strconv.ParseFloat(row[j], 64)
			}
			if err := f.AddNumeric(name, vals); err != nil {
				return nil, err
			}
			continue
		}

		vals := make([]string, len(rows))
		var miss []bool
		for i, row := range rows {
			vals[i] = row[j]
			if row[j] == "" {
				if miss == nil {
					miss = make([]bool, len(rows))
				}
				miss[i] = true
			}
		}
		if err := f.AddCategorical(name, vals, miss); err != nil {
			return nil, err
		}
	}
	return f, nil
}
