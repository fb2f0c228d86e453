// Package warehouse pulls the public census income dataset out of the
// analytical store. The query is fixed; any connectivity or query error
// propagates unchanged and aborts the pipeline run.
package warehouse

import (
	"context"
	"fmt"
	"math"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"census-pipeline/internal/dataset"
)

// CensusQuery is the only query the pipeline issues.
const CensusQuery = "SELECT * FROM census_adult_income"

// Open connects to the warehouse named by url. Unlike the run ledger the
// warehouse is read only, so no migrations are applied.
func Open(url string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		dialector = postgres.Open(url)
	} else {
		dialector = sqlite.Open(url)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("unable to open warehouse database: %w", err)
	}
	return db, nil
}

type Loader struct {
	db *gorm.DB
}

func NewLoader(db *gorm.DB) *Loader {
	return &Loader{db: db}
}

// LoadCensusIncome runs the census query and materializes the full result
// set as a frame. Column types are inferred from the driver values: integer
// and float columns become numeric, everything else categorical; NULLs
// become missing values.
func (l *Loader) LoadCensusIncome(ctx context.Context) (*dataset.Frame, error) {
	rows, err := l.db.WithContext(ctx).Raw(CensusQuery).Rows()
	if err != nil {
		return nil, fmt.Errorf("querying census dataset: %w", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading census result columns: %w", err)
	}

	cols := make([]columnBuilder, len(names))
	scan := make([]any, len(names))
	for i := range scan {
		scan[i] = new(any)
	}

	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("scanning census row: %w", err)
		}
		for i := range cols {
			cols[i].add(*scan[i].(*any))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating census result: %w", err)
	}

	f := dataset.New()
	for i, name := range names {
		if err := cols[i].appendTo(f, name); err != nil {
			return nil, fmt.Errorf("building census frame: %w", err)
		}
	}
	return f, nil
}

// columnBuilder accumulates one result column, deciding numeric vs
// categorical from the values actually seen. A single non-numeric value
// demotes the column to categorical.
type columnBuilder struct {
	floats  []float64
	strings []string
	missing []bool
	numeric bool
	decided bool
}

func (b *columnBuilder) add(v any) {
	switch val := v.(type) {
	case nil:
		b.floats = append(b.floats, math.NaN())
		b.strings = append(b.strings, "")
		b.missing = append(b.missing, true)
	case int64:
		b.observe(true)
		b.floats = append(b.floats, float64(val))
		b.strings = append(b.strings, fmt.Sprintf("%d", val))
		b.missing = append(b.missing, false)
	case float64:
		b.observe(true)
		b.floats = append(b.floats, val)
		b.strings = append(b.strings, fmt.Sprintf("%g", val))
		b.missing = append(b.missing, false)
	case []byte:
		b.observe(false)
		b.floats = append(b.floats, math.NaN())
		b.strings = append(b.strings, string(val))
		b.missing = append(b.missing, false)
	default:
		b.observe(false)
		b.floats = append(b.floats, math.NaN())
		b.strings = append(b.strings, fmt.Sprintf("%v", val))
		b.missing = append(b.missing, false)
	}
}

func (b *columnBuilder) observe(numeric bool) {
	if !b.decided {
		b.numeric = numeric
		b.decided = true
		return
	}
	if !numeric {
		b.numeric = false
	}
}

func (b *columnBuilder) appendTo(f *dataset.Frame, name string) error {
	if b.numeric {
		return f.AddNumeric(name, b.floats)
	}
	anyMissing := false
	for _, m := range b.missing {
		if m {
			anyMissing = true
			break
		}
	}
	if !anyMissing {
		b.missing = nil
	}
	return f.AddCategorical(name, b.strings, b.missing)
}
