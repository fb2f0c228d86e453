// Package prep holds the data preparation stages of the census pipeline:
// cleaning the raw warehouse extract and engineering the model features.
package prep

import (
	"fmt"

	"census-pipeline/internal/dataset"
)

// Columns with the "?" placeholder the public census dataset uses for
// unknown values.
var sentinelColumns = []string{"workclass", "occupation", "native_country"}

// Columns not used by any downstream feature.
var unusedColumns = []string{"education_num", "relationship", "functional_weight"}

// Clean prepares the raw census extract for feature engineering: rows with
// missing values and exact duplicates are removed, string cells are trimmed,
// the "?" placeholder becomes "Unknown", and unused columns are dropped.
// The input frame is not modified.
func Clean(f *dataset.Frame) (*dataset.Frame, error) {
	out := f.Clone()

	out.DropMissingRows()
	out.DropDuplicateRows()
	out.TrimStrings()

	for _, col := range sentinelColumns {
		if err := out.Replace(col, "?", "Unknown"); err != nil {
			return nil, fmt.Errorf("cleaning: %w", err)
		}
	}

	if err := out.DropColumns(unusedColumns...); err != nil {
		return nil, fmt.Errorf("cleaning: %w", err)
	}
	return out, nil
}
