package prep

import (
	"fmt"

	"census-pipeline/internal/dataset"
)

// LabelColumn is the derived binary training target.
const LabelColumn = "never_married"

// Categorical columns expanded into indicator columns, in expansion order.
var oneHotColumns = []string{
	"workclass",
	"education",
	"occupation",
	"race",
	"sex",
	"income_bracket",
	"native_country",
}

// Age bucket boundaries. Right-closed intervals labeled 1..5, lowest edge
// included; ages outside [16,100] stay unmapped.
var ageEdges = []float64{16, 29, 39, 49, 59, 100}

// BuildFeatures turns the cleaned census frame into the model's feature
// frame: one-hot expansion of the categorical columns, binned ages, and the
// never_married target derived from marital status. The redundant
// income_bracket_<=50K indicator, the consumed marital_status column, and
// the pre-binned age column are dropped. The input frame is not modified.
func BuildFeatures(f *dataset.Frame) (*dataset.Frame, error) {
	out := f.Clone()

	for _, col := range oneHotColumns {
		if err := out.OneHot(col); err != nil {
			return nil, fmt.Errorf("feature engineering: %w", err)
		}
	}

	if err := out.Bin("age", ageEdges, "age_bins"); err != nil {
		return nil, fmt.Errorf("feature engineering: %w", err)
	}

	if err := out.DeriveBinary("marital_status", LabelColumn, "Never-married"); err != nil {
		return nil, fmt.Errorf("feature engineering: %w", err)
	}

	if err := out.DropColumns("income_bracket_<=50K", "marital_status", "age"); err != nil {
		return nil, fmt.Errorf("feature engineering: %w", err)
	}
	return out, nil
}
