package prep_test

import (
	"math"
	"testing"

	"census-pipeline/internal/dataset"
	"census-pipeline/internal/prep"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawCensusFrame(t *testing.T) *dataset.Frame {
	t.Helper()

	f := dataset.New()
	// row 2 has a missing age, row 4 duplicates row 0
	require.NoError(t, f.AddNumeric("age", []float64{39, 50, math.NaN(), 23, 39}))
	require.NoError(t, f.AddCategorical("workclass", []string{" State-gov", "?", "Private", "Private", " State-gov"}, nil))
	require.NoError(t, f.AddNumeric("functional_weight", []float64{77516, 83311, 215646, 322, 77516}))
	require.NoError(t, f.AddCategorical("education", []string{"Bachelors", "Bachelors", "HS-grad", "HS-grad", "Bachelors"}, nil))
	require.NoError(t, f.AddNumeric("education_num", []float64{13, 13, 9, 9, 13}))
	require.NoError(t, f.AddCategorical("marital_status", []string{"Never-married", "Married", "Divorced", "Never-married", "Never-married"}, nil))
	require.NoError(t, f.AddCategorical("occupation", []string{"Adm-clerical", "?", "Sales", "Sales", "Adm-clerical"}, nil))
	require.NoError(t, f.AddCategorical("relationship", []string{"Not-in-family", "Husband", "Husband", "Own-child", "Not-in-family"}, nil))
	require.NoError(t, f.AddCategorical("race", []string{"White", "White", "Black", "White", "White"}, nil))
	require.NoError(t, f.AddCategorical("sex", []string{"Male", "Male", "Male", "Female", "Male"}, nil))
	require.NoError(t, f.AddCategorical("native_country", []string{"United-States", "?", "United-States", "United-States", "United-States"}, nil))
	require.NoError(t, f.AddCategorical("income_bracket", []string{"<=50K", ">50K", "<=50K", "<=50K", "<=50K"}, nil))
	return f
}

func TestClean(t *testing.T) {
	raw := rawCensusFrame(t)

	cleaned, err := prep.Clean(raw)
	require.NoError(t, err)

	// missing-age row and the duplicate of row 0 are gone
	assert.Equal(t, 3, cleaned.NumRows())

	for _, col := range []string{"education_num", "relationship", "functional_weight"} {
		assert.False(t, cleaned.HasColumn(col), col)
	}

	workclass, err := cleaned.Column("workclass")
	require.NoError(t, err)
	assert.Equal(t, []string{"State-gov", "Unknown", "Private"}, workclass.Strings)

	occupation, err := cleaned.Column("occupation")
	require.NoError(t, err)
	assert.Equal(t, []string{"Adm-clerical", "Unknown", "Sales"}, occupation.Strings)

	country, err := cleaned.Column("native_country")
	require.NoError(t, err)
	assert.Equal(t, []string{"United-States", "Unknown", "United-States"}, country.Strings)

	// input frame untouched
	assert.Equal(t, 5, raw.NumRows())
	origWorkclass, err := raw.Column("workclass")
	require.NoError(t, err)
	assert.Equal(t, " State-gov", origWorkclass.Strings[0])
}

func TestCleanMissingExpectedColumn(t *testing.T) {
	f := dataset.New()
	require.NoError(t, f.AddNumeric("age", []float64{30}))

	_, err := prep.Clean(f)
	assert.Error(t, err)
}
