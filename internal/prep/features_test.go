package prep_test

import (
	"testing"

	"census-pipeline/internal/dataset"
	"census-pipeline/internal/prep"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cleanedCensusFrame(t *testing.T) *dataset.Frame {
	t.Helper()

	f := dataset.New()
	require.NoError(t, f.AddNumeric("age", []float64{39, 50, 23}))
	require.NoError(t, f.AddCategorical("workclass", []string{"State-gov", "Private", "Private"}, nil))
	require.NoError(t, f.AddCategorical("education", []string{"Bachelors", "HS-grad", "HS-grad"}, nil))
	require.NoError(t, f.AddCategorical("marital_status", []string{"Never-married", "Married", "Divorced"}, nil))
	require.NoError(t, f.AddCategorical("occupation", []string{"Adm-clerical", "Sales", "Sales"}, nil))
	require.NoError(t, f.AddCategorical("race", []string{"White", "Black", "White"}, nil))
	require.NoError(t, f.AddCategorical("sex", []string{"Male", "Male", "Female"}, nil))
	require.NoError(t, f.AddCategorical("native_country", []string{"United-States", "United-States", "Mexico"}, nil))
	require.NoError(t, f.AddCategorical("income_bracket", []string{"<=50K", ">50K", "<=50K"}, nil))
	return f
}

func TestBuildFeatures(t *testing.T) {
	cleaned := cleanedCensusFrame(t)

	features, err := prep.BuildFeatures(cleaned)
	require.NoError(t, err)

	for _, col := range []string{"age", "marital_status", "income_bracket_<=50K"} {
		assert.False(t, features.HasColumn(col), col)
	}
	for _, col := range []string{"workclass", "education", "occupation", "race", "sex", "income_bracket", "native_country"} {
		assert.False(t, features.HasColumn(col), col)
	}

	label, err := features.Column(prep.LabelColumn)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0}, label.Floats, "label set only for Never-married")

	bins, err := features.Column("age_bins")
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 1}, bins.Floats)

	income, err := features.Column("income_bracket_>50K")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0}, income.Floats)

	sexMale, err := features.Column("sex_Male")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 0}, sexMale.Floats)

	country, err := features.Column("native_country_Mexico")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1}, country.Floats)

	// every remaining column is numeric
	_, names, err := features.Matrix(prep.LabelColumn)
	require.NoError(t, err)
	assert.NotEmpty(t, names)

	// input frame untouched
	assert.True(t, cleaned.HasColumn("marital_status"))
	assert.True(t, cleaned.HasColumn("age"))
}

func TestBuildFeaturesRequiresBothIncomeBrackets(t *testing.T) {
	f := cleanedCensusFrame(t)
	require.NoError(t, f.Replace("income_bracket", ">50K", "<=50K"))

	_, err := prep.BuildFeatures(f)
	assert.Error(t, err, "a single-valued income_bracket cannot produce the dropped indicator")
}
