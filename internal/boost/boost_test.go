package boost_test

import (
	"math"
	"math/rand"
	"testing"

	"census-pipeline/internal/boost"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// separableDataset builds rows where the first feature alone determines the
// label, plus a noise feature.
func separableDataset(t *testing.T, n int, seed int64) *boost.Dataset {
	t.Helper()

	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	labels := make([]float64, n)
	for i := range rows {
		signal := rng.Float64()
		rows[i] = []float64{signal, rng.Float64()}
		if signal > 0.5 {
			labels[i] = 1
		}
	}

	ds, err := boost.NewDataset(rows, labels, []string{"signal", "noise"})
	require.NoError(t, err)
	return ds
}

func TestNewDatasetValidation(t *testing.T) {
	_, err := boost.NewDataset(nil, nil, nil)
	assert.Error(t, err, "empty dataset")

	_, err = boost.NewDataset([][]float64{{1}}, []float64{0, 1}, nil)
	assert.Error(t, err, "label count mismatch")

	_, err = boost.NewDataset([][]float64{{1}}, []float64{0.5}, nil)
	assert.Error(t, err, "non-binary label")

	_, err = boost.NewDataset([][]float64{{1}, {1, 2}}, []float64{0, 1}, nil)
	assert.Error(t, err, "ragged rows")
}

func TestTrainValidSplit(t *testing.T) {
	ds := separableDataset(t, 100, 7)

	train, valid := boost.TrainValidSplit(ds, 0.2, 55)
	assert.Len(t, valid.Rows, 20)
	assert.Len(t, train.Rows, 80)

	train2, valid2 := boost.TrainValidSplit(ds, 0.2, 55)
	assert.Equal(t, train.Rows, train2.Rows, "same seed gives same membership")
	assert.Equal(t, valid.Rows, valid2.Rows)

	_, valid3 := boost.TrainValidSplit(ds, 0.2, 56)
	assert.NotEqual(t, valid.Rows, valid3.Rows, "different seed gives a different split")
}

func TestTrainFitsSeparableData(t *testing.T) {
	ds := separableDataset(t, 400, 1)
	train, valid := boost.TrainValidSplit(ds, 0.2, 55)

	model, err := boost.Train(boost.DefaultParams(), train,
		[]*boost.Dataset{valid}, []string{"validation"}, 20, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 20, model.NumTrees())

	probs := model.Predict(valid.Rows)
	assert.Greater(t, boost.AUC(valid.Labels, probs), 0.95)

	correct := 0
	for i, p := range probs {
		pred := 0.0
		if p > 0.5 {
			pred = 1
		}
		if pred == valid.Labels[i] {
			correct++
		}
	}
	assert.Greater(t, float64(correct)/float64(len(probs)), 0.9)
}

func TestTrainReportsRoundEvals(t *testing.T) {
	ds := separableDataset(t, 200, 2)
	train, valid := boost.TrainValidSplit(ds, 0.2, 55)

	var rounds []int
	var lastEvals map[string]float64
	_, err := boost.Train(boost.DefaultParams(), train,
		[]*boost.Dataset{train, valid}, []string{"train", "validation"}, 5, 0,
		func(round int, evals map[string]float64) {
			rounds = append(rounds, round)
			lastEvals = evals
		})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2, 3, 4}, rounds)
	for _, key := range []string{"train_auc", "train_binary_logloss", "validation_auc", "validation_binary_logloss"} {
		assert.Contains(t, lastEvals, key)
	}
}

func TestTrainEarlyStopping(t *testing.T) {
	// a constant feature yields constant predictions, so the validation
	// metric never improves after the first round
	rows := make([][]float64, 100)
	labels := make([]float64, 100)
	for i := range rows {
		rows[i] = []float64{0}
		labels[i] = float64(i % 2)
	}
	ds, err := boost.NewDataset(rows, labels, []string{"constant"})
	require.NoError(t, err)
	train, valid := boost.TrainValidSplit(ds, 0.2, 55)

	model, err := boost.Train(boost.DefaultParams(), train,
		[]*boost.Dataset{valid}, []string{"validation"}, 200, 5, nil)
	require.NoError(t, err)

	assert.Equal(t, 6, model.NumTrees(), "stops after patience runs out")
	assert.Equal(t, 1, model.BestIteration)
}

func TestTrainRejectsBadArguments(t *testing.T) {
	ds := separableDataset(t, 50, 4)

	_, err := boost.Train(boost.DefaultParams(), ds, []*boost.Dataset{ds}, nil, 10, 0, nil)
	assert.Error(t, err, "valid sets and names must pair up")

	_, err = boost.Train(boost.DefaultParams(), ds, nil, nil, 0, 0, nil)
	assert.Error(t, err, "round count must be positive")

	bad := boost.DefaultParams()
	bad.Objective = "regression"
	_, err = boost.Train(bad, ds, nil, nil, 10, 0, nil)
	assert.Error(t, err)
}

func TestPredictHandlesMissingFeatures(t *testing.T) {
	ds := separableDataset(t, 200, 5)

	model, err := boost.Train(boost.DefaultParams(), ds, nil, nil, 10, 0, nil)
	require.NoError(t, err)

	probs := model.Predict([][]float64{{math.NaN(), math.NaN()}})
	require.Len(t, probs, 1)
	assert.False(t, math.IsNaN(probs[0]))
	assert.Greater(t, probs[0], 0.0)
	assert.Less(t, probs[0], 1.0)
}
