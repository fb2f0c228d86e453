package boost

import (
	"fmt"
	"math/rand"
)

// Dataset is a dense feature matrix with binary labels.
type Dataset struct {
	Rows   [][]float64
	Labels []float64
	Names  []string
}

func NewDataset(rows [][]float64, labels []float64, names []string) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("dataset has no rows")
	}
	if len(rows) != len(labels) {
		return nil, fmt.Errorf("dataset has %d rows but %d labels", len(rows), len(labels))
	}
	for i, y := range labels {
		if y != 0 && y != 1 {
			return nil, fmt.Errorf("label at row %d is %v, want 0 or 1", i, y)
		}
	}
	for i, row := range rows {
		if len(row) != len(rows[0]) {
			return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), len(rows[0]))
		}
	}
	return &Dataset{Rows: rows, Labels: labels, Names: names}, nil
}

func (d *Dataset) subset(idx []int) *Dataset {
	rows := make([][]float64, len(idx))
	labels := make([]float64, len(idx))
	for j, i := range idx {
		rows[j] = d.Rows[i]
		labels[j] = d.Labels[i]
	}
	return &Dataset{Rows: rows, Labels: labels, Names: d.Names}
}

// TrainValidSplit partitions the dataset into train and validation subsets.
// The same seed always yields the same row membership.
func TrainValidSplit(d *Dataset, validFraction float64, seed int64) (train, valid *Dataset) {
	perm := rand.New(rand.NewSource(seed)).Perm(len(d.Rows))
	nValid := int(float64(len(d.Rows)) * validFraction)
	return d.subset(perm[nValid:]), d.subset(perm[:nValid])
}

// kfold assigns rows round-robin over a seeded permutation, so fold
// membership is reproducible for a fixed seed.
func kfold(n, k int, seed int64) [][]int {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	folds := make([][]int, k)
	for i, p := range perm {
		folds[i%k] = append(folds[i%k], p)
	}
	return folds
}
