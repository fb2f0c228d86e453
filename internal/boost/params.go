// Package boost implements gradient boosted decision trees for binary
// classification: leaf-wise tree growth, k-fold cross validation, and early
// stopping against held-out evaluation sets.
package boost

import (
	"fmt"
	"strings"
)

const (
	MetricAUC     = "auc"
	MetricLogLoss = "binary_logloss"
)

// Params is the immutable hyperparameter set for a training run. It is
// logged verbatim to the experiment tracker.
type Params struct {
	NumLeaves     int      `yaml:"num_leaves"`
	Objective     string   `yaml:"objective"`
	Metric        []string `yaml:"metric"`
	LearningRate  float64  `yaml:"learning_rate"`
	MinDataInLeaf int      `yaml:"min_data_in_leaf"`
	Lambda        float64  `yaml:"lambda_l2"`
	Seed          int64    `yaml:"seed"`
}

// DefaultParams mirrors the pipeline's compiled-in configuration.
func DefaultParams() Params {
	return Params{
		NumLeaves:     31,
		Objective:     "binary",
		Metric:        []string{MetricAUC, MetricLogLoss},
		LearningRate:  0.1,
		MinDataInLeaf: 20,
		Lambda:        1.0,
		Seed:          55,
	}
}

func (p Params) validate() error {
	if p.Objective != "binary" {
		return fmt.Errorf("unsupported objective %q", p.Objective)
	}
	if p.NumLeaves < 2 {
		return fmt.Errorf("num_leaves must be at least 2, got %d", p.NumLeaves)
	}
	if p.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be positive, got %v", p.LearningRate)
	}
	for _, m := range p.Metric {
		if m != MetricAUC && m != MetricLogLoss {
			return fmt.Errorf("unsupported metric %q", m)
		}
	}
	return nil
}

// Map renders the parameter set as tracker-loggable key/value strings.
func (p Params) Map() map[string]string {
	return map[string]string{
		"num_leaves":       fmt.Sprintf("%d", p.NumLeaves),
		"objective":        p.Objective,
		"metric":           strings.Join(p.Metric, ","),
		"learning_rate":    fmt.Sprintf("%g", p.LearningRate),
		"min_data_in_leaf": fmt.Sprintf("%d", p.MinDataInLeaf),
		"lambda_l2":        fmt.Sprintf("%g", p.Lambda),
		"seed":             fmt.Sprintf("%d", p.Seed),
	}
}
