package boost

import (
	"fmt"
	"math"
)

// Model is a trained boosted-tree ensemble. Predictions use trees up to
// BestIteration when early stopping fired, otherwise the full ensemble.
type Model struct {
	Params        Params
	BestIteration int

	trees []tree
	base  float64
}

// RoundEval reports per-round evaluation values keyed
// "<valid-name>_<metric>". It feeds progress reporting and cross
// validation.
type RoundEval func(round int, evals map[string]float64)

// Train fits an ensemble on train, evaluating every round against the named
// valid sets. When earlyStopping > 0, training halts once the first
// configured metric on the last valid set has not improved for that many
// rounds, and BestIteration records the best round.
func Train(p Params, train *Dataset, valids []*Dataset, validNames []string, numRounds, earlyStopping int, onRound RoundEval) (*Model, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if len(valids) != len(validNames) {
		return nil, fmt.Errorf("%d valid sets but %d names", len(valids), len(validNames))
	}
	if numRounds < 1 {
		return nil, fmt.Errorf("num_boost_round must be positive, got %d", numRounds)
	}

	model := &Model{Params: p, base: baseScore(train.Labels)}

	scores := make([]float64, len(train.Rows))
	for i := range scores {
		scores[i] = model.base
	}
	validScores := make([][]float64, len(valids))
	for v, ds := range valids {
		validScores[v] = make([]float64, len(ds.Rows))
		for i := range validScores[v] {
			validScores[v][i] = model.base
		}
	}

	include := make([]int, len(train.Rows))
	for i := range include {
		include[i] = i
	}

	grad := make([]float64, len(train.Rows))
	hess := make([]float64, len(train.Rows))

	bestRound, sinceBest := 0, 0
	bestValue := math.Inf(-1)
	monitor := ""
	if earlyStopping > 0 && len(valids) > 0 && len(p.Metric) > 0 {
		monitor = validNames[len(validNames)-1] + "_" + p.Metric[0]
	}

	for round := 0; round < numRounds; round++ {
		for i := range train.Rows {
			prob := sigmoid(scores[i])
			grad[i] = prob - train.Labels[i]
			hess[i] = math.Max(prob*(1-prob), 1e-16)
		}

		t := buildTree(train.Rows, grad, hess, include, p)
		model.trees = append(model.trees, t)

		for i, row := range train.Rows {
			scores[i] += t.predict(row)
		}
		evals := map[string]float64{}
		for v, ds := range valids {
			for i, row := range ds.Rows {
				validScores[v][i] += t.predict(row)
			}
			for _, m := range p.Metric {
				evals[validNames[v]+"_"+m] = evalMetric(m, ds.Labels, probabilities(validScores[v]))
			}
		}
		if onRound != nil {
			onRound(round, evals)
		}

		if monitor != "" {
			value := evals[monitor]
			if p.Metric[0] == MetricLogLoss {
				value = -value
			}
			if value > bestValue {
				bestValue = value
				bestRound = round + 1
				sinceBest = 0
			} else {
				sinceBest++
				if sinceBest >= earlyStopping {
					model.BestIteration = bestRound
					break
				}
			}
		}
	}

	return model, nil
}

// Predict returns per-row probabilities of the positive class.
func (m *Model) Predict(rows [][]float64) []float64 {
	limit := len(m.trees)
	if m.BestIteration > 0 && m.BestIteration < limit {
		limit = m.BestIteration
	}

	out := make([]float64, len(rows))
	for i, row := range rows {
		score := m.base
		for _, t := range m.trees[:limit] {
			score += t.predict(row)
		}
		out[i] = sigmoid(score)
	}
	return out
}

// NumTrees reports the number of boosting rounds actually kept.
func (m *Model) NumTrees() int {
	return len(m.trees)
}

// baseScore is the log-odds of the positive rate, so boosting starts from
// the average rather than zero.
func baseScore(labels []float64) float64 {
	pos := 0.0
	for _, y := range labels {
		pos += y
	}
	rate := pos / float64(len(labels))
	rate = math.Min(math.Max(rate, 1e-12), 1-1e-12)
	return math.Log(rate / (1 - rate))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func probabilities(scores []float64) []float64 {
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = sigmoid(s)
	}
	return out
}
