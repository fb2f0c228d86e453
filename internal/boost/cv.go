package boost

import (
	"fmt"
	"math"
)

// CVResult holds per-round metric series from cross validation, keyed
// "<metric>-mean" and "<metric>-stdv" in the order the metrics were
// configured.
type CVResult struct {
	keys   []string
	Series map[string][]float64
}

// Keys returns the series names in deterministic logging order.
func (r *CVResult) Keys() []string {
	return r.keys
}

// CV runs nfold cross validation for numRounds boosting rounds, evaluating
// each held-out fold after every round. Fold membership is derived from
// Params.Seed, so repeated runs produce identical series.
func CV(p Params, ds *Dataset, numRounds, nfold int) (*CVResult, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if nfold < 2 {
		return nil, fmt.Errorf("nfold must be at least 2, got %d", nfold)
	}
	if len(ds.Rows) < nfold {
		return nil, fmt.Errorf("cannot split %d rows into %d folds", len(ds.Rows), nfold)
	}

	folds := kfold(len(ds.Rows), nfold, p.Seed)

	// perFold[f][round][metric]
	perFold := make([][]map[string]float64, nfold)
	for f := 0; f < nfold; f++ {
		holdout := folds[f]
		var trainIdx []int
		for g, fold := range folds {
			if g != f {
				trainIdx = append(trainIdx, fold...)
			}
		}

		rounds := make([]map[string]float64, 0, numRounds)
		_, err := Train(p, ds.subset(trainIdx), []*Dataset{ds.subset(holdout)}, []string{"cv"}, numRounds, 0,
			func(round int, evals map[string]float64) {
				rounds = append(rounds, evals)
			})
		if err != nil {
			return nil, fmt.Errorf("cross validation fold %d: %w", f, err)
		}
		perFold[f] = rounds
	}

	result := &CVResult{Series: map[string][]float64{}}
	for _, m := range p.Metric {
		meanKey, stdvKey := m+"-mean", m+"-stdv"
		result.keys = append(result.keys, meanKey, stdvKey)

		means := make([]float64, numRounds)
		stdvs := make([]float64, numRounds)
		for round := 0; round < numRounds; round++ {
			var sum, sumSq float64
			for f := 0; f < nfold; f++ {
				v := perFold[f][round]["cv_"+m]
				sum += v
				sumSq += v * v
			}
			mean := sum / float64(nfold)
			means[round] = mean
			stdvs[round] = math.Sqrt(math.Max(sumSq/float64(nfold)-mean*mean, 0))
		}
		result.Series[meanKey] = means
		result.Series[stdvKey] = stdvs
	}
	return result, nil
}
