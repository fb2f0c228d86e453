package boost

import (
	"math"
	"sort"
)

func evalMetric(name string, labels, probs []float64) float64 {
	switch name {
	case MetricAUC:
		return AUC(labels, probs)
	case MetricLogLoss:
		return LogLoss(labels, probs)
	}
	return math.NaN()
}

// AUC computes the area under the ROC curve by rank statistics, with the
// usual half-credit for tied scores. Degenerate single-class inputs yield
// 0.5.
func AUC(labels, scores []float64) float64 {
	type pair struct{ score, label float64 }
	pairs := make([]pair, len(labels))
	for i := range labels {
		pairs[i] = pair{scores[i], labels[i]}
	}
	sort.Slice(pairs, func(a, b int) bool { return pairs[a].score < pairs[b].score })

	var nPos, nNeg, rankSum float64
	i := 0
	for i < len(pairs) {
		j := i
		for j < len(pairs) && pairs[j].score == pairs[i].score {
			j++
		}
		// average rank over the tie group, ranks are 1-based
		rank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			if pairs[k].label == 1 {
				rankSum += rank
				nPos++
			} else {
				nNeg++
			}
		}
		i = j
	}

	if nPos == 0 || nNeg == 0 {
		return 0.5
	}
	return (rankSum - nPos*(nPos+1)/2) / (nPos * nNeg)
}

// LogLoss is the mean binary cross entropy with probability clipping.
func LogLoss(labels, probs []float64) float64 {
	const eps = 1e-15
	sum := 0.0
	for i, y := range labels {
		p := math.Min(math.Max(probs[i], eps), 1-eps)
		if y == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(len(labels))
}
