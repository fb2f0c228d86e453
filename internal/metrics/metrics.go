// Package metrics computes post-hoc classification metrics for the
// validation stage: per-class reports, confusion matrices, and ROC curves.
package metrics

import (
	"fmt"
	"sort"
)

// ClassStats holds precision/recall/F1/support for one class or average.
type ClassStats struct {
	Precision float64
	Recall    float64
	F1Score   float64
	Support   float64
}

// Report is a full classification report over binary predictions.
type Report struct {
	Classes  map[string]ClassStats // keyed by class label ("0", "1")
	Accuracy float64
	Macro    ClassStats
	Weighted ClassStats
}

// Classify builds the report from true labels and hard class predictions.
func Classify(yTrue, yPred []int) (*Report, error) {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("labels and predictions must be non-empty and equal length, got %d and %d", len(yTrue), len(yPred))
	}

	report := &Report{Classes: map[string]ClassStats{}}
	total := float64(len(yTrue))

	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	report.Accuracy = float64(correct) / total

	for _, class := range []int{0, 1} {
		var tp, fp, fn, support float64
		for i := range yTrue {
			switch {
			case yPred[i] == class && yTrue[i] == class:
				tp++
			case yPred[i] == class && yTrue[i] != class:
				fp++
			case yPred[i] != class && yTrue[i] == class:
				fn++
			}
			if yTrue[i] == class {
				support++
			}
		}

		stats := ClassStats{Support: support}
		if tp+fp > 0 {
			stats.Precision = tp / (tp + fp)
		}
		if tp+fn > 0 {
			stats.Recall = tp / (tp + fn)
		}
		if stats.Precision+stats.Recall > 0 {
			stats.F1Score = 2 * stats.Precision * stats.Recall / (stats.Precision + stats.Recall)
		}
		report.Classes[fmt.Sprintf("%d", class)] = stats

		report.Macro.Precision += stats.Precision / 2
		report.Macro.Recall += stats.Recall / 2
		report.Macro.F1Score += stats.F1Score / 2
		report.Weighted.Precision += stats.Precision * support / total
		report.Weighted.Recall += stats.Recall * support / total
		report.Weighted.F1Score += stats.F1Score * support / total
	}
	report.Macro.Support = total
	report.Weighted.Support = total

	return report, nil
}

// Flatten renders every leaf value under its flattened key path
// ("0_precision", "macro avg_f1-score", "accuracy", ...), matching the shape
// the tracking backend expects for individual metric logging.
func (r *Report) Flatten() map[string]float64 {
	out := map[string]float64{"accuracy": r.Accuracy}

	add := func(prefix string, s ClassStats) {
		out[prefix+"_precision"] = s.Precision
		out[prefix+"_recall"] = s.Recall
		out[prefix+"_f1-score"] = s.F1Score
		out[prefix+"_support"] = s.Support
	}
	for class, stats := range r.Classes {
		add(class, stats)
	}
	add("macro avg", r.Macro)
	add("weighted avg", r.Weighted)
	return out
}

// ConfusionMatrix holds the four cells of a binary confusion matrix. The
// cell counts always sum to the number of scored rows.
type ConfusionMatrix struct {
	TrueNegative  int
	FalsePositive int
	FalseNegative int
	TruePositive  int
}

func Confusion(yTrue, yPred []int) (ConfusionMatrix, error) {
	if len(yTrue) != len(yPred) {
		return ConfusionMatrix{}, fmt.Errorf("labels and predictions differ in length: %d vs %d", len(yTrue), len(yPred))
	}
	var cm ConfusionMatrix
	for i := range yTrue {
		switch {
		case yTrue[i] == 0 && yPred[i] == 0:
			cm.TrueNegative++
		case yTrue[i] == 0 && yPred[i] == 1:
			cm.FalsePositive++
		case yTrue[i] == 1 && yPred[i] == 0:
			cm.FalseNegative++
		default:
			cm.TruePositive++
		}
	}
	return cm, nil
}

func (cm ConfusionMatrix) Total() int {
	return cm.TrueNegative + cm.FalsePositive + cm.FalseNegative + cm.TruePositive
}

// ROC computes the ROC curve points for the given scores, sweeping
// thresholds from high to low over the distinct score values.
func ROC(yTrue []int, scores []float64) (fpr, tpr, thresholds []float64) {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })

	var nPos, nNeg float64
	for _, y := range yTrue {
		if y == 1 {
			nPos++
		} else {
			nNeg++
		}
	}

	fpr = append(fpr, 0)
	tpr = append(tpr, 0)
	thresholds = append(thresholds, 1)

	var tp, fp float64
	for i := 0; i < len(idx); {
		threshold := scores[idx[i]]
		for i < len(idx) && scores[idx[i]] == threshold {
			if yTrue[idx[i]] == 1 {
				tp++
			} else {
				fp++
			}
			i++
		}
		if nNeg > 0 {
			fpr = append(fpr, fp/nNeg)
		} else {
			fpr = append(fpr, 0)
		}
		if nPos > 0 {
			tpr = append(tpr, tp/nPos)
		} else {
			tpr = append(tpr, 0)
		}
		thresholds = append(thresholds, threshold)
	}
	return fpr, tpr, thresholds
}

// Threshold converts probabilities to hard class predictions at the given
// cut point (strictly greater, matching the trainer's 0.5 rule).
func Threshold(probs []float64, cut float64) []int {
	out := make([]int, len(probs))
	for i, p := range probs {
		if p > cut {
			out[i] = 1
		}
	}
	return out
}
