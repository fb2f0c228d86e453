package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"census-pipeline/internal/boost"
	"census-pipeline/internal/database"
	"census-pipeline/internal/dataset"
	"census-pipeline/internal/metrics"
	"census-pipeline/internal/plot"
	"census-pipeline/internal/prep"
	"census-pipeline/internal/tracking"
)

const (
	validFraction = 0.2
	cvFolds       = 5
	cvRounds      = 10
	trainRounds   = 100
	earlyStopping = 5

	classThreshold = 0.5
)

// trainAndValidate is the cross_validation stage: split, cross validate,
// train with early stopping, evaluate, and report everything to the
// experiment tracker. The tracking run is closed on every exit path.
func (r *Runner) trainAndValidate(ctx context.Context, runId uuid.UUID, f *dataset.Frame) (map[string]float64, error) {
	label, err := f.Column(prep.LabelColumn)
	if err != nil {
		return nil, err
	}
	rows, names, err := f.Matrix(prep.LabelColumn)
	if err != nil {
		return nil, err
	}
	full, err := boost.NewDataset(rows, label.Floats, names)
	if err != nil {
		return nil, err
	}

	trainSet, validSet := boost.TrainValidSplit(full, validFraction, r.params.Seed)

	experimentID, created, err := r.tracker.EnsureExperiment(ctx, ExperimentName)
	if err != nil {
		return nil, err
	}
	slog.Info("experiment ready", "experiment", ExperimentName, "experiment_id", experimentID, "created", created)

	run, err := r.tracker.StartRun(ctx, experimentID, "LGBM "+runId.String())
	if err != nil {
		return nil, err
	}

	var results map[string]float64
	var runErr error
	defer func() { run.End(ctx, runErr) }()

	if runErr = database.SetTrackingRunId(ctx, r.db, runId, run.ID); runErr != nil {
		return nil, runErr
	}

	results, runErr = r.validateWithRun(ctx, run, trainSet, validSet)
	if runErr != nil {
		return nil, runErr
	}
	return results, nil
}

func (r *Runner) validateWithRun(ctx context.Context, run *tracking.Run, trainSet, validSet *boost.Dataset) (map[string]float64, error) {
	cv, err := boost.CV(r.params, trainSet, cvRounds, cvFolds)
	if err != nil {
		return nil, fmt.Errorf("cross validation: %w", err)
	}

	var cvMetrics []tracking.Metric
	for _, key := range cv.Keys() {
		for idx, value := range cv.Series[key] {
			cvMetrics = append(cvMetrics, tracking.Metric{
				Key:   fmt.Sprintf("cv_%s_%d", key, idx),
				Value: value,
			})
		}
	}
	if err := run.LogMetrics(ctx, cvMetrics); err != nil {
		return nil, err
	}

	if err := run.LogParams(ctx, r.params.Map()); err != nil {
		return nil, err
	}

	model, err := boost.Train(r.params, trainSet,
		[]*boost.Dataset{trainSet, validSet}, []string{"train", "validation"},
		trainRounds, earlyStopping, r.onRound)
	if err != nil {
		return nil, fmt.Errorf("training: %w", err)
	}
	slog.Info("model trained", "rounds", model.NumTrees(), "best_iteration", model.BestIteration)

	probs := model.Predict(validSet.Rows)
	preds := metrics.Threshold(probs, classThreshold)
	yTrue := make([]int, len(validSet.Labels))
	for i, y := range validSet.Labels {
		yTrue[i] = int(y)
	}

	report, err := metrics.Classify(yTrue, preds)
	if err != nil {
		return nil, fmt.Errorf("classification report: %w", err)
	}
	results := report.Flatten()
	results["validation_auc"] = boost.AUC(validSet.Labels, probs)
	results["best_iteration"] = float64(model.BestIteration)

	var reportMetrics []tracking.Metric
	for key, value := range results {
		reportMetrics = append(reportMetrics, tracking.Metric{Key: key, Value: value})
	}
	if err := run.LogMetrics(ctx, reportMetrics); err != nil {
		return nil, err
	}

	cm, err := metrics.Confusion(yTrue, preds)
	if err != nil {
		return nil, fmt.Errorf("confusion matrix: %w", err)
	}
	cells := map[string]float64{
		"True Positive":  float64(cm.TruePositive),
		"True Negative":  float64(cm.TrueNegative),
		"False Positive": float64(cm.FalsePositive),
		"False Negative": float64(cm.FalseNegative),
	}
	for key, value := range cells {
		results[key] = value
		if err := run.LogMetric(ctx, key, value); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(r.scratchDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("creating scratch dir: %w", err)
	}

	cmPath := filepath.Join(r.scratchDir, "confusion_matrix.png")
	if err := plot.ConfusionMatrixPNG(cmPath, cm); err != nil {
		return nil, err
	}
	if err := run.LogArtifact(ctx, cmPath); err != nil {
		return nil, err
	}

	fpr, tpr, _ := metrics.ROC(yTrue, probs)
	rocPath := filepath.Join(r.scratchDir, "roc_curve.png")
	if err := plot.ROCCurvePNG(rocPath, fpr, tpr); err != nil {
		return nil, err
	}
	if err := run.LogArtifact(ctx, rocPath); err != nil {
		return nil, err
	}

	return results, nil
}
