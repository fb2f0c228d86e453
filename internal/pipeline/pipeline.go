// Package pipeline wires the four census stages into a sequential run:
// load_data, preprocessing, feature_engineering, cross_validation. Each
// stage's output frame is persisted to the object store and every state
// transition is recorded in the run ledger.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"census-pipeline/internal/boost"
	"census-pipeline/internal/database"
	"census-pipeline/internal/dataset"
	"census-pipeline/internal/prep"
	"census-pipeline/internal/storage"
	"census-pipeline/internal/tracking"
	"census-pipeline/internal/warehouse"
)

const (
	StageLoadData           = "load_data"
	StagePreprocessing      = "preprocessing"
	StageFeatureEngineering = "feature_engineering"
	StageCrossValidation    = "cross_validation"

	ExperimentName = "census_prediction"
)

// Stages lists the pipeline stages in execution order.
var Stages = []string{StageLoadData, StagePreprocessing, StageFeatureEngineering, StageCrossValidation}

type Runner struct {
	db      *gorm.DB
	loader  *warehouse.Loader
	store   storage.ObjectStore
	bucket  string
	tracker *tracking.Client

	params     boost.Params
	scratchDir string
	onRound    boost.RoundEval
}

type RunnerOption func(*Runner)

// WithRoundCallback observes per-round evaluation during the final training
// pass, e.g. for progress reporting.
func WithRoundCallback(cb boost.RoundEval) RunnerOption {
	return func(r *Runner) { r.onRound = cb }
}

func NewRunner(db *gorm.DB, loader *warehouse.Loader, store storage.ObjectStore, bucket string, tracker *tracking.Client, params boost.Params, scratchDir string, opts ...RunnerOption) *Runner {
	r := &Runner{
		db:         db,
		loader:     loader,
		store:      store,
		bucket:     bucket,
		tracker:    tracker,
		params:     params,
		scratchDir: scratchDir,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRun creates the ledger entry for a queued pipeline run.
func NewRun(ctx context.Context, db *gorm.DB) (uuid.UUID, error) {
	run := database.PipelineRun{
		Id:           uuid.New(),
		Status:       database.RunQueued,
		CreationTime: time.Now().UTC(),
	}
	for _, stage := range Stages {
		run.Stages = append(run.Stages, database.StageRun{
			RunId:  run.Id,
			Name:   stage,
			Status: database.RunQueued,
		})
	}

	if err := db.WithContext(ctx).Create(&run).Error; err != nil {
		return uuid.Nil, fmt.Errorf("creating pipeline run: %w", err)
	}
	return run.Id, nil
}

// Execute runs all stages for an existing ledger entry. On any stage error
// the run is marked failed and the error surfaces to the caller; there are
// no retries within a run.
func (r *Runner) Execute(ctx context.Context, runId uuid.UUID) error {
	if err := database.UpdateRunStatus(ctx, r.db, runId, database.RunRunning); err != nil {
		return err
	}

	err := r.executeStages(ctx, runId)
	if err != nil {
		database.SaveRunError(ctx, r.db, runId, err.Error())
		database.UpdateRunStatus(ctx, r.db, runId, database.RunFailed) //nolint:errcheck
		return err
	}

	return database.UpdateRunStatus(ctx, r.db, runId, database.RunCompleted)
}

func (r *Runner) executeStages(ctx context.Context, runId uuid.UUID) error {
	raw, err := r.frameStage(ctx, runId, StageLoadData, func() (*dataset.Frame, error) {
		return r.loader.LoadCensusIncome(ctx)
	})
	if err != nil {
		return err
	}

	cleaned, err := r.frameStage(ctx, runId, StagePreprocessing, func() (*dataset.Frame, error) {
		return prep.Clean(raw)
	})
	if err != nil {
		return err
	}

	features, err := r.frameStage(ctx, runId, StageFeatureEngineering, func() (*dataset.Frame, error) {
		return prep.BuildFeatures(cleaned)
	})
	if err != nil {
		return err
	}

	return r.stage(ctx, runId, StageCrossValidation, func() error {
		results, err := r.trainAndValidate(ctx, runId, features)
		if err != nil {
			return err
		}
		return database.SaveRunMetrics(ctx, r.db, runId, results)
	})
}

// frameStage runs one frame-producing stage and persists its output to the
// object store under runs/<run-id>/<stage>.csv.
func (r *Runner) frameStage(ctx context.Context, runId uuid.UUID, name string, fn func() (*dataset.Frame, error)) (*dataset.Frame, error) {
	var out *dataset.Frame
	err := r.stage(ctx, runId, name, func() error {
		f, err := fn()
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := f.WriteCSV(&buf); err != nil {
			return fmt.Errorf("serializing %s output: %w", name, err)
		}
		key := fmt.Sprintf("runs/%s/%s.csv", runId, name)
		if err := r.store.PutObject(ctx, r.bucket, key, &buf); err != nil {
			return fmt.Errorf("storing %s output: %w", name, err)
		}
		if err := database.SetStageOutput(ctx, r.db, runId, name, key); err != nil {
			return err
		}

		slog.Info("stage output stored", "run_id", runId, "stage", name, "rows", f.NumRows(), "columns", f.NumColumns())
		out = f
		return nil
	})
	return out, err
}

func (r *Runner) stage(ctx context.Context, runId uuid.UUID, name string, fn func() error) error {
	if err := database.UpdateStageStatus(ctx, r.db, runId, name, database.RunRunning); err != nil {
		return err
	}
	slog.Info("stage started", "run_id", runId, "stage", name)

	if err := fn(); err != nil {
		database.SaveStageError(ctx, r.db, runId, name, err.Error())
		database.UpdateStageStatus(ctx, r.db, runId, name, database.RunFailed) //nolint:errcheck
		return fmt.Errorf("stage %s: %w", name, err)
	}

	return database.UpdateStageStatus(ctx, r.db, runId, name, database.RunCompleted)
}
