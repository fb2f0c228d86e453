package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func UpdateRunStatus(ctx context.Context, txn *gorm.DB, runId uuid.UUID, status string) error {
	updates := map[string]any{"status": status}
	if status == RunCompleted || status == RunFailed {
		updates["completion_time"] = time.Now().UTC()
	}

	if err := txn.WithContext(ctx).Model(&PipelineRun{Id: runId}).Updates(updates).Error; err != nil {
		slog.Error("error updating pipeline run status", "run_id", runId, "status", status, "error", err)
		return err
	}
	return nil
}

func UpdateStageStatus(ctx context.Context, txn *gorm.DB, runId uuid.UUID, stage, status string) error {
	updates := map[string]any{"status": status}
	if status == RunRunning {
		updates["start_time"] = time.Now().UTC()
	}
	if status == RunCompleted || status == RunFailed {
		updates["completion_time"] = time.Now().UTC()
	}

	if err := txn.WithContext(ctx).Model(&StageRun{RunId: runId, Name: stage}).Updates(updates).Error; err != nil {
		slog.Error("error updating stage status", "run_id", runId, "stage", stage, "status", status, "error", err)
		return err
	}
	return nil
}

func SetStageOutput(ctx context.Context, txn *gorm.DB, runId uuid.UUID, stage, outputKey string) error {
	if err := txn.WithContext(ctx).Model(&StageRun{RunId: runId, Name: stage}).
		Update("output_key", outputKey).Error; err != nil {
		slog.Error("error recording stage output", "run_id", runId, "stage", stage, "error", err)
		return err
	}
	return nil
}

func SaveStageError(ctx context.Context, txn *gorm.DB, runId uuid.UUID, stage, errorMessage string) {
	if err := txn.WithContext(ctx).Model(&StageRun{RunId: runId, Name: stage}).
		Update("error", errorMessage).Error; err != nil {
		slog.Error("error saving stage error", "run_id", runId, "stage", stage, "error", err)
	}
}

func SaveRunError(ctx context.Context, txn *gorm.DB, runId uuid.UUID, errorMessage string) {
	if err := txn.WithContext(ctx).Model(&PipelineRun{Id: runId}).
		Update("error", errorMessage).Error; err != nil {
		slog.Error("error saving run error", "run_id", runId, "error", err)
	}
}

func SetTrackingRunId(ctx context.Context, txn *gorm.DB, runId uuid.UUID, trackingRunId string) error {
	if err := txn.WithContext(ctx).Model(&PipelineRun{Id: runId}).
		Update("tracking_run_id", trackingRunId).Error; err != nil {
		slog.Error("error recording tracking run id", "run_id", runId, "error", err)
		return err
	}
	return nil
}

func SaveRunMetrics(ctx context.Context, txn *gorm.DB, runId uuid.UUID, metrics map[string]float64) error {
	data, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("could not marshal run metrics: %w", err)
	}

	if err := txn.WithContext(ctx).Model(&PipelineRun{Id: runId}).
		Update("metrics", data).Error; err != nil {
		return fmt.Errorf("could not save run metrics: %w", err)
	}
	return nil
}
