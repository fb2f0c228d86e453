package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"census-pipeline/cmd"
	"census-pipeline/internal/config"
	"census-pipeline/internal/database"
	"census-pipeline/internal/pipeline"
	"census-pipeline/internal/storage"
	"census-pipeline/internal/tracking"
	"census-pipeline/internal/warehouse"

	"github.com/caarlos0/env/v11"
	"github.com/schollz/progressbar/v3"
)

// LocalConfig runs the whole pipeline in process: sqlite ledger, local
// object store, no queue. Only the warehouse and the tracking server are
// external.
type LocalConfig struct {
	WarehouseURL string `env:"WAREHOUSE_URL,notEmpty,required"`
	TrackingURI  string `env:"MLFLOW_TRACKING_URI,notEmpty,required"`
	ParamsFile   string `env:"PARAMS_FILE"`
	WorkDir      string `env:"WORK_DIR" envDefault:"./census-pipeline-data"`
}

func main() {
	cmd.LoadEnvFile()

	var cfg LocalConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	if err := os.MkdirAll(cfg.WorkDir, os.ModePerm); err != nil {
		log.Fatalf("Failed to create work dir: %v", err)
	}

	db, err := database.Open(filepath.Join(cfg.WorkDir, "ledger.db"))
	if err != nil {
		log.Fatalf("Failed to open ledger database: %v", err)
	}

	warehouseDB, err := warehouse.Open(cfg.WarehouseURL)
	if err != nil {
		log.Fatalf("Failed to connect to warehouse: %v", err)
	}

	store, err := storage.NewLocalObjectStore(filepath.Join(cfg.WorkDir, "objects"))
	if err != nil {
		log.Fatalf("Failed to create object store: %v", err)
	}

	params, err := config.LoadParams(cfg.ParamsFile)
	if err != nil {
		log.Fatalf("Failed to load boosting params: %v", err)
	}

	ctx := context.Background()

	var bar *progressbar.ProgressBar
	onRound := func(round int, evals map[string]float64) {
		if bar == nil {
			bar = progressbar.Default(-1, "boosting rounds")
		}
		bar.Add(1) // nolint:errcheck
	}

	runner := pipeline.NewRunner(
		db,
		warehouse.NewLoader(warehouseDB),
		store,
		"data",
		tracking.NewClient(cfg.TrackingURI),
		params,
		filepath.Join(cfg.WorkDir, "scratch"),
		pipeline.WithRoundCallback(onRound),
	)

	runId, err := pipeline.NewRun(ctx, db)
	if err != nil {
		log.Fatalf("Failed to create pipeline run: %v", err)
	}

	log.Printf("starting pipeline run %s", runId)
	if err := runner.Execute(ctx, runId); err != nil {
		log.Fatalf("Pipeline run failed: %v", err)
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}

	var run database.PipelineRun
	if err := db.First(&run, "id = ?", runId).Error; err != nil {
		log.Fatalf("Failed to read run record: %v", err)
	}

	log.Printf("pipeline run %s finished with status %s", runId, run.Status)
	if run.TrackingRunId.Valid {
		log.Printf("tracking run id: %s", run.TrackingRunId.String)
	}
}
