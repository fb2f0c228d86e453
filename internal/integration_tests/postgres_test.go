package integrationtests

import (
	"context"
	"testing"
	"time"

	"census-pipeline/internal/database"
	"census-pipeline/internal/dataset"
	"census-pipeline/internal/pipeline"
	"census-pipeline/internal/warehouse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerOnPostgres(t *testing.T) {
	skipWithoutDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	uri := setupPostgresContainer(t, ctx)

	db, err := database.Open(uri)
	require.NoError(t, err)

	runId, err := pipeline.NewRun(ctx, db)
	require.NoError(t, err)

	require.NoError(t, database.UpdateRunStatus(ctx, db, runId, database.RunRunning))
	require.NoError(t, database.UpdateStageStatus(ctx, db, runId, pipeline.StageLoadData, database.RunCompleted))
	require.NoError(t, database.SetStageOutput(ctx, db, runId, pipeline.StageLoadData, "runs/x/load_data.csv"))
	require.NoError(t, database.SaveRunMetrics(ctx, db, runId, map[string]float64{"accuracy": 0.8}))

	var run database.PipelineRun
	require.NoError(t, db.Preload("Stages").First(&run, "id = ?", runId).Error)
	assert.Equal(t, database.RunRunning, run.Status)
	assert.Len(t, run.Stages, len(pipeline.Stages))
}

func TestWarehouseLoaderOnPostgres(t *testing.T) {
	skipWithoutDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	uri := setupPostgresContainer(t, ctx)

	db, err := warehouse.Open(uri)
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE census_adult_income (
		age INTEGER,
		workclass TEXT,
		marital_status TEXT,
		income_bracket TEXT
	)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO census_adult_income VALUES
		(39, 'State-gov', 'Never-married', '<=50K'),
		(50, 'Private', 'Married-civ-spouse', '>50K'),
		(NULL, 'Private', 'Divorced', '<=50K')`).Error)

	loader := warehouse.NewLoader(db)
	f, err := loader.LoadCensusIncome(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, f.NumRows())

	age, err := f.Column("age")
	require.NoError(t, err)
	assert.Equal(t, dataset.Numeric, age.Type)

	workclass, err := f.Column("workclass")
	require.NoError(t, err)
	assert.Equal(t, dataset.Categorical, workclass.Type)
}
