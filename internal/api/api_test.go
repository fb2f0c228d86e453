package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"census-pipeline/internal/api"
	"census-pipeline/internal/database"
	"census-pipeline/internal/messaging"
	"census-pipeline/internal/pipeline"
	"census-pipeline/pkg/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*gorm.DB, *messaging.InMemoryQueue, http.Handler) {
	t.Helper()

	db, err := database.Connect(sqlite.Open("file::memory:"))
	require.NoError(t, err)

	queue := messaging.NewInMemoryQueue()
	service := api.NewPipelineService(db, queue)
	return db, queue, service.Routes()
}

func doRequest(t *testing.T, handler http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	_, _, handler := newTestService(t)

	rec := doRequest(t, handler, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitRun(t *testing.T) {
	db, queue, handler := newTestService(t)

	rec := doRequest(t, handler, http.MethodPost, "/runs")
	require.Equal(t, http.StatusOK, rec.Code)

	var res models.SubmitRunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEqual(t, uuid.Nil, res.RunId)

	// the ledger entry exists with all stages queued
	var run database.PipelineRun
	require.NoError(t, db.Preload("Stages").First(&run, "id = ?", res.RunId).Error)
	assert.Equal(t, database.RunQueued, run.Status)
	assert.Len(t, run.Stages, len(pipeline.Stages))

	// the run id was handed to the queue
	task := <-queue.Tasks()
	var payload messaging.PipelineRunPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, res.RunId, payload.RunId)
}

func TestGetRun(t *testing.T) {
	db, _, handler := newTestService(t)

	runId, err := pipeline.NewRun(context.Background(), db)
	require.NoError(t, err)
	require.NoError(t, database.UpdateRunStatus(context.Background(), db, runId, database.RunRunning))
	require.NoError(t, database.SetTrackingRunId(context.Background(), db, runId, "tracked-1"))

	rec := doRequest(t, handler, http.MethodGet, "/runs/"+runId.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var info models.RunInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, runId, info.RunId)
	assert.Equal(t, database.RunRunning, info.Status)
	assert.Equal(t, "tracked-1", info.TrackingRunId)
	assert.Len(t, info.Stages, len(pipeline.Stages))
}

func TestGetRunNotFound(t *testing.T) {
	_, _, handler := newTestService(t)

	rec := doRequest(t, handler, http.MethodGet, "/runs/"+uuid.NewString())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRunInvalidId(t *testing.T) {
	_, _, handler := newTestService(t)

	rec := doRequest(t, handler, http.MethodGet, "/runs/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRuns(t *testing.T) {
	db, _, handler := newTestService(t)
	ctx := context.Background()

	first, err := pipeline.NewRun(ctx, db)
	require.NoError(t, err)
	second, err := pipeline.NewRun(ctx, db)
	require.NoError(t, err)
	require.NoError(t, database.UpdateRunStatus(ctx, db, second, database.RunCompleted))

	rec := doRequest(t, handler, http.MethodGet, "/runs")
	require.Equal(t, http.StatusOK, rec.Code)

	var res models.ListRunsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Len(t, res.Runs, 2)

	rec = doRequest(t, handler, http.MethodGet, "/runs?status=COMPLETED")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Runs, 1)
	assert.Equal(t, second, res.Runs[0].RunId)

	rec = doRequest(t, handler, http.MethodGet, "/runs?status=QUEUED")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Runs, 1)
	assert.Equal(t, first, res.Runs[0].RunId)

	rec = doRequest(t, handler, http.MethodGet, "/runs?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Len(t, res.Runs, 1)
}

func TestListRunsInvalidStatus(t *testing.T) {
	_, _, handler := newTestService(t)

	rec := doRequest(t, handler, http.MethodGet, "/runs?status=BOGUS")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
