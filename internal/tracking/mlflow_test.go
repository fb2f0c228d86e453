package tracking_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"census-pipeline/internal/tracking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTracker is an in-memory stand-in for an MLflow tracking server.
type fakeTracker struct {
	server *httptest.Server

	experiments map[string]string // name -> id
	nextID      int

	runStatus    map[string]string
	metricBatch  []int // metric count per log-batch call
	params       map[string]string
	artifactPath string
	artifactBody []byte
}

func newFakeTracker(t *testing.T) *fakeTracker {
	t.Helper()

	f := &fakeTracker{
		experiments: map[string]string{},
		runStatus:   map[string]string{},
		params:      map[string]string{},
		nextID:      1,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/2.0/mlflow/experiments/create", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if _, ok := f.experiments[req.Name]; ok {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{ //nolint:errcheck
				"error_code": "RESOURCE_ALREADY_EXISTS",
				"message":    fmt.Sprintf("Experiment %q already exists.", req.Name),
			})
			return
		}
		id := fmt.Sprintf("%d", f.nextID)
		f.nextID++
		f.experiments[req.Name] = id
		json.NewEncoder(w).Encode(map[string]string{"experiment_id": id}) //nolint:errcheck
	})
	mux.HandleFunc("/api/2.0/mlflow/experiments/get-by-name", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("experiment_name")
		id, ok := f.experiments[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{ //nolint:errcheck
				"error_code": "RESOURCE_DOES_NOT_EXIST",
				"message":    "no such experiment",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"experiment": map[string]string{"experiment_id": id},
		})
	})
	mux.HandleFunc("/api/2.0/mlflow/runs/create", func(w http.ResponseWriter, r *http.Request) {
		runID := fmt.Sprintf("run-%d", f.nextID)
		f.nextID++
		f.runStatus[runID] = "RUNNING"
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"run": map[string]any{"info": map[string]string{"run_id": runID}},
		})
	})
	mux.HandleFunc("/api/2.0/mlflow/runs/update", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RunID  string `json:"run_id"`
			Status string `json:"status"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.runStatus[req.RunID] = req.Status
		w.Write([]byte("{}")) //nolint:errcheck
	})
	mux.HandleFunc("/api/2.0/mlflow/runs/log-batch", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Metrics []struct {
				Key   string  `json:"key"`
				Value float64 `json:"value"`
			} `json:"metrics"`
			Params []struct {
				Key   string `json:"key"`
				Value string `json:"value"`
			} `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if len(req.Metrics) > 1000 {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{ //nolint:errcheck
				"error_code": "INVALID_PARAMETER_VALUE",
				"message":    "too many metrics",
			})
			return
		}
		if len(req.Metrics) > 0 {
			f.metricBatch = append(f.metricBatch, len(req.Metrics))
		}
		for _, p := range req.Params {
			f.params[p.Key] = p.Value
		}
		w.Write([]byte("{}")) //nolint:errcheck
	})
	mux.HandleFunc("/api/2.0/mlflow-artifacts/artifacts/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		f.artifactPath = r.URL.Path
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		f.artifactBody = body
		w.Write([]byte("{}")) //nolint:errcheck
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func TestEnsureExperiment(t *testing.T) {
	f := newFakeTracker(t)
	client := tracking.NewClient(f.server.URL)
	ctx := context.Background()

	id, created, err := client.EnsureExperiment(ctx, "census_prediction")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, id)

	again, created, err := client.EnsureExperiment(ctx, "census_prediction")
	require.NoError(t, err)
	assert.False(t, created, "second call resolves the existing experiment")
	assert.Equal(t, id, again)
}

func TestStartAndEndRun(t *testing.T) {
	f := newFakeTracker(t)
	client := tracking.NewClient(f.server.URL)
	ctx := context.Background()

	id, _, err := client.EnsureExperiment(ctx, "exp")
	require.NoError(t, err)

	run, err := client.StartRun(ctx, id, "LGBM test")
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, "RUNNING", f.runStatus[run.ID])

	run.End(ctx, nil)
	assert.Equal(t, "FINISHED", f.runStatus[run.ID])
}

func TestEndRunOnFailure(t *testing.T) {
	f := newFakeTracker(t)
	client := tracking.NewClient(f.server.URL)
	ctx := context.Background()

	id, _, err := client.EnsureExperiment(ctx, "exp")
	require.NoError(t, err)
	run, err := client.StartRun(ctx, id, "LGBM test")
	require.NoError(t, err)

	run.End(ctx, fmt.Errorf("training blew up"))
	assert.Equal(t, "FAILED", f.runStatus[run.ID])
}

func TestLogMetricsChunking(t *testing.T) {
	f := newFakeTracker(t)
	client := tracking.NewClient(f.server.URL)
	ctx := context.Background()

	id, _, err := client.EnsureExperiment(ctx, "exp")
	require.NoError(t, err)
	run, err := client.StartRun(ctx, id, "LGBM test")
	require.NoError(t, err)

	metrics := make([]tracking.Metric, 2500)
	for i := range metrics {
		metrics[i] = tracking.Metric{Key: fmt.Sprintf("m_%d", i), Value: float64(i)}
	}
	require.NoError(t, run.LogMetrics(ctx, metrics))

	assert.Equal(t, []int{1000, 1000, 500}, f.metricBatch)
}

func TestLogParams(t *testing.T) {
	f := newFakeTracker(t)
	client := tracking.NewClient(f.server.URL)
	ctx := context.Background()

	id, _, err := client.EnsureExperiment(ctx, "exp")
	require.NoError(t, err)
	run, err := client.StartRun(ctx, id, "LGBM test")
	require.NoError(t, err)

	require.NoError(t, run.LogParams(ctx, map[string]string{
		"num_leaves": "31",
		"objective":  "binary",
	}))

	assert.Equal(t, "31", f.params["num_leaves"])
	assert.Equal(t, "binary", f.params["objective"])
}

func TestLogArtifact(t *testing.T) {
	f := newFakeTracker(t)
	client := tracking.NewClient(f.server.URL)
	ctx := context.Background()

	id, _, err := client.EnsureExperiment(ctx, "exp")
	require.NoError(t, err)
	run, err := client.StartRun(ctx, id, "LGBM test")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "roc_curve.png")
	require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0o644))

	require.NoError(t, run.LogArtifact(ctx, path))

	expected := fmt.Sprintf("/api/2.0/mlflow-artifacts/artifacts/%s/%s/artifacts/roc_curve.png", id, run.ID)
	assert.Equal(t, expected, f.artifactPath)
	assert.Equal(t, []byte("png-bytes"), f.artifactBody)

	assert.Error(t, run.LogArtifact(ctx, filepath.Join(t.TempDir(), "missing.png")))
}
