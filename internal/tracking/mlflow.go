// Package tracking is a client for the MLflow REST 2.0 tracking API. All
// logging goes through an explicit run handle returned by StartRun; there is
// no ambient current-run state.
package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	RunStatusFinished = "FINISHED"
	RunStatusFailed   = "FAILED"

	// MLflow rejects log-batch calls with more than 1000 metrics.
	maxMetricsPerBatch = 1000
)

var ErrExperimentExists = errors.New("experiment already exists")

type Client struct {
	http *resty.Client
}

// NewClient returns a client for the tracking server at uri
// (e.g. http://localhost:5000).
func NewClient(uri string) *Client {
	return &Client{
		http: resty.New().SetBaseURL(uri).SetTimeout(30 * time.Second),
	}
}

type apiError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func (c *Client) post(ctx context.Context, endpoint string, body, result any) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(endpoint)
	if err != nil {
		return fmt.Errorf("tracking server request %s: %w", endpoint, err)
	}
	return c.handle(res, endpoint, result)
}

func (c *Client) handle(res *resty.Response, endpoint string, result any) error {
	if !res.IsSuccess() {
		var apiErr apiError
		if json.Unmarshal(res.Body(), &apiErr) == nil && apiErr.ErrorCode != "" {
			if apiErr.ErrorCode == "RESOURCE_ALREADY_EXISTS" {
				return fmt.Errorf("%s: %w", apiErr.Message, ErrExperimentExists)
			}
			return fmt.Errorf("tracking server %s: %s: %s", endpoint, apiErr.ErrorCode, apiErr.Message)
		}
		return fmt.Errorf("tracking server %s: status %d: %s", endpoint, res.StatusCode(), res.String())
	}
	if result != nil {
		if err := json.Unmarshal(res.Body(), result); err != nil {
			return fmt.Errorf("parsing tracking server response from %s: %w", endpoint, err)
		}
	}
	return nil
}

// EnsureExperiment creates the named experiment if absent and reports
// whether it was created. Only the already-exists condition is recovered;
// connectivity and other server errors surface to the caller.
func (c *Client) EnsureExperiment(ctx context.Context, name string) (id string, created bool, err error) {
	var createRes struct {
		ExperimentID string `json:"experiment_id"`
	}
	err = c.post(ctx, "/api/2.0/mlflow/experiments/create", map[string]string{"name": name}, &createRes)
	if err == nil {
		return createRes.ExperimentID, true, nil
	}
	if !errors.Is(err, ErrExperimentExists) {
		return "", false, err
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("experiment_name", name).
		Get("/api/2.0/mlflow/experiments/get-by-name")
	if err != nil {
		return "", false, fmt.Errorf("tracking server request experiments/get-by-name: %w", err)
	}
	var getRes struct {
		Experiment struct {
			ExperimentID string `json:"experiment_id"`
		} `json:"experiment"`
	}
	if err := c.handle(res, "experiments/get-by-name", &getRes); err != nil {
		return "", false, err
	}
	return getRes.Experiment.ExperimentID, false, nil
}

// Run is a scoped handle on one tracking run. Callers must End it on every
// exit path.
type Run struct {
	client       *Client
	ID           string
	ExperimentID string
}

// StartRun opens a new run under the experiment.
func (c *Client) StartRun(ctx context.Context, experimentID, runName string) (*Run, error) {
	var res struct {
		Run struct {
			Info struct {
				RunID string `json:"run_id"`
			} `json:"info"`
		} `json:"run"`
	}
	err := c.post(ctx, "/api/2.0/mlflow/runs/create", map[string]any{
		"experiment_id": experimentID,
		"run_name":      runName,
		"start_time":    time.Now().UnixMilli(),
	}, &res)
	if err != nil {
		return nil, err
	}
	return &Run{client: c, ID: res.Run.Info.RunID, ExperimentID: experimentID}, nil
}

// End closes the run as FINISHED when runErr is nil, FAILED otherwise. It is
// safe to call from a defer; a close failure is logged rather than masking
// the original error.
func (r *Run) End(ctx context.Context, runErr error) {
	status := RunStatusFinished
	if runErr != nil {
		status = RunStatusFailed
	}
	err := r.client.post(ctx, "/api/2.0/mlflow/runs/update", map[string]any{
		"run_id":   r.ID,
		"status":   status,
		"end_time": time.Now().UnixMilli(),
	}, nil)
	if err != nil {
		slog.Error("failed to close tracking run", "run_id", r.ID, "status", status, "error", err)
	}
}

// LogParams records the hyperparameter set on the run.
func (r *Run) LogParams(ctx context.Context, params map[string]string) error {
	type param struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	body := struct {
		RunID  string  `json:"run_id"`
		Params []param `json:"params"`
	}{RunID: r.ID}
	for k, v := range params {
		body.Params = append(body.Params, param{k, v})
	}
	return r.client.post(ctx, "/api/2.0/mlflow/runs/log-batch", body, nil)
}

// Metric is one named scalar observation.
type Metric struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
	Step  int64   `json:"step"`
}

// LogMetric records a single scalar.
func (r *Run) LogMetric(ctx context.Context, key string, value float64) error {
	return r.LogMetrics(ctx, []Metric{{Key: key, Value: value}})
}

// LogMetrics batch-logs metrics, chunked to the server's batch limit.
func (r *Run) LogMetrics(ctx context.Context, ms []Metric) error {
	now := time.Now().UnixMilli()
	for start := 0; start < len(ms); start += maxMetricsPerBatch {
		end := min(start+maxMetricsPerBatch, len(ms))

		type metric struct {
			Key       string  `json:"key"`
			Value     float64 `json:"value"`
			Timestamp int64   `json:"timestamp"`
			Step      int64   `json:"step"`
		}
		body := struct {
			RunID   string   `json:"run_id"`
			Metrics []metric `json:"metrics"`
		}{RunID: r.ID}
		for _, m := range ms[start:end] {
			body.Metrics = append(body.Metrics, metric{m.Key, m.Value, now, m.Step})
		}

		if err := r.client.post(ctx, "/api/2.0/mlflow/runs/log-batch", body, nil); err != nil {
			return err
		}
	}
	return nil
}

// LogArtifact uploads a local file to the run's artifact root through the
// tracking server's artifact proxy.
func (r *Run) LogArtifact(ctx context.Context, localPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("reading artifact %s: %w", localPath, err)
	}

	endpoint := fmt.Sprintf("/api/2.0/mlflow-artifacts/artifacts/%s/%s/artifacts/%s",
		r.ExperimentID, r.ID, filepath.Base(localPath))
	res, err := r.client.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(data).
		Put(endpoint)
	if err != nil {
		return fmt.Errorf("uploading artifact %s: %w", localPath, err)
	}
	return r.client.handle(res, "artifact upload", nil)
}
