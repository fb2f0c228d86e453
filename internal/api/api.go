package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"census-pipeline/internal/database"
	"census-pipeline/internal/messaging"
	"census-pipeline/internal/pipeline"
	"census-pipeline/pkg/models"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

const defaultListLimit = 100

// PipelineService exposes the pipeline run ledger over HTTP. Submitting a run
// creates the ledger entry and hands the run id to the work queue; a worker
// picks it up and executes the stages.
type PipelineService struct {
	db        *gorm.DB
	publisher messaging.Publisher
}

func NewPipelineService(db *gorm.DB, publisher messaging.Publisher) *PipelineService {
	return &PipelineService{db: db, publisher: publisher}
}

func (s *PipelineService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", RestHandler(s.Health))

	r.Route("/runs", func(r chi.Router) {
		r.Post("/", RestHandler(s.SubmitRun))
		r.Get("/", RestHandler(s.ListRuns))
		r.Get("/{run_id}", RestHandler(s.GetRun))
	})

	return r
}

func (s *PipelineService) Health(r *http.Request) (any, error) {
	return map[string]string{"status": "ok"}, nil
}

func (s *PipelineService) SubmitRun(r *http.Request) (any, error) {
	runId, err := pipeline.NewRun(r.Context(), s.db)
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error creating pipeline run: %w", err)
	}

	err = s.publisher.PublishPipelineRun(r.Context(), messaging.PipelineRunPayload{RunId: runId})
	if err != nil {
		database.SaveRunError(r.Context(), s.db, runId, err.Error())
		if uerr := database.UpdateRunStatus(r.Context(), s.db, runId, database.RunFailed); uerr != nil {
			slog.Error("error marking unqueued run as failed", "run_id", runId, "error", uerr)
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "error queueing pipeline run: %w", err)
	}

	slog.Info("pipeline run submitted", "run_id", runId)

	return models.SubmitRunResponse{RunId: runId}, nil
}

func (s *PipelineService) GetRun(r *http.Request) (any, error) {
	runId, err := URLParamUUID(r, "run_id")
	if err != nil {
		return nil, err
	}

	var run database.PipelineRun
	result := s.db.WithContext(r.Context()).Preload("Stages").First(&run, "id = ?", runId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "no pipeline run with id %v", runId)
		}
		slog.Error("error retrieving pipeline run", "run_id", runId, "error", result.Error)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving pipeline run")
	}

	return convertRun(run), nil
}

func (s *PipelineService) ListRuns(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[models.ListRunsQuery](r)
	if err != nil {
		return nil, err
	}

	if params.Status != "" {
		switch params.Status {
		case database.RunQueued, database.RunRunning, database.RunCompleted, database.RunFailed:
		default:
			return nil, CodedErrorf(http.StatusUnprocessableEntity, "invalid status filter '%v'", params.Status)
		}
	}

	limit := params.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}

	query := s.db.WithContext(r.Context()).Preload("Stages").Order("creation_time desc").Limit(limit)
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}

	var runs []database.PipelineRun
	if err := query.Find(&runs).Error; err != nil {
		slog.Error("error listing pipeline runs", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error listing pipeline runs")
	}

	res := models.ListRunsResponse{Runs: make([]models.RunInfo, 0, len(runs))}
	for _, run := range runs {
		res.Runs = append(res.Runs, convertRun(run))
	}

	return res, nil
}

func convertRun(run database.PipelineRun) models.RunInfo {
	info := models.RunInfo{
		RunId:        run.Id,
		Status:       run.Status,
		CreationTime: run.CreationTime,
	}

	if run.CompletionTime.Valid {
		t := run.CompletionTime.Time
		info.CompletionTime = &t
	}
	if run.TrackingRunId.Valid {
		info.TrackingRunId = run.TrackingRunId.String
	}
	if run.Error.Valid {
		info.Error = run.Error.String
	}

	if len(run.Metrics) > 0 {
		if err := json.Unmarshal(run.Metrics, &info.Metrics); err != nil {
			slog.Error("error decoding stored run metrics", "run_id", run.Id, "error", err)
		}
	}

	for _, stage := range run.Stages {
		si := models.StageInfo{Name: stage.Name, Status: stage.Status}
		if stage.StartTime.Valid {
			t := stage.StartTime.Time
			si.StartTime = &t
		}
		if stage.CompletionTime.Valid {
			t := stage.CompletionTime.Time
			si.CompletionTime = &t
		}
		if stage.OutputKey.Valid {
			si.OutputKey = stage.OutputKey.String
		}
		if stage.Error.Valid {
			si.Error = stage.Error.String
		}
		info.Stages = append(info.Stages, si)
	}

	return info
}
