package models

import (
	"time"

	"github.com/google/uuid"
)

type SubmitRunResponse struct {
	RunId uuid.UUID `json:"run_id"`
}

type StageInfo struct {
	Name           string     `json:"name"`
	Status         string     `json:"status"`
	StartTime      *time.Time `json:"start_time,omitempty"`
	CompletionTime *time.Time `json:"completion_time,omitempty"`
	OutputKey      string     `json:"output_key,omitempty"`
	Error          string     `json:"error,omitempty"`
}

type RunInfo struct {
	RunId          uuid.UUID          `json:"run_id"`
	Status         string             `json:"status"`
	CreationTime   time.Time          `json:"creation_time"`
	CompletionTime *time.Time         `json:"completion_time,omitempty"`
	TrackingRunId  string             `json:"tracking_run_id,omitempty"`
	Metrics        map[string]float64 `json:"metrics,omitempty"`
	Error          string             `json:"error,omitempty"`
	Stages         []StageInfo        `json:"stages,omitempty"`
}

type ListRunsQuery struct {
	Status string `schema:"status"`
	Limit  int    `schema:"limit"`
}

type ListRunsResponse struct {
	Runs []RunInfo `json:"runs"`
}
