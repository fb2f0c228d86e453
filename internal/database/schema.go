package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RunQueued    string = "QUEUED"
	RunRunning   string = "RUNNING"
	RunCompleted string = "COMPLETED"
	RunFailed    string = "FAILED"
)

// PipelineRun is the ledger entry for one execution of the pipeline. The
// tracking run id links to the experiment tracker; final metrics are stored
// alongside for quick inspection without a tracker round trip.
type PipelineRun struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Status         string `gorm:"size:20;not null"`
	CreationTime   time.Time
	CompletionTime sql.NullTime

	TrackingRunId sql.NullString
	Metrics       datatypes.JSON

	Error sql.NullString

	Stages []StageRun `gorm:"foreignKey:RunId;constraint:OnDelete:CASCADE"`
}

// StageRun records one stage of a pipeline run: its status, timing, and the
// object store key of the frame it produced.
type StageRun struct {
	RunId uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name  string    `gorm:"size:40;primaryKey"`

	Status         string `gorm:"size:20;not null"`
	StartTime      sql.NullTime
	CompletionTime sql.NullTime

	OutputKey sql.NullString
	Error     sql.NullString
}
