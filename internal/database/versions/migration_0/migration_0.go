package migration_0

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Initial schema: the pipeline run ledger and per-stage records.

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

type StageRun struct {
	RunId uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name  string    `gorm:"size:40;primaryKey"`

	Status         string `gorm:"size:20;not null"`
	StartTime      sql.NullTime
	CompletionTime sql.NullTime

	OutputKey sql.NullString
	Error     sql.NullString
}

func Migration(txn *gorm.DB) error {
	return txn.AutoMigrate(&PipelineRun{}, &StageRun{})
}

func Rollback(txn *gorm.DB) error {
	return txn.Migrator().DropTable(&StageRun{}, &PipelineRun{})
}
