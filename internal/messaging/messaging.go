package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	PipelineRunQueue = "pipeline_run_queue"
	RetryDelay       = 5 * time.Second
	MaxConnectRetry  = 5
)

type Task interface {
	Type() string

	Payload() []byte

	Ack() error

	Nack() error

	Reject() error
}

// PipelineRunPayload triggers one full pipeline execution against an
// existing ledger entry.
type PipelineRunPayload struct {
	RunId uuid.UUID
}

type Publisher interface {
	PublishPipelineRun(ctx context.Context, payload PipelineRunPayload) error

	Close()
}

type Receiver interface {
	Tasks() <-chan Task

	Close()
}
