package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// PipelineExecutor runs a queued pipeline run from start to finish. It is
// implemented by the pipeline runner; the indirection keeps this package
// free of the pipeline's dependencies.
type PipelineExecutor interface {
	Execute(ctx context.Context, runId uuid.UUID) error
}

// Worker consumes pipeline run tasks and executes them. Stages within a run
// are strictly sequential; concurrency only exists across independent runs.
type Worker struct {
	Receiver    Receiver
	Executor    PipelineExecutor
	Concurrency int
}

// Start launches the consumer goroutines and returns immediately. The wait
// group is released when the receiver's task channel closes.
func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup) {
	n := w.Concurrency
	if n <= 0 {
		n = 1
	}

	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(id int) {
			defer wg.Done()
			w.consume(ctx, id)
		}(i)
	}

	slog.Info("pipeline workers started", "concurrency", n)
}

func (w *Worker) consume(ctx context.Context, id int) {
	for task := range w.Receiver.Tasks() {
		w.process(ctx, id, task)
	}
	slog.Info("worker stopping, task channel closed", "worker", id)
}

func (w *Worker) process(ctx context.Context, id int, task Task) {
	if task.Type() != PipelineRunQueue {
		slog.Error("received task from unexpected queue", "worker", id, "queue", task.Type())
		if err := task.Reject(); err != nil {
			slog.Error("error rejecting task", "worker", id, "error", err)
		}
		return
	}

	var payload PipelineRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		slog.Error("error decoding pipeline run payload", "worker", id, "error", err)
		if err := task.Reject(); err != nil {
			slog.Error("error rejecting task", "worker", id, "error", err)
		}
		return
	}

	slog.Info("starting pipeline run", "worker", id, "run_id", payload.RunId)

	if err := w.Executor.Execute(ctx, payload.RunId); err != nil {
		// The executor has already recorded the failure in the ledger; the
		// task is not requeued, retries are an operator decision.
		slog.Error("pipeline run failed", "worker", id, "run_id", payload.RunId, "error", err)
		if err := task.Nack(); err != nil {
			slog.Error("error nacking task", "worker", id, "error", err)
		}
		return
	}

	slog.Info("pipeline run completed", "worker", id, "run_id", payload.RunId)
	if err := task.Ack(); err != nil {
		slog.Error("error acking task", "worker", id, "error", err)
	}
}
