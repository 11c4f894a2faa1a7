package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"go-roundflow/internal/core/ports"
	"go-roundflow/internal/domain"
	"go-roundflow/internal/metrics"
	"go-roundflow/internal/workflow"

	"github.com/google/uuid"
)

type Worker struct {
	workerID string
	queue    ports.RunQueue
	repo     ports.RunRepository
	deps     workflow.Deps
	states   *StateRegistry
	metrics  *metrics.Collector
}

func NewWorker(q ports.RunQueue, r ports.RunRepository, deps workflow.Deps, states *StateRegistry, m *metrics.Collector) *Worker {
	return &Worker{
		workerID: uuid.New().String(),
		queue:    q,
		repo:     r,
		deps:     deps,
		states:   states,
		metrics:  m,
	}
}

// ProcessNextRun handles exactly ONE run
func (w *Worker) ProcessNextRun(ctx context.Context) {
	// 1. POP: Wait until a run is available
	runID, err := w.queue.Pop(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("Worker error popping from queue: %v", err)
		}
		return
	}

	// 2. FETCH: Get the full run from DB
	run, err := w.repo.GetByID(ctx, runID)
	if err != nil {
		log.Printf("Worker failed to find run %s: %v", runID, err)
		return
	}

	// 3. EXECUTE
	if _, err := w.Execute(ctx, run); err != nil {
		log.Printf("Worker %s run %s (%s) failed: %v", w.workerID, run.ID, run.Kind, err)
		return
	}
	log.Printf("Worker %s successfully finished run %s (%s)", w.workerID, run.ID, run.Kind)
}

// Execute runs the operation of run on its live state and records the
// result. Transitions reach the event bus through the state registry.
func (w *Worker) Execute(ctx context.Context, run *domain.WorkflowRun) (*domain.Outcome, error) {
	if err := w.repo.MarkRunning(ctx, run.ID); err != nil {
		log.Printf("Worker failed to mark run %s running: %v", run.ID, err)
	}

	state := w.states.Acquire(run)
	defer w.states.Release(run.ID)

	outcome, runErr := workflow.Dispatch(ctx, w.deps, state, run.Payload)
	w.metrics.ObserveRun(run.Kind, runErr)

	if errors.Is(runErr, domain.ErrStaleGeneration) {
		// a newer generation owns the record now
		return nil, runErr
	}

	snap := state.Snapshot()
	result := domain.RunResult{
		Generation: snap.Generation,
		Status:     domain.RunSucceeded,
		Phases:     snap.Phases,
	}
	if runErr != nil {
		result.Status, result.LastError = domain.RunFailed, runErr.Error()
	} else if outcome != nil {
		b, err := json.Marshal(outcome)
		if err != nil {
			log.Printf("Worker failed to encode outcome of run %s: %v", run.ID, err)
		}
		result.Outcome = b
	}
	if err := w.repo.Finish(ctx, run.ID, result); err != nil {
		log.Printf("Worker failed to record result of run %s: %v", run.ID, err)
	}
	return outcome, runErr
}

// StartPool launches multiple concurrent worker loops and blocks until ctx is done
func (w *Worker) StartPool(ctx context.Context, concurrency int) {
	log.Printf("Starting worker pool with %d concurrent workers...", concurrency)

	done := make(chan struct{}, concurrency)
	for i := 0; i < concurrency; i++ {
		go func(threadID int) {
			defer func() { done <- struct{}{} }()
			log.Printf("Worker thread %d (ID: %s) started", threadID, w.workerID)
			for {
				select {
				case <-ctx.Done():
					log.Printf("Worker thread %d (ID: %s) shutting down", threadID, w.workerID)
					return
				default:
					w.ProcessNextRun(ctx)
				}
			}
		}(i)
	}
	for i := 0; i < concurrency; i++ {
		<-done
	}
}
