package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"go-roundflow/internal/api/dto"
	"go-roundflow/internal/core/ports"
	"go-roundflow/internal/domain"
	"go-roundflow/internal/merkle"
	"go-roundflow/internal/workflow"

	"github.com/google/uuid"
)

type RunService interface {
	SubmitRun(ctx context.Context, kind string, payload []byte, wait bool) (*dto.RunResponse, error)
	RetryRun(ctx context.Context, runID uuid.UUID, payload []byte, wait bool) (*dto.RunResponse, error)
	GetRun(ctx context.Context, runID uuid.UUID) (*dto.RunResponse, error)
	ClassifyPayouts(ctx context.Context, req dto.ClassifyPayoutsRequest) (*dto.ClassifyPayoutsResponse, error)
}

// Executor runs a stored run in the caller's goroutine.
type Executor interface {
	Execute(ctx context.Context, run *domain.WorkflowRun) (*domain.Outcome, error)
}

// StateLookup exposes live states that are fresher than the recorded history.
type StateLookup interface {
	Get(runID uuid.UUID) (*domain.WorkflowState, bool)
}

// The Implementation
type runService struct {
	repo     ports.RunRepository
	queue    ports.RunQueue
	executor Executor
	states   StateLookup
	payouts  ports.PayoutSource
	chainID  uint64
}

// Constructor
func NewRunService(repo ports.RunRepository, queue ports.RunQueue, executor Executor, states StateLookup, payouts ports.PayoutSource, chainID uint64) RunService {
	return &runService{
		repo:     repo,
		queue:    queue,
		executor: executor,
		states:   states,
		payouts:  payouts,
		chainID:  chainID,
	}
}

func (s *runService) SubmitRun(ctx context.Context, kind string, payload []byte, wait bool) (*dto.RunResponse, error) {
	// 1. Validate before anything is recorded
	opKind, err := domain.ParseOperationKind(kind)
	if err != nil {
		return nil, err
	}
	if _, err := workflow.DecodePayload(opKind, payload); err != nil {
		return nil, err
	}

	// 2. Record the run
	run := domain.NewWorkflowRun(uuid.New(), opKind, s.chainID, payload)
	if err := s.repo.Create(ctx, run); err != nil {
		return nil, err
	}
	log.Printf("RunService: submitted %s run %s", opKind, run.ID)

	// 3. Execute inline or hand off to the worker pool
	return s.dispatch(ctx, run, wait)
}

func (s *runService) RetryRun(ctx context.Context, runID uuid.UUID, payload []byte, wait bool) (*dto.RunResponse, error) {
	run, err := s.repo.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	if len(payload) > 0 {
		if _, err := workflow.DecodePayload(run.Kind, payload); err != nil {
			return nil, err
		}
		if err := s.repo.UpdatePayload(ctx, runID, payload); err != nil {
			return nil, err
		}
		run.Payload = payload
	}
	if err := s.repo.MarkPending(ctx, runID); err != nil {
		return nil, err
	}
	run.Status, run.LastError = domain.RunPending, ""
	log.Printf("RunService: retrying %s run %s", run.Kind, run.ID)

	return s.dispatch(ctx, run, wait)
}

func (s *runService) dispatch(ctx context.Context, run *domain.WorkflowRun, wait bool) (*dto.RunResponse, error) {
	if !wait {
		if err := s.queue.Push(ctx, run.ID); err != nil {
			return nil, fmt.Errorf("queue run %s: %w", run.ID, err)
		}
		return s.view(run)
	}

	_, runErr := s.executor.Execute(ctx, run)
	stored, err := s.repo.GetByID(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	resp, err := s.view(stored)
	if err != nil {
		return nil, err
	}
	return resp, runErr
}

func (s *runService) GetRun(ctx context.Context, runID uuid.UUID) (*dto.RunResponse, error) {
	run, err := s.repo.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	return s.view(run)
}

func (s *runService) ClassifyPayouts(ctx context.Context, req dto.ClassifyPayoutsRequest) (*dto.ClassifyPayoutsResponse, error) {
	for _, r := range req.Distribution {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}

	paid := req.Paid
	if paid == nil {
		if s.payouts == nil {
			return nil, fmt.Errorf("%w: no paid payouts given and no indexer configured", domain.ErrInvalidPayload)
		}
		chainID := req.ChainID
		if chainID == 0 {
			chainID = s.chainID
		}
		var err error
		if paid, err = s.payouts.PaidPayouts(ctx, chainID, req.PayoutStrategy); err != nil {
			return nil, err
		}
	}

	p, u := merkle.Classify(req.Distribution, paid)
	return &dto.ClassifyPayoutsResponse{Paid: p, Unpaid: u}, nil
}

// view prefers the live state of a run over the recorded phases, which are
// written asynchronously by the coordinator.
func (s *runService) view(run *domain.WorkflowRun) (*dto.RunResponse, error) {
	resp := &dto.RunResponse{
		ID:         run.ID,
		Kind:       run.Kind,
		Status:     run.Status,
		Generation: run.Generation,
		LastError:  run.LastError,
		CreatedAt:  run.CreatedAt,
		UpdatedAt:  run.UpdatedAt,
	}
	if len(run.Outcome) > 0 {
		resp.Outcome = json.RawMessage(run.Outcome)
	}
	if len(run.Phases) > 0 {
		if err := json.Unmarshal(run.Phases, &resp.Phases); err != nil {
			return nil, fmt.Errorf("decode phases of run %s: %w", run.ID, err)
		}
	}

	snap := domain.Snapshot{Kind: run.Kind, Generation: run.Generation, Phases: resp.Phases}
	if s.states != nil {
		if state, ok := s.states.Get(run.ID); ok {
			snap = state.Snapshot()
			resp.Phases = snap.Phases
			resp.Generation = snap.Generation
			if !run.IsFinished() {
				resp.Status = domain.RunStatusOf(snap)
			}
		}
	}
	if run.Kind == domain.OpFinalizeRound {
		resp.Finalization = domain.FinalizationStateOf(snap)
	}
	return resp, nil
}
