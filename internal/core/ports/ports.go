package ports

import (
	"context"

	"go-roundflow/internal/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// ContentStore pins JSON content and returns its content identifier.
type ContentStore interface {
	// Save fails with domain.ErrStoreUnavailable or domain.ErrStoreRejected
	Save(ctx context.Context, name string, content any) (string, error)
}

// ChainWriter submits a signed transaction and waits until it is mined.
type ChainWriter interface {
	// Submit fails with domain.ErrUserRejected, domain.ErrReverted or domain.ErrRPCFailure
	Submit(ctx context.Context, tx domain.TransactionParams) (domain.Receipt, error)

	// ChainID of the network the writer signs for
	ChainID() uint64

	// Address of the connected signer
	Address() common.Address
}

// IndexerSync reports how far the off-chain indexer has processed a chain.
type IndexerSync interface {
	CurrentBlock(ctx context.Context, chainID uint64) (uint64, error)
}

// FinalizationChecker tells whether a payout strategy already holds a distribution.
type FinalizationChecker interface {
	IsFinalized(ctx context.Context, chainID uint64, payoutStrategy common.Address) (bool, error)
}

// PayoutSource lists payouts the indexer has seen executed.
type PayoutSource interface {
	PaidPayouts(ctx context.Context, chainID uint64, payoutStrategy common.Address) ([]domain.PaidPayout, error)
}

// EventBus represents the phase event bus operations
type EventBus interface {
	// Publish a phase transition to Redis Pub/Sub
	PublishPhaseTransition(ctx context.Context, event domain.PhaseTransitionEvent) error

	// Subscribe to every phase transition (Used by Coordinator and the SSE stream)
	SubscribeToEvents(ctx context.Context) (<-chan domain.PhaseTransitionEvent, error)
}

// RunRepository represents the workflow run repository operations
type RunRepository interface {
	// Create a new run record when a workflow is submitted
	Create(ctx context.Context, run *domain.WorkflowRun) error

	GetByID(ctx context.Context, runID uuid.UUID) (*domain.WorkflowRun, error)

	// Apply a phase transition event to the stored phase list.
	// Events from an older generation than the stored one are ignored.
	ApplyTransition(ctx context.Context, event domain.PhaseTransitionEvent) error

	// Record the final status, phases and outcome of a generation
	Finish(ctx context.Context, runID uuid.UUID, result domain.RunResult) error

	// Flag a run as queued again before it is retried
	MarkPending(ctx context.Context, runID uuid.UUID) error

	// Flag a run as picked up by an executor
	MarkRunning(ctx context.Context, runID uuid.UUID) error

	// Store a replacement payload when a run is retried with corrections
	UpdatePayload(ctx context.Context, runID uuid.UUID, payload []byte) error
}

// RunQueue hands submitted runs to the dispatcher pool
type RunQueue interface {
	// Push a run ID to the "To-Do" list
	Push(ctx context.Context, runID uuid.UUID) error

	// Wait (Block) until a run ID is available
	Pop(ctx context.Context) (uuid.UUID, error)
}
