package domain

import (
	"errors"
	"fmt"
)

var (
	// Store failures.
	ErrStoreUnavailable = errors.New("content store unavailable")
	ErrStoreRejected    = errors.New("content store rejected content")

	// Transaction failures. All three collapse to a single ERROR phase status.
	ErrUserRejected = errors.New("transaction rejected by signer")
	ErrReverted     = errors.New("transaction reverted")
	ErrRPCFailure   = errors.New("chain rpc failure")

	// Indexer failures.
	ErrIndexerTimeout = errors.New("indexer did not reach target block in time")
	ErrIndexerFailure = errors.New("indexer failure")

	// Returned before a run touches its state.
	ErrNoSigner         = errors.New("no connected signer")
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrAlreadyFinalized = errors.New("round distribution already finalized")

	ErrRunNotFound       = errors.New("run not found")
	ErrStaleGeneration   = errors.New("transition from superseded generation")
	ErrIllegalTransition = errors.New("illegal phase transition")
)

type FailureCategory string

const (
	CategoryStore       FailureCategory = "store"
	CategoryTransaction FailureCategory = "transaction"
	CategoryIndexer     FailureCategory = "indexer"
	CategoryUnknown     FailureCategory = "unknown"
)

// CategoryOf maps an error onto the store / transaction / indexer taxonomy.
func CategoryOf(err error) FailureCategory {
	switch {
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrStoreRejected):
		return CategoryStore
	case errors.Is(err, ErrUserRejected), errors.Is(err, ErrReverted), errors.Is(err, ErrRPCFailure):
		return CategoryTransaction
	case errors.Is(err, ErrIndexerTimeout), errors.Is(err, ErrIndexerFailure):
		return CategoryIndexer
	default:
		return CategoryUnknown
	}
}

// PhaseFailure records the first failing phase of a run.
type PhaseFailure struct {
	Kind       OperationKind
	Phase      PhaseName
	Generation uint64
	Err        error
}

func (e *PhaseFailure) Error() string {
	return fmt.Sprintf("%s: phase %s failed: %v", e.Kind, e.Phase, e.Err)
}

func (e *PhaseFailure) Unwrap() error {
	return e.Err
}
