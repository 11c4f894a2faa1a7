package workflow

import (
	"context"
	"fmt"

	"go-roundflow/internal/contracts"
	"go-roundflow/internal/domain"
	"go-roundflow/internal/merkle"
)

// FinalizeRound pins the matching distribution with per-entry proofs and
// publishes its merkle root to the round's payout strategy.
type FinalizeRound struct {
	deps Deps
	orc  *Orchestrator
}

func NewFinalizeRound(deps Deps, state *domain.WorkflowState) *FinalizeRound {
	return &FinalizeRound{deps: deps, orc: NewOrchestrator(state, deps.Metrics)}
}

func (op *FinalizeRound) State() *domain.WorkflowState {
	return op.orc.State()
}

func (op *FinalizeRound) Run(ctx context.Context, p domain.FinalizeRoundPayload) (*domain.Outcome, error) {
	if err := op.deps.ready(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if domain.FinalizationStateOf(op.State().Snapshot()) == domain.Finalized {
		return nil, domain.ErrAlreadyFinalized
	}
	if op.deps.Finalization != nil {
		done, err := op.deps.Finalization.IsFinalized(ctx, op.deps.Writer.ChainID(), p.PayoutStrategy)
		if err != nil {
			return nil, fmt.Errorf("check finalization: %w", err)
		}
		if done {
			return nil, domain.ErrAlreadyFinalized
		}
	}

	distribution, _, err := merkle.BuildDistribution(p.Distribution)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	var pointer string
	var receipt domain.Receipt
	phases := []Phase{
		storePhase(domain.PhaseStoring, op.deps.Store, "matching-distribution", distribution, &pointer),
		writePhase(domain.PhaseWriting, op.deps.Writer, func() (domain.TransactionParams, error) {
			return contracts.UpdateDistribution(p.PayoutStrategy, distribution.MerkleRoot, contracts.NewMetaPtr(pointer))
		}, &receipt),
		indexPhase(op.deps, &receipt),
	}
	if err := op.orc.Execute(ctx, phases); err != nil {
		return nil, err
	}

	out := outcomeOf(receipt, map[string]string{"distribution": pointer})
	root := distribution.MerkleRoot
	out.MerkleRoot = &root
	strategy := p.PayoutStrategy
	out.ContractAddress = &strategy
	return out, nil
}
