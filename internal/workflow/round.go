package workflow

import (
	"context"
	"fmt"
	"log"

	"go-roundflow/internal/contracts"
	"go-roundflow/internal/domain"

	"github.com/ethereum/go-ethereum/common"
)

// CreateRound pins round and application metadata and deploys a round
// through the round factory.
type CreateRound struct {
	deps Deps
	orc  *Orchestrator
}

func NewCreateRound(deps Deps, state *domain.WorkflowState) *CreateRound {
	return &CreateRound{deps: deps, orc: NewOrchestrator(state, deps.Metrics)}
}

func (op *CreateRound) State() *domain.WorkflowState {
	return op.orc.State()
}

func (op *CreateRound) Run(ctx context.Context, p domain.CreateRoundPayload) (*domain.Outcome, error) {
	if err := op.deps.ready(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	roundMeta := sanitizeRoundMetadata(p.RoundMetadata)
	roundMeta.ProgramContractAddress = p.ProgramID.Hex()
	appMeta := sanitizeApplicationMetadata(p.ApplicationMetadata)

	var roundPtr, appPtr string
	var receipt domain.Receipt

	phases := []Phase{
		{
			Name: domain.PhaseStoring,
			Run: func(ctx context.Context) error {
				var err error
				if roundPtr, err = op.deps.Store.Save(ctx, "round-metadata", roundMeta); err != nil {
					return fmt.Errorf("store round-metadata: %w", err)
				}
				if appPtr, err = op.deps.Store.Save(ctx, "application-metadata", appMeta); err != nil {
					return fmt.Errorf("store application-metadata: %w", err)
				}
				return nil
			},
		},
		writePhase(domain.PhaseDeploying, op.deps.Writer, func() (domain.TransactionParams, error) {
			owner := op.deps.Writer.Address()
			return contracts.CreateRound(op.deps.Contracts.RoundFactory, contracts.RoundInit{
				VotingStrategy:  p.VotingStrategy,
				PayoutStrategy:  p.PayoutStrategy,
				Times:           p.Times,
				MatchAmount:     p.MatchAmount,
				Token:           p.Token,
				FeePercentage:   p.FeePercentage,
				FeeAddress:      p.FeeAddress,
				RoundMeta:       contracts.NewMetaPtr(roundPtr),
				ApplicationMeta: contracts.NewMetaPtr(appPtr),
				Admins:          []common.Address{owner},
				Operators:       p.Operators,
			}, owner)
		}, &receipt),
		indexPhase(op.deps, &receipt),
	}
	if err := op.orc.Execute(ctx, phases); err != nil {
		return nil, err
	}

	out := outcomeOf(receipt, map[string]string{"round": roundPtr, "application": appPtr})
	if addr, err := contracts.RoundCreatedAddress(receipt.Logs); err == nil {
		out.ContractAddress = &addr
	} else {
		log.Printf("Orchestrator: round created in tx %s without RoundCreated event", receipt.TxHash.Hex())
	}
	return out, nil
}

// UpdateRound pins any replaced metadata and applies all changes in one
// multicall.
type UpdateRound struct {
	deps Deps
	orc  *Orchestrator
}

func NewUpdateRound(deps Deps, state *domain.WorkflowState) *UpdateRound {
	return &UpdateRound{deps: deps, orc: NewOrchestrator(state, deps.Metrics)}
}

func (op *UpdateRound) State() *domain.WorkflowState {
	return op.orc.State()
}

func (op *UpdateRound) Run(ctx context.Context, p domain.UpdateRoundPayload) (*domain.Outcome, error) {
	if err := op.deps.ready(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	pointers := map[string]string{}
	var receipt domain.Receipt

	phases := []Phase{
		{
			// no metadata change: nothing to pin
			Name: domain.PhaseStoring,
			Run: func(ctx context.Context) error {
				if p.RoundMetadata != nil {
					ptr, err := op.deps.Store.Save(ctx, "round-metadata", sanitizeRoundMetadata(*p.RoundMetadata))
					if err != nil {
						return fmt.Errorf("store round-metadata: %w", err)
					}
					pointers["round"] = ptr
				}
				if p.ApplicationMetadata != nil {
					ptr, err := op.deps.Store.Save(ctx, "application-metadata", sanitizeApplicationMetadata(*p.ApplicationMetadata))
					if err != nil {
						return fmt.Errorf("store application-metadata: %w", err)
					}
					pointers["application"] = ptr
				}
				return nil
			},
		},
		writePhase(domain.PhaseUpdating, op.deps.Writer, func() (domain.TransactionParams, error) {
			update := contracts.RoundUpdate{
				MatchAmount:   p.MatchAmount,
				FeePercentage: p.FeePercentage,
				FeeAddress:    p.FeeAddress,
				Times:         p.Times,
			}
			if ptr, ok := pointers["round"]; ok {
				meta := contracts.NewMetaPtr(ptr)
				update.RoundMeta = &meta
			}
			if ptr, ok := pointers["application"]; ok {
				meta := contracts.NewMetaPtr(ptr)
				update.ApplicationMeta = &meta
			}
			return contracts.UpdateRound(p.Round, update)
		}, &receipt),
		indexPhase(op.deps, &receipt),
	}
	if err := op.orc.Execute(ctx, phases); err != nil {
		return nil, err
	}

	out := outcomeOf(receipt, pointers)
	round := p.Round
	out.ContractAddress = &round
	return out, nil
}
