package workflow

import (
	"context"
	"log"

	"go-roundflow/internal/contracts"
	"go-roundflow/internal/domain"
)

// FundRound approves the round to pull an ERC20 amount, then funds it.
// Native funding skips the approval transaction.
type FundRound struct {
	deps Deps
	orc  *Orchestrator
}

func NewFundRound(deps Deps, state *domain.WorkflowState) *FundRound {
	return &FundRound{deps: deps, orc: NewOrchestrator(state, deps.Metrics)}
}

func (op *FundRound) State() *domain.WorkflowState {
	return op.orc.State()
}

func (op *FundRound) Run(ctx context.Context, p domain.FundRoundPayload) (*domain.Outcome, error) {
	if err := op.deps.ready(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var receipt domain.Receipt
	approve := derivedPhase(domain.PhaseApproving)
	if !p.Native() {
		var approval domain.Receipt
		approve = writePhase(domain.PhaseApproving, op.deps.Writer, func() (domain.TransactionParams, error) {
			return contracts.Approve(p.Token, p.Round, p.Amount)
		}, &approval)
	}

	phases := []Phase{
		approve,
		writePhase(domain.PhaseFunding, op.deps.Writer, func() (domain.TransactionParams, error) {
			return contracts.Fund(p.Round, p.Amount, p.Native())
		}, &receipt),
		indexPhase(op.deps, &receipt),
	}
	if err := op.orc.Execute(ctx, phases); err != nil {
		return nil, err
	}

	out := outcomeOf(receipt, nil)
	round := p.Round
	out.ContractAddress = &round
	return out, nil
}

// ReclaimFunds withdraws what is left in a round after it ended.
type ReclaimFunds struct {
	deps Deps
	orc  *Orchestrator
}

func NewReclaimFunds(deps Deps, state *domain.WorkflowState) *ReclaimFunds {
	return &ReclaimFunds{deps: deps, orc: NewOrchestrator(state, deps.Metrics)}
}

func (op *ReclaimFunds) State() *domain.WorkflowState {
	return op.orc.State()
}

func (op *ReclaimFunds) Run(ctx context.Context, p domain.ReclaimFundsPayload) (*domain.Outcome, error) {
	if err := op.deps.ready(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var receipt domain.Receipt
	phases := []Phase{
		writePhase(domain.PhaseWriting, op.deps.Writer, func() (domain.TransactionParams, error) {
			return contracts.Withdraw(p.Round, p.Token, p.Recipient)
		}, &receipt),
		indexPhase(op.deps, &receipt),
		derivedPhase(domain.PhaseRedirecting),
	}
	if err := op.orc.Execute(ctx, phases); err != nil {
		return nil, err
	}

	log.Printf("Orchestrator: reclaimed funds from round %s to %s", p.Round.Hex(), p.Recipient.Hex())
	out := outcomeOf(receipt, nil)
	round := p.Round
	out.ContractAddress = &round
	return out, nil
}
