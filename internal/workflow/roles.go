package workflow

import (
	"context"

	"go-roundflow/internal/contracts"
	"go-roundflow/internal/domain"
)

// UpdateRoles grants and revokes round operators.
type UpdateRoles struct {
	deps Deps
	orc  *Orchestrator
}

func NewUpdateRoles(deps Deps, state *domain.WorkflowState) *UpdateRoles {
	return &UpdateRoles{deps: deps, orc: NewOrchestrator(state, deps.Metrics)}
}

func (op *UpdateRoles) State() *domain.WorkflowState {
	return op.orc.State()
}

func (op *UpdateRoles) Run(ctx context.Context, p domain.UpdateRolesPayload) (*domain.Outcome, error) {
	if err := op.deps.ready(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var receipt domain.Receipt
	phases := []Phase{
		writePhase(domain.PhaseUpdating, op.deps.Writer, func() (domain.TransactionParams, error) {
			return contracts.UpdateRoles(p.Round, p.Grant, p.Revoke)
		}, &receipt),
		indexPhase(op.deps, &receipt),
		derivedPhase(domain.PhaseRedirecting),
	}
	if err := op.orc.Execute(ctx, phases); err != nil {
		return nil, err
	}

	out := outcomeOf(receipt, nil)
	round := p.Round
	out.ContractAddress = &round
	return out, nil
}
