package workflow

import (
	"context"
	"log"

	"go-roundflow/internal/contracts"
	"go-roundflow/internal/domain"
)

// BulkUpdateApplications writes the touched application status rows in one
// transaction.
type BulkUpdateApplications struct {
	deps Deps
	orc  *Orchestrator
}

func NewBulkUpdateApplications(deps Deps, state *domain.WorkflowState) *BulkUpdateApplications {
	return &BulkUpdateApplications{deps: deps, orc: NewOrchestrator(state, deps.Metrics)}
}

func (op *BulkUpdateApplications) State() *domain.WorkflowState {
	return op.orc.State()
}

func (op *BulkUpdateApplications) Run(ctx context.Context, p domain.BulkUpdateApplicationsPayload) (*domain.Outcome, error) {
	if err := op.deps.ready(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	rows, err := contracts.BuildStatusRows(p.Applications, p.Changed)
	if err != nil {
		return nil, err
	}

	var receipt domain.Receipt
	phases := []Phase{
		writePhase(domain.PhaseUpdating, op.deps.Writer, func() (domain.TransactionParams, error) {
			return contracts.SetApplicationStatuses(p.Round, rows)
		}, &receipt),
		indexPhase(op.deps, &receipt),
		derivedPhase(domain.PhaseRedirecting),
	}
	if err := op.orc.Execute(ctx, phases); err != nil {
		return nil, err
	}

	log.Printf("Orchestrator: updated %d status rows on round %s", len(rows), p.Round.Hex())
	out := outcomeOf(receipt, nil)
	round := p.Round
	out.ContractAddress = &round
	return out, nil
}
