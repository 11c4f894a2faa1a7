package workflow

import (
	"context"
	"log"

	"go-roundflow/internal/contracts"
	"go-roundflow/internal/domain"

	"github.com/ethereum/go-ethereum/common"
)

// CreateProgram pins program metadata and deploys a program through the
// program factory.
type CreateProgram struct {
	deps Deps
	orc  *Orchestrator
}

func NewCreateProgram(deps Deps, state *domain.WorkflowState) *CreateProgram {
	return &CreateProgram{deps: deps, orc: NewOrchestrator(state, deps.Metrics)}
}

func (op *CreateProgram) State() *domain.WorkflowState {
	return op.orc.State()
}

func (op *CreateProgram) Run(ctx context.Context, p domain.CreateProgramPayload) (*domain.Outcome, error) {
	if err := op.deps.ready(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	metadata := sanitizeProgramMetadata(p.Metadata)
	var pointer string
	var receipt domain.Receipt

	phases := []Phase{
		storePhase(domain.PhaseStoring, op.deps.Store, "program-metadata", metadata, &pointer),
		writePhase(domain.PhaseDeploying, op.deps.Writer, func() (domain.TransactionParams, error) {
			admins := []common.Address{op.deps.Writer.Address()}
			return contracts.CreateProgram(op.deps.Contracts.ProgramFactory, contracts.NewMetaPtr(pointer), admins, p.Operators)
		}, &receipt),
		indexPhase(op.deps, &receipt),
		derivedPhase(domain.PhaseRedirecting),
	}
	if err := op.orc.Execute(ctx, phases); err != nil {
		return nil, err
	}

	out := outcomeOf(receipt, map[string]string{"program": pointer})
	if addr, err := contracts.ProgramCreatedAddress(receipt.Logs); err == nil {
		out.ContractAddress = &addr
	} else {
		log.Printf("Orchestrator: program created in tx %s without ProgramCreated event", receipt.TxHash.Hex())
	}
	return out, nil
}
