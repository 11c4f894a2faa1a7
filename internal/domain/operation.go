package domain

import "fmt"

type OperationKind string

const (
	OpCreateProgram          OperationKind = "create_program"
	OpCreateRound            OperationKind = "create_round"
	OpUpdateRound            OperationKind = "update_round"
	OpUpdateRoles            OperationKind = "update_roles"
	OpFundRound              OperationKind = "fund_round"
	OpReclaimFunds           OperationKind = "reclaim_funds"
	OpFinalizeRound          OperationKind = "finalize_round"
	OpBulkUpdateApplications OperationKind = "bulk_update_applications"
)

var operationPhases = map[OperationKind][]PhaseName{
	OpCreateProgram:          {PhaseStoring, PhaseDeploying, PhaseIndexing, PhaseRedirecting},
	OpCreateRound:            {PhaseStoring, PhaseDeploying, PhaseIndexing},
	OpUpdateRound:            {PhaseStoring, PhaseUpdating, PhaseIndexing},
	OpUpdateRoles:            {PhaseUpdating, PhaseIndexing, PhaseRedirecting},
	OpFundRound:              {PhaseApproving, PhaseFunding, PhaseIndexing},
	OpReclaimFunds:           {PhaseWriting, PhaseIndexing, PhaseRedirecting},
	OpFinalizeRound:          {PhaseStoring, PhaseWriting, PhaseIndexing},
	OpBulkUpdateApplications: {PhaseUpdating, PhaseIndexing, PhaseRedirecting},
}

// AllOperationKinds lists every supported kind in a stable order.
func AllOperationKinds() []OperationKind {
	return []OperationKind{
		OpCreateProgram,
		OpCreateRound,
		OpUpdateRound,
		OpUpdateRoles,
		OpFundRound,
		OpReclaimFunds,
		OpFinalizeRound,
		OpBulkUpdateApplications,
	}
}

// Phases returns a copy of the fixed, ordered phase list for the kind.
func (k OperationKind) Phases() []PhaseName {
	phases := operationPhases[k]
	out := make([]PhaseName, len(phases))
	copy(out, phases)
	return out
}

func (k OperationKind) Valid() bool {
	_, ok := operationPhases[k]
	return ok
}

func ParseOperationKind(s string) (OperationKind, error) {
	k := OperationKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown operation kind %q", ErrInvalidPayload, s)
	}
	return k, nil
}
