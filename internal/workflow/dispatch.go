package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"go-roundflow/internal/domain"
)

// DecodePayload parses raw JSON into the payload type of kind and validates it.
func DecodePayload(kind domain.OperationKind, raw []byte) (any, error) {
	var (
		payload interface{ Validate() error }
		err     error
	)
	switch kind {
	case domain.OpCreateProgram:
		payload, err = decode[domain.CreateProgramPayload](raw)
	case domain.OpCreateRound:
		payload, err = decode[domain.CreateRoundPayload](raw)
	case domain.OpUpdateRound:
		payload, err = decode[domain.UpdateRoundPayload](raw)
	case domain.OpUpdateRoles:
		payload, err = decode[domain.UpdateRolesPayload](raw)
	case domain.OpFundRound:
		payload, err = decode[domain.FundRoundPayload](raw)
	case domain.OpReclaimFunds:
		payload, err = decode[domain.ReclaimFundsPayload](raw)
	case domain.OpFinalizeRound:
		payload, err = decode[domain.FinalizeRoundPayload](raw)
	case domain.OpBulkUpdateApplications:
		payload, err = decode[domain.BulkUpdateApplicationsPayload](raw)
	default:
		return nil, fmt.Errorf("%w: unknown operation %q", domain.ErrInvalidPayload, kind)
	}
	if err != nil {
		return nil, err
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return payload, nil
}

func decode[T any](raw []byte) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	return v, nil
}

// Dispatch decodes raw for the state's operation kind and runs it on state.
func Dispatch(ctx context.Context, deps Deps, state *domain.WorkflowState, raw []byte) (*domain.Outcome, error) {
	payload, err := DecodePayload(state.Kind(), raw)
	if err != nil {
		return nil, err
	}

	switch p := payload.(type) {
	case domain.CreateProgramPayload:
		return NewCreateProgram(deps, state).Run(ctx, p)
	case domain.CreateRoundPayload:
		return NewCreateRound(deps, state).Run(ctx, p)
	case domain.UpdateRoundPayload:
		return NewUpdateRound(deps, state).Run(ctx, p)
	case domain.UpdateRolesPayload:
		return NewUpdateRoles(deps, state).Run(ctx, p)
	case domain.FundRoundPayload:
		return NewFundRound(deps, state).Run(ctx, p)
	case domain.ReclaimFundsPayload:
		return NewReclaimFunds(deps, state).Run(ctx, p)
	case domain.FinalizeRoundPayload:
		return NewFinalizeRound(deps, state).Run(ctx, p)
	case domain.BulkUpdateApplicationsPayload:
		return NewBulkUpdateApplications(deps, state).Run(ctx, p)
	default:
		return nil, fmt.Errorf("%w: unsupported payload %T", domain.ErrInvalidPayload, payload)
	}
}
