package dto

import (
	"encoding/json"
	"time"

	"go-roundflow/internal/domain"

	"github.com/google/uuid"
)

type RunResponse struct {
	ID           uuid.UUID                `json:"id"`
	Kind         domain.OperationKind     `json:"kind"`
	Status       domain.RunStatus         `json:"status"`
	Generation   uint64                   `json:"generation"`
	Phases       []domain.PhaseSnapshot   `json:"phases"`
	Finalization domain.FinalizationState `json:"finalization,omitempty"`
	Outcome      json.RawMessage          `json:"outcome,omitempty"`
	LastError    string                   `json:"last_error,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

type ClassifyPayoutsResponse struct {
	Paid   []domain.ClassifiedPayout `json:"paid"`
	Unpaid []domain.ClassifiedPayout `json:"unpaid"`
}

type ErrorResponse struct {
	Error    string                 `json:"error"`
	Category domain.FailureCategory `json:"category,omitempty"`
	Run      *RunResponse           `json:"run,omitempty"`
}
