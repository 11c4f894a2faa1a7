package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RunStatus string

const (
	RunPending   RunStatus = "PENDING"
	RunRunning   RunStatus = "RUNNING"
	RunSucceeded RunStatus = "SUCCEEDED"
	RunFailed    RunStatus = "FAILED"
)

// WorkflowRun is the persisted history of one run. It is an audit record;
// in-flight runs are not resumed from it.
type WorkflowRun struct {
	ID      uuid.UUID     `gorm:"type:uuid;primary_key;"`
	Kind    OperationKind `gorm:"type:varchar(50);index;not null"`
	ChainID uint64        `gorm:"index"`

	// State
	Status     RunStatus      `gorm:"type:varchar(20);default:'PENDING'"`
	Generation uint64         `gorm:"default:0"`
	Phases     datatypes.JSON `gorm:"type:jsonb"`
	LastError  string         `gorm:"type:text"`

	Payload datatypes.JSON `gorm:"type:jsonb"`
	Outcome datatypes.JSON `gorm:"type:jsonb"`

	// Audit
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewWorkflowRun(id uuid.UUID, kind OperationKind, chainID uint64, payload []byte) *WorkflowRun {
	return &WorkflowRun{
		ID:        id,
		Kind:      kind,
		ChainID:   chainID,
		Status:    RunPending,
		Payload:   datatypes.JSON(payload),
		CreatedAt: time.Now(),
	}
}

// RunResult is what a finished generation records.
type RunResult struct {
	Generation uint64
	Status     RunStatus
	Phases     []PhaseSnapshot
	Outcome    []byte
	LastError  string
}

func (r *WorkflowRun) IsFinished() bool {
	return r.Status == RunSucceeded || r.Status == RunFailed
}

// RunStatusOf folds a snapshot into the coarse run status.
func RunStatusOf(s Snapshot) RunStatus {
	if _, failed := s.FailedPhase(); failed {
		return RunFailed
	}
	if s.Succeeded() {
		return RunSucceeded
	}
	return RunRunning
}
