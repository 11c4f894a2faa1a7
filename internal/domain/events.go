package domain

import (
	"time"

	"github.com/google/uuid"
)

// PhaseTransitionEvent is published to Redis Pub/Sub for every phase change.
type PhaseTransitionEvent struct {
	EventID    uuid.UUID     `json:"event_id"`
	RunID      uuid.UUID     `json:"run_id"`
	Kind       OperationKind `json:"kind"`
	Generation uint64        `json:"generation"`
	Phase      PhaseName     `json:"phase"`
	From       PhaseStatus   `json:"from"`
	To         PhaseStatus   `json:"to"`
	Error      string        `json:"error,omitempty"`
	Reset      bool          `json:"reset,omitempty"`
	At         time.Time     `json:"at"`
}

func NewPhaseTransitionEvent(t Transition) PhaseTransitionEvent {
	return PhaseTransitionEvent{
		EventID:    uuid.New(),
		RunID:      t.RunID,
		Kind:       t.Kind,
		Generation: t.Generation,
		Phase:      t.Phase,
		From:       t.From,
		To:         t.To,
		Error:      t.Error,
		Reset:      t.Reset,
		At:         t.At,
	}
}
