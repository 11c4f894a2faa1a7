package worker

import (
	"context"
	"log"
	"sync"

	"go-roundflow/internal/core/ports"
	"go-roundflow/internal/domain"

	"github.com/google/uuid"
)

type liveState struct {
	state       *domain.WorkflowState
	refs        int
	unsubscribe func()
}

// StateRegistry holds the WorkflowState of every run that is executing in
// this process. Overlapping executions of one run share its state, so a retry
// resets it and starts a new generation. A state is dropped once the last
// execution releases it.
type StateRegistry struct {
	mu      sync.RWMutex
	states  map[uuid.UUID]*liveState
	observe domain.Observer
}

// NewStateRegistry creates a registry. observe, when set, is subscribed once
// to every state while it is live.
func NewStateRegistry(observe domain.Observer) *StateRegistry {
	return &StateRegistry{states: make(map[uuid.UUID]*liveState), observe: observe}
}

// PublishTransitions mirrors every transition to the event bus.
func PublishTransitions(bus ports.EventBus) domain.Observer {
	return func(t domain.Transition) {
		if err := bus.PublishPhaseTransition(context.Background(), domain.NewPhaseTransitionEvent(t)); err != nil {
			log.Printf("Worker failed to publish %s -> %s for run %s: %v", t.Phase, t.To, t.RunID, err)
		}
	}
}

// Acquire returns the live state of run, restoring it from the persisted
// generation when no execution holds it. Every Acquire needs a Release.
func (r *StateRegistry) Acquire(run *domain.WorkflowRun) *domain.WorkflowState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ls, ok := r.states[run.ID]; ok {
		ls.refs++
		return ls.state
	}
	ls := &liveState{
		state: domain.RestoreWorkflowState(run.ID, run.Kind, run.Generation),
		refs:  1,
	}
	if r.observe != nil {
		ls.unsubscribe = ls.state.Subscribe(r.observe)
	}
	r.states[run.ID] = ls
	return ls.state
}

// Release drops one hold on the state of runID.
func (r *StateRegistry) Release(runID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls, ok := r.states[runID]
	if !ok {
		return
	}
	ls.refs--
	if ls.refs > 0 {
		return
	}
	if ls.unsubscribe != nil {
		ls.unsubscribe()
	}
	delete(r.states, runID)
}

func (r *StateRegistry) Get(runID uuid.UUID) (*domain.WorkflowState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ls, ok := r.states[runID]
	if !ok {
		return nil, false
	}
	return ls.state, true
}
