package domain

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type PhaseSnapshot struct {
	Name   PhaseName   `json:"name"`
	Label  string      `json:"label"`
	Status PhaseStatus `json:"status"`
	Error  string      `json:"error,omitempty"`
}

// Snapshot is a point-in-time copy of a WorkflowState.
type Snapshot struct {
	RunID      uuid.UUID       `json:"run_id"`
	Kind       OperationKind   `json:"kind"`
	Generation uint64          `json:"generation"`
	Phases     []PhaseSnapshot `json:"phases"`
}

func (s Snapshot) Status(name PhaseName) PhaseStatus {
	for _, p := range s.Phases {
		if p.Name == name {
			return p.Status
		}
	}
	return PhaseNotStarted
}

// FailedPhase returns the phase that ended the generation in ERROR, if any.
func (s Snapshot) FailedPhase() (PhaseName, bool) {
	for _, p := range s.Phases {
		if p.Status == PhaseError {
			return p.Name, true
		}
	}
	return "", false
}

func (s Snapshot) Succeeded() bool {
	if len(s.Phases) == 0 {
		return false
	}
	for _, p := range s.Phases {
		if p.Status != PhaseSuccess {
			return false
		}
	}
	return true
}

// Transition is delivered to observers for every accepted status change.
// Reset transitions move a phase back to NOT_STARTED when a new generation begins.
type Transition struct {
	RunID      uuid.UUID
	Kind       OperationKind
	Generation uint64
	Phase      PhaseName
	From       PhaseStatus
	To         PhaseStatus
	Error      string
	Reset      bool
	At         time.Time
}

type Observer func(Transition)

// WorkflowState holds one status per phase of a single operation kind.
// It is owned by the orchestrator that created it; everyone else reads
// snapshots or subscribes.
type WorkflowState struct {
	emitMu sync.Mutex
	mu     sync.RWMutex

	runID      uuid.UUID
	kind       OperationKind
	order      []PhaseName
	index      map[PhaseName]int
	status     []PhaseStatus
	errs       []string
	generation uint64

	observers    map[int]Observer
	nextObserver int
}

func NewWorkflowStateWithID(runID uuid.UUID, kind OperationKind) *WorkflowState {
	order := kind.Phases()
	s := &WorkflowState{
		runID:     runID,
		kind:      kind,
		order:     order,
		index:     make(map[PhaseName]int, len(order)),
		status:    make([]PhaseStatus, len(order)),
		errs:      make([]string, len(order)),
		observers: make(map[int]Observer),
	}
	for i, name := range order {
		s.index[name] = i
		s.status[i] = PhaseNotStarted
	}
	return s
}

// RestoreWorkflowState recreates the state of a persisted run so that its
// next Reset starts generation+1.
func RestoreWorkflowState(runID uuid.UUID, kind OperationKind, generation uint64) *WorkflowState {
	s := NewWorkflowStateWithID(runID, kind)
	s.generation = generation
	return s
}

func (s *WorkflowState) RunID() uuid.UUID {
	return s.runID
}

func (s *WorkflowState) Kind() OperationKind {
	return s.kind
}

func (s *WorkflowState) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *WorkflowState) Status(phase PhaseName) PhaseStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[phase]
	if !ok {
		return PhaseNotStarted
	}
	return s.status[i]
}

func (s *WorkflowState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *WorkflowState) snapshotLocked() Snapshot {
	phases := make([]PhaseSnapshot, len(s.order))
	for i, name := range s.order {
		phases[i] = PhaseSnapshot{
			Name:   name,
			Label:  name.Label(),
			Status: s.status[i],
			Error:  s.errs[i],
		}
	}
	return Snapshot{
		RunID:      s.runID,
		Kind:       s.kind,
		Generation: s.generation,
		Phases:     phases,
	}
}

// Subscribe registers an observer and returns a func that removes it.
// Observers run synchronously on the transitioning goroutine and must not
// call Reset or Transition.
func (s *WorkflowState) Subscribe(obs Observer) func() {
	s.mu.Lock()
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = obs
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Reset clears every phase to NOT_STARTED and starts a new generation.
// Transitions still carrying an older generation are rejected afterwards.
func (s *WorkflowState) Reset() uint64 {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	s.generation++
	gen := s.generation
	now := time.Now()
	var resets []Transition
	for i, name := range s.order {
		if s.status[i] != PhaseNotStarted {
			resets = append(resets, Transition{
				RunID:      s.runID,
				Kind:       s.kind,
				Generation: gen,
				Phase:      name,
				From:       s.status[i],
				To:         PhaseNotStarted,
				Reset:      true,
				At:         now,
			})
		}
		s.status[i] = PhaseNotStarted
		s.errs[i] = ""
	}
	observers := s.observersLocked()
	s.mu.Unlock()

	for _, t := range resets {
		notify(observers, t)
	}
	return gen
}

// Transition moves phase to the given status within generation gen.
func (s *WorkflowState) Transition(gen uint64, phase PhaseName, to PhaseStatus, cause error) error {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return fmt.Errorf("%w: generation %d, current %d", ErrStaleGeneration, gen, s.generation)
	}
	i, ok := s.index[phase]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s has no phase %q", ErrIllegalTransition, s.kind, phase)
	}
	from := s.status[i]
	if !from.canTransition(to) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s %s -> %s", ErrIllegalTransition, phase, from, to)
	}
	if to == PhaseInProgress {
		for j := 0; j < i; j++ {
			if s.status[j] != PhaseSuccess {
				s.mu.Unlock()
				return fmt.Errorf("%w: %s cannot start before %s succeeds", ErrIllegalTransition, phase, s.order[j])
			}
		}
	}

	s.status[i] = to
	if to == PhaseError && cause != nil {
		s.errs[i] = cause.Error()
	}
	t := Transition{
		RunID:      s.runID,
		Kind:       s.kind,
		Generation: gen,
		Phase:      phase,
		From:       from,
		To:         to,
		Error:      s.errs[i],
		At:         time.Now(),
	}
	observers := s.observersLocked()
	s.mu.Unlock()

	notify(observers, t)
	return nil
}

func (s *WorkflowState) observersLocked() []Observer {
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]Observer, len(ids))
	for i, id := range ids {
		out[i] = s.observers[id]
	}
	return out
}

func notify(observers []Observer, t Transition) {
	for _, obs := range observers {
		obs(t)
	}
}
