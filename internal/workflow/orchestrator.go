// Package workflow runs the store -> write -> wait-for-indexer pipelines
// behind every mutating round manager operation.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go-roundflow/internal/domain"
	"go-roundflow/internal/metrics"
)

// Phase is one independently failable step. A nil Run marks a derived
// phase that succeeds as soon as it is reached.
type Phase struct {
	Name domain.PhaseName
	Run  func(ctx context.Context) error
}

// Orchestrator sequences phases over a single WorkflowState. Every Execute
// starts a new generation of that state; a superseded run stops at its
// next transition.
type Orchestrator struct {
	state   *domain.WorkflowState
	metrics *metrics.Collector
}

func NewOrchestrator(state *domain.WorkflowState, m *metrics.Collector) *Orchestrator {
	return &Orchestrator{state: state, metrics: m}
}

func (o *Orchestrator) State() *domain.WorkflowState {
	return o.state
}

// Execute resets the state and runs phases in order, stopping at the first
// failure. The returned error is a *domain.PhaseFailure for phase failures.
func (o *Orchestrator) Execute(ctx context.Context, phases []Phase) error {
	if err := o.checkPhases(phases); err != nil {
		return err
	}

	gen := o.state.Reset()
	for _, p := range phases {
		if err := o.runPhase(ctx, gen, p); err != nil {
			return err
		}
	}
	log.Printf("Orchestrator: %s run %s gen %d completed", o.state.Kind(), o.state.RunID(), gen)
	return nil
}

func (o *Orchestrator) checkPhases(phases []Phase) error {
	want := o.state.Kind().Phases()
	if len(phases) != len(want) {
		return fmt.Errorf("%w: %s expects %d phases, got %d", domain.ErrIllegalTransition, o.state.Kind(), len(want), len(phases))
	}
	for i, p := range phases {
		if p.Name != want[i] {
			return fmt.Errorf("%w: %s phase %d is %s, got %s", domain.ErrIllegalTransition, o.state.Kind(), i, want[i], p.Name)
		}
	}
	return nil
}

// runPhase is the PhaseRunner: InProgress, invoke, then Success or Error.
func (o *Orchestrator) runPhase(ctx context.Context, gen uint64, p Phase) error {
	kind := o.state.Kind()
	if err := o.state.Transition(gen, p.Name, domain.PhaseInProgress, nil); err != nil {
		return o.superseded(gen, p.Name, err)
	}
	o.metrics.ObservePhase(kind, p.Name, domain.PhaseInProgress, 0)

	start := time.Now()
	var runErr error
	if p.Run != nil {
		runErr = p.Run(ctx)
	}
	elapsed := time.Since(start)

	if runErr != nil {
		log.Printf("Orchestrator: %s run %s gen %d phase %s failed: %v", kind, o.state.RunID(), gen, p.Name, runErr)
		if err := o.state.Transition(gen, p.Name, domain.PhaseError, runErr); err != nil {
			return o.superseded(gen, p.Name, err)
		}
		o.metrics.ObservePhase(kind, p.Name, domain.PhaseError, elapsed)
		return &domain.PhaseFailure{Kind: kind, Phase: p.Name, Generation: gen, Err: runErr}
	}

	if err := o.state.Transition(gen, p.Name, domain.PhaseSuccess, nil); err != nil {
		return o.superseded(gen, p.Name, err)
	}
	o.metrics.ObservePhase(kind, p.Name, domain.PhaseSuccess, elapsed)
	return nil
}

func (o *Orchestrator) superseded(gen uint64, phase domain.PhaseName, err error) error {
	if errors.Is(err, domain.ErrStaleGeneration) {
		log.Printf("Orchestrator: %s run %s gen %d superseded at phase %s", o.state.Kind(), o.state.RunID(), gen, phase)
	}
	return err
}
