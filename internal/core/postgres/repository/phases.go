package repository

import "go-roundflow/internal/domain"

func initialPhases(kind domain.OperationKind) []domain.PhaseSnapshot {
	names := kind.Phases()
	phases := make([]domain.PhaseSnapshot, len(names))
	for i, name := range names {
		phases[i] = domain.PhaseSnapshot{Name: name, Label: name.Label(), Status: domain.PhaseNotStarted}
	}
	return phases
}

// applyEvent returns the phase list and generation after event. Events of an
// older generation are dropped; a newer generation starts from a clean list.
// Within a generation a phase only moves forward, so an event that arrives
// after Finish stored the final list is a no-op.
func applyEvent(kind domain.OperationKind, phases []domain.PhaseSnapshot, gen uint64, event domain.PhaseTransitionEvent) ([]domain.PhaseSnapshot, uint64, bool) {
	if event.Generation < gen {
		return phases, gen, false
	}
	fresh := false
	if event.Generation > gen || len(phases) == 0 {
		phases = initialPhases(kind)
		gen = event.Generation
		fresh = true
	}

	for i := range phases {
		if phases[i].Name != event.Phase {
			continue
		}
		if progress(event.To) <= progress(phases[i].Status) {
			return phases, gen, fresh
		}
		phases[i].Status = event.To
		switch event.To {
		case domain.PhaseError:
			phases[i].Error = event.Error
		case domain.PhaseInProgress:
			phases[i].Error = ""
		}
		return phases, gen, true
	}
	return phases, gen, fresh
}

func progress(s domain.PhaseStatus) int {
	switch s {
	case domain.PhaseInProgress:
		return 1
	case domain.PhaseSuccess, domain.PhaseError:
		return 2
	default:
		return 0
	}
}
