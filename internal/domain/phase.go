package domain

type PhaseStatus string

const (
	PhaseNotStarted PhaseStatus = "NOT_STARTED"
	PhaseInProgress PhaseStatus = "IN_PROGRESS"
	PhaseSuccess    PhaseStatus = "SUCCESS"
	PhaseError      PhaseStatus = "ERROR"
)

// IsTerminal reports whether no further transition is allowed within a generation.
func (s PhaseStatus) IsTerminal() bool {
	return s == PhaseSuccess || s == PhaseError
}

// canTransition enforces NOT_STARTED -> IN_PROGRESS -> {SUCCESS | ERROR}.
func (s PhaseStatus) canTransition(to PhaseStatus) bool {
	switch s {
	case PhaseNotStarted:
		return to == PhaseInProgress
	case PhaseInProgress:
		return to == PhaseSuccess || to == PhaseError
	default:
		return false
	}
}

type PhaseName string

const (
	PhaseStoring     PhaseName = "storing"
	PhaseDeploying   PhaseName = "deploying"
	PhaseUpdating    PhaseName = "updating"
	PhaseWriting     PhaseName = "writing"
	PhaseApproving   PhaseName = "approving"
	PhaseFunding     PhaseName = "funding"
	PhaseIndexing    PhaseName = "indexing"
	PhaseRedirecting PhaseName = "redirecting"
)

// Label is the progress-step caption shown next to the phase.
func (p PhaseName) Label() string {
	switch p {
	case PhaseStoring:
		return "Storing metadata"
	case PhaseDeploying:
		return "Deploying contract"
	case PhaseUpdating:
		return "Updating contract"
	case PhaseWriting:
		return "Submitting transaction"
	case PhaseApproving:
		return "Approving token allowance"
	case PhaseFunding:
		return "Funding round"
	case PhaseIndexing:
		return "Indexing"
	case PhaseRedirecting:
		return "Redirecting"
	default:
		return string(p)
	}
}
