package metrics

import (
	"strconv"
	"time"

	"go-roundflow/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "roundflow"

// Collector groups the workflow metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	PhaseTransitions *prometheus.CounterVec
	PhaseDuration    *prometheus.HistogramVec
	IndexerPolls     *prometheus.CounterVec
	Runs             *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		PhaseTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_transitions_total",
			Help:      "Phase status transitions by operation kind, phase and target status.",
		}, []string{"kind", "phase", "status"}),
		PhaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Time spent in a phase before it reached a terminal status.",
			Buckets:   []float64{0.05, 0.25, 1, 5, 15, 30, 60, 120, 300, 900},
		}, []string{"kind", "phase"}),
		IndexerPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "indexer_polls_total",
			Help:      "Indexer sync polls by chain and result.",
		}, []string{"chain_id", "result"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished workflow runs by operation kind and result.",
		}, []string{"kind", "result"}),
	}
	reg.MustRegister(c.PhaseTransitions, c.PhaseDuration, c.IndexerPolls, c.Runs)
	return c
}

func (c *Collector) ObservePhase(kind domain.OperationKind, phase domain.PhaseName, status domain.PhaseStatus, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.PhaseTransitions.WithLabelValues(string(kind), string(phase), string(status)).Inc()
	if status.IsTerminal() {
		c.PhaseDuration.WithLabelValues(string(kind), string(phase)).Observe(elapsed.Seconds())
	}
}

func (c *Collector) ObservePoll(chainID uint64, block uint64, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.IndexerPolls.WithLabelValues(strconv.FormatUint(chainID, 10), result).Inc()
}

func (c *Collector) ObserveRun(kind domain.OperationKind, err error) {
	if c == nil {
		return
	}
	result := "success"
	if err != nil {
		result = string(domain.CategoryOf(err))
	}
	c.Runs.WithLabelValues(string(kind), result).Inc()
}
