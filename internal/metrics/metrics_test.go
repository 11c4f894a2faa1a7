package metrics

import (
	"errors"
	"testing"
	"time"

	"go-roundflow/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.ObservePhase(domain.OpCreateRound, domain.PhaseStoring, domain.PhaseInProgress, 0)
	c.ObservePhase(domain.OpCreateRound, domain.PhaseStoring, domain.PhaseSuccess, time.Second)
	c.ObservePoll(10, 5, nil)
	c.ObservePoll(10, 0, errors.New("down"))
	c.ObserveRun(domain.OpCreateRound, domain.ErrReverted)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.PhaseTransitions.WithLabelValues("create_round", "storing", "SUCCESS")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.PhaseDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.IndexerPolls.WithLabelValues("10", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Runs.WithLabelValues("create_round", "transaction")))
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObservePhase(domain.OpCreateRound, domain.PhaseStoring, domain.PhaseSuccess, time.Second)
		c.ObservePoll(1, 1, nil)
		c.ObserveRun(domain.OpCreateRound, nil)
	})
}
