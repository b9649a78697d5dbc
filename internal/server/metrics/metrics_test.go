package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.VoteCast()
	m.VoteCast()
	m.VoteRejected("conflict")
	m.VoteInvalidated()
	m.Transition("published")
	m.CandidateEvent("registered")
	m.Archived(true)
	m.Archived(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.votesCast))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.votesRejected.WithLabelValues("conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.votesInvalidated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("published")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.candidates.WithLabelValues("registered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.archives.WithLabelValues("error")))

	n, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.VoteCast()
		m.VoteRejected("x")
		m.VoteInvalidated()
		m.Transition("active")
		m.CandidateEvent("verified")
		m.Archived(true)
	})
}
