// Package metrics exposes Prometheus collectors for the voting core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the counters updated by the services. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	votesCast        prometheus.Counter
	votesRejected    *prometheus.CounterVec
	votesInvalidated prometheus.Counter
	transitions      *prometheus.CounterVec
	candidates       *prometheus.CounterVec
	archives         *prometheus.CounterVec
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		votesCast: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "voternet",
			Name:      "votes_cast_total",
			Help:      "Votes accepted into the ledger",
		}),
		votesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voternet",
			Name:      "votes_rejected_total",
			Help:      "Cast attempts rejected, by reason",
		}, []string{"reason"}),
		votesInvalidated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "voternet",
			Name:      "votes_invalidated_total",
			Help:      "Votes soft-invalidated by officials",
		}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voternet",
			Name:      "election_transitions_total",
			Help:      "Election status transitions, by target status",
		}, []string{"status"}),
		candidates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voternet",
			Name:      "candidate_events_total",
			Help:      "Candidate registry changes, by event",
		}, []string{"event"}),
		archives: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voternet",
			Name:      "results_archived_total",
			Help:      "Results archive uploads, by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) VoteCast() {
	if m == nil {
		return
	}
	m.votesCast.Inc()
}

func (m *Metrics) VoteRejected(reason string) {
	if m == nil {
		return
	}
	m.votesRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) VoteInvalidated() {
	if m == nil {
		return
	}
	m.votesInvalidated.Inc()
}

func (m *Metrics) Transition(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status).Inc()
}

func (m *Metrics) CandidateEvent(event string) {
	if m == nil {
		return
	}
	m.candidates.WithLabelValues(event).Inc()
}

func (m *Metrics) Archived(ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.archives.WithLabelValues(outcome).Inc()
}
