package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/notice-escalator/internal/domain"
)

// Transition outcomes recorded on notice_transitions_total.
const (
	OutcomeAdvanced = "advanced"
	OutcomeConflict = "conflict"
	OutcomeFailed   = "failed"
)

// Reply outcomes recorded on notice_replies_total.
const (
	ReplyMatched  = "matched"
	ReplyIgnored  = "ignored"
	ReplyConflict = "conflict"
)

var (
	// transitions counts lifecycle transition attempts by edge and outcome.
	// Labels are bounded by the state graph.
	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notice_transitions_total",
			Help: "Lifecycle transition attempts by from/to state and outcome.",
		},
		[]string{"from", "to", "outcome"},
	)

	flagged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notice_cases_flagged_total",
			Help: "Cases created by keyword flagging.",
		},
	)

	replies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notice_replies_total",
			Help: "Inbound replies by correlation outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(transitions, flagged, replies)
}

// ObserveTransition records one transition attempt.
func ObserveTransition(from, to domain.State, outcome string) {
	transitions.WithLabelValues(string(from), string(to), outcome).Inc()
}

// ObserveFlagged records n newly created cases.
func ObserveFlagged(n int) {
	if n > 0 {
		flagged.Add(float64(n))
	}
}

// ObserveReply records one inbound reply outcome.
func ObserveReply(outcome string) {
	replies.WithLabelValues(outcome).Inc()
}
