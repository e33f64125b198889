// Package metrics exposes engine counters on the default Prometheus
// registry, next to the HTTP metrics of the fiber middleware.
package metrics

import (
	"github.com/localnerve/assemblydb/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "assemblydb"

var (
	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "state_transitions_total",
		Help:      "Document state changes by workflow and target state.",
	}, []string{"workflow", "state"})

	identifiers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "identifiers_assigned_total",
		Help:      "Identifiers handed out by numbering mode.",
	}, []string{"mode"})

	pollsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "polls_created_total",
		Help:      "Polls created by document kind and vote method.",
	}, []string{"kind", "vote_method"})

	votesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "votes_recorded_total",
		Help:      "Ballot submissions stored by vote method.",
	}, []string{"vote_method"})

	coreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "core_errors_total",
		Help:      "Rejected operations by operation and error kind.",
	}, []string{"operation", "kind"})
)

// Transition counts a state change
func Transition(workflow, state string) {
	transitions.WithLabelValues(workflow, state).Inc()
}

// IdentifierAssigned counts a numbering decision
func IdentifierAssigned(mode string) {
	identifiers.WithLabelValues(mode).Inc()
}

// PollCreated counts a new poll
func PollCreated(kind, method string) {
	pollsCreated.WithLabelValues(kind, method).Inc()
}

// VotesRecorded counts a stored ballot submission
func VotesRecorded(method string) {
	votesRecorded.WithLabelValues(method).Inc()
}

// ObserveError counts err when it is a core error. Infrastructure errors are
// left to the HTTP metrics.
func ObserveError(operation string, err error) {
	if kind := types.KindOf(err); kind != "" {
		coreErrors.WithLabelValues(operation, string(kind)).Inc()
	}
}
