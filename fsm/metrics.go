package fsm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Failure reasons used as metric labels.
const (
	reasonNoTransition = "no_transition"
	reasonActionError  = "action_error"
)

// Metric definitions with appropriate labels.
var (
	// transitionsTotal tracks transitions taken by engine, states, input and selection kind.
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_transitions_total",
		Help: "Total number of FSM transitions taken by engine, from, input, to and kind",
	}, []string{"engine", "from", "input", "to", "kind"})

	// transitionFailuresTotal tracks inputs that did not produce a transition.
	transitionFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_transition_failures_total",
		Help: "Total number of rejected FSM inputs by engine, state, input and reason",
	}, []string{"engine", "state", "input", "reason"})

	// registrationOverwritesTotal tracks unguarded registrations replaced by a later one.
	registrationOverwritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_registration_overwrites_total",
		Help: "Total number of unguarded transition registrations replaced by a later registration",
	}, []string{"engine"})

	// actionDuration tracks transition action execution time.
	actionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fsm_action_duration_seconds",
		Help:    "Duration of transition action execution by engine, from state and input",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"engine", "from", "input"})
)

func sanitizeEngine(name string) string {
	if name == "" {
		return "unnamed"
	}

	return name
}
