// Package metrics exposes Prometheus instrumentation for the booking and
// consent lifecycle. Label cardinality is kept bounded: entity types and
// event types come from small fixed sets, never from user input.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// TransitionsTotal counts audited state transitions by entity and event
	// type. Incremented alongside every audit append, so it mirrors the
	// audit log one-to-one.
	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_transitions_total",
			Help: "Total number of audited lifecycle state transitions.",
		},
		[]string{"entity", "event"},
	)

	// SweepRunsTotal counts completed sweep passes by outcome.
	SweepRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_runs_total",
			Help: "Total number of expiry sweep passes.",
		},
		[]string{"outcome"}, // ok | error
	)

	// SweepExpiredTotal counts rows the sweep moved to an expired/cancelled
	// state, by entity.
	SweepExpiredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_expired_total",
			Help: "Total number of rows expired by the background sweep.",
		},
		[]string{"entity"}, // booking | rfp | offer
	)

	// SweepRacesTotal counts conditional updates that affected zero rows
	// because a concurrent writer got there first. Expected under load.
	SweepRacesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sweep_races_total",
			Help: "Sweep no-ops caused by racing a legitimate transition.",
		},
	)

	// SweepDuration records how long one full sweep pass takes.
	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sweep_duration_seconds",
			Help:    "Duration of expiry sweep passes in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		TransitionsTotal,
		SweepRunsTotal,
		SweepExpiredTotal,
		SweepRacesTotal,
		SweepDuration,
	)
}
