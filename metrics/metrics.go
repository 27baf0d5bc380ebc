// Package metrics hält die Prometheus-Metriken des Dienstes.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Resolutions zählt aufgelöste RAFTs nach Quelle (sidecar, datacite, failed).
	Resolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raft_resolutions_total",
			Help: "Total number of RAFT resolutions by content source.",
		},
		[]string{"source"},
	)

	ReviewListSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "raft_review_list_skipped_total",
			Help: "Records omitted from review listings because their RAFT.json could not be read.",
		},
	)

	StatusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raft_status_transitions_total",
			Help: "Successful registry status updates by target status.",
		},
		[]string{"to"},
	)

	ReviewQueue = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "raft_review_queue",
			Help: "Number of registry records per review bucket, refreshed by the scheduler.",
		},
		[]string{"status"},
	)

	// BreakerState: 0 = closed, 1 = half-open, 2 = open
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "registry_circuit_breaker_state",
			Help: "State of the DOI registry circuit breaker.",
		},
		[]string{"name"},
	)
)

func init() {
	prometheus.MustRegister(Resolutions, ReviewListSkipped, StatusTransitions, ReviewQueue, BreakerState)
}
