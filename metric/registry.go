package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bridginghub"

// Registry owns a private Prometheus registry so that repeated pipeline
// passes inside one process never collide with the global default registry
// or with each other's collectors.
type Registry struct {
	prometheus *prometheus.Registry

	recordsCollected *prometheus.CounterVec
	recordsStaged    *prometheus.CounterVec
	recordsDelivered *prometheus.CounterVec
	recordsFailed    *prometheus.CounterVec
	recordsArchived  *prometheus.CounterVec
	recordsJunked    *prometheus.CounterVec

	passRuns     *prometheus.CounterVec
	passDuration *prometheus.HistogramVec
}

// NewRegistry creates a Registry with all pass collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		prometheus: prometheus.NewRegistry(),

		recordsCollected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "records",
			Name:      "collected_total",
			Help:      "Records collected from inputs, labeled by segment.",
		}, []string{"segment"}),

		recordsStaged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "records",
			Name:      "staged_total",
			Help:      "Records written to the staging cache, labeled by segment.",
		}, []string{"segment"}),

		recordsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "records",
			Name:      "delivered_total",
			Help:      "Records an output accepted as delivered, labeled by segment.",
		}, []string{"segment"}),

		recordsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "records",
			Name:      "failed_total",
			Help:      "Records an output rejected definitively, labeled by segment.",
		}, []string{"segment"}),

		recordsArchived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "records",
			Name:      "archived_total",
			Help:      "Records moved to the archive, labeled by segment.",
		}, []string{"segment"}),

		recordsJunked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "records",
			Name:      "junked_total",
			Help:      "Records moved to the junk area, labeled by segment.",
		}, []string{"segment"}),

		passRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pass",
			Name:      "runs_total",
			Help:      "Completed pipeline passes by action and status.",
		}, []string{"action", "status"}),

		passDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pass",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of a pipeline pass by action.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
	}

	r.prometheus.MustRegister(
		r.recordsCollected,
		r.recordsStaged,
		r.recordsDelivered,
		r.recordsFailed,
		r.recordsArchived,
		r.recordsJunked,
		r.passRuns,
		r.passDuration,
	)

	return r
}

// Prometheus exposes the underlying registry for gathering and tests.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.prometheus
}
