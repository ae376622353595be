// Package metrics wires per-query and per-operator timing into
// Prometheus histograms, grounded on 2lar-b2's observability.Collector
// (private registry, Must-registered Histogram/HistogramVecs) and
// wired into GRAPH.PROFILE's per-operator stats (spec.md §6).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns one private Prometheus registry so repeated Engine
// construction in tests never hits Prometheus's global "duplicate
// metrics collector registration" panic.
type Collector struct {
	registry *prometheus.Registry

	QueryDuration    *prometheus.HistogramVec
	OperatorDuration *prometheus.HistogramVec
	QueriesTotal     *prometheus.CounterVec
}

// NewCollector builds a Collector with its own registry under the given
// namespace (e.g. "graphengine").
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "End-to-end duration of a GRAPH command.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"command", "graph"},
	)
	operatorDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operator_duration_seconds",
			Help:      "Cumulative Consume() time per plan operator, sampled during GRAPH.PROFILE.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operator", "graph"},
	)
	queriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Total GRAPH commands dispatched, labeled by command and outcome.",
		},
		[]string{"command", "outcome"},
	)

	registry.MustRegister(queryDuration, operatorDuration, queriesTotal)

	return &Collector{
		registry:         registry,
		QueryDuration:    queryDuration,
		OperatorDuration: operatorDuration,
		QueriesTotal:     queriesTotal,
	}
}

// Registry exposes the private registry for an HTTP /metrics handler.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }
