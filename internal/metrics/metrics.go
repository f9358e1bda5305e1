// Package metrics exposes Prometheus instrumentation for upstream calls and
// graph resolutions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors used across the service. A nil *Metrics is
// valid and turns every recording call into a no-op, which keeps the resolver
// testable without a registry.
type Metrics struct {
	UpstreamRequests *prometheus.CounterVec
	UpstreamRetries  *prometheus.CounterVec
	ResolveDuration  prometheus.Histogram
	ResolveNodes     prometheus.Histogram
	ResolveTruncated prometheus.Counter
}

// New registers the service collectors with the provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "entitygraph",
			Name:      "upstream_requests_total",
			Help:      "Upstream requests by service and outcome.",
		}, []string{"service", "outcome"}),
		UpstreamRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "entitygraph",
			Name:      "upstream_retries_total",
			Help:      "Retry attempts by component.",
		}, []string{"component"}),
		ResolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "entitygraph",
			Name:      "resolve_duration_seconds",
			Help:      "Wall-clock duration of graph resolutions.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		ResolveNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "entitygraph",
			Name:      "resolve_nodes",
			Help:      "Node count per resolved graph.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		ResolveTruncated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "entitygraph",
			Name:      "resolve_truncated_total",
			Help:      "Resolutions cut short by the request deadline.",
		}),
	}

	reg.MustRegister(
		m.UpstreamRequests,
		m.UpstreamRetries,
		m.ResolveDuration,
		m.ResolveNodes,
		m.ResolveTruncated,
	)
	return m
}

// ObserveUpstream records one upstream request outcome.
func (m *Metrics) ObserveUpstream(service, outcome string) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(service, outcome).Inc()
}

// ObserveRetry records one retry attempt for a component.
func (m *Metrics) ObserveRetry(component string) {
	if m == nil {
		return
	}
	m.UpstreamRetries.WithLabelValues(component).Inc()
}

// ObserveResolution records the shape of a finished resolution.
func (m *Metrics) ObserveResolution(seconds float64, nodes int, truncated bool) {
	if m == nil {
		return
	}
	m.ResolveDuration.Observe(seconds)
	m.ResolveNodes.Observe(float64(nodes))
	if truncated {
		m.ResolveTruncated.Inc()
	}
}
