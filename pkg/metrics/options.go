package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Names and buckets of the stork metric set.
const (
	Namespace = "stork"
	Subsystem = "pool"
)

// LatencyBuckets spans millisecond latencies from in-process scoring up to
// slow calls to the mail provider.
var LatencyBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000} //nolint:gochecknoglobals // read-only

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace prefixes every metric name, e.g. stork_.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem sets the second name segment, e.g. stork_pool_.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithLatencyBuckets sets the buckets of the millisecond latency histograms.
func WithLatencyBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithRegisterer registers the metrics with r instead of the default registry.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}
