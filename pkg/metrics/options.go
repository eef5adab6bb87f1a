package metrics

import (
	"maps"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Manager before its collectors are registered.
type Option func(*Manager)

// WithNamespace sets the first two segments of every metric name. An empty
// subsystem drops the middle segment; an empty namespace keeps the default.
func WithNamespace(namespace, subsystem string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
		m.subsystem = subsystem
	}
}

// WithMetricPrefix prepends prefix to every metric name after the subsystem.
func WithMetricPrefix(prefix string) Option {
	return func(m *Manager) { m.metricPrefix = prefix }
}

// WithLatencyBuckets sets the buckets, in milliseconds, of the latency
// histograms (scoring, queue, pool, lock wait, HTTP).
func WithLatencyBuckets(ms ...float64) Option {
	return func(m *Manager) {
		if len(ms) > 0 {
			m.latencyBuckets = ms
		}
	}
}

// WithRatioBuckets sets the buckets of histograms over [0,1], such as the
// estimation accuracy ratio.
func WithRatioBuckets(b ...float64) Option {
	return func(m *Manager) {
		if len(b) > 0 {
			m.ratioBuckets = b
		}
	}
}

// WithoutRecording registers the collectors but turns the assignment
// recorders into no-ops.
func WithoutRecording() Option {
	return func(m *Manager) { m.enabled = false }
}

// WithRefreshInterval sets how often gauge updaters should sample.
func WithRefreshInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.refreshInterval = interval
		}
	}
}

// WithConstLabels adds constant labels to every collector. Repeated calls merge.
func WithConstLabels(labels map[string]string) Option {
	return func(m *Manager) { maps.Copy(m.constLabels, labels) }
}

// WithRegistry registers the collectors with reg instead of the default one.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}
