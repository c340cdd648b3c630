package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Manager before its collectors are registered.
type Option func(*Manager)

// WithNamespace prefixes every metric name. Empty keeps "edupredict".
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem names the generate/train/predict metrics. History and HTTP
// metrics keep their own subsystems. Empty keeps "pipeline".
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithHistogramBuckets sets the upper bounds, in seconds, of the training,
// prediction and HTTP latency histograms. Empty keeps prometheus.DefBuckets.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = append([]float64(nil), buckets...)
		}
	}
}

// WithMetricsEnabled turns recording on or off. A disabled manager still
// registers its collectors, so /metrics serves zeros.
func WithMetricsEnabled(enabled bool) Option {
	return func(m *Manager) {
		m.enabled = enabled
	}
}

// WithPrometheusRegistry registers collectors on registry instead of the
// default registerer.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// ValidateBuckets reports whether buckets can back a histogram: every bound
// positive and strictly increasing. Empty is valid and means the defaults.
func ValidateBuckets(buckets []float64) error {
	for i, b := range buckets {
		if b <= 0 {
			return fmt.Errorf("%w: bound %g at %d is not positive", ErrInvalidBuckets, b, i)
		}
		if i > 0 && b <= buckets[i-1] {
			return fmt.Errorf("%w: bound %g at %d does not increase", ErrInvalidBuckets, b, i)
		}
	}
	return nil
}
