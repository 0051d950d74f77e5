package metrics

// NewManagerMetrics creates a new Prometheus-backed ManagerMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called). When
// nil is returned, callers should pass nil to Manager backends, which
// results in zero overhead.
func NewManagerMetrics() ManagerMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusManagerMetrics()
}

// newPrometheusManagerMetrics is implemented in pkg/metrics/prometheus.
// This indirection avoids an import cycle (prometheus implements the
// interfaces defined here, so it must import this package, not vice versa)
// while keeping the public constructor in pkg/metrics.
var newPrometheusManagerMetrics func() ManagerMetrics

// RegisterManagerMetricsConstructor registers the Prometheus manager
// metrics constructor. Called by pkg/metrics/prometheus during package
// initialization.
func RegisterManagerMetricsConstructor(constructor func() ManagerMetrics) {
	newPrometheusManagerMetrics = constructor
}

// NewLockMetrics creates a new Prometheus-backed LockMetrics instance, or
// nil when metrics are disabled.
func NewLockMetrics() LockMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusLockMetrics()
}

var newPrometheusLockMetrics func() LockMetrics

// RegisterLockMetricsConstructor registers the Prometheus lock metrics constructor.
func RegisterLockMetricsConstructor(constructor func() LockMetrics) {
	newPrometheusLockMetrics = constructor
}

// NewHandleMetrics creates a new Prometheus-backed HandleMetrics instance,
// or nil when metrics are disabled.
func NewHandleMetrics() HandleMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusHandleMetrics()
}

var newPrometheusHandleMetrics func() HandleMetrics

// RegisterHandleMetricsConstructor registers the Prometheus handle metrics constructor.
func RegisterHandleMetricsConstructor(constructor func() HandleMetrics) {
	newPrometheusHandleMetrics = constructor
}
