// Package metrics defines the observability interfaces this module's
// managers and synchronization primitives accept, and a small
// Prometheus-backed registry those interfaces are implemented against in
// pkg/metrics/prometheus.
//
// Every metrics interface here is optional: pass nil and the call sites
// become a nil check, not a missing feature. This mirrors the way logging
// is always present but metrics are opt-in (MetricsConfig.Enabled).
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.Mutex
	enabled  bool
	registry *prometheus.Registry
)

// InitRegistry enables metrics collection and creates a fresh Prometheus
// registry. Safe to call more than once; each call replaces the registry,
// which is primarily useful for tests.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	registry = prometheus.NewRegistry()
	enabled = true
	return registry
}

// IsEnabled reports whether InitRegistry has been called without a
// matching Reset.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// GetRegistry returns the current registry, initializing one if metrics
// have been enabled but no registry exists yet. Returns nil when metrics
// are disabled.
func GetRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return nil
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return registry
}

// Reset disables metrics and drops the current registry. Intended for
// test isolation between cases that call InitRegistry.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	enabled = false
	registry = nil
}
