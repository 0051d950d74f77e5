package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomatelib/tomate/pkg/metrics"
)

func init() {
	metrics.RegisterHandleMetricsConstructor(func() metrics.HandleMetrics {
		return newHandleMetrics()
	})
}

// handleMetrics is the Prometheus implementation of metrics.HandleMetrics.
type handleMetrics struct {
	activeHandles prometheus.Gauge
	pageCount     prometheus.Gauge
	staleAccesses *prometheus.CounterVec
}

func newHandleMetrics() *handleMetrics {
	reg := metrics.GetRegistry()

	return &handleMetrics{
		activeHandles: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "tomate_handle_active",
				Help: "Current number of live handles in the store",
			},
		),
		pageCount: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "tomate_handle_pages",
				Help: "Current number of slot pages allocated by the store",
			},
		),
		staleAccesses: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tomate_handle_stale_access_total",
				Help: "Total number of accesses against a stale handle generation, by type tag",
			},
			[]string{"type_tag"},
		),
	}
}

func (m *handleMetrics) SetActiveHandles(count int) {
	if m == nil {
		return
	}
	m.activeHandles.Set(float64(count))
}

func (m *handleMetrics) RecordPageGrowth(pageCount int) {
	if m == nil {
		return
	}
	m.pageCount.Add(float64(pageCount))
}

func (m *handleMetrics) RecordStaleAccess(typeTag string) {
	if m == nil {
		return
	}
	m.staleAccesses.WithLabelValues(typeTag).Inc()
}
