// Package prometheus is the Prometheus-backed implementation of the
// metrics interfaces declared in pkg/metrics. It registers its
// constructors into pkg/metrics on init, the same indirection dittofs
// uses to let pkg/metrics return its own interface types without importing
// the prometheus client library itself.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomatelib/tomate/pkg/metrics"
)

func init() {
	metrics.RegisterManagerMetricsConstructor(func() metrics.ManagerMetrics {
		return newManagerMetrics()
	})
}

// managerMetrics is the Prometheus implementation of metrics.ManagerMetrics.
type managerMetrics struct {
	allocateOps       *prometheus.CounterVec
	allocateDuration  *prometheus.HistogramVec
	allocateBytes     *prometheus.HistogramVec
	freeOps           *prometheus.CounterVec
	resizeOps         *prometheus.CounterVec
	resizeMoves       *prometheus.CounterVec
	blocksInUse       *prometheus.GaugeVec
	bytesInUse        *prometheus.GaugeVec
}

func newManagerMetrics() *managerMetrics {
	reg := metrics.GetRegistry()

	return &managerMetrics{
		allocateOps: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tomate_manager_allocate_total",
				Help: "Total number of block allocations by backend",
			},
			[]string{"backend"},
		),
		allocateDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "tomate_manager_allocate_duration_microseconds",
				Help: "Duration of block allocations in microseconds",
				Buckets: []float64{
					1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000,
				},
			},
			[]string{"backend"},
		),
		allocateBytes: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "tomate_manager_allocate_bytes",
				Help: "Distribution of requested allocation sizes",
				Buckets: []float64{
					64, 256, 1024, 4096, 16384, 65536, 262144, 1048576,
				},
			},
			[]string{"backend"},
		),
		freeOps: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tomate_manager_free_total",
				Help: "Total number of blocks freed by backend",
			},
			[]string{"backend"},
		),
		resizeOps: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tomate_manager_resize_total",
				Help: "Total number of block resizes by backend",
			},
			[]string{"backend"},
		),
		resizeMoves: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tomate_manager_resize_moved_total",
				Help: "Total number of resizes that fell back to allocate-copy-release",
			},
			[]string{"backend"},
		),
		blocksInUse: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tomate_manager_blocks_in_use",
				Help: "Current number of live blocks by backend",
			},
			[]string{"backend"},
		),
		bytesInUse: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tomate_manager_bytes_in_use",
				Help: "Current number of payload bytes in use by backend",
			},
			[]string{"backend"},
		),
	}
}

func (m *managerMetrics) RecordAllocate(backend string, length int, duration time.Duration) {
	if m == nil {
		return
	}
	m.allocateOps.WithLabelValues(backend).Inc()
	m.allocateDuration.WithLabelValues(backend).Observe(float64(duration.Microseconds()))
	m.allocateBytes.WithLabelValues(backend).Observe(float64(length))
}

func (m *managerMetrics) RecordFree(backend string, span uint64) {
	if m == nil {
		return
	}
	m.freeOps.WithLabelValues(backend).Inc()
}

func (m *managerMetrics) RecordResize(backend string, oldLen, newLen int, moved bool) {
	if m == nil {
		return
	}
	m.resizeOps.WithLabelValues(backend).Inc()
	if moved {
		m.resizeMoves.WithLabelValues(backend).Inc()
	}
}

func (m *managerMetrics) SetBlocksInUse(backend string, count int) {
	if m == nil {
		return
	}
	m.blocksInUse.WithLabelValues(backend).Set(float64(count))
}

func (m *managerMetrics) SetBytesInUse(backend string, bytes uint64) {
	if m == nil {
		return
	}
	m.bytesInUse.WithLabelValues(backend).Set(float64(bytes))
}
