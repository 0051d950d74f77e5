package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomatelib/tomate/pkg/metrics"
)

func init() {
	metrics.RegisterLockMetricsConstructor(func() metrics.LockMetrics {
		return newLockMetrics()
	})
}

// lockMetrics is the Prometheus implementation of metrics.LockMetrics.
type lockMetrics struct {
	acquireOps      *prometheus.CounterVec
	acquireWait     *prometheus.HistogramVec
	contendedOps    *prometheus.CounterVec
	releaseOps      *prometheus.CounterVec
	waiterCount     *prometheus.GaugeVec
	stolenLocks     *prometheus.CounterVec
}

func newLockMetrics() *lockMetrics {
	reg := metrics.GetRegistry()

	return &lockMetrics{
		acquireOps: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tomate_lock_acquire_total",
				Help: "Total number of lock acquisitions by primitive kind",
			},
			[]string{"kind"},
		),
		acquireWait: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "tomate_lock_acquire_wait_microseconds",
				Help: "Time spent waiting to acquire a lock, in microseconds",
				Buckets: []float64{
					1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 50000,
				},
			},
			[]string{"kind"},
		),
		contendedOps: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tomate_lock_contended_total",
				Help: "Total number of acquisitions that observed contention",
			},
			[]string{"kind"},
		),
		releaseOps: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tomate_lock_release_total",
				Help: "Total number of lock releases by primitive kind",
			},
			[]string{"kind"},
		),
		waiterCount: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tomate_lock_waiter_count",
				Help: "Current queue depth by primitive kind",
			},
			[]string{"kind"},
		),
		stolenLocks: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tomate_lock_stolen_total",
				Help: "Total number of locks reclaimed from a dead holder",
			},
			[]string{"kind"},
		),
	}
}

func (m *lockMetrics) RecordAcquire(kind string, wait time.Duration, contended bool) {
	if m == nil {
		return
	}
	m.acquireOps.WithLabelValues(kind).Inc()
	m.acquireWait.WithLabelValues(kind).Observe(float64(wait.Microseconds()))
	if contended {
		m.contendedOps.WithLabelValues(kind).Inc()
	}
}

func (m *lockMetrics) RecordRelease(kind string) {
	if m == nil {
		return
	}
	m.releaseOps.WithLabelValues(kind).Inc()
}

func (m *lockMetrics) SetWaiterCount(kind string, count int) {
	if m == nil {
		return
	}
	m.waiterCount.WithLabelValues(kind).Set(float64(count))
}

func (m *lockMetrics) RecordStolenLock(kind string) {
	if m == nil {
		return
	}
	m.stolenLocks.WithLabelValues(kind).Inc()
}
