package metrics

import "time"

// ManagerMetrics provides observability for a Manager backend's block
// lifecycle (allocate, free, resize). Implementations can collect
// per-backend counters, byte totals, and latency histograms. This
// interface is optional: pass nil to disable metrics with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	m := metrics.NewManagerMetrics() // pkg/metrics/prometheus must be imported
//	mgr := mem.NewHeapManager(classes) // wired in by the embedding application
//
//	// Without metrics (zero overhead)
//	var m metrics.ManagerMetrics // nil
type ManagerMetrics interface {
	// RecordAllocate records a completed allocation of length bytes from
	// backend and how long it took.
	RecordAllocate(backend string, length int, duration time.Duration)

	// RecordFree records a block being freed.
	RecordFree(backend string, span uint64)

	// RecordResize records a resize, distinguishing in-place growth from a
	// relocating allocate-copy-release.
	RecordResize(backend string, oldLen, newLen int, moved bool)

	// SetBlocksInUse reports the current number of live blocks for backend.
	SetBlocksInUse(backend string, count int)

	// SetBytesInUse reports the current number of payload bytes in use for backend.
	SetBytesInUse(backend string, bytes uint64)
}

// RecordAllocate records a completed allocation, a no-op when m is nil.
func RecordAllocate(m ManagerMetrics, backend string, length int, duration time.Duration) {
	if m != nil {
		m.RecordAllocate(backend, length, duration)
	}
}

// RecordFree records a completed free, a no-op when m is nil.
func RecordFree(m ManagerMetrics, backend string, span uint64) {
	if m != nil {
		m.RecordFree(backend, span)
	}
}

// RecordResize records a completed resize, a no-op when m is nil.
func RecordResize(m ManagerMetrics, backend string, oldLen, newLen int, moved bool) {
	if m != nil {
		m.RecordResize(backend, oldLen, newLen, moved)
	}
}

// SetBlocksInUse reports the current live block count, a no-op when m is nil.
func SetBlocksInUse(m ManagerMetrics, backend string, count int) {
	if m != nil {
		m.SetBlocksInUse(backend, count)
	}
}

// SetBytesInUse reports the current in-use byte count, a no-op when m is nil.
func SetBytesInUse(m ManagerMetrics, backend string, bytes uint64) {
	if m != nil {
		m.SetBytesInUse(backend, bytes)
	}
}
