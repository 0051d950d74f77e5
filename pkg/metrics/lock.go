package metrics

import "time"

// LockMetrics provides observability for the synchronization primitives
// (SmallLock, CrossExclusive, Exclusive). Optional: pass nil for zero
// overhead.
type LockMetrics interface {
	// RecordAcquire records a completed lock acquisition: kind distinguishes
	// SmallLock/CrossExclusive/Exclusive, contended reports whether the
	// acquire path had to queue or spin past its burst budget.
	RecordAcquire(kind string, wait time.Duration, contended bool)

	// RecordRelease records a completed lock release.
	RecordRelease(kind string)

	// SetWaiterCount reports the current queue depth for kind.
	SetWaiterCount(kind string, count int)

	// RecordStolenLock records a waiter reclaiming a lock abandoned by a
	// dead holder (SmallLock's dead-holder splice path).
	RecordStolenLock(kind string)
}

// RecordAcquire records a completed acquisition, a no-op when m is nil.
func RecordAcquire(m LockMetrics, kind string, wait time.Duration, contended bool) {
	if m != nil {
		m.RecordAcquire(kind, wait, contended)
	}
}

// RecordRelease records a completed release, a no-op when m is nil.
func RecordRelease(m LockMetrics, kind string) {
	if m != nil {
		m.RecordRelease(kind)
	}
}

// SetWaiterCount reports the current queue depth, a no-op when m is nil.
func SetWaiterCount(m LockMetrics, kind string, count int) {
	if m != nil {
		m.SetWaiterCount(kind, count)
	}
}

// RecordStolenLock records a dead-holder reclaim, a no-op when m is nil.
func RecordStolenLock(m LockMetrics, kind string) {
	if m != nil {
		m.RecordStolenLock(kind)
	}
}
