package xsync

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/tomatelib/tomate/pkg/burnwait"
	"github.com/tomatelib/tomate/pkg/metrics"
)

// Exclusive is a 4-byte thread-exclusive ownership field: a single CAS-based
// lock keyed by an owner token the caller supplies, rather than an implicit
// OS thread id. It is not reentrant; a second Take by the same owner spins
// forever against itself unless detected, which Take does.
type Exclusive struct {
	owner   atomic.Int32
	metrics metrics.LockMetrics
}

// SetMetrics attaches a LockMetrics recorder. Passing nil (the default)
// disables metrics collection for this lock at zero overhead.
func (e *Exclusive) SetMetrics(rec metrics.LockMetrics) {
	e.metrics = rec
}

// TryTake attempts to take ownership for owner without waiting. owner must
// not be zero.
func (e *Exclusive) TryTake(owner int32) bool {
	return e.owner.CompareAndSwap(0, owner)
}

// Take retries TryTake until it succeeds, the waiter's deadline elapses, or
// ctx is canceled. It returns false (with no side effect) in both failure
// cases. Calling Take while owner already holds the lock returns false
// immediately instead of spinning forever.
func (e *Exclusive) Take(ctx context.Context, owner int32, w *burnwait.Waiter) bool {
	start := time.Now()
	if e.owner.Load() == owner {
		return false
	}
	contended := false
	for {
		if e.TryTake(owner) {
			metrics.RecordAcquire(e.metrics, "exclusive", time.Since(start), contended)
			return true
		}
		contended = true
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if !w.Wait() {
			return false
		}
	}
}

// Release gives up ownership, returning false without effect if owner does
// not currently hold the lock.
func (e *Exclusive) Release(owner int32) bool {
	released := e.owner.CompareAndSwap(owner, 0)
	if released {
		metrics.RecordRelease(e.metrics, "exclusive")
	}
	return released
}

// Owner reports the current holder's token, or 0 if unlocked.
func (e *Exclusive) Owner() int32 {
	return e.owner.Load()
}
