// Package burnwait provides a minimal, allocation-free busy-wait helper with
// an optional deadline, the building block every spin-based primitive in
// xsync composes as the predicate of its retry loop.
package burnwait

import (
	"runtime"
	"time"
)

// Waiter tracks a deadline and performs a CPU-relaxing pause on each call
// to Wait.
//
// Go exposes no PAUSE/YIELD intrinsic the way the source library's spin
// primitive does; runtime.Gosched(), which yields the processor back to
// the scheduler, is the idiomatic Go stand-in used throughout the
// ecosystem's userspace spin loops.
type Waiter struct {
	deadline time.Time
	forever  bool
}

// New constructs a Waiter. A zero or negative max means wait forever (no
// deadline).
func New(max time.Duration) *Waiter {
	if max <= 0 {
		return &Waiter{forever: true}
	}
	return &Waiter{deadline: time.Now().Add(max)}
}

// Wait performs one relaxed pause and reports whether the deadline has not
// yet passed. Callers loop on Wait as the retry condition:
//
//	w := burnwait.New(timeout)
//	for !ready() {
//	    if !w.Wait() {
//	        return false // timed out
//	    }
//	}
func (w *Waiter) Wait() bool {
	if !w.forever && !time.Now().Before(w.deadline) {
		return false
	}
	runtime.Gosched()
	return true
}

// Remaining reports the time left before the deadline. For a forever
// Waiter it returns the largest representable duration.
func (w *Waiter) Remaining() time.Duration {
	if w.forever {
		return time.Duration(1<<63 - 1)
	}
	return time.Until(w.deadline)
}

// Expired reports whether the deadline has already passed, without
// performing a pause.
func (w *Waiter) Expired() bool {
	if w.forever {
		return false
	}
	return !time.Now().Before(w.deadline)
}
