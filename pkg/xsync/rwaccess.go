package xsync

import (
	"context"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/tomatelib/tomate/pkg/burnwait"
)

// RWAccess is the shared/exclusive access control: many readers or one
// writer, 8 bytes total (lockedBy uint32, sharedUsers uint32), laid out so
// it can be reinterpreted directly over mapped MMF bytes with
// RWAccessAt. Not reentrant: entering exclusive while already holding it
// deadlocks, by design (see the source library's own documented
// trade-off).
//
// There is no fairness guarantee between readers and writers; fairness, if
// needed, is the job of SmallLock.
type RWAccess struct {
	lockedBy    atomic.Uint32
	sharedUsers atomic.Uint32
}

// RWAccessAt reinterprets the first 8 bytes of b as an *RWAccess. b must be
// at least 8 bytes and 4-byte aligned (true of any offset carved out of an
// mmap'd page or a Go-heap allocation by mem.Segment).
func RWAccessAt(b []byte) *RWAccess {
	if len(b) < 8 {
		panic("xsync: segment too small for RWAccess")
	}
	return (*RWAccess)(unsafe.Pointer(&b[0]))
}

// EnterShared blocks (busy-waiting) until no exclusive holder is present,
// then registers as a shared reader. It performs the double-check the
// source spec mandates: an exclusive acquirer may race between the first
// observation of lockedBy and the increment of sharedUsers.
func (a *RWAccess) EnterShared() {
	for {
		for a.lockedBy.Load() != 0 {
			runtime.Gosched()
		}
		a.sharedUsers.Add(1)
		if a.lockedBy.Load() == 0 {
			return
		}
		a.sharedUsers.Add(^uint32(0)) // decrement
	}
}

// ExitShared releases one shared reader registration.
func (a *RWAccess) ExitShared() {
	a.sharedUsers.Add(^uint32(0))
}

// EnterExclusive takes the lock for identity (CAS 0 -> identity), then
// waits for all current readers to drain. identity must not be zero.
func (a *RWAccess) EnterExclusive(ctx context.Context, identity uint32, w *burnwait.Waiter) bool {
	for {
		if a.lockedBy.CompareAndSwap(0, identity) {
			break
		}
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if !w.Wait() {
			return false
		}
	}
	for a.sharedUsers.Load() != 0 {
		select {
		case <-ctx.Done():
			a.lockedBy.Store(0)
			return false
		default:
		}
		if !w.Wait() {
			a.lockedBy.Store(0)
			return false
		}
	}
	return true
}

// ExitExclusive releases the exclusive lock unconditionally.
func (a *RWAccess) ExitExclusive() {
	a.lockedBy.Store(0)
}

// TryPromote attempts to upgrade the caller's shared hold to exclusive
// without ever dropping below one reader of coverage. It succeeds only if
// sharedUsers == 1, the CAS on lockedBy wins, and sharedUsers is still 1
// immediately after — otherwise it rolls lockedBy back to 0 and the caller
// keeps its shared hold.
func (a *RWAccess) TryPromote(identity uint32) bool {
	if a.sharedUsers.Load() != 1 {
		return false
	}
	if !a.lockedBy.CompareAndSwap(0, identity) {
		return false
	}
	if a.sharedUsers.Load() != 1 {
		a.lockedBy.Store(0)
		return false
	}
	return true
}

// Demote releases an exclusive hold obtained via TryPromote back to
// unlocked; the caller's original shared registration is still in effect.
func (a *RWAccess) Demote() {
	a.lockedBy.Store(0)
}

// LockedBy reports the current exclusive holder's identity, or 0.
func (a *RWAccess) LockedBy() uint32 {
	return a.lockedBy.Load()
}

// SharedUsers reports the current shared-reader count.
func (a *RWAccess) SharedUsers() uint32 {
	return a.sharedUsers.Load()
}
