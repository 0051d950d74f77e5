package xsync

import (
	"context"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/tomatelib/tomate/pkg/burnwait"
	"github.com/tomatelib/tomate/pkg/metrics"
	"github.com/tomatelib/tomate/pkg/procprovider"
)

// CrossExclusive is the cross-process counterpart of Exclusive: an 8-byte
// CAS field whose identity is (pid<<32 | ownerID), so unrelated processes
// mapping the same bytes can contend for it. The pid half comes from a
// procprovider.Provider supplied at construction, keeping the identity
// source mockable in tests and letting two Go processes (or two Mocks
// standing in for them in a test) use the same struct layout.
type CrossExclusive struct {
	identity *atomic.Int64
	owned    atomic.Int64 // backing storage when not segment-mapped
	provider procprovider.Provider
	metrics  metrics.LockMetrics
}

// SetMetrics attaches a LockMetrics recorder. Passing nil (the default)
// disables metrics collection for this lock at zero overhead.
func (c *CrossExclusive) SetMetrics(rec metrics.LockMetrics) {
	c.metrics = rec
}

// NewCrossExclusive constructs an in-process CrossExclusive (its own 8
// bytes of backing storage) that sources its process id from provider.
func NewCrossExclusive(provider procprovider.Provider) *CrossExclusive {
	c := &CrossExclusive{provider: provider}
	c.identity = &c.owned
	return c
}

// CrossExclusiveAt reinterprets the first 8 bytes of seg as a
// CrossExclusive's identity field, for embedding the primitive directly
// inside a memory-mapped file (e.g. the MMF root header's metadata lock).
// seg must be at least 8 bytes and 8-byte aligned.
func CrossExclusiveAt(seg []byte, provider procprovider.Provider) *CrossExclusive {
	if len(seg) < 8 {
		panic("xsync: segment too small for CrossExclusive")
	}
	return &CrossExclusive{
		identity: (*atomic.Int64)(unsafe.Pointer(&seg[0])),
		provider: provider,
	}
}

func crossIdentity(pid, owner int32) int64 {
	return int64(pid)<<32 | int64(uint32(owner))
}

// TryTake attempts to take ownership for owner without waiting.
func (c *CrossExclusive) TryTake(owner int32) bool {
	id := crossIdentity(c.provider.CurrentProcessID(), owner)
	return c.identity.CompareAndSwap(0, id)
}

// Take retries TryTake until it succeeds, ctx is canceled, or w's deadline
// elapses. Reentrant acquisition by the same (pid, owner) pair that already
// holds it returns false immediately rather than spinning forever; cross-
// process reentry with a different identity is not detected, matching the
// source library's documented silent-deadlock behavior for the case that
// cannot be cheaply distinguished from ordinary contention.
func (c *CrossExclusive) Take(ctx context.Context, owner int32, w *burnwait.Waiter) bool {
	start := time.Now()
	id := crossIdentity(c.provider.CurrentProcessID(), owner)
	if c.identity.Load() == id {
		return false
	}
	contended := false
	for {
		if c.identity.CompareAndSwap(0, id) {
			metrics.RecordAcquire(c.metrics, "cross_exclusive", time.Since(start), contended)
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
func (c *CrossExclusive) Release(owner int32) bool {
	id := crossIdentity(c.provider.CurrentProcessID(), owner)
	released := c.identity.CompareAndSwap(id, 0)
	if released {
		metrics.RecordRelease(c.metrics, "cross_exclusive")
	}
	return released
}

// Owner reports the raw (pid<<32|owner) identity currently holding the
// lock, or 0 if unlocked.
func (c *CrossExclusive) Owner() int64 {
	return c.identity.Load()
}
