package xsync

import (
	"context"
	"encoding/binary"
	"runtime"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/tomatelib/tomate/pkg/burnwait"
	"github.com/tomatelib/tomate/pkg/metrics"
	"github.com/tomatelib/tomate/pkg/procprovider"
)

// MaxSmallLockCapacity is the largest queue capacity a SmallLock segment
// may describe. Inherited as a documented maximum without a more specific
// rationale than "a 16-bit ring index must fit".
const MaxSmallLockCapacity = 65535

// smallLockHeaderSize is the fixed-size prefix of a SmallLock segment:
// lockedBy(8) + reentrancy(4) + providerID(4) + queueAccess(4) + head(2) +
// tail(2) + capacity(2) + count(2).
const smallLockHeaderSize = 28

// SmallLock is a bounded, FIFO-fair, reentrant lock whose entire state
// lives in a caller-provided byte segment, so it can be embedded in a
// memory-mapped file and contended over by unrelated processes. Queue
// mutation (enqueue, dequeue, dead-holder splice) is itself guarded by a
// single spin flag and must never block on anything else.
type SmallLock struct {
	seg      []byte
	lockedBy *atomic.Uint64
	reentry  *atomic.Int32
	qaccess  *atomic.Int32
	provID   int32
	capacity uint16
	provider procprovider.Provider
	metrics  metrics.LockMetrics
}

// SetMetrics attaches a LockMetrics recorder. Passing nil (the default)
// disables metrics collection for this lock at zero overhead.
func (s *SmallLock) SetMetrics(rec metrics.LockMetrics) {
	s.metrics = rec
}

// NewSmallLock initializes seg as a fresh SmallLock segment and returns a
// handle to it. providerID names the procprovider.Registry entry that will
// be consulted for holder liveness checks by every mapper of this segment,
// including ones that later call OpenSmallLock. seg must be large enough
// for the header plus at least one queue slot; its implied capacity
// (derived from len(seg)) must not exceed MaxSmallLockCapacity.
func NewSmallLock(seg []byte, providerID procprovider.ProviderID) (*SmallLock, error) {
	if len(seg) < smallLockHeaderSize+8 {
		return nil, ErrSegmentTooSmall
	}
	capacity := (len(seg) - smallLockHeaderSize) / 8
	if capacity > MaxSmallLockCapacity {
		return nil, ErrCapacityTooLarge
	}
	provider, ok := procprovider.Global.Lookup(providerID)
	if !ok {
		return nil, ErrBadHolder
	}

	for i := range seg {
		seg[i] = 0
	}
	binary.LittleEndian.PutUint32(seg[12:16], uint32(providerID))
	binary.LittleEndian.PutUint16(seg[24:26], uint16(capacity))

	return &SmallLock{
		seg:      seg,
		lockedBy: (*atomic.Uint64)(unsafe.Pointer(&seg[0])),
		reentry:  (*atomic.Int32)(unsafe.Pointer(&seg[8])),
		qaccess:  (*atomic.Int32)(unsafe.Pointer(&seg[16])),
		provID:   int32(providerID),
		capacity: uint16(capacity),
		provider: provider,
	}, nil
}

// OpenSmallLock attaches to a segment previously initialized by
// NewSmallLock (in this process or another one sharing the same mapping),
// recovering its provider id from the header.
func OpenSmallLock(seg []byte) (*SmallLock, error) {
	if len(seg) < smallLockHeaderSize {
		return nil, ErrSegmentTooSmall
	}
	providerID := procprovider.ProviderID(binary.LittleEndian.Uint32(seg[12:16]))
	capacity := binary.LittleEndian.Uint16(seg[24:26])
	if smallLockHeaderSize+int(capacity)*8 > len(seg) {
		return nil, ErrSegmentTooSmall
	}
	provider, ok := procprovider.Global.Lookup(providerID)
	if !ok {
		return nil, ErrBadHolder
	}
	return &SmallLock{
		seg:      seg,
		lockedBy: (*atomic.Uint64)(unsafe.Pointer(&seg[0])),
		reentry:  (*atomic.Int32)(unsafe.Pointer(&seg[8])),
		qaccess:  (*atomic.Int32)(unsafe.Pointer(&seg[16])),
		provID:   int32(providerID),
		capacity: capacity,
		provider: provider,
	}, nil
}

func fullHolderID(pid int32, lockID int64) uint64 {
	return uint64(uint32(pid))<<32 | uint64(uint32(lockID))
}

// queue layout helpers. All are called only while qaccess is held.

func (s *SmallLock) queueHead() uint16     { return binary.LittleEndian.Uint16(s.seg[20:22]) }
func (s *SmallLock) queueTail() uint16     { return binary.LittleEndian.Uint16(s.seg[22:24]) }
func (s *SmallLock) queueCount() uint16    { return binary.LittleEndian.Uint16(s.seg[26:28]) }
func (s *SmallLock) setQueueHead(v uint16) { binary.LittleEndian.PutUint16(s.seg[20:22], v) }
func (s *SmallLock) setQueueTail(v uint16) { binary.LittleEndian.PutUint16(s.seg[22:24], v) }
func (s *SmallLock) setQueueCount(v uint16) {
	binary.LittleEndian.PutUint16(s.seg[26:28], v)
}

func (s *SmallLock) slotAt(i uint16) uint64 {
	off := smallLockHeaderSize + int(i)*8
	return binary.LittleEndian.Uint64(s.seg[off : off+8])
}

func (s *SmallLock) setSlotAt(i uint16, v uint64) {
	off := smallLockHeaderSize + int(i)*8
	binary.LittleEndian.PutUint64(s.seg[off:off+8], v)
}

// acquireQueueAccess spins until it wins the single-word queue_access flag.
// The critical section it guards is bounded (ring buffer arithmetic only)
// and must never itself wait on a burnwait deadline.
func (s *SmallLock) acquireQueueAccess() {
	for !s.qaccess.CompareAndSwap(0, 1) {
		runtime.Gosched()
	}
}

func (s *SmallLock) releaseQueueAccess() {
	s.qaccess.Store(0)
}

// enqueue appends id to the tail of the ring buffer. Caller holds
// queue_access. Returns false if the queue is already at capacity.
func (s *SmallLock) enqueue(id uint64) bool {
	count := s.queueCount()
	if count >= s.capacity {
		return false
	}
	tail := s.queueTail()
	s.setSlotAt(tail, id)
	s.setQueueTail(uint16((int(tail) + 1) % int(s.capacity)))
	s.setQueueCount(count + 1)
	return true
}

// dequeueHead removes and returns the entry at the head. Caller holds
// queue_access and must have already checked count > 0.
func (s *SmallLock) dequeueHead() uint64 {
	head := s.queueHead()
	id := s.slotAt(head)
	s.setQueueHead(uint16((int(head) + 1) % int(s.capacity)))
	s.setQueueCount(s.queueCount() - 1)
	return id
}

// positionFromHead scans the live queue for id's current logical distance
// from the head (0 if id is the head itself). Caller holds queue_access.
// Physical slot indices shift whenever another waiter's removeSelf
// compacts the ring, so a position must always be recomputed this way
// rather than cached across iterations of Acquire's wait loop.
func (s *SmallLock) positionFromHead(id uint64) (int, bool) {
	count := s.queueCount()
	head := s.queueHead()
	for i := 0; i < int(count); i++ {
		idx := uint16((int(head) + i) % int(s.capacity))
		if s.slotAt(idx) == id {
			return i, true
		}
	}
	return 0, false
}

// Acquire takes the lock for the (process, lockID) identity pair, waiting
// up to timeout (0 means wait forever). lockID is the caller's own
// identity within its process (xsync.NewOwnerID is a convenient source).
//
// On success it reports whether the acquisition succeeded by recovering
// from a dead previous holder (resumedOnCrashedHolder), and a nil error.
// On failure it returns ErrTimeout (deadline elapsed) or
// ErrConcurrencyExceeded (queue was full when this caller tried to
// enqueue); in both cases all observable state is left exactly as if the
// call had not been made.
func (s *SmallLock) Acquire(ctx context.Context, lockID int64, timeout time.Duration) (bool, error) {
	start := time.Now()
	myID := fullHolderID(s.provider.CurrentProcessID(), lockID)

	if s.lockedBy.CompareAndSwap(0, myID) {
		s.acquireQueueAccess()
		s.enqueue(myID)
		waiters := int(s.queueCount())
		s.releaseQueueAccess()
		s.reentry.Store(1)
		metrics.RecordAcquire(s.metrics, "small_lock", time.Since(start), false)
		metrics.SetWaiterCount(s.metrics, "small_lock", waiters)
		return false, nil
	}

	if s.lockedBy.Load() == myID {
		s.reentry.Add(1)
		metrics.RecordAcquire(s.metrics, "small_lock", time.Since(start), false)
		return false, nil
	}

	s.acquireQueueAccess()
	if !s.enqueue(myID) {
		s.releaseQueueAccess()
		return false, ErrConcurrencyExceeded
	}
	waiters := int(s.queueCount())
	s.releaseQueueAccess()
	metrics.SetWaiterCount(s.metrics, "small_lock", waiters)

	w := burnwait.New(timeout)
	resumed := false
	for {
		if s.lockedBy.Load() == myID {
			metrics.RecordAcquire(s.metrics, "small_lock", time.Since(start), true)
			if resumed {
				metrics.RecordStolenLock(s.metrics, "small_lock")
			}
			return resumed, nil
		}

		s.acquireQueueAccess()
		pos, found := s.positionFromHead(myID)
		if found && pos == 1 {
			holder := s.lockedBy.Load()
			holderPid := int32(holder >> 32)
			if holderPid != 0 && !s.provider.IsAlive(holderPid) {
				s.dequeueHead()
				if s.queueCount() > 0 {
					next := s.slotAt(s.queueHead())
					s.lockedBy.Store(next)
					s.reentry.Store(1)
				} else {
					s.lockedBy.Store(0)
					s.reentry.Store(0)
				}
				resumed = true
			}
		}
		s.releaseQueueAccess()

		select {
		case <-ctx.Done():
			s.removeSelf(myID)
			return false, ErrTimeout
		default:
		}
		if !w.Wait() {
			s.removeSelf(myID)
			return false, ErrTimeout
		}
	}
}

// removeSelf splices myID out of the queue on timeout. Safe to call even
// if myID already became the holder concurrently with the timeout (rare
// race): in that case it is a no-op because myID is no longer in the
// pending section being scanned from the head.
func (s *SmallLock) removeSelf(myID uint64) {
	s.acquireQueueAccess()
	defer s.releaseQueueAccess()

	count := s.queueCount()
	if count == 0 {
		return
	}
	// Rebuild the ring without myID's first occurrence walking from head.
	var kept []uint64
	head := s.queueHead()
	found := false
	for i := uint16(0); i < count; i++ {
		idx := uint16((int(head) + int(i)) % int(s.capacity))
		v := s.slotAt(idx)
		if !found && v == myID {
			found = true
			continue
		}
		kept = append(kept, v)
	}
	if !found {
		return
	}
	s.setQueueHead(0)
	s.setQueueTail(uint16(len(kept) % int(s.capacity)))
	s.setQueueCount(uint16(len(kept)))
	for i, v := range kept {
		s.setSlotAt(uint16(i), v)
	}
}

// Release gives up one level of reentrant hold on behalf of lockID,
// dequeuing and handing off to the next waiter once the reentrancy count
// reaches zero. Returns ErrBadHolder if lockID does not currently hold the
// lock.
func (s *SmallLock) Release(lockID int64) error {
	myID := fullHolderID(s.provider.CurrentProcessID(), lockID)
	if s.lockedBy.Load() != myID {
		return ErrBadHolder
	}
	if s.reentry.Add(-1) > 0 {
		return nil
	}

	s.acquireQueueAccess()
	if s.queueCount() > 0 && s.slotAt(s.queueHead()) == myID {
		s.dequeueHead()
	}
	if s.queueCount() > 0 {
		s.lockedBy.Store(s.slotAt(s.queueHead()))
		s.reentry.Store(1)
	} else {
		s.lockedBy.Store(0)
		s.reentry.Store(0)
	}
	waiters := int(s.queueCount())
	s.releaseQueueAccess()

	metrics.RecordRelease(s.metrics, "small_lock")
	metrics.SetWaiterCount(s.metrics, "small_lock", waiters)
	return nil
}

// IsEntered reports whether the lock is currently held by anyone.
func (s *SmallLock) IsEntered() bool {
	return s.lockedBy.Load() != 0
}

// Reentrancy reports the current holder's nesting depth (0 if unheld).
func (s *SmallLock) Reentrancy() int32 {
	return s.reentry.Load()
}

// Capacity reports the maximum number of concurrently pending acquirers.
func (s *SmallLock) Capacity() uint16 {
	return s.capacity
}
