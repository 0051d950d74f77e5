package handle

import (
	"context"
	"reflect"
	"sync/atomic"

	"github.com/tomatelib/tomate/pkg/burnwait"
	"github.com/tomatelib/tomate/pkg/metrics"
	"github.com/tomatelib/tomate/pkg/xsync"
)

// pageSize is the number of slots per grow-on-demand page.
const pageSize = 256

type page struct {
	slots [pageSize]slot
}

// Store is a grow-on-demand table of typed slots, indirected through
// generation-tagged Handles. Slot allocation and free are serialized by an
// xsync.Exclusive; reads and writes of an already-created value require no
// synchronization from the Store itself (that is the caller's concern),
// which is why lookups walk a lock-free, append-only directory of pages
// rather than a single reallocating slice: once published, a page is never
// moved, so a *T handed out by CreateIn stays valid for its lifetime
// regardless of later growth.
type Store struct {
	dir      atomic.Pointer[[]*page]
	lock     xsync.Exclusive
	freeList []uint32
	nextIdx  uint32
	active   atomic.Int64
	metrics  metrics.HandleMetrics
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	s := &Store{}
	empty := make([]*page, 0)
	s.dir.Store(&empty)
	return s
}

// SetMetrics attaches a HandleMetrics recorder. Passing nil (the default)
// disables metrics collection for this store at zero overhead.
func (s *Store) SetMetrics(rec metrics.HandleMetrics) {
	s.metrics = rec
}

func (s *Store) withAdminLock(fn func()) {
	owner := xsync.NewOwnerID()
	s.lock.Take(context.Background(), owner, burnwait.New(0))
	defer s.lock.Release(owner)
	fn()
}

// allocateSlot reserves a slot index, growing the page directory if
// needed, and returns a pointer to it plus the number of pages this call
// added (0 if none). Must be called under the admin lock. Metrics are
// reported by the caller once the lock is released, not from here.
func (s *Store) allocateSlot() (uint32, *slot, int) {
	var idx uint32
	if n := len(s.freeList); n > 0 {
		idx = s.freeList[n-1]
		s.freeList = s.freeList[:n-1]
	} else {
		idx = s.nextIdx
		s.nextIdx++
	}

	dir := *s.dir.Load()
	pageIdx := int(idx / pageSize)
	added := 0
	if pageIdx >= len(dir) {
		grown := make([]*page, pageIdx+1)
		copy(grown, dir)
		for i := len(dir); i <= pageIdx; i++ {
			grown[i] = &page{}
			added++
		}
		s.dir.Store(&grown)
		dir = grown
	}
	sl := &dir[pageIdx].slots[idx%pageSize]
	return idx, sl, added
}

func (s *Store) slotAt(idx uint32) (*slot, bool) {
	dir := *s.dir.Load()
	pageIdx := int(idx / pageSize)
	if pageIdx >= len(dir) {
		return nil, false
	}
	return &dir[pageIdx].slots[idx%pageSize], true
}

// CreateIn allocates a slot sized for T, initializes it to the zero value,
// and returns a stable pointer to it plus the Handle capturing
// (slotIndex, generation). Go generics stand in for the original's
// templated create_in<T>; this is a package-level function rather than a
// method because Go methods cannot carry their own type parameters.
func CreateIn[T any](s *Store, sizeHint int) (*T, Handle, error) {
	var zero T
	size := int(sizeOf[T]())
	if sizeHint > size {
		size = sizeHint
	}

	var idx uint32
	var sl *slot
	var grown int
	s.withAdminLock(func() {
		idx, sl, grown = s.allocateSlot()
		if cap(sl.data) < size {
			sl.data = make([]byte, size)
		} else {
			sl.data = sl.data[:size]
			clear(sl.data)
		}
		sl.occupied = true
		sl.typeTag = typeTag[T]()
		if sl.generation == 0 {
			sl.generation = 1
		}
	})

	ptr := slotValue[T](sl)
	*ptr = zero
	if grown > 0 {
		metrics.RecordPageGrowth(s.metrics, grown)
	}
	metrics.SetActiveHandles(s.metrics, int(s.active.Add(1)))
	return ptr, newHandle(idx, sl.generation), nil
}

// Get validates h against its slot's current occupancy, generation and
// type tag, returning the stored value's stable interior pointer.
func Get[T any](s *Store, h Handle) (*T, error) {
	sl, ok := s.slotAt(h.slotIndex())
	if !ok || !sl.occupied || sl.generation != h.generation() {
		metrics.RecordStaleAccess(s.metrics, typeTagName[T]())
		return nil, ErrStaleHandle
	}
	if sl.typeTag != typeTag[T]() {
		return nil, ErrTypeMismatch
	}
	return slotValue[T](sl), nil
}

// typeTagName renders T's name for stale-access metrics labeling.
func typeTagName[T any]() string {
	var zero T
	return reflect.TypeOf(zero).String()
}

// Release validates h exactly as Get does, then marks the slot free,
// advances its generation (skipping 0 on wraparound so a zero Handle can
// never validate), and invokes destroy on the stored value if non-nil. The
// validate-then-retire sequence runs as a single unit under the admin lock:
// checking h outside the lock and retiring the slot afterward would let two
// concurrent Release calls on the same still-live Handle both pass
// validation before either retires it, double-invoking destroy and pushing
// the same slot index onto freeList twice.
func Release[T any](s *Store, h Handle, destroy func(*T)) error {
	sl, ok := s.slotAt(h.slotIndex())
	if !ok {
		metrics.RecordStaleAccess(s.metrics, typeTagName[T]())
		return ErrStaleHandle
	}

	var staleErr error
	var retired bool
	s.withAdminLock(func() {
		if !sl.occupied || sl.generation != h.generation() {
			staleErr = ErrStaleHandle
			return
		}
		if sl.typeTag != typeTag[T]() {
			staleErr = ErrTypeMismatch
			return
		}

		if destroy != nil {
			destroy(slotValue[T](sl))
		}

		sl.occupied = false
		sl.generation++
		if sl.generation == 0 {
			sl.generation = 1
		}
		s.freeList = append(s.freeList, h.slotIndex())
		retired = true
	})

	if staleErr != nil {
		if staleErr == ErrStaleHandle {
			metrics.RecordStaleAccess(s.metrics, typeTagName[T]())
		}
		return staleErr
	}
	if retired {
		metrics.SetActiveHandles(s.metrics, int(s.active.Add(-1)))
	}
	return nil
}
