package mem

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/google/uuid"

	"github.com/tomatelib/tomate/internal/logger"
	"github.com/tomatelib/tomate/pkg/burnwait"
	"github.com/tomatelib/tomate/pkg/handle"
	"github.com/tomatelib/tomate/pkg/metrics"
	"github.com/tomatelib/tomate/pkg/xsync"
)

// HeapManager is the default Manager backend: size-class segregated free
// lists, each guarded by its own xsync.Exclusive so two goroutines
// operating on different classes proceed in parallel, adapted from the
// teacher's tiered bufpool.Pool. Unlike bufpool, which hands buffers to
// sync.Pool (whose contents the GC may drop at any time), HeapManager
// keeps an explicit free list per class: the manager must hand out
// stable, manually reference-counted memory that survives independent of
// GC pressure.
//
// Requests larger than the biggest class fall back to a direct
// make([]byte) allocation that is never pooled.
type HeapManager struct {
	id      string
	classes []int
	locks   []xsync.Exclusive
	free    [][][]byte // free[classIdx] = list of recycled buffers

	mu     sync.Mutex
	blocks map[uint64][]byte
	nextID atomic.Uint64

	store   *handle.Store
	metrics metrics.ManagerMetrics
}

// SetMetrics attaches a ManagerMetrics recorder. Passing nil (the default)
// disables metrics collection for this manager at zero overhead.
func (m *HeapManager) SetMetrics(rec metrics.ManagerMetrics) {
	m.metrics = rec
}

// NewHeapManager constructs a HeapManager with the given size-class
// buckets (see DefaultSizeClasses), sorted ascending by the caller.
func NewHeapManager(classes []int) *HeapManager {
	id := uuid.NewString()
	m := &HeapManager{
		id:      id,
		classes: classes,
		locks:   make([]xsync.Exclusive, len(classes)),
		free:    make([][][]byte, len(classes)),
		blocks:  make(map[uint64][]byte),
		store:   handle.NewStore(),
	}
	logger.Debug("heap manager created", logger.Backend("heap"), logger.ManagerID(id), logger.Component("mem"))
	return m
}

func (m *HeapManager) ownerToken() int32 {
	return xsync.NewOwnerID()
}

// Allocate returns a Block of at least length bytes with refcount 1.
func (m *HeapManager) Allocate(length int) (Block, error) {
	start := time.Now()
	if length <= 0 {
		return Block{}, ErrInvalidResize
	}
	classIdx := classFor(m.classes, length)

	var buf []byte
	var class uint16
	var flags uint16

	if classIdx < 0 {
		buf = make([]byte, blockHeaderSize+length)
		class = 0xFFFF
		flags = flagUnpooled
	} else {
		class = uint16(classIdx)
		bucket := m.classes[classIdx]
		owner := m.ownerToken()
		m.locks[classIdx].Take(context.Background(), owner, burnwait.New(0))
		if n := len(m.free[classIdx]); n > 0 {
			buf = m.free[classIdx][n-1]
			m.free[classIdx] = m.free[classIdx][:n-1]
		}
		m.locks[classIdx].Release(owner)

		if buf == nil {
			buf = make([]byte, blockHeaderSize+bucket)
		}
	}

	hdr := headerAt(buf)
	hdr.refcount.Store(1)
	hdr.class = class
	hdr.flags = flags
	hdr.payloadLen = uint64(length)

	id := m.nextID.Add(1)
	m.mu.Lock()
	m.blocks[id] = buf
	m.mu.Unlock()

	logger.Debug("block allocated", logger.Backend("heap"), logger.ManagerID(m.id),
		logger.Operation("allocate"), logger.BlockID(id), logger.Class(class), logger.PayloadLen(length))
	metrics.RecordAllocate(m.metrics, "heap", length, time.Since(start))
	return newBlock(m, id), nil
}

// Resize satisfies the top-level Manager interface by delegating to the
// Block's own Resize, which calls back into ResizeBlock below.
func (m *HeapManager) Resize(b Block, newLen int) (Block, error) {
	return b.Resize(newLen)
}

// Store returns the handle.Store tied to this manager's lifetime.
func (m *HeapManager) Store() *handle.Store {
	return m.store
}

// HeaderAt implements Accessor.
func (m *HeapManager) HeaderAt(hdrOff uint64) *BlockHeader {
	m.mu.Lock()
	buf := m.blocks[hdrOff]
	m.mu.Unlock()
	if buf == nil {
		// A freed id has no buffer left; it reports a zero-refcount header.
		return &BlockHeader{}
	}
	return headerAt(buf)
}

// PayloadAt implements Accessor.
func (m *HeapManager) PayloadAt(hdrOff uint64) Segment {
	m.mu.Lock()
	buf := m.blocks[hdrOff]
	m.mu.Unlock()
	hdr := headerAt(buf)
	payload := buf[blockHeaderSize : blockHeaderSize+int(hdr.payloadLen)]
	return Segment{Base: uintptr(unsafe.Pointer(&payload[0])), Bytes: payload}
}

// Free implements Accessor: the last Release of a block returns its buffer
// to the owning class's free list (or simply drops it, for an unpooled
// allocation).
func (m *HeapManager) Free(hdrOff uint64) {
	m.mu.Lock()
	buf := m.blocks[hdrOff]
	delete(m.blocks, hdrOff)
	m.mu.Unlock()

	if buf == nil {
		return
	}
	logger.Debug("block freed", logger.Backend("heap"), logger.ManagerID(m.id),
		logger.Operation("free"), logger.BlockID(hdrOff))

	hdr := headerAt(buf)
	metrics.RecordFree(m.metrics, "heap", blockHeaderSize+hdr.payloadLen)
	if hdr.flags&flagUnpooled != 0 {
		return
	}
	classIdx := int(hdr.class)

	owner := m.ownerToken()
	m.locks[classIdx].Take(context.Background(), owner, burnwait.New(0))
	m.free[classIdx] = append(m.free[classIdx], buf)
	m.locks[classIdx].Release(owner)
}

// ResizeBlock implements Accessor. It grows in place when the payload's
// size class already has room (or the allocation is unpooled and the new
// length still fits the backing array's capacity); otherwise it allocates
// a new block, copies min(old, new) bytes, and releases the old one.
func (m *HeapManager) ResizeBlock(hdrOff uint64, newLen int) (Block, error) {
	m.mu.Lock()
	buf := m.blocks[hdrOff]
	m.mu.Unlock()
	if buf == nil {
		return Block{}, ErrDisposed
	}
	hdr := headerAt(buf)

	capacity := len(buf) - blockHeaderSize
	if hdr.flags&flagUnpooled == 0 {
		capacity = m.classes[hdr.class]
	}
	if newLen <= capacity {
		oldLen := int(hdr.payloadLen)
		hdr.payloadLen = uint64(newLen)
		logger.Debug("block resized in place", logger.Backend("heap"), logger.ManagerID(m.id),
			logger.Operation("resize"), logger.BlockID(hdrOff), logger.OldLen(oldLen), logger.NewLen(newLen), logger.Moved(false))
		metrics.RecordResize(m.metrics, "heap", oldLen, newLen, false)
		return newBlock(m, hdrOff), nil
	}

	oldLen := int(hdr.payloadLen)
	newBlk, err := m.Allocate(newLen)
	if err != nil {
		return Block{}, err
	}
	oldSeg := m.PayloadAt(hdrOff)
	newSeg := newBlk.Segment()
	copy(newSeg.Bytes, oldSeg.Bytes)

	old := newBlock(m, hdrOff)
	if err := old.Release(); err != nil {
		return Block{}, err
	}

	logger.Debug("block resized by relocation", logger.Backend("heap"), logger.ManagerID(m.id),
		logger.Operation("resize"), logger.BlockID(hdrOff), logger.NewLen(newLen), logger.Moved(true))
	metrics.RecordResize(m.metrics, "heap", oldLen, newLen, true)
	return newBlk, nil
}

var _ Manager = (*HeapManager)(nil)
var _ Accessor = (*HeapManager)(nil)
