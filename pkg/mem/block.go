package mem

import (
	"sync/atomic"
	"unsafe"

	"github.com/tomatelib/tomate/internal/logger"
)

// blockHeaderSize is the fixed byte layout prepended to every block's
// payload, shared by the heap and MMF backends: refcount(4) + class(2) +
// flags(2) + payloadLen(8) = 16 bytes.
const blockHeaderSize = 16

// blockHeaderFlags bits.
const (
	flagUnpooled uint16 = 1 << 0 // allocated directly, not from a size class
)

// BlockHeader is the fixed metadata prepended to a block's payload,
// reinterpreted in place over either a heap buffer or mmap'd bytes.
// Refcount is the only field mutated outside of an owning Exclusive/
// CrossExclusive critical section, so it alone uses atomic operations;
// class, flags and payloadLen are written once at allocation (or under the
// manager's metadata lock, for resize) and read thereafter.
type BlockHeader struct {
	refcount   atomic.Uint32
	class      uint16
	flags      uint16
	payloadLen uint64
}

// headerAt reinterprets the blockHeaderSize bytes at the start of buf as a
// *BlockHeader.
func headerAt(buf []byte) *BlockHeader {
	return (*BlockHeader)(unsafe.Pointer(&buf[0]))
}

// HeaderAt is headerAt exported for use by out-of-package Accessor
// implementations (pkg/mem/mmf), which hold the raw mapped bytes but
// cannot reach this package's unexported reinterpretation helper.
func HeaderAt(buf []byte) *BlockHeader {
	return headerAt(buf)
}

// Refcount returns the header's current reference count.
func (h *BlockHeader) Refcount() uint32 {
	return h.refcount.Load()
}

// Len returns the payload length recorded in the header.
func (h *BlockHeader) Len() int {
	return int(h.payloadLen)
}

// Class reports the header's size-class index, or 0xFFFF for an unpooled
// (directly allocated) block.
func (h *BlockHeader) Class() uint16 {
	return h.class
}

// Flags reports the header's raw flag bits.
func (h *BlockHeader) Flags() uint16 {
	return h.flags
}

// Init writes a freshly carved header's fields and sets its refcount to 1.
// Exported for Accessor implementations outside this package (pkg/mem/mmf)
// that carve block headers directly out of mapped bytes.
func (h *BlockHeader) Init(class, flags uint16, payloadLen uint64) {
	h.refcount.Store(1)
	h.class = class
	h.flags = flags
	h.payloadLen = payloadLen
}

// SetPayloadLen updates the recorded payload length without moving the
// block, for a ResizeBlock implementation that grows or shrinks in place.
func (h *BlockHeader) SetPayloadLen(n uint64) {
	h.payloadLen = n
}

// Accessor is implemented by a concrete Manager backend to let Block
// dispatch back into it without Manager itself exposing these operations
// as part of its public allocation-hot-path surface. Its methods are
// exported (Go has no way to satisfy an unexported interface method from
// another package, and the MMF backend lives in pkg/mem/mmf) but are not
// meant to be called directly by ordinary callers — Block is the intended
// entry point.
type Accessor interface {
	HeaderAt(hdrOff uint64) *BlockHeader
	PayloadAt(hdrOff uint64) Segment
	Free(hdrOff uint64)
	ResizeBlock(hdrOff uint64, newLen int) (Block, error)
}

// Block is a reference-counted handle to a manager-owned allocation. It is
// a cheap value type: all mutable state (refcount, length) lives in the
// block header reachable through the manager, so copying a Block never
// aliases a refcount field the way a direct pointer-to-header copy would.
type Block struct {
	mgr    Accessor
	hdrOff uint64
}

// newBlock is used internally by Accessor implementations to hand back a
// freshly allocated or resized block.
func newBlock(mgr Accessor, hdrOff uint64) Block {
	return Block{mgr: mgr, hdrOff: hdrOff}
}

// NewBlock is newBlock exported for out-of-package Accessor implementations
// (pkg/mem/mmf) that need to hand back a Block to their own callers.
func NewBlock(mgr Accessor, hdrOff uint64) Block {
	return newBlock(mgr, hdrOff)
}

// IsDefault reports whether b is the zero Block, never returned by a
// Manager.
func (b Block) IsDefault() bool {
	return b.mgr == nil
}

// IsDisposed reports whether b's refcount has reached zero (or b is the
// default Block).
func (b Block) IsDisposed() bool {
	if b.IsDefault() {
		return true
	}
	return b.mgr.HeaderAt(b.hdrOff).Refcount() == 0
}

// Refcount returns b's current reference count, or 0 for a default/
// disposed block.
func (b Block) Refcount() uint32 {
	if b.IsDefault() {
		return 0
	}
	return b.mgr.HeaderAt(b.hdrOff).Refcount()
}

// AddRef increments b's reference count. Every AddRef must be matched with
// a Release. Incrementing a disposed block's refcount from zero would
// resurrect a header the manager may already be reusing for another
// allocation, so that transition is treated as the invariant violation it
// is rather than silently handed back to the caller.
func (b Block) AddRef() {
	if b.IsDefault() {
		return
	}
	hdr := b.mgr.HeaderAt(b.hdrOff)
	for {
		cur := hdr.refcount.Load()
		if cur == 0 {
			logger.Error("addref on disposed block", logger.BlockID(b.hdrOff), logger.Refcount(cur))
			panic("mem: AddRef on disposed block")
		}
		if hdr.refcount.CompareAndSwap(cur, cur+1) {
			return
		}
	}
}

// Release decrements b's reference count, returning the payload to the
// manager's free space when it reaches zero. Returns ErrDisposed if called
// on an already-disposed block. The check-and-decrement is a single CAS
// loop rather than a separate IsDisposed read followed by an unconditional
// Add: two concurrent Release calls on copies of the same Block (Block is
// meant to be freely copied) must not both observe refcount==1 and both
// decrement, which would underflow past zero without either of them seeing
// ErrDisposed.
func (b Block) Release() error {
	if b.IsDefault() {
		return ErrDisposed
	}
	hdr := b.mgr.HeaderAt(b.hdrOff)
	for {
		cur := hdr.refcount.Load()
		if cur == 0 {
			return ErrDisposed
		}
		if cur == 1 {
			if !hdr.refcount.CompareAndSwap(cur, 0) {
				continue
			}
			b.mgr.Free(b.hdrOff)
			return nil
		}
		if hdr.refcount.CompareAndSwap(cur, cur-1) {
			return nil
		}
	}
}

// Segment returns the view over b's payload bytes. It never frees memory.
func (b Block) Segment() Segment {
	if b.IsDisposed() {
		return Segment{}
	}
	return b.mgr.PayloadAt(b.hdrOff)
}

// Resize produces a new Block holding at least newLen bytes, growing in
// place when the backend can and falling back to allocate-copy-release
// otherwise. When the backend resizes in place, the returned Block has the
// same identity as the receiver and the receiver stays usable; when the
// block moves, the receiver's reference is released. Callers use the
// returned Block in both cases.
func (b Block) Resize(newLen int) (Block, error) {
	if newLen <= 0 {
		return Block{}, ErrInvalidResize
	}
	if b.IsDisposed() {
		return Block{}, ErrDisposed
	}
	return b.mgr.ResizeBlock(b.hdrOff, newLen)
}
