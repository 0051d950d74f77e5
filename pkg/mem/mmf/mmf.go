package mmf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unsafe"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/tomatelib/tomate/internal/logger"
	"github.com/tomatelib/tomate/pkg/burnwait"
	"github.com/tomatelib/tomate/pkg/handle"
	"github.com/tomatelib/tomate/pkg/mem"
	"github.com/tomatelib/tomate/pkg/metrics"
	"github.com/tomatelib/tomate/pkg/procprovider"
	"github.com/tomatelib/tomate/pkg/xsync"
)

// blockHeaderSize mirrors mem's own blockHeaderSize: refcount(4) +
// class(2) + flags(2) + payloadLen(8) = 16 bytes. Duplicated here because
// that constant is unexported in pkg/mem.
const blockHeaderSize = 16

// Manager is the Manager/Accessor backend over a memory-mapped file. Every
// Block it hands out is addressed by file offset, so the same bytes mean
// the same thing to every process that opens the file: there is no
// in-process map from opaque id to buffer the way HeapManager keeps, the
// offset *is* the identity.
//
// Unlike HeapManager's size-class free lists, the MMF backend is a single
// best-fit allocator over one free-space index: the file layout fixes the
// class field at 0 for every block (it exists only to share the heap
// backend's 16-byte header), and a block's physical span is always
// blockHeaderSize + align16(payloadLen), recomputed from the header alone
// so Free never needs separately persisted bookkeeping.
type Manager struct {
	id       string
	mu       sync.Mutex
	path     string
	file     *os.File
	data     []byte
	provider procprovider.Provider
	metaLock *xsync.CrossExclusive
	store    *handle.Store
	closed   bool
	metrics  metrics.ManagerMetrics
}

// SetMetrics attaches a ManagerMetrics recorder. Passing nil (the default)
// disables metrics collection for this manager at zero overhead.
func (m *Manager) SetMetrics(rec metrics.ManagerMetrics) {
	m.metrics = rec
}

// Create initializes a new MMF-backed Manager at path/data.mmf with the
// given total size, and maps it. provider answers "who am I / is pid X
// alive" for the embedded cross-process metadata lock.
func Create(path string, size int, provider procprovider.Provider) (*Manager, error) {
	if size < rootHeaderSize*4 {
		return nil, fmt.Errorf("mmf: size %d too small", size)
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("mmf: create directory: %w", err)
	}

	filePath := filepath.Join(path, "data.mmf")
	f, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("mmf: create file: %w", err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, fmt.Errorf("mmf: truncate: %w", err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmf: mmap: %w", err)
	}

	writeMagicAndVersion(data)
	writeTotalSize(data, uint64(size))
	writeCreatorPID(data, uint32(provider.CurrentProcessID()))

	indexOff := uint64(rootHeaderSize)
	writeFreeIndexOffset(data, indexOff)

	capacity := initialIndexCapacity(uint64(size))
	setIndexCapacity(data, indexOff, capacity)
	setIndexCount(data, indexOff, 0)

	start := dataRegionStart(data, indexOff)
	if start >= uint64(size) {
		unix.Munmap(data)
		f.Close()
		return nil, fmt.Errorf("mmf: size %d too small for index overhead", size)
	}
	if err := insertRun(data, indexOff, start, uint64(size)-start); err != nil {
		unix.Munmap(data)
		f.Close()
		return nil, err
	}

	id := uuid.NewString()
	m := &Manager{
		id:       id,
		path:     path,
		file:     f,
		data:     data,
		provider: provider,
		metaLock: openMetaLock(data, provider),
		store:    handle.NewStore(),
	}
	logger.Info("mmf manager created", logger.Backend("mmf"), logger.ManagerID(id),
		logger.Path(path), logger.TotalSize(uint64(size)), logger.ProcessID(provider.CurrentProcessID()))
	return m, nil
}

// Open maps an existing MMF file previously initialized by Create,
// verifying its magic and version.
func Open(path string, provider procprovider.Provider) (*Manager, error) {
	filePath := filepath.Join(path, "data.mmf")
	f, err := os.OpenFile(filePath, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("mmf: open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmf: stat: %w", err)
	}
	size := info.Size()
	if size < rootHeaderSize {
		f.Close()
		return nil, ErrCorrupt
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmf: mmap: %w", err)
	}

	if err := checkMagicAndVersion(data); err != nil {
		unix.Munmap(data)
		f.Close()
		return nil, err
	}
	if readTotalSize(data) != uint64(size) {
		unix.Munmap(data)
		f.Close()
		return nil, ErrCorrupt
	}

	id := uuid.NewString()
	m := &Manager{
		id:       id,
		path:     path,
		file:     f,
		data:     data,
		provider: provider,
		metaLock: openMetaLock(data, provider),
		store:    handle.NewStore(),
	}
	logger.Info("mmf manager opened", logger.Backend("mmf"), logger.ManagerID(id),
		logger.Path(path), logger.TotalSize(uint64(size)), logger.ProcessID(provider.CurrentProcessID()))
	return m, nil
}

// Close unmaps and closes the backing file. It does not delete it: the
// file persists for the next Open, including every block's contents and
// refcount (round-trip per the store's own testable property).
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	if err := unix.Msync(m.data, unix.MS_SYNC); err != nil {
		return fmt.Errorf("mmf: msync: %w", err)
	}
	if err := unix.Munmap(m.data); err != nil {
		return fmt.Errorf("mmf: munmap: %w", err)
	}
	m.data = nil
	if err := m.file.Close(); err != nil {
		return fmt.Errorf("mmf: close file: %w", err)
	}
	logger.Info("mmf manager closed", logger.Backend("mmf"), logger.ManagerID(m.id), logger.Path(m.path))
	return nil
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// align16 rounds n up to the next multiple of 16, the manager's minimum
// payload alignment.
func align16(n int) uint64 {
	return uint64((n + 15) &^ 15)
}

func spanFor(payloadLen int) uint64 {
	return blockHeaderSize + align16(payloadLen)
}

// withMetaLock runs fn with the root header's embedded metadata lock held.
// Acquisition uses a freshly minted owner token per call: critical
// sections here are bounded index arithmetic, never reentered.
func (m *Manager) withMetaLock(fn func()) {
	owner := xsync.NewOwnerID()
	m.metaLock.Take(context.Background(), owner, burnwait.New(0))
	defer m.metaLock.Release(owner)
	fn()
}

// Allocate returns a Block of at least length bytes with refcount 1,
// carved out of the smallest free run that fits.
func (m *Manager) Allocate(length int) (mem.Block, error) {
	start := time.Now()
	if length <= 0 {
		return mem.Block{}, mem.ErrInvalidResize
	}
	if m.isClosed() {
		return mem.Block{}, ErrClosed
	}

	var blk mem.Block
	var blockOff uint64
	var allocErr error
	m.withMetaLock(func() {
		indexOff := readFreeIndexOffset(m.data)
		needed := spanFor(length)
		runIdx, ok := findBestFit(m.data, indexOff, needed)
		if !ok {
			allocErr = mem.ErrOutOfMemory
			return
		}
		hdrOff := takeRun(m.data, indexOff, runIdx, needed)
		hdr := mem.HeaderAt(m.data[hdrOff:])
		hdr.Init(0, 0, uint64(length))
		blk = mem.NewBlock(m, hdrOff)
		blockOff = hdrOff
	})
	if allocErr != nil {
		logger.Debug("mmf allocate failed", logger.Backend("mmf"), logger.ManagerID(m.id),
			logger.Operation("allocate"), logger.PayloadLen(length), logger.Err(allocErr))
		return blk, allocErr
	}
	logger.Debug("mmf block allocated", logger.Backend("mmf"), logger.ManagerID(m.id),
		logger.Operation("allocate"), logger.BlockID(blockOff), logger.PayloadLen(length))
	metrics.RecordAllocate(m.metrics, "mmf", length, time.Since(start))
	return blk, allocErr
}

// Resize satisfies the Manager interface by delegating to Block.Resize,
// which calls back into ResizeBlock.
func (m *Manager) Resize(b mem.Block, newLen int) (mem.Block, error) {
	return b.Resize(newLen)
}

// Store returns the handle.Store tied to this manager's lifetime. It is
// an ordinary in-process store: the source design allows the store itself
// to be MMF-backed, but nothing in this library needs a Handle to survive
// a process restart, only a Block's bytes do.
func (m *Manager) Store() *handle.Store {
	return m.store
}

// HeaderAt implements mem.Accessor.
func (m *Manager) HeaderAt(hdrOff uint64) *mem.BlockHeader {
	return mem.HeaderAt(m.data[hdrOff:])
}

// PayloadAt implements mem.Accessor.
func (m *Manager) PayloadAt(hdrOff uint64) mem.Segment {
	hdr := mem.HeaderAt(m.data[hdrOff:])
	start := hdrOff + blockHeaderSize
	end := start + uint64(hdr.Len())
	return mem.Segment{
		Base:  uintptr(unsafe.Pointer(&m.data[start])),
		Bytes: m.data[start:end],
	}
}

// Free implements mem.Accessor: returns the block's full span (header +
// aligned payload) to the free-space index, coalescing with neighbors.
func (m *Manager) Free(hdrOff uint64) {
	hdr := mem.HeaderAt(m.data[hdrOff:])
	span := spanFor(hdr.Len())

	m.withMetaLock(func() {
		indexOff := readFreeIndexOffset(m.data)
		_ = insertRun(m.data, indexOff, hdrOff, span)
	})
	logger.Debug("mmf block freed", logger.Backend("mmf"), logger.ManagerID(m.id),
		logger.Operation("free"), logger.BlockID(hdrOff), logger.Span(span))
	metrics.RecordFree(m.metrics, "mmf", span)
}

// ResizeBlock implements mem.Accessor. It shrinks in place (splitting the
// freed tail back into the index), grows in place when the run
// immediately following the block is free and large enough, or otherwise
// allocates a new block, copies the payload, and releases the old one.
func (m *Manager) ResizeBlock(hdrOff uint64, newLen int) (mem.Block, error) {
	hdr := mem.HeaderAt(m.data[hdrOff:])
	oldSpan := spanFor(hdr.Len())
	newSpan := spanFor(newLen)

	oldLen := hdr.Len()
	logResize := func(moved bool) {
		logger.Debug("mmf block resized", logger.Backend("mmf"), logger.ManagerID(m.id),
			logger.Operation("resize"), logger.BlockID(hdrOff), logger.OldLen(oldLen), logger.NewLen(newLen), logger.Moved(moved))
		metrics.RecordResize(m.metrics, "mmf", oldLen, newLen, moved)
	}

	if newSpan == oldSpan {
		hdr.SetPayloadLen(uint64(newLen))
		logResize(false)
		return mem.NewBlock(m, hdrOff), nil
	}

	if newSpan < oldSpan {
		var result mem.Block
		m.withMetaLock(func() {
			indexOff := readFreeIndexOffset(m.data)
			freedOff := hdrOff + newSpan
			freedLen := oldSpan - newSpan
			_ = insertRun(m.data, indexOff, freedOff, freedLen)
			hdr.SetPayloadLen(uint64(newLen))
			result = mem.NewBlock(m, hdrOff)
		})
		logResize(false)
		return result, nil
	}

	grew := false
	var result mem.Block
	m.withMetaLock(func() {
		indexOff := readFreeIndexOffset(m.data)
		extra := newSpan - oldSpan
		runIdx, runLen, ok := findRunAt(m.data, indexOff, hdrOff+oldSpan)
		if !ok || runLen < extra {
			return
		}
		if runLen == extra {
			removeRunAt(m.data, indexOff, runIdx)
		} else {
			off, length := runAt(m.data, indexOff, runIdx)
			setRunAt(m.data, indexOff, runIdx, off+extra, length-extra)
		}
		hdr.SetPayloadLen(uint64(newLen))
		grew = true
		result = mem.NewBlock(m, hdrOff)
	})
	if grew {
		logResize(false)
		return result, nil
	}

	newBlk, err := m.Allocate(newLen)
	if err != nil {
		return mem.Block{}, err
	}
	oldSeg := m.PayloadAt(hdrOff)
	newSeg := newBlk.Segment()
	copy(newSeg.Bytes, oldSeg.Bytes)

	old := mem.NewBlock(m, hdrOff)
	if err := old.Release(); err != nil {
		return mem.Block{}, err
	}
	logResize(true)
	return newBlk, nil
}

var _ mem.Manager = (*Manager)(nil)
var _ mem.Accessor = (*Manager)(nil)
