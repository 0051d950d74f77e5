package mmf

import "encoding/binary"

// The free-space index is a persistent, sorted run-length free list living
// immediately at the offset recorded in the root header:
//
//	[0..8)  capacity u64 (reserved run slots)
//	[8..16) count u64 (valid entries, always sorted ascending by offset)
//	entries: count×(offset u64, length u64), unused slots left zero
//
// The allocatable data region begins right after the index's reserved
// slots, so capacity is fixed at creation time; when every slot is in use
// and a new run cannot be merged into a neighbour, insertRun reports
// errIndexFull.
const indexMetaSize = 16
const runEntrySize = 16

func indexCapacity(data []byte, indexOff uint64) uint64 {
	return binary.LittleEndian.Uint64(data[indexOff : indexOff+8])
}

func setIndexCapacity(data []byte, indexOff, v uint64) {
	binary.LittleEndian.PutUint64(data[indexOff:indexOff+8], v)
}

func indexCount(data []byte, indexOff uint64) uint64 {
	return binary.LittleEndian.Uint64(data[indexOff+8 : indexOff+16])
}

func setIndexCount(data []byte, indexOff, v uint64) {
	binary.LittleEndian.PutUint64(data[indexOff+8:indexOff+16], v)
}

func runAt(data []byte, indexOff uint64, i uint64) (offset, length uint64) {
	base := indexOff + indexMetaSize + i*runEntrySize
	return binary.LittleEndian.Uint64(data[base : base+8]),
		binary.LittleEndian.Uint64(data[base+8 : base+16])
}

func setRunAt(data []byte, indexOff uint64, i uint64, offset, length uint64) {
	base := indexOff + indexMetaSize + i*runEntrySize
	binary.LittleEndian.PutUint64(data[base:base+8], offset)
	binary.LittleEndian.PutUint64(data[base+8:base+16], length)
}

// dataRegionStart returns the first byte offset available for allocation,
// right after the index's reserved run slots.
func dataRegionStart(data []byte, indexOff uint64) uint64 {
	return indexOff + indexMetaSize + indexCapacity(data, indexOff)*runEntrySize
}

// findRunAt returns the slot index of the free run starting exactly at
// offset, if any, used by in-place grow to check whether the space right
// after a block is free.
func findRunAt(data []byte, indexOff uint64, offset uint64) (idx uint64, length uint64, ok bool) {
	count := indexCount(data, indexOff)
	for i := uint64(0); i < count; i++ {
		o, l := runAt(data, indexOff, i)
		if o == offset {
			return i, l, true
		}
		if o > offset {
			break
		}
	}
	return 0, 0, false
}

// findBestFit returns the index of the smallest free run that can hold
// needed bytes, or false if none can.
func findBestFit(data []byte, indexOff uint64, needed uint64) (uint64, bool) {
	count := indexCount(data, indexOff)
	best := uint64(0)
	bestLen := uint64(0)
	found := false
	for i := uint64(0); i < count; i++ {
		_, length := runAt(data, indexOff, i)
		if length < needed {
			continue
		}
		if !found || length < bestLen {
			best, bestLen, found = i, length, true
		}
	}
	return best, found
}

// takeRun carves `needed` bytes off the front of the run at slot i,
// shrinking it in place or removing it entirely if fully consumed, and
// returns the offset of the carved-out span.
func takeRun(data []byte, indexOff uint64, i uint64, needed uint64) uint64 {
	offset, length := runAt(data, indexOff, i)
	if length == needed {
		removeRunAt(data, indexOff, i)
		return offset
	}
	setRunAt(data, indexOff, i, offset+needed, length-needed)
	return offset
}

// removeRunAt deletes slot i, shifting later entries down to keep the list
// dense and sorted.
func removeRunAt(data []byte, indexOff uint64, i uint64) {
	count := indexCount(data, indexOff)
	for j := i; j+1 < count; j++ {
		off, length := runAt(data, indexOff, j+1)
		setRunAt(data, indexOff, j, off, length)
	}
	setRunAt(data, indexOff, count-1, 0, 0)
	setIndexCount(data, indexOff, count-1)
}

// insertRun adds a free run [offset, offset+length), coalescing with any
// immediately adjacent run(s), and keeping the list sorted by offset. It
// returns errIndexFull if the list is full and the new run cannot be
// merged into an existing entry.
func insertRun(data []byte, indexOff uint64, offset, length uint64) error {
	count := indexCount(data, indexOff)

	// Find insertion point and candidate neighbors for coalescing.
	var pos uint64
	for pos = 0; pos < count; pos++ {
		o, _ := runAt(data, indexOff, pos)
		if o > offset {
			break
		}
	}

	mergedLeft := false
	if pos > 0 {
		prevOff, prevLen := runAt(data, indexOff, pos-1)
		if prevOff+prevLen == offset {
			offset = prevOff
			length += prevLen
			pos--
			mergedLeft = true
		}
	}

	mergedRight := false
	mergeAt := pos
	if mergedLeft {
		mergeAt = pos + 1
	}
	if mergeAt < count {
		nextOff, nextLen := runAt(data, indexOff, mergeAt)
		if offset+length == nextOff {
			length += nextLen
			mergedRight = true
		}
	}

	switch {
	case mergedLeft && mergedRight:
		setRunAt(data, indexOff, pos, offset, length)
		removeRunAt(data, indexOff, pos+1)
	case mergedLeft:
		setRunAt(data, indexOff, pos, offset, length)
	case mergedRight:
		setRunAt(data, indexOff, mergeAt, offset, length)
	default:
		if count >= indexCapacity(data, indexOff) {
			return errIndexFull
		}
		for j := count; j > pos; j-- {
			o, l := runAt(data, indexOff, j-1)
			setRunAt(data, indexOff, j, o, l)
		}
		setRunAt(data, indexOff, pos, offset, length)
		setIndexCount(data, indexOff, count+1)
	}
	return nil
}

// initialIndexCapacity picks a generous number of run slots to reserve for
// a file of the given total size. The index's reserved region is fixed at
// creation time: the source design grows it by carving space from the
// tail of the file, but doing that in place would require relocating
// whatever already sits at the new boundary, which conflicts with this
// rewrite's fixed-size-file model (see §9's dynamic-resize non-goal).
// Reserving headroom up front avoids ever needing that relocation in
// practice; insertRun still reports errIndexFull in the (pathological,
// heavily-fragmented) case where it is exhausted anyway.
func initialIndexCapacity(totalSize uint64) uint64 {
	const minCapacity = 64
	const maxCapacity = 8192
	capacity := totalSize / 512
	if capacity < minCapacity {
		capacity = minCapacity
	}
	if capacity > maxCapacity {
		capacity = maxCapacity
	}
	return capacity
}
