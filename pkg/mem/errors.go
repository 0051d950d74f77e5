// Package mem implements the reference-counted memory manager: a
// MemorySegment/MemoryBlock data model with a size-class segregated heap
// backend, and the Manager interface an MMF-backed implementation plugs
// into.
package mem

import "errors"

var (
	// ErrOutOfMemory is returned by Allocate/Resize when no backend (a
	// size class's free list, or the OS/mmap fallback) can satisfy the
	// request.
	ErrOutOfMemory = errors.New("mem: cannot satisfy allocation")

	// ErrDisposed is returned by any Block operation once the block's
	// refcount has reached zero or on the zero-valued default Block.
	ErrDisposed = errors.New("mem: operation on a disposed block")

	// ErrInvalidResize is returned by Resize when newLen is not positive.
	ErrInvalidResize = errors.New("mem: resize to non-positive length rejected")
)
