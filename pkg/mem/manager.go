package mem

import (
	"sync"

	"github.com/tomatelib/tomate/pkg/handle"
)

// Manager allocates, resizes and frees reference-counted Blocks. The
// variant set is small and closed (heap, MMF); this interface exists only
// at that boundary, not on the hot allocation path within a single
// backend, per the no-virtual-dispatch design of the size-class free
// lists.
type Manager interface {
	// Allocate returns a Block of at least length bytes, payload aligned
	// to at least 16 bytes, with refcount 1.
	Allocate(length int) (Block, error)

	// Resize grows or shrinks b to newLen bytes, returning the (possibly
	// new) Block. A resize in place returns a Block with b's identity and
	// leaves b usable; a move releases b's reference. Callers use the
	// return value.
	Resize(b Block, newLen int) (Block, error)

	// Store returns the handle.Store tied to this manager's lifetime.
	Store() *handle.Store
}

var (
	globalOnce sync.Once
	global     *HeapManager
)

// Global returns the process-wide default HeapManager, lazily constructed
// on first use with DefaultSizeClasses. No function in this module takes a
// Manager parameter, so nothing here substitutes Global for a nil Manager.
func Global() *HeapManager {
	globalOnce.Do(func() {
		global = NewHeapManager(DefaultSizeClasses())
	})
	return global
}
