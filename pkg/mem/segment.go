package mem

import "unsafe"

// Segment is a raw (address, length) view. It never owns or frees memory;
// it is purely descriptive, always backed by a []byte slice over either a
// Go-heap allocation or an mmap'd region.
type Segment struct {
	Base  uintptr
	Bytes []byte
}

// Len reports the segment's length in bytes.
func (s Segment) Len() int {
	return len(s.Bytes)
}

// Sub returns the subslice [off, off+length) as its own Segment.
func (s Segment) Sub(off, length int) Segment {
	return Segment{
		Base:  s.Base + uintptr(off),
		Bytes: s.Bytes[off : off+length],
	}
}

// Typed reinterprets a Segment's bytes as a slice of T with zero copies.
// Go methods cannot carry their own type parameters, so this is a
// package-level generic function rather than a method on Segment.
//
// Callers are responsible for the same alignment and aliasing discipline
// any unsafe reinterpretation requires: T must not hold pointers unless the
// segment's backing memory is known to be scanned by the Go GC (an MMF
// segment never is).
func Typed[T any](s Segment) []T {
	if len(s.Bytes) == 0 {
		return nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	n := len(s.Bytes) / size
	return unsafe.Slice((*T)(unsafe.Pointer(&s.Bytes[0])), n)
}
