package handle

import (
	"hash/fnv"
	"reflect"
	"unsafe"
)

// slot is one entry in a Store's table: a generation counter, an
// occupancy flag, a type tag identifying the stored type, and the inline
// bytes holding the value itself.
type slot struct {
	generation uint32
	occupied   bool
	typeTag    uint32
	data       []byte
}

// typeTag returns a stable hash of T's name, used to reject Get/Release
// calls whose type parameter doesn't match what was actually stored.
func typeTag[T any]() uint32 {
	var zero T
	h := fnv.New32a()
	_, _ = h.Write([]byte(reflect.TypeOf(zero).String()))
	return h.Sum32()
}

// slotValue reinterprets a slot's inline bytes as *T.
func slotValue[T any](s *slot) *T {
	return (*T)(unsafe.Pointer(&s.data[0]))
}

// sizeOf returns the byte size of T.
func sizeOf[T any]() uintptr {
	var zero T
	return unsafe.Sizeof(zero)
}
