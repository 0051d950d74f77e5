package mem

// DefaultSizeClasses returns the 8 size-class buckets a HeapManager
// segregates its free lists by, doubling from 64 bytes to 8KiB. Requests
// above the largest bucket fall back to a direct, unpooled allocation.
func DefaultSizeClasses() []int {
	classes := make([]int, 8)
	size := 64
	for i := range classes {
		classes[i] = size
		size *= 2
	}
	return classes
}

// classFor returns the index of the smallest size class that can hold
// length bytes, or -1 if length exceeds every class (direct allocation).
func classFor(classes []int, length int) int {
	for i, c := range classes {
		if length <= c {
			return i
		}
	}
	return -1
}
