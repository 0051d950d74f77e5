// Package xsync implements the synchronization primitives whose entire
// state fits in a fixed-size byte region, so they can be embedded in a
// memory-mapped file and used between threads of one process or between
// unrelated processes sharing that file.
//
// None of these primitives block on anything but a bounded spin with an
// optional deadline (burnwait.Waiter). They are
// not reentrant unless individually documented otherwise (SmallLock is;
// Exclusive, CrossExclusive, and RWAccess are not).
package xsync

import "errors"

var (
	// ErrTimeout is returned by operations that waited out their deadline
	// without acquiring the primitive. It is not a fault: the caller's
	// observable state is left exactly as if the call had not been made.
	ErrTimeout = errors.New("xsync: timed out waiting to acquire")

	// ErrBadHolder is returned by Release when the caller does not
	// currently hold the primitive.
	ErrBadHolder = errors.New("xsync: release called by non-holder")

	// ErrWouldDeadlock names a reentrant acquisition of an Exclusive or
	// CrossExclusive by the owner that already holds it. These primitives
	// are not reentrant; SmallLock is the reentrant one. Their Take methods
	// report that case by returning false at once; no function in this
	// package returns ErrWouldDeadlock itself.
	ErrWouldDeadlock = errors.New("xsync: reentrant acquisition of a non-reentrant lock")

	// ErrConcurrencyExceeded is returned by SmallLock.Acquire when the
	// embedded queue is already at capacity.
	ErrConcurrencyExceeded = errors.New("xsync: small lock queue is full")

	// ErrSegmentTooSmall is returned when a caller-provided segment cannot
	// hold even the SmallLock header plus one queue slot.
	ErrSegmentTooSmall = errors.New("xsync: segment too small for requested layout")

	// ErrCapacityTooLarge is returned by NewSmallLock when the segment
	// would imply a queue capacity above MaxSmallLockCapacity.
	ErrCapacityTooLarge = errors.New("xsync: small lock capacity exceeds maximum")
)
