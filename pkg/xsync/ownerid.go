package xsync

import "sync/atomic"

// ownerIDCounter mints process-wide unique, never-zero owner tokens. Zero is
// reserved as the "unlocked" sentinel by Exclusive and CrossExclusive.
var ownerIDCounter atomic.Int32

// NewOwnerID returns a fresh, never-zero int32 suitable as the owner token
// passed to Exclusive and CrossExclusive operations. Go has no addressable
// OS thread id for these primitives to key off, so callers that don't
// already have a natural identity (a worker index, a connection id) can
// mint one of these per goroutine and reuse it for every acquisition that
// goroutine performs.
func NewOwnerID() int32 {
	for {
		id := ownerIDCounter.Add(1)
		if id != 0 {
			return id
		}
	}
}
