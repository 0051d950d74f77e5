// Package mmf implements the Manager backend over a memory-mapped file:
// a root header, a persistent free-space index, and blocks whose headers
// are inline with their payloads, all addressed by file offset so the
// same bytes are meaningful to every process mapping the file.
package mmf

import "errors"

var (
	// ErrCorrupt is returned by Open when the file's magic does not match
	// or its header is otherwise inconsistent with the file. A version
	// difference is reported as ErrVersionMismatch instead, and the
	// free-space invariant (sum of runs + allocated payloads + overhead =
	// total size) is not checked.
	ErrCorrupt = errors.New("mmf: file corrupt or invalid")

	// ErrVersionMismatch is returned by Open when the root header's
	// version does not match the version this build writes.
	ErrVersionMismatch = errors.New("mmf: version mismatch")

	// ErrClosed is returned by any operation on a Manager after Close.
	ErrClosed = errors.New("mmf: manager closed")

	// errIndexFull signals internally that the free-space index has no
	// room for a new run (its capacity is fixed when the file is created);
	// callers see it surfaced as mem.ErrOutOfMemory.
	errIndexFull = errors.New("mmf: free-space index full")
)
