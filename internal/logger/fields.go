package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// These keys are designed to be backend-agnostic, covering the heap and MMF
// managers, the handle store, and the synchronization primitives alike.
// Use these keys consistently across all log statements for log aggregation
// and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Manager & Backend
	// ========================================================================
	KeyBackend   = "backend"    // Backend kind: heap, mmf
	KeyManagerID = "manager_id" // Manager instance identifier
	KeyPath      = "path"       // Backing directory/file path (MMF backend)
	KeyTotalSize = "total_size" // Total backing size in bytes

	// ========================================================================
	// Block Lifecycle
	// ========================================================================
	KeyBlockID   = "block_id"   // Block header offset/identifier
	KeyClass     = "class"      // Size-class index, or unpooled
	KeyFlags     = "flags"      // Raw block header flag bits
	KeyPayloadLen = "payload_len" // Requested/current payload length
	KeySpan      = "span"       // Total bytes occupied (header + aligned payload)
	KeyRefcount  = "refcount"   // Block reference count after the operation

	// ========================================================================
	// Resize
	// ========================================================================
	KeyOldLen = "old_len" // Payload length before a resize
	KeyNewLen = "new_len" // Payload length requested by a resize
	KeyMoved  = "moved"   // Whether resize fell back to allocate-copy-release

	// ========================================================================
	// Handle Store
	// ========================================================================
	KeyHandle     = "handle"     // Opaque (slot, generation) handle value
	KeySlot       = "slot"       // Handle store slot index
	KeyGeneration = "generation" // Handle generation tag
	KeyTypeTag    = "type_tag"   // Caller-supplied type discriminator

	// ========================================================================
	// Synchronization Primitives
	// ========================================================================
	KeyLockID      = "lock_id"      // Lock/segment identifier being contended
	KeyHolderID    = "holder_id"    // Owner token currently (or newly) holding a lock
	KeyWaiterCount = "waiter_count" // Number of waiters observed at acquire time
	KeySpins       = "spins"        // Burn-wait spin count before blocking
	KeyWaitMicros  = "wait_micros"  // Time spent waiting for a lock, in microseconds
	KeyContended   = "contended"    // Whether the acquire path observed contention

	// ========================================================================
	// Process Liveness (cross-process primitives)
	// ========================================================================
	KeyProcessID    = "process_id"    // OS process identifier
	KeyProcessAlive = "process_alive" // Liveness probe result for a recorded owner

	// ========================================================================
	// MMF Backend
	// ========================================================================
	KeyFreeRunCount  = "free_run_count"  // Number of entries in the free-space index
	KeyFreeBytes     = "free_bytes"      // Total bytes currently free
	KeyIndexCapacity = "index_capacity"  // Reserved run-slot capacity of the free-space index

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Numeric/sentinel error code
	KeyOperation  = "operation"   // Operation name: allocate, free, resize, acquire, release
	KeyComponent  = "component"   // Subsystem emitting the log line
)

// ============================================================================
// Field constructors for type safety
// These functions provide type-safe construction of slog.Attr values.
// ============================================================================

// ----------------------------------------------------------------------------
// Distributed Tracing
// ----------------------------------------------------------------------------

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// ----------------------------------------------------------------------------
// Manager & Backend
// ----------------------------------------------------------------------------

// Backend returns a slog.Attr for the backend kind (heap, mmf).
func Backend(kind string) slog.Attr {
	return slog.String(KeyBackend, kind)
}

// ManagerID returns a slog.Attr for a manager instance identifier.
func ManagerID(id string) slog.Attr {
	return slog.String(KeyManagerID, id)
}

// Path returns a slog.Attr for a backing directory/file path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// TotalSize returns a slog.Attr for a manager's total backing size.
func TotalSize(n uint64) slog.Attr {
	return slog.Uint64(KeyTotalSize, n)
}

// ----------------------------------------------------------------------------
// Block Lifecycle
// ----------------------------------------------------------------------------

// BlockID returns a slog.Attr for a block's header offset/identifier.
func BlockID(hdrOff uint64) slog.Attr {
	return slog.Uint64(KeyBlockID, hdrOff)
}

// Class returns a slog.Attr for a block's size-class index.
func Class(c uint16) slog.Attr {
	return slog.Int(KeyClass, int(c))
}

// Flags returns a slog.Attr for a block's raw header flag bits.
func Flags(f uint16) slog.Attr {
	return slog.Int(KeyFlags, int(f))
}

// PayloadLen returns a slog.Attr for a block's payload length.
func PayloadLen(n int) slog.Attr {
	return slog.Int(KeyPayloadLen, n)
}

// Span returns a slog.Attr for a block's total occupied span.
func Span(n uint64) slog.Attr {
	return slog.Uint64(KeySpan, n)
}

// Refcount returns a slog.Attr for a block's reference count.
func Refcount(n uint32) slog.Attr {
	return slog.Uint64(KeyRefcount, uint64(n))
}

// ----------------------------------------------------------------------------
// Resize
// ----------------------------------------------------------------------------

// OldLen returns a slog.Attr for a payload length prior to resize.
func OldLen(n int) slog.Attr {
	return slog.Int(KeyOldLen, n)
}

// NewLen returns a slog.Attr for a requested resize length.
func NewLen(n int) slog.Attr {
	return slog.Int(KeyNewLen, n)
}

// Moved returns a slog.Attr reporting whether a resize had to relocate the block.
func Moved(moved bool) slog.Attr {
	return slog.Bool(KeyMoved, moved)
}

// ----------------------------------------------------------------------------
// Handle Store
// ----------------------------------------------------------------------------

// Handle returns a slog.Attr for an opaque (slot, generation) handle value.
func Handle(h uint64) slog.Attr {
	return slog.Uint64(KeyHandle, h)
}

// Slot returns a slog.Attr for a handle store slot index.
func Slot(i uint32) slog.Attr {
	return slog.Uint64(KeySlot, uint64(i))
}

// Generation returns a slog.Attr for a handle's generation tag.
func Generation(g uint32) slog.Attr {
	return slog.Uint64(KeyGeneration, uint64(g))
}

// TypeTag returns a slog.Attr for a handle's caller-supplied type discriminator.
func TypeTag(tag string) slog.Attr {
	return slog.String(KeyTypeTag, tag)
}

// ----------------------------------------------------------------------------
// Synchronization Primitives
// ----------------------------------------------------------------------------

// LockID returns a slog.Attr for a lock/segment identifier.
func LockID(id string) slog.Attr {
	return slog.String(KeyLockID, id)
}

// HolderID returns a slog.Attr for an owner token holding a lock.
func HolderID(id uint64) slog.Attr {
	return slog.Uint64(KeyHolderID, id)
}

// WaiterCount returns a slog.Attr for the number of waiters observed.
func WaiterCount(n int) slog.Attr {
	return slog.Int(KeyWaiterCount, n)
}

// Spins returns a slog.Attr for a burn-wait spin count.
func Spins(n int) slog.Attr {
	return slog.Int(KeySpins, n)
}

// WaitMicros returns a slog.Attr for time spent waiting on a lock.
func WaitMicros(us int64) slog.Attr {
	return slog.Int64(KeyWaitMicros, us)
}

// Contended returns a slog.Attr reporting whether an acquire observed contention.
func Contended(c bool) slog.Attr {
	return slog.Bool(KeyContended, c)
}

// ----------------------------------------------------------------------------
// Process Liveness
// ----------------------------------------------------------------------------

// ProcessID returns a slog.Attr for an OS process identifier.
func ProcessID(pid int32) slog.Attr {
	return slog.Int(KeyProcessID, int(pid))
}

// ProcessAlive returns a slog.Attr for a liveness probe result.
func ProcessAlive(alive bool) slog.Attr {
	return slog.Bool(KeyProcessAlive, alive)
}

// ----------------------------------------------------------------------------
// MMF Backend
// ----------------------------------------------------------------------------

// FreeRunCount returns a slog.Attr for the free-space index's entry count.
func FreeRunCount(n uint64) slog.Attr {
	return slog.Uint64(KeyFreeRunCount, n)
}

// FreeBytes returns a slog.Attr for total bytes currently free.
func FreeBytes(n uint64) slog.Attr {
	return slog.Uint64(KeyFreeBytes, n)
}

// IndexCapacity returns a slog.Attr for the free-space index's reserved capacity.
func IndexCapacity(n uint64) slog.Attr {
	return slog.Uint64(KeyIndexCapacity, n)
}

// ----------------------------------------------------------------------------
// Operation Metadata
// ----------------------------------------------------------------------------

// DurationMs returns a slog.Attr for operation duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error value, or a no-op attr for nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a numeric/sentinel error code.
func ErrorCode(code string) slog.Attr {
	return slog.String(KeyErrorCode, code)
}

// Operation returns a slog.Attr for an operation name.
func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// Component returns a slog.Attr for the subsystem emitting a log line.
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}
