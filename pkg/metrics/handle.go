package metrics

// HandleMetrics provides observability for a handle.Store's slot table.
// Optional: pass nil for zero overhead.
type HandleMetrics interface {
	// SetActiveHandles reports the current number of live handles.
	SetActiveHandles(count int)

	// RecordPageGrowth records the store allocating another slot page.
	RecordPageGrowth(pageCount int)

	// RecordStaleAccess records a Get/Release call made against a handle
	// whose generation no longer matches the live slot (use-after-free
	// caught by the generation tag rather than causing corruption).
	RecordStaleAccess(typeTag string)
}

// SetActiveHandles reports the current live handle count, a no-op when m is nil.
func SetActiveHandles(m HandleMetrics, count int) {
	if m != nil {
		m.SetActiveHandles(count)
	}
}

// RecordPageGrowth records a slot page allocation, a no-op when m is nil.
func RecordPageGrowth(m HandleMetrics, pageCount int) {
	if m != nil {
		m.RecordPageGrowth(pageCount)
	}
}

// RecordStaleAccess records a stale-generation access, a no-op when m is nil.
func RecordStaleAccess(m HandleMetrics, typeTag string) {
	if m != nil {
		m.RecordStaleAccess(typeTag)
	}
}
