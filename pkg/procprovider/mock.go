package procprovider

import "sync"

// Mock is a Provider whose reported current pid and liveness table are
// fully controlled by the test.
//
// Go has no addressable notion of "the calling OS thread" the way the
// source library's thread-local override does, so a Mock models exactly
// one simulated process: construct one *Mock per process you want to
// simulate and register each under its own ProviderID, which is also how
// the real library distinguishes processes sharing an MMF.
type Mock struct {
	mu      sync.Mutex
	current int32
	alive   map[int32]bool
}

// NewMock creates a Mock reporting currentPID as its own process id.
func NewMock(currentPID int32) *Mock {
	return &Mock{
		current: currentPID,
		alive:   make(map[int32]bool),
	}
}

// CurrentProcessID returns the pid this Mock was constructed or last set
// with SetCurrentPID.
func (m *Mock) CurrentProcessID() int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// SetCurrentPID overrides the pid this Mock reports as its own.
func (m *Mock) SetCurrentPID(pid int32) {
	m.mu.Lock()
	m.current = pid
	m.mu.Unlock()
}

// SetAlive records pid as alive (alive=true) or dead (alive=false) for
// subsequent IsAlive calls. Pids never registered report alive=false.
func (m *Mock) SetAlive(pid int32, alive bool) {
	m.mu.Lock()
	m.alive[pid] = alive
	m.mu.Unlock()
}

// IsAlive reports the liveness last recorded via SetAlive for pid.
func (m *Mock) IsAlive(pid int32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alive[pid]
}

var _ Provider = (*Mock)(nil)
