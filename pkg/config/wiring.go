package config

import (
	"path/filepath"

	"github.com/tomatelib/tomate/pkg/handle"
	"github.com/tomatelib/tomate/pkg/mem"
	"github.com/tomatelib/tomate/pkg/mem/mmf"
	"github.com/tomatelib/tomate/pkg/metrics"
	"github.com/tomatelib/tomate/pkg/procprovider"
	"github.com/tomatelib/tomate/pkg/xsync"
)

// NewHeapManager builds a HeapManager whose size-class buckets come from
// cfg.Heap rather than mem.DefaultSizeClasses, wired to a Prometheus
// recorder when cfg.Metrics.Enabled.
func (cfg *Config) NewHeapManager() *mem.HeapManager {
	m := mem.NewHeapManager(cfg.Heap.SizeClasses())
	if cfg.Metrics.Enabled {
		m.SetMetrics(metrics.NewManagerMetrics())
	}
	return m
}

// CreateMMF creates a new MMF-backed Manager named name under the
// configured MMF directory (see ResolveMMFDir), sized to cfg.MMF.InitialSize.
func (cfg *Config) CreateMMF(name string, provider procprovider.Provider) (*mmf.Manager, error) {
	dir := filepath.Join(ResolveMMFDir(cfg), name)
	m, err := mmf.Create(dir, int(cfg.MMF.InitialSize.Uint64()), provider)
	if err != nil {
		return nil, err
	}
	if cfg.Metrics.Enabled {
		m.SetMetrics(metrics.NewManagerMetrics())
	}
	return m, nil
}

// OpenMMF opens an existing MMF-backed Manager named name under the
// configured MMF directory.
func (cfg *Config) OpenMMF(name string, provider procprovider.Provider) (*mmf.Manager, error) {
	dir := filepath.Join(ResolveMMFDir(cfg), name)
	m, err := mmf.Open(dir, provider)
	if err != nil {
		return nil, err
	}
	if cfg.Metrics.Enabled {
		m.SetMetrics(metrics.NewManagerMetrics())
	}
	return m, nil
}

// NewSmallLockSegment allocates a zeroed byte segment sized to hold
// cfg.Lock.SmallLockCapacity queue slots, suitable for xsync.NewSmallLock.
func (cfg LockConfig) NewSmallLockSegment() []byte {
	capacity := cfg.SmallLockCapacity
	if capacity > xsync.MaxSmallLockCapacity {
		capacity = xsync.MaxSmallLockCapacity
	}
	return make([]byte, smallLockSegmentSize(capacity))
}

// smallLockSegmentSize mirrors xsync's own header-plus-slots layout
// (28-byte header + 8 bytes per queue slot). Duplicated here because that
// constant is unexported in pkg/xsync.
func smallLockSegmentSize(capacity int) int {
	const smallLockHeaderSize = 28
	return smallLockHeaderSize + capacity*8
}

// NewSmallLock allocates a segment per cfg.Lock and initializes a
// SmallLock over it for the given provider, wired to a Prometheus recorder
// when cfg.Metrics.Enabled.
func (cfg *Config) NewSmallLock(providerID procprovider.ProviderID) (*xsync.SmallLock, error) {
	seg := cfg.Lock.NewSmallLockSegment()
	lock, err := xsync.NewSmallLock(seg, providerID)
	if err != nil {
		return nil, err
	}
	if cfg.Metrics.Enabled {
		lock.SetMetrics(metrics.NewLockMetrics())
	}
	return lock, nil
}

// NewHandleStore builds a handle.Store wired to a Prometheus recorder when
// cfg.Metrics.Enabled.
func (cfg *Config) NewHandleStore() *handle.Store {
	s := handle.NewStore()
	if cfg.Metrics.Enabled {
		s.SetMetrics(metrics.NewHandleMetrics())
	}
	return s
}
