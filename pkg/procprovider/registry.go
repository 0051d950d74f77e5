package procprovider

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Registry maps a ProviderID to a live Provider implementation. It is an
// ordinary in-process map; only the ids it hands out are meant to cross
// into shared memory, never the Registry itself or a Provider value.
type Registry struct {
	mu        sync.RWMutex
	providers map[ProviderID]Provider
	nextID    atomic.Int32
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[ProviderID]Provider),
	}
}

// Register adds provider under a freshly minted id and returns it.
func (r *Registry) Register(provider Provider) ProviderID {
	if provider == nil {
		panic("procprovider: cannot register a nil Provider")
	}

	id := ProviderID(r.nextID.Add(1))

	r.mu.Lock()
	r.providers[id] = provider
	r.mu.Unlock()

	return id
}

// RegisterAt adds provider under an explicit id, failing if the id is
// already taken. Used when a caller must reproduce a specific id read back
// from an MMF header (e.g. after Open on a file created by another process
// run earlier).
func (r *Registry) RegisterAt(id ProviderID, provider Provider) error {
	if provider == nil {
		panic("procprovider: cannot register a nil Provider")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[id]; exists {
		return fmt.Errorf("procprovider: id %d already registered", id)
	}
	r.providers[id] = provider
	return nil
}

// Unregister removes a previously registered provider. It is a no-op if the
// id is not present.
func (r *Registry) Unregister(id ProviderID) {
	r.mu.Lock()
	delete(r.providers, id)
	r.mu.Unlock()
}

// Lookup returns the provider registered under id, or false if none is.
func (r *Registry) Lookup(id ProviderID) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// Global is the process-wide registry used by components (SmallLock,
// CrossExclusive, the MMF manager) that don't have a more specific registry
// threaded through to them.
var Global = NewRegistry()

// DefaultProviderID is the id under which Global registers OSProvider{} the
// first time it is needed.
var defaultOnce sync.Once
var defaultID ProviderID

// DefaultProviderID returns the ProviderID of the OS-backed provider
// registered in Global, registering it lazily on first use.
func DefaultProviderID() ProviderID {
	defaultOnce.Do(func() {
		defaultID = Global.Register(OSProvider{})
	})
	return defaultID
}
