package procprovider

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSProvider(t *testing.T) {
	t.Run("CurrentProcessIDMatchesGetpid", func(t *testing.T) {
		var p OSProvider
		assert.Equal(t, int32(os.Getpid()), p.CurrentProcessID())
	})

	t.Run("SelfIsAlive", func(t *testing.T) {
		var p OSProvider
		assert.True(t, p.IsAlive(int32(os.Getpid())))
	})

	t.Run("BogusPidIsNotAlive", func(t *testing.T) {
		var p OSProvider
		// PIDs are small positive integers on every supported platform;
		// this one is vanishingly unlikely to be assigned.
		assert.False(t, p.IsAlive(1<<30))
	})
}

func TestMock(t *testing.T) {
	m := NewMock(1)
	m.SetAlive(1, true)
	m.SetAlive(2, false)

	assert.Equal(t, int32(1), m.CurrentProcessID())
	assert.True(t, m.IsAlive(1))
	assert.False(t, m.IsAlive(2))
	assert.False(t, m.IsAlive(999), "unregistered pid defaults to not alive")

	m.SetCurrentPID(42)
	assert.Equal(t, int32(42), m.CurrentProcessID())
}

func TestRegistry(t *testing.T) {
	t.Run("RegisterAndLookup", func(t *testing.T) {
		r := NewRegistry()
		mock := NewMock(7)
		id := r.Register(mock)

		got, ok := r.Lookup(id)
		require.True(t, ok)
		assert.Same(t, mock, got)
	})

	t.Run("LookupMissingFails", func(t *testing.T) {
		r := NewRegistry()
		_, ok := r.Lookup(ProviderID(999))
		assert.False(t, ok)
	})

	t.Run("RegisterAtRejectsDuplicate", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.RegisterAt(1, NewMock(1)))
		err := r.RegisterAt(1, NewMock(2))
		assert.Error(t, err)
	})

	t.Run("UnregisterRemoves", func(t *testing.T) {
		r := NewRegistry()
		id := r.Register(NewMock(1))
		r.Unregister(id)
		_, ok := r.Lookup(id)
		assert.False(t, ok)
	})
}

func TestDefaultProviderID(t *testing.T) {
	id1 := DefaultProviderID()
	id2 := DefaultProviderID()
	assert.Equal(t, id1, id2, "DefaultProviderID is idempotent")

	p, ok := Global.Lookup(id1)
	require.True(t, ok)
	assert.Equal(t, int32(os.Getpid()), p.CurrentProcessID())
}
