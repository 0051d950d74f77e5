package xsync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomatelib/tomate/pkg/burnwait"
	"github.com/tomatelib/tomate/pkg/procprovider"
)

func TestCrossExclusive(t *testing.T) {
	t.Run("TryTakeThenRelease", func(t *testing.T) {
		mock := procprovider.NewMock(1)
		c := NewCrossExclusive(mock)
		owner := NewOwnerID()
		assert.True(t, c.TryTake(owner))
		assert.False(t, c.TryTake(NewOwnerID()))
		assert.True(t, c.Release(owner))
		assert.Equal(t, int64(0), c.Owner())
	})

	t.Run("DifferentProcessesContendOverSharedSegment", func(t *testing.T) {
		seg := make([]byte, 8)
		procA := procprovider.NewMock(1)
		procB := procprovider.NewMock(2)
		cA := CrossExclusiveAt(seg, procA)
		cB := CrossExclusiveAt(seg, procB)

		owner := NewOwnerID()
		require.True(t, cA.TryTake(owner))
		assert.False(t, cB.TryTake(owner), "a different process must not win the same segment")
		assert.True(t, cA.Release(owner))
		assert.True(t, cB.TryTake(owner))
	})

	t.Run("TakeWaitsThenSucceeds", func(t *testing.T) {
		mock := procprovider.NewMock(7)
		c := NewCrossExclusive(mock)
		a, b := NewOwnerID(), NewOwnerID()
		require.True(t, c.TryTake(a))

		done := make(chan bool, 1)
		go func() {
			w := burnwait.New(time.Second)
			done <- c.Take(context.Background(), b, w)
		}()

		time.Sleep(10 * time.Millisecond)
		c.Release(a)

		select {
		case ok := <-done:
			assert.True(t, ok)
		case <-time.After(time.Second):
			t.Fatal("Take never returned")
		}
	})
}
