package handle

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X, Y int32
}

func TestStore(t *testing.T) {
	t.Run("CreateGetRoundTrip", func(t *testing.T) {
		s := NewStore()
		p, h, err := CreateIn[point](s, 0)
		require.NoError(t, err)
		p.X, p.Y = 3, 4

		got, err := Get[point](s, h)
		require.NoError(t, err)
		assert.Same(t, p, got)
		assert.Equal(t, int32(3), got.X)
	})

	t.Run("StaleHandleAfterRelease", func(t *testing.T) {
		// Scenario: create a value, release, then attempt get — receive
		// StaleHandle.
		s := NewStore()
		_, h, err := CreateIn[point](s, 0)
		require.NoError(t, err)
		require.NoError(t, Release[point](s, h, nil))

		_, err = Get[point](s, h)
		assert.ErrorIs(t, err, ErrStaleHandle)
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		s := NewStore()
		_, h, err := CreateIn[point](s, 0)
		require.NoError(t, err)

		_, err = Get[int64](s, h)
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("ReleaseInvokesDestroy", func(t *testing.T) {
		s := NewStore()
		p, h, err := CreateIn[point](s, 0)
		require.NoError(t, err)
		p.X = 9

		var seen int32
		require.NoError(t, Release[point](s, h, func(v *point) {
			seen = v.X
		}))
		assert.Equal(t, int32(9), seen)
	})

	t.Run("SlotReuseBumpsGeneration", func(t *testing.T) {
		s := NewStore()
		_, h1, err := CreateIn[point](s, 0)
		require.NoError(t, err)
		require.NoError(t, Release[point](s, h1, nil))

		_, h2, err := CreateIn[point](s, 0)
		require.NoError(t, err)

		assert.Equal(t, h1.slotIndex(), h2.slotIndex(), "freed slot should be reused")
		assert.NotEqual(t, h1.generation(), h2.generation())
		_, err = Get[point](s, h1)
		assert.ErrorIs(t, err, ErrStaleHandle)
	})

	t.Run("DefaultHandleNeverValidates", func(t *testing.T) {
		s := NewStore()
		_, _, err := CreateIn[point](s, 0)
		require.NoError(t, err)

		var zero Handle
		assert.True(t, zero.IsDefault())
		_, err = Get[point](s, zero)
		assert.ErrorIs(t, err, ErrStaleHandle)
	})

	t.Run("GenerationWrapSkipsZero", func(t *testing.T) {
		// Boundary: after 2^32 releases of the same slot, a previously
		// saved Handle must not accidentally re-match. Drive the slot's
		// generation counter to the wrap point directly rather than
		// looping four billion times.
		s := NewStore()
		_, h, err := CreateIn[point](s, 0)
		require.NoError(t, err)

		sl, ok := s.slotAt(h.slotIndex())
		require.True(t, ok)
		sl.generation = 0xFFFFFFFF
		h = newHandle(h.slotIndex(), sl.generation)

		require.NoError(t, Release[point](s, h, nil))
		assert.Equal(t, uint32(1), sl.generation, "generation must skip 0 on wraparound")

		_, _, err = CreateIn[point](s, 0)
		require.NoError(t, err)
		assert.NotEqual(t, uint32(0), sl.generation)
	})

	t.Run("GrowsAcrossPageBoundary", func(t *testing.T) {
		s := NewStore()
		handles := make([]Handle, pageSize+10)
		for i := range handles {
			_, h, err := CreateIn[point](s, 0)
			require.NoError(t, err)
			handles[i] = h
		}
		last := handles[len(handles)-1]
		v, err := Get[point](s, last)
		require.NoError(t, err)
		v.X = 42
		got, err := Get[point](s, last)
		require.NoError(t, err)
		assert.Equal(t, int32(42), got.X)
	})

	t.Run("ConcurrentReleaseDestroysExactlyOnce", func(t *testing.T) {
		// Scenario: two goroutines race Release on copies of the same
		// still-live handle. Exactly one must retire the slot and run
		// destroy; the other must see StaleHandle, never a second destroy
		// call and never a duplicate freeList entry.
		s := NewStore()
		_, h, err := CreateIn[point](s, 0)
		require.NoError(t, err)

		var destroyed int32
		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = Release[point](s, h, func(*point) {
					atomic.AddInt32(&destroyed, 1)
				})
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(1), destroyed)
		var nilCount, staleCount int
		for _, err := range errs {
			switch err {
			case nil:
				nilCount++
			case ErrStaleHandle:
				staleCount++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, nilCount)
		assert.Equal(t, 1, staleCount)
		assert.Len(t, s.freeList, 1, "slot index must appear in freeList exactly once")
	})
}
