package p2

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

func TestNewSynchronized(t *testing.T) {
	s, err := NewSynchronized(.5)
	require.NoError(t, err)
	assert.Equal(t, .5, s.Quantile())

	_, err = NewSynchronized(-1)
	assert.ErrorIs(t, err, ErrInvalidQuantile)
}

// Asserts that observations added concurrently are all recorded and leave the markers ordered.
func TestSynchronizedConcurrentAdd(t *testing.T) {
	s, err := NewSynchronized(.5)
	require.NoError(t, err)

	// Bound the number of concurrent writers
	sem := semaphore.NewWeighted(4)
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 16; i++ {
		offset := float64(i)
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			for j := 0; j < 1000; j++ {
				s.Add(float64(j) + offset)
				s.Value()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, uint64(16000), s.Count())
	assert.True(t, s.Filled())
	state := s.State()
	for i := 1; i < markerCount; i++ {
		assert.LessOrEqual(t, state.Heights[i-1], state.Heights[i])
		assert.Less(t, state.Positions[i-1], state.Positions[i])
	}
	assert.InDelta(t, 507, s.Value(), 50)

	s.Reset()
	assert.Equal(t, uint64(0), s.Count())
	assert.False(t, s.Filled())
}
