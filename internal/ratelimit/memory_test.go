package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend_CountsWithinWindow(t *testing.T) {
	m := NewMemoryBackend(time.Minute)
	defer m.Close()

	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		count, resetIn, err := m.Incr(ctx, "auth:1.2.3.4", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(i), count)
		assert.True(t, resetIn > 0 && resetIn <= time.Minute)
	}
}

func TestMemoryBackend_WindowReset(t *testing.T) {
	m := NewMemoryBackend(time.Minute)
	defer m.Close()

	ctx := context.Background()

	count, _, err := m.Incr(ctx, "k", 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, _, _ = m.Incr(ctx, "k", 20*time.Millisecond)
	assert.Equal(t, int64(2), count)

	time.Sleep(30 * time.Millisecond)

	count, _, _ = m.Incr(ctx, "k", 20*time.Millisecond)
	assert.Equal(t, int64(1), count, "count should restart after the window expires")
}

func TestMemoryBackend_IndependentKeys(t *testing.T) {
	m := NewMemoryBackend(time.Minute)
	defer m.Close()

	ctx := context.Background()

	m.Incr(ctx, "a", time.Minute)
	m.Incr(ctx, "a", time.Minute)
	count, _, _ := m.Incr(ctx, "b", time.Minute)

	assert.Equal(t, int64(1), count)
}

func TestMemoryBackend_ConcurrentIncrements(t *testing.T) {
	m := NewMemoryBackend(time.Minute)
	defer m.Close()

	ctx := context.Background()
	const workers = 50
	const perWorker = 20

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Incr(ctx, "shared", time.Minute)
			}
		}()
	}
	wg.Wait()

	count, _, err := m.Incr(ctx, "shared", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(workers*perWorker+1), count, "no increments may be lost")
}

func TestMemoryBackend_SweepEvictsExpired(t *testing.T) {
	m := NewMemoryBackend(time.Hour) // sweep manually
	defer m.Close()

	ctx := context.Background()

	m.Incr(ctx, "short", 10*time.Millisecond)
	m.Incr(ctx, "long", time.Hour)
	require.Equal(t, 2, m.Len())

	time.Sleep(20 * time.Millisecond)
	m.sweep(time.Now())

	assert.Equal(t, 1, m.Len(), "expired window should be evicted")
}

func TestMemoryBackend_CloseIdempotent(t *testing.T) {
	m := NewMemoryBackend(time.Minute)
	m.Close()
	m.Close()
}
