package ratelimit

import (
	"context"
	"sync"
	"time"
)

// counterEntry is one counting window. Each entry carries its own mutex
// so concurrent increments on different keys never contend.
type counterEntry struct {
	mu      sync.Mutex
	count   int64
	resetAt time.Time
}

// MemoryBackend is the in-process fallback counter. It is consistent
// only within one gateway instance; during a counter-store outage each
// instance enforces its own window independently. A background sweep
// evicts expired windows to bound memory growth.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]*counterEntry

	sweepInterval time.Duration
	done          chan struct{}
	closeOnce     sync.Once
}

// NewMemoryBackend creates a fallback counter and starts its sweep
// goroutine. Call Close to stop it.
func NewMemoryBackend(sweepInterval time.Duration) *MemoryBackend {
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}

	m := &MemoryBackend{
		entries:       make(map[string]*counterEntry),
		sweepInterval: sweepInterval,
		done:          make(chan struct{}),
	}

	go m.sweepLoop()

	return m
}

func (m *MemoryBackend) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := time.Now()

	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &counterEntry{}
		m.entries[key] = e
	}
	m.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.count == 0 || now.After(e.resetAt) {
		e.count = 0
		e.resetAt = now.Add(window)
	}

	e.count++

	return e.count, e.resetAt.Sub(now), nil
}

// Len reports the number of live windows. Used by tests and the health
// endpoint.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close stops the sweep goroutine.
func (m *MemoryBackend) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
}

func (m *MemoryBackend) sweepLoop() {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep(time.Now())
		case <-m.done:
			return
		}
	}
}

// sweep removes entries whose window has expired. It holds the map lock
// only; an in-flight Incr on an expired entry simply restarts its
// window on a fresh or detached entry, which is harmless.
func (m *MemoryBackend) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, e := range m.entries {
		e.mu.Lock()
		expired := now.After(e.resetAt)
		e.mu.Unlock()

		if expired {
			delete(m.entries, key)
		}
	}
}
