package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingBackend simulates an unreachable counter store.
type failingBackend struct {
	calls int
}

func (f *failingBackend) Incr(context.Context, string, time.Duration) (int64, time.Duration, error) {
	f.calls++
	return 0, 0, errors.New("connection refused")
}

func newTestGovernor(primary CounterBackend) (*Governor, *MemoryBackend) {
	fallback := NewMemoryBackend(time.Hour)
	gov := NewGovernor(GovernorConfig{
		Policies: NewPolicyTable(nil),
		Primary:  primary,
		Fallback: fallback,
		Logger:   zerolog.Nop(),
	})
	return gov, fallback
}

func TestGovernor_AllowsUpToLimitThenDenies(t *testing.T) {
	primary := NewMemoryBackend(time.Hour)
	defer primary.Close()

	gov, fallback := newTestGovernor(primary)
	defer fallback.Close()

	policy := Policy{Window: time.Minute, Max: 5}

	for i := 0; i < 5; i++ {
		d := gov.Check(context.Background(), "user-1", "auth", policy)
		assert.True(t, d.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 5, d.Limit)
		assert.Equal(t, 5-(i+1), d.Remaining)
	}

	d := gov.Check(context.Background(), "user-1", "auth", policy)
	assert.False(t, d.Allowed, "6th request in window should be denied")
	assert.Equal(t, 0, d.Remaining)
	assert.True(t, d.ResetIn > 0 && d.ResetIn <= time.Minute)
}

func TestGovernor_DenialIsNotPermanent(t *testing.T) {
	primary := NewMemoryBackend(time.Hour)
	defer primary.Close()

	gov, fallback := newTestGovernor(primary)
	defer fallback.Close()

	policy := Policy{Window: 30 * time.Millisecond, Max: 1}

	d := gov.Check(context.Background(), "u", "read:anon", policy)
	require.True(t, d.Allowed)

	d = gov.Check(context.Background(), "u", "read:anon", policy)
	require.False(t, d.Allowed)

	time.Sleep(40 * time.Millisecond)

	d = gov.Check(context.Background(), "u", "read:anon", policy)
	assert.True(t, d.Allowed, "a fresh window should admit requests again")
}

func TestGovernor_FallsBackWhenPrimaryFails(t *testing.T) {
	primary := &failingBackend{}

	gov, fallback := newTestGovernor(primary)
	defer fallback.Close()

	policy := Policy{Window: time.Minute, Max: 3}

	// Every request still gets a correct decision; the outage never
	// reaches the caller.
	for i := 0; i < 3; i++ {
		d := gov.Check(context.Background(), "u", "read:anon", policy)
		assert.True(t, d.Allowed)
	}

	d := gov.Check(context.Background(), "u", "read:anon", policy)
	assert.False(t, d.Allowed)

	assert.Equal(t, 4, primary.calls, "primary should be retried on every check")
	assert.Equal(t, 1, fallback.Len())
}

func TestGovernor_SeparateIdentitiesSeparateWindows(t *testing.T) {
	primary := NewMemoryBackend(time.Hour)
	defer primary.Close()

	gov, fallback := newTestGovernor(primary)
	defer fallback.Close()

	policy := Policy{Window: time.Minute, Max: 1}

	d := gov.Check(context.Background(), "alice", "auth", policy)
	require.True(t, d.Allowed)
	d = gov.Check(context.Background(), "alice", "auth", policy)
	require.False(t, d.Allowed)

	d = gov.Check(context.Background(), "bob", "auth", policy)
	assert.True(t, d.Allowed, "bob's window is independent of alice's")
}

func TestGovernor_SamePolicyDifferentBucketsDoNotShare(t *testing.T) {
	primary := NewMemoryBackend(time.Hour)
	defer primary.Close()

	gov, fallback := newTestGovernor(primary)
	defer fallback.Close()

	policy := Policy{Window: time.Minute, Max: 1}

	d := gov.Check(context.Background(), "u", "read:anon", policy)
	require.True(t, d.Allowed)

	d = gov.Check(context.Background(), "u", "write:anon", policy)
	assert.True(t, d.Allowed, "counting key includes the policy name")
}
