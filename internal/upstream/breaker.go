package upstream

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker is refusing calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type BreakerState int

const (
	// BreakerClosed - normal operation, requests pass through
	BreakerClosed BreakerState = iota

	// BreakerOpen - requests fail immediately
	BreakerOpen

	// BreakerHalfOpen - probing whether the upstream recovered
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker shields the AI upstream from being hammered while it is down.
type Breaker struct {
	mu              sync.RWMutex
	state           BreakerState
	failureCount    int
	successCount    int
	lastFailureTime time.Time

	maxFailures     int
	timeout         time.Duration
	halfOpenSuccess int
}

type BreakerConfig struct {
	MaxFailures     int           // Default: 5
	Timeout         time.Duration // Default: 30 seconds
	HalfOpenSuccess int           // Default: 1
}

func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HalfOpenSuccess <= 0 {
		cfg.HalfOpenSuccess = 1
	}

	return &Breaker{
		state:           BreakerClosed,
		maxFailures:     cfg.MaxFailures,
		timeout:         cfg.Timeout,
		halfOpenSuccess: cfg.HalfOpenSuccess,
	}
}

// Call runs fn with breaker protection.
func (b *Breaker) Call(fn func() error) error {
	b.mu.Lock()

	if b.state == BreakerOpen {
		if time.Since(b.lastFailureTime) > b.timeout {
			b.state = BreakerHalfOpen
			b.successCount = 0
		} else {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
	}

	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.onFailure()
		return err
	}

	b.onSuccess()
	return nil
}

func (b *Breaker) onFailure() {
	b.failureCount++
	b.lastFailureTime = time.Now()

	if b.state == BreakerHalfOpen {
		// Any failure while probing re-opens the circuit.
		b.state = BreakerOpen
		b.successCount = 0
	} else if b.failureCount >= b.maxFailures {
		b.state = BreakerOpen
	}
}

func (b *Breaker) onSuccess() {
	switch b.state {
	case BreakerHalfOpen:
		b.successCount++
		if b.successCount >= b.halfOpenSuccess {
			b.state = BreakerClosed
			b.failureCount = 0
		}
	case BreakerClosed:
		b.failureCount = 0
	}
}

func (b *Breaker) State() BreakerState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Reset forces the breaker closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = BreakerClosed
	b.failureCount = 0
	b.successCount = 0
}
