// Package ratelimit implements the gateway's request governor: policy
// classification plus fixed-window counting against a shared Redis
// store, with a transparent in-process fallback when Redis is away.
package ratelimit

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/umuco/heritage-gateway/internal/metrics"
)

// Decision is the outcome of a quota check. A denial is normal control
// flow, never an error.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// Governor owns the primary and fallback counter backends and the
// policy table. Construct one per process and inject it into the
// middleware; it is safe for concurrent use.
type Governor struct {
	policies *PolicyTable
	primary  CounterBackend
	fallback CounterBackend

	storeTimeout time.Duration
	logger       zerolog.Logger
	metrics      *metrics.Metrics
}

type GovernorConfig struct {
	Policies *PolicyTable
	Primary  CounterBackend
	Fallback CounterBackend

	// StoreTimeout bounds each primary-store call; past it the check
	// falls through to the fallback counter. Default 500ms.
	StoreTimeout time.Duration

	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

func NewGovernor(cfg GovernorConfig) *Governor {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 500 * time.Millisecond
	}

	return &Governor{
		policies:     cfg.Policies,
		primary:      cfg.Primary,
		fallback:     cfg.Fallback,
		storeTimeout: cfg.StoreTimeout,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
	}
}

// Policies exposes the classification table.
func (g *Governor) Policies() *PolicyTable {
	return g.policies
}

// Check charges one request under policyName for the given identity key
// and reports whether it fits the window. A primary-store failure is
// absorbed: the fallback counter answers and the caller never sees the
// outage.
func (g *Governor) Check(ctx context.Context, identityKey, policyName string, policy Policy) Decision {
	key := policyName + ":" + identityKey

	count, resetIn, err := g.incrPrimary(ctx, key, policy.Window)
	if err != nil {
		g.logger.Warn().
			Err(err).
			Str("policy", policyName).
			Msg("counter store unavailable, using in-process fallback")

		if g.metrics != nil {
			g.metrics.CounterFallbacks.Inc()
		}

		count, resetIn, _ = g.fallback.Incr(ctx, key, policy.Window)
	}

	decision := Decision{
		Allowed:   count <= int64(policy.Max),
		Limit:     policy.Max,
		Remaining: remaining(policy.Max, count),
		ResetIn:   resetIn,
	}

	if g.metrics != nil {
		outcome := "allowed"
		if !decision.Allowed {
			outcome = "denied"
		}
		g.metrics.RateLimitDecisions.WithLabelValues(policyName, outcome).Inc()
	}

	return decision
}

func (g *Governor) incrPrimary(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, g.storeTimeout)
	defer cancel()

	return g.primary.Incr(ctx, key, window)
}

func remaining(max int, count int64) int {
	left := max - int(count)
	if left < 0 {
		return 0
	}
	return left
}
