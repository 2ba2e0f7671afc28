// Package entitlement decides whether a caller may see full content.
// Tier precedence first, then purchase records, then active access-code
// redemptions scoped to the content item.
package entitlement

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/umuco/heritage-gateway/internal/metrics"
	"github.com/umuco/heritage-gateway/internal/models"
)

// Store is the entitlement lookup contract. Not-found is a normal empty
// result, never an error.
type Store interface {
	FindUserTier(ctx context.Context, userID string) (Tier, error)
	FindCompletedPurchase(ctx context.Context, userID, contentType, contentID string) (*models.Purchase, error)
	FindActiveRedemption(ctx context.Context, userID, contentType, contentID string, now time.Time) (*models.Redemption, error)
}

// Decision is the resolved entitlement for one (caller, content) pair.
type Decision struct {
	FullAccess bool `json:"has_full_access"`
	Tier       Tier `json:"tier"`
}

// Resolver computes access decisions against the entitlement store. It
// reads the current tier on every call; webhooks flip tiers between
// requests and a cached tier would over- or under-grant.
type Resolver struct {
	store   Store
	timeout time.Duration
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewResolver(store Store, timeout time.Duration, logger zerolog.Logger, m *metrics.Metrics) *Resolver {
	if timeout <= 0 {
		timeout = 800 * time.Millisecond
	}
	return &Resolver{store: store, timeout: timeout, logger: logger, metrics: m}
}

// Resolve returns the caller's effective tier and whether they may see
// the full content item. Store failures fail closed: the caller is
// denied rather than the check hanging or granting by accident.
func (r *Resolver) Resolve(ctx context.Context, ident *Identity, contentType, contentID string) Decision {
	// Anonymous callers never get paid content. Whether the item itself
	// is free is the gate's call, not ours.
	if !ident.Known() {
		return Decision{FullAccess: false, Tier: TierFree}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tier, err := r.store.FindUserTier(ctx, ident.UserID)
	if err != nil {
		return r.failClosed(err, TierFree)
	}
	if !tier.Valid() {
		tier = TierFree
	}

	// Subscriber and agency tiers short-circuit everything else.
	if tier.FullAccess() {
		return Decision{FullAccess: true, Tier: tier}
	}

	purchase, err := r.store.FindCompletedPurchase(ctx, ident.UserID, contentType, contentID)
	if err != nil {
		return r.failClosed(err, tier)
	}
	if purchase != nil {
		return Decision{FullAccess: true, Tier: tier}
	}

	redemption, err := r.store.FindActiveRedemption(ctx, ident.UserID, contentType, contentID, time.Now())
	if err != nil {
		return r.failClosed(err, tier)
	}
	if redemption != nil {
		return Decision{FullAccess: true, Tier: tier}
	}

	return Decision{FullAccess: false, Tier: tier}
}

func (r *Resolver) failClosed(err error, tier Tier) Decision {
	r.logger.Warn().Err(err).Msg("entitlement lookup failed, denying full access")
	if r.metrics != nil {
		r.metrics.ResolverFailures.Inc()
	}
	return Decision{FullAccess: false, Tier: tier}
}
