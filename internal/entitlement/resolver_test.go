package entitlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/umuco/heritage-gateway/internal/models"
)

// fakeStore is an in-memory entitlement store for resolver tests.
type fakeStore struct {
	tiers       map[string]Tier
	purchases   map[string]bool      // userID:contentType:contentID
	redemptions map[string]time.Time // userID:contentType:contentID
	agencyWide  map[string]time.Time // userID, grants any content until expiry

	tierErr       error
	purchaseErr   error
	redemptionErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tiers:       make(map[string]Tier),
		purchases:   make(map[string]bool),
		redemptions: make(map[string]time.Time),
		agencyWide:  make(map[string]time.Time),
	}
}

func (f *fakeStore) FindUserTier(_ context.Context, userID string) (Tier, error) {
	if f.tierErr != nil {
		return TierFree, f.tierErr
	}
	if tier, ok := f.tiers[userID]; ok {
		return tier, nil
	}
	return TierFree, nil
}

func (f *fakeStore) FindCompletedPurchase(_ context.Context, userID, contentType, contentID string) (*models.Purchase, error) {
	if f.purchaseErr != nil {
		return nil, f.purchaseErr
	}
	if f.purchases[userID+":"+contentType+":"+contentID] {
		return &models.Purchase{Status: models.PurchaseCompleted}, nil
	}
	return nil, nil
}

func (f *fakeStore) FindActiveRedemption(_ context.Context, userID, contentType, contentID string, now time.Time) (*models.Redemption, error) {
	if f.redemptionErr != nil {
		return nil, f.redemptionErr
	}
	if expiry, ok := f.agencyWide[userID]; ok && expiry.After(now) {
		return &models.Redemption{AgencyWide: true, ExpiresAt: expiry}, nil
	}
	if expiry, ok := f.redemptions[userID+":"+contentType+":"+contentID]; ok && expiry.After(now) {
		return &models.Redemption{ExpiresAt: expiry}, nil
	}
	return nil, nil
}

func newTestResolver(store Store) *Resolver {
	return NewResolver(store, time.Second, zerolog.Nop(), nil)
}

func TestResolve_AnonymousNeverGetsPaidContent(t *testing.T) {
	r := newTestResolver(newFakeStore())

	for _, contentID := range []string{"S1", "S2", ""} {
		d := r.Resolve(context.Background(), nil, "stories", contentID)
		assert.False(t, d.FullAccess)
		assert.Equal(t, TierFree, d.Tier)
	}
}

func TestResolve_SubscriberShortCircuits(t *testing.T) {
	store := newFakeStore()
	store.tiers["u1"] = TierSubscriber

	r := newTestResolver(store)

	d := r.Resolve(context.Background(), &Identity{UserID: "u1"}, "stories", "any-id")
	assert.True(t, d.FullAccess, "subscriber needs no purchase or redemption")
	assert.Equal(t, TierSubscriber, d.Tier)
}

func TestResolve_AgencyShortCircuits(t *testing.T) {
	store := newFakeStore()
	store.tiers["u1"] = TierAgency

	r := newTestResolver(store)

	d := r.Resolve(context.Background(), &Identity{UserID: "u1"}, "tours", "x")
	assert.True(t, d.FullAccess)
	assert.Equal(t, TierAgency, d.Tier)
}

func TestResolve_DayPassIsNotBlanketAccess(t *testing.T) {
	store := newFakeStore()
	store.tiers["u1"] = TierDayPass

	r := newTestResolver(store)

	d := r.Resolve(context.Background(), &Identity{UserID: "u1"}, "stories", "S1")
	assert.False(t, d.FullAccess, "day_pass alone does not grant per-item access")
	assert.Equal(t, TierDayPass, d.Tier)
}

func TestResolve_CompletedPurchaseGrantsOnlyThatItem(t *testing.T) {
	store := newFakeStore()
	store.tiers["u1"] = TierFree
	store.purchases["u1:stories:S1"] = true

	r := newTestResolver(store)
	ident := &Identity{UserID: "u1"}

	d := r.Resolve(context.Background(), ident, "stories", "S1")
	assert.True(t, d.FullAccess)

	d = r.Resolve(context.Background(), ident, "stories", "S2")
	assert.False(t, d.FullAccess)
}

func TestResolve_ActiveRedemptionGrants(t *testing.T) {
	store := newFakeStore()
	store.tiers["u1"] = TierDayPass
	store.redemptions["u1:stories:S9"] = time.Now().Add(time.Hour)

	r := newTestResolver(store)

	d := r.Resolve(context.Background(), &Identity{UserID: "u1"}, "stories", "S9")
	assert.True(t, d.FullAccess)
	assert.Equal(t, TierDayPass, d.Tier)
}

func TestResolve_AgencyWideRedemptionGrantsAnyContent(t *testing.T) {
	store := newFakeStore()
	store.tiers["u1"] = TierFree
	store.agencyWide["u1"] = time.Now().Add(time.Hour)

	r := newTestResolver(store)
	ident := &Identity{UserID: "u1"}

	for _, content := range []struct{ typ, id string }{
		{"stories", "S1"},
		{"stories", "S2"},
		{"tours", "T9"},
	} {
		d := r.Resolve(context.Background(), ident, content.typ, content.id)
		assert.True(t, d.FullAccess, "agency-wide grant covers %s/%s", content.typ, content.id)
	}
}

func TestResolve_ExpiredAgencyWideRedemptionDoesNotGrant(t *testing.T) {
	store := newFakeStore()
	store.agencyWide["u1"] = time.Now().Add(-time.Minute)

	r := newTestResolver(store)

	d := r.Resolve(context.Background(), &Identity{UserID: "u1"}, "stories", "S1")
	assert.False(t, d.FullAccess)
}

func TestResolve_ExpiredRedemptionDoesNotGrant(t *testing.T) {
	store := newFakeStore()
	store.redemptions["u1:stories:S9"] = time.Now().Add(-time.Hour)

	r := newTestResolver(store)

	d := r.Resolve(context.Background(), &Identity{UserID: "u1"}, "stories", "S9")
	assert.False(t, d.FullAccess)
}

func TestResolve_StoreFailureFailsClosed(t *testing.T) {
	store := newFakeStore()
	store.tierErr = errors.New("connection reset")

	r := newTestResolver(store)

	d := r.Resolve(context.Background(), &Identity{UserID: "u1"}, "stories", "S1")
	assert.False(t, d.FullAccess, "store failure must deny, never grant")
	assert.Equal(t, TierFree, d.Tier)
}

func TestResolve_PurchaseLookupFailureFailsClosed(t *testing.T) {
	store := newFakeStore()
	store.tiers["u1"] = TierDayPass
	store.purchaseErr = errors.New("timeout")

	r := newTestResolver(store)

	d := r.Resolve(context.Background(), &Identity{UserID: "u1"}, "stories", "S1")
	assert.False(t, d.FullAccess)
	assert.Equal(t, TierDayPass, d.Tier, "tier resolved before the failure is kept")
}

func TestResolve_UnknownTierTreatedAsFree(t *testing.T) {
	store := newFakeStore()
	store.tiers["u1"] = "vip" // not a known tier

	r := newTestResolver(store)

	d := r.Resolve(context.Background(), &Identity{UserID: "u1"}, "stories", "S1")
	assert.False(t, d.FullAccess)
	assert.Equal(t, TierFree, d.Tier)
}
