package entitlement

// Tier is the caller-level classification, independent of any single
// content item. Subscriber and agency tiers grant unconditional full
// access; free and day_pass callers must earn access per item through a
// purchase or a redeemed access code.
type Tier string

const (
	TierFree       Tier = "free"
	TierDayPass    Tier = "day_pass"
	TierSubscriber Tier = "subscriber"
	TierAgency     Tier = "agency"
)

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierDayPass, TierSubscriber, TierAgency:
		return true
	}
	return false
}

// FullAccess reports whether the tier alone grants access to all gated
// content. A day pass deliberately does not; holders still need an
// explicit purchase or code per item.
func (t Tier) FullAccess() bool {
	return t == TierSubscriber || t == TierAgency
}

// Identity is the resolved caller of a request. It is built per-request
// from the auth token and never persisted. A nil *Identity means the
// caller is anonymous.
type Identity struct {
	UserID string
	Role   string
	Tier   Tier
}

// Known reports whether the identity maps to a real user.
func (i *Identity) Known() bool {
	return i != nil && i.UserID != ""
}
