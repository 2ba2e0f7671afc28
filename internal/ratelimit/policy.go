package ratelimit

import (
	"strings"
	"time"

	"github.com/umuco/heritage-gateway/internal/entitlement"
)

// Policy is a fixed-window quota: at most Max requests per Window.
type Policy struct {
	Window time.Duration
	Max    int
}

// PolicyTable maps policy names to quotas and classifies requests into
// them. Classification is total and deterministic: the same
// (path, method, role, tier) always lands in the same bucket.
type PolicyTable struct {
	policies map[string]Policy
}

// DefaultPolicies returns the compiled-in policy set. Config may
// override any entry by name.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		// Brute-force defense on credential endpoints, regardless of role.
		"auth": {Window: time.Minute, Max: 5},

		// Payment provider callbacks must never be blocked on retry.
		"webhook": {Window: time.Minute, Max: 100000},

		"ai:free":       {Window: time.Minute, Max: 10},
		"ai:day_pass":   {Window: time.Minute, Max: 30},
		"ai:subscriber": {Window: time.Minute, Max: 100},
		"ai:agency":     {Window: time.Minute, Max: 300},

		"admin": {Window: time.Minute, Max: 1000},

		"read:auth":  {Window: time.Minute, Max: 300},
		"read:anon":  {Window: time.Minute, Max: 100},
		"write:auth": {Window: time.Minute, Max: 100},
		"write:anon": {Window: time.Minute, Max: 20},
	}
}

// NewPolicyTable builds a table from the defaults plus any overrides.
func NewPolicyTable(overrides map[string]Policy) *PolicyTable {
	policies := DefaultPolicies()
	for name, p := range overrides {
		if p.Window <= 0 || p.Max <= 0 {
			continue
		}
		policies[name] = p
	}
	return &PolicyTable{policies: policies}
}

// Classify picks the policy bucket for a request. First match wins:
// auth endpoints, payment webhooks, the AI chat endpoint (per tier),
// admin callers, then read/write split by whether the caller is known.
func (t *PolicyTable) Classify(path, method string, ident *entitlement.Identity) (string, Policy) {
	switch {
	case isAuthPath(path):
		return t.lookup("auth")
	case isWebhookPath(path):
		return t.lookup("webhook")
	case isAIPath(path):
		tier := entitlement.TierFree
		if ident.Known() && ident.Tier.Valid() {
			tier = ident.Tier
		}
		return t.lookup("ai:" + string(tier))
	case ident.Known() && ident.Role == "admin":
		return t.lookup("admin")
	}

	class := "read"
	if isWriteMethod(method) {
		class = "write"
	}

	caller := "anon"
	if ident.Known() {
		caller = "auth"
	}

	return t.lookup(class + ":" + caller)
}

// Get returns the policy registered under name, if any.
func (t *PolicyTable) Get(name string) (Policy, bool) {
	p, ok := t.policies[name]
	return p, ok
}

func (t *PolicyTable) lookup(name string) (string, Policy) {
	if p, ok := t.policies[name]; ok {
		return name, p
	}
	// Unknown bucket names fall back to the strictest general policy so
	// classification stays total.
	return name, DefaultPolicies()["write:anon"]
}

func isAuthPath(path string) bool {
	return strings.HasPrefix(path, "/api/auth/login") ||
		strings.HasPrefix(path, "/api/auth/password-reset")
}

func isWebhookPath(path string) bool {
	return strings.HasPrefix(path, "/api/webhooks/")
}

func isAIPath(path string) bool {
	return strings.HasPrefix(path, "/api/ai/") || path == "/api/ai"
}

func isWriteMethod(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	}
	return false
}
