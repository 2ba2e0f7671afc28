package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/umuco/heritage-gateway/internal/ratelimit"
)

// RateLimit classifies each request into a policy bucket and charges
// the governor. Denials are 429 with the standard rate-limit headers
// and a retry-after hint.
func RateLimit(governor *ratelimit.Governor) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := IdentityFrom(c)

		policyName, policy := governor.Policies().Classify(
			c.Request.URL.Path,
			c.Request.Method,
			ident,
		)

		decision := governor.Check(c.Request.Context(), CounterKey(c), policyName, policy)

		resetSeconds := int(decision.ResetIn.Seconds() + 0.5)
		if resetSeconds < 0 {
			resetSeconds = 0
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", decision.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", decision.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", resetSeconds))

		if !decision.Allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", resetSeconds))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":      "rate_limit_exceeded",
				"message":    fmt.Sprintf("Too many requests for policy %q, try again later", policyName),
				"retryAfter": resetSeconds,
			})
			c.Abort()
			return
		}

		c.Set("rate_limit_policy", policyName)

		c.Next()
	}
}
