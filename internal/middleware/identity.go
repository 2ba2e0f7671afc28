package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/umuco/heritage-gateway/internal/entitlement"
	"github.com/umuco/heritage-gateway/internal/service"
)

const identityKey = "identity"

// Identity resolves an optional Bearer token into a caller identity. An
// absent, malformed or expired token is not an error; the request just
// proceeds anonymously with reduced privileges.
func Identity(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.Next()
			return
		}

		claims, err := authService.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			c.Next()
			return
		}

		ident := &entitlement.Identity{}
		if v, ok := claims["user_id"].(string); ok {
			ident.UserID = v
		}
		if v, ok := claims["role"].(string); ok {
			ident.Role = v
		}
		if v, ok := claims["tier"].(string); ok {
			ident.Tier = entitlement.Tier(v)
		}

		if ident.Known() {
			c.Set(identityKey, ident)
		}

		c.Next()
	}
}

// IdentityFrom returns the resolved caller, or nil for anonymous.
func IdentityFrom(c *gin.Context) *entitlement.Identity {
	v, exists := c.Get(identityKey)
	if !exists {
		return nil
	}

	ident, ok := v.(*entitlement.Identity)
	if !ok {
		return nil
	}

	return ident
}

// CounterKey is the per-identity key requests are counted under: the
// user id when the caller is known, the client address otherwise.
func CounterKey(c *gin.Context) string {
	if ident := IdentityFrom(c); ident.Known() {
		return ident.UserID
	}
	return c.ClientIP()
}
