package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/umuco/heritage-gateway/internal/entitlement"
	"github.com/umuco/heritage-gateway/internal/repository"
)

// WebhookHandler receives payment-provider callbacks. The billing
// service owns signature verification and the money side; the gateway
// only syncs the denormalized user tier and must never rate-limit a
// retried callback.
type WebhookHandler struct {
	users  *repository.UserRepository
	logger zerolog.Logger
}

func NewWebhookHandler(users *repository.UserRepository, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{users: users, logger: logger}
}

type paymentEvent struct {
	Type   string `json:"type" binding:"required"`
	UserID string `json:"user_id"`
	Tier   string `json:"tier"`
}

func (h *WebhookHandler) Payments(c *gin.Context) {
	var evt paymentEvent
	if err := c.ShouldBindJSON(&evt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}

	h.logger.Info().
		Str("type", evt.Type).
		Str("provider", c.GetHeader("X-Provider")).
		Msg("payment webhook received")

	switch evt.Type {
	case "subscription.updated", "subscription.cancelled":
		if evt.UserID == "" || !entitlement.Tier(evt.Tier).Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and a valid tier are required"})
			return
		}
		if err := h.users.UpdateTier(c.Request.Context(), evt.UserID, evt.Tier); err != nil {
			// Non-2xx makes the provider retry the delivery.
			c.JSON(http.StatusInternalServerError, gin.H{"error": "tier sync failed"})
			return
		}
	default:
		// Unknown event types are acknowledged and ignored.
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
