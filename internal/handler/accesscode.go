package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/umuco/heritage-gateway/internal/middleware"
	"github.com/umuco/heritage-gateway/internal/models"
	"github.com/umuco/heritage-gateway/internal/service"
)

type AccessCodeHandler struct {
	codes *service.AccessCodeService
}

func NewAccessCodeHandler(codes *service.AccessCodeService) *AccessCodeHandler {
	return &AccessCodeHandler{codes: codes}
}

type redeemRequest struct {
	Code string `json:"code" binding:"required"`
}

// Redeem exchanges an access code for an entitlement. Requires auth.
func (h *AccessCodeHandler) Redeem(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	ident := middleware.IdentityFrom(c)
	userID, err := uuid.Parse(ident.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid identity"})
		return
	}

	redemption, err := h.codes.Redeem(c.Request.Context(), userID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCodeNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "access code not found"})
		case errors.Is(err, service.ErrCodeExpired):
			c.JSON(http.StatusGone, gin.H{"error": "access code expired"})
		case errors.Is(err, service.ErrCodeExhausted):
			c.JSON(http.StatusConflict, gin.H{"error": "access code has no uses left"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "redemption failed"})
		}
		return
	}

	c.JSON(http.StatusCreated, redemption)
}

type issueCodeRequest struct {
	Code        string     `json:"code"`
	ContentType string     `json:"content_type"`
	ContentID   string     `json:"content_id"`
	AgencyWide  bool       `json:"agency_wide"`
	MaxUses     int        `json:"max_uses"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// Issue creates a new access code (admin only).
func (h *AccessCodeHandler) Issue(c *gin.Context) {
	var req issueCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if !req.AgencyWide && (req.ContentType == "" || req.ContentID == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a code must name content or be agency-wide"})
		return
	}

	code := &models.AccessCode{
		Code:        req.Code,
		ContentType: req.ContentType,
		ContentID:   req.ContentID,
		AgencyWide:  req.AgencyWide,
		MaxUses:     req.MaxUses,
	}
	if req.ExpiresAt != nil {
		code.ExpiresAt = *req.ExpiresAt
	}
	if ident := middleware.IdentityFrom(c); ident.Known() {
		code.CreatedBy = ident.UserID
	}

	if err := h.codes.Issue(c.Request.Context(), code); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access code"})
		return
	}

	c.JSON(http.StatusCreated, code)
}

// List returns all access codes (admin only).
func (h *AccessCodeHandler) List(c *gin.Context) {
	codes, err := h.codes.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list access codes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": codes,
		"count": len(codes),
	})
}
