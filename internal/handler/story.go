package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/umuco/heritage-gateway/internal/entitlement"
	"github.com/umuco/heritage-gateway/internal/gate"
	"github.com/umuco/heritage-gateway/internal/metrics"
	"github.com/umuco/heritage-gateway/internal/middleware"
	"github.com/umuco/heritage-gateway/internal/models"
	"github.com/umuco/heritage-gateway/internal/repository"
)

const storyContentType = "stories"

type StoryHandler struct {
	stories  *repository.StoryRepository
	resolver *entitlement.Resolver
	gate     *gate.Gate
	metrics  *metrics.Metrics
}

func NewStoryHandler(stories *repository.StoryRepository, resolver *entitlement.Resolver, g *gate.Gate, m *metrics.Metrics) *StoryHandler {
	return &StoryHandler{stories: stories, resolver: resolver, gate: g, metrics: m}
}

// Get serves one story, shaped by the caller's entitlement.
func (h *StoryHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	story, err := h.stories.FindByIDOrSlug(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load story"})
		return
	}
	if story == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "story not found"})
		return
	}

	ident := middleware.IdentityFrom(c)
	decision := h.resolver.Resolve(ctx, ident, storyContentType, story.ID.String())

	projection := h.gate.Apply(story.Document(), decision.FullAccess)
	h.countShape(projection)

	c.JSON(http.StatusOK, projection)
}

// List serves the story index. Every item goes through the gate so a
// listing never leaks premium bodies.
func (h *StoryHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	stories, err := h.stories.List(ctx, c.Query("category"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stories"})
		return
	}

	ident := middleware.IdentityFrom(c)

	items := make([]*gate.Document, 0, len(stories))
	for i := range stories {
		decision := h.resolver.Resolve(ctx, ident, storyContentType, stories[i].ID.String())
		projection := h.gate.Apply(stories[i].Document(), decision.FullAccess)
		h.countShape(projection)
		items = append(items, projection)
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

type createStoryRequest struct {
	Title        string    `json:"title" binding:"required"`
	Slug         string    `json:"slug" binding:"required"`
	Excerpt      string    `json:"excerpt"`
	CoverImage   string    `json:"cover_image"`
	Category     string    `json:"category"`
	Sensitive    bool      `json:"sensitive"`
	PriceCents   int64     `json:"price_cents"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	AccessLevel  string    `json:"access_level"`
	Body         gate.Body `json:"body"`
	AudioURL     string    `json:"audio_url"`
	NarrationURL string    `json:"narration_url"`
	Published    *bool     `json:"published"`
}

// Create adds a story (admin only).
func (h *StoryHandler) Create(c *gin.Context) {
	var req createStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and slug are required"})
		return
	}

	level := gate.AccessLevel(req.AccessLevel)
	if req.AccessLevel == "" {
		level = gate.AccessFree
	}
	if level != gate.AccessFree && level != gate.AccessPreview && level != gate.AccessPremium {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown access level"})
		return
	}

	story := &models.Story{
		Title:        req.Title,
		Slug:         req.Slug,
		Excerpt:      req.Excerpt,
		CoverImage:   req.CoverImage,
		Category:     req.Category,
		Sensitive:    req.Sensitive,
		PriceCents:   req.PriceCents,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		AccessLevel:  string(level),
		Body:         req.Body,
		AudioURL:     req.AudioURL,
		NarrationURL: req.NarrationURL,
		Published:    true,
	}
	if req.Published != nil {
		story.Published = *req.Published
	}

	if err := h.stories.Create(c.Request.Context(), story); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create story"})
		return
	}

	c.JSON(http.StatusCreated, story)
}

func (h *StoryHandler) countShape(doc *gate.Document) {
	if h.metrics == nil || doc == nil {
		return
	}

	shape := "full"
	if doc.Gated {
		shape = doc.GateReason
	}
	h.metrics.GateDecisions.WithLabelValues(shape).Inc()
}
