package handlers

import (
	"net/http"

	"model-market/internal/auth"
	"model-market/internal/models"
	"model-market/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MarketplaceHandler struct {
	marketplace *services.MarketplaceService
	reviews     *services.ReviewService
}

func NewMarketplaceHandler(marketplace *services.MarketplaceService, reviews *services.ReviewService) *MarketplaceHandler {
	return &MarketplaceHandler{marketplace: marketplace, reviews: reviews}
}

// Browse lists published models with optional filters
// GET /marketplace?search=&model_type=&max_price=&sort=&limit=&offset=
func (h *MarketplaceHandler) Browse(c *gin.Context) {
	var filter models.MarketplaceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if raw := c.Query("max_price"); raw != "" {
		maxPrice, err := decimal.NewFromString(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid max_price"})
			return
		}
		minor, ok := toMinorUnits(maxPrice)
		if !ok || minor < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid max_price"})
			return
		}
		filter.MaxPriceMinor = minor
	}

	// Hide the caller's own models when authenticated and asked to.
	if c.Query("exclude_own") == "true" {
		if userID, exists := auth.GetUserID(c); exists {
			filter.ExcludeOwner = userID
		}
	}

	listings, total, err := h.marketplace.Browse(c.Request.Context(), &filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to browse marketplace"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"models": listings,
		"total":  total,
	})
}

// GetListing retrieves one marketplace listing
// GET /marketplace/:id
func (h *MarketplaceHandler) GetListing(c *gin.Context) {
	modelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid model ID"})
		return
	}

	listing, err := h.marketplace.GetListing(c.Request.Context(), modelID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, listing)
}

// GetReviews lists reviews for a listing
// GET /marketplace/:id/reviews
func (h *MarketplaceHandler) GetReviews(c *gin.Context) {
	modelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid model ID"})
		return
	}

	limit, offset := parsePagination(c)
	reviews, err := h.reviews.GetModelReviews(c.Request.Context(), modelID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reviews"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// CreateReview records a lessee's rating of a model
// POST /marketplace/:id/reviews
func (h *MarketplaceHandler) CreateReview(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	modelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid model ID"})
		return
	}

	var req models.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	review, err := h.reviews.CreateReview(c.Request.Context(), userID, modelID, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, review)
}
