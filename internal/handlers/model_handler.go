package handlers

import (
	"net/http"
	"strconv"

	"model-market/internal/auth"
	"model-market/internal/models"
	"model-market/internal/repository"
	"model-market/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ModelHandler struct {
	registry   *services.RegistryService
	publishing *services.PublishingService
	repo       *repository.Repository
}

func NewModelHandler(
	registry *services.RegistryService,
	publishing *services.PublishingService,
	repo *repository.Repository,
) *ModelHandler {
	return &ModelHandler{
		registry:   registry,
		publishing: publishing,
		repo:       repo,
	}
}

// CreateModel registers a new model in DRAFT
// POST /models
func (h *ModelHandler) CreateModel(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.CreateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	model, err := h.registry.CreateModel(c.Request.Context(), userID, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model)
}

// GetMyModels lists the authenticated owner's models
// GET /models
func (h *ModelHandler) GetMyModels(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit, offset := parsePagination(c)
	list, total, err := h.repo.GetOwnerModels(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list models"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"models": list,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetModel retrieves one model; only the owner sees unpublished ones
// GET /models/:id
func (h *ModelHandler) GetModel(c *gin.Context) {
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

	model, err := h.registry.GetModel(c.Request.Context(), modelID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if model.OwnerID != userID && !model.IsPublished {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	c.JSON(http.StatusOK, model)
}

// DeleteModel removes a model without active leases or a running job
// DELETE /models/:id
func (h *ModelHandler) DeleteModel(c *gin.Context) {
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

	if err := h.registry.DeleteModel(c.Request.Context(), modelID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// PublishModel lists a completed model on the marketplace
// POST /models/:id/publish
func (h *ModelHandler) PublishModel(c *gin.Context) {
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

	var req models.PublishModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	priceMinor, ok := toMinorUnits(req.MonthlyLeasePrice)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must have at most 2 decimal places"})
		return
	}

	model, err := h.publishing.Publish(c.Request.Context(), modelID, userID, priceMinor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, model)
}

// UnpublishModel delists a published model
// POST /models/:id/unpublish
func (h *ModelHandler) UnpublishModel(c *gin.Context) {
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

	model, err := h.publishing.Unpublish(c.Request.Context(), modelID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, model)
}

// ArchiveModel retires a model
// POST /models/:id/archive
func (h *ModelHandler) ArchiveModel(c *gin.Context) {
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

	model, err := h.publishing.Archive(c.Request.Context(), modelID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, model)
}

func parsePagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
