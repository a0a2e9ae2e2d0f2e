package handlers

import (
	"net/http"

	"model-market/internal/auth"
	"model-market/internal/models"
	"model-market/internal/repository"
	"model-market/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AdminHandler struct {
	repo         *repository.Repository
	leasing      *services.LeasingService
	orchestrator *services.TrainingOrchestrator
}

func NewAdminHandler(
	repo *repository.Repository,
	leasing *services.LeasingService,
	orchestrator *services.TrainingOrchestrator,
) *AdminHandler {
	return &AdminHandler{
		repo:         repo,
		leasing:      leasing,
		orchestrator: orchestrator,
	}
}

// AdminMiddleware rejects callers without the admin flag
func AdminMiddleware(repo *repository.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		user, err := repo.GetUserByID(c.Request.Context(), userID)
		if err != nil || !user.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// ListModels lists models across all owners, optionally filtered by status
// GET /admin/models
func (h *AdminHandler) ListModels(c *gin.Context) {
	limit, offset := parsePagination(c)

	query := h.repo.DB().Model(&models.Model{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count models"})
		return
	}

	var list []*models.Model
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error; err != nil {
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

// CancelLease force-cancels any active lease
// POST /admin/leases/:id/cancel
func (h *AdminHandler) CancelLease(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	leaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lease ID"})
		return
	}

	if err := h.leasing.Cancel(c.Request.Context(), leaseID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// Reconcile replays terminal training jobs whose model transition never
// committed. The scheduled reconciler does this continuously; the endpoint
// exists for manual repair.
// POST /admin/reconcile
func (h *AdminHandler) Reconcile(c *gin.Context) {
	repaired, err := h.orchestrator.Reconcile(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"repaired": repaired})
}
