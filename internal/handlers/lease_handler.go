package handlers

import (
	"net/http"

	"model-market/internal/auth"
	"model-market/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type LeaseHandler struct {
	leasing *services.LeasingService
}

func NewLeaseHandler(leasing *services.LeasingService) *LeaseHandler {
	return &LeaseHandler{leasing: leasing}
}

// Lease purchases a 30-day lease on a published model
// POST /marketplace/:id/lease
func (h *LeaseHandler) Lease(c *gin.Context) {
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

	lease, err := h.leasing.Lease(c.Request.Context(), userID, modelID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, lease)
}

// GetMyLeases lists the authenticated user's leases, newest first
// GET /leases
func (h *LeaseHandler) GetMyLeases(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit, offset := parsePagination(c)
	leases, err := h.leasing.GetLesseeLeases(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list leases"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"leases": leases})
}

// CancelLease terminates an active lease held by the caller
// POST /leases/:id/cancel
func (h *LeaseHandler) CancelLease(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

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
