package handlers

import (
	"net/http"

	"model-market/internal/auth"
	"model-market/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TrainingHandler struct {
	orchestrator *services.TrainingOrchestrator
}

func NewTrainingHandler(orchestrator *services.TrainingOrchestrator) *TrainingHandler {
	return &TrainingHandler{orchestrator: orchestrator}
}

// RequestTraining queues a training run for the model
// POST /models/:id/train
func (h *TrainingHandler) RequestTraining(c *gin.Context) {
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

	job, err := h.orchestrator.RequestTraining(c.Request.Context(), modelID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, job)
}

// GetJob returns one training job; clients poll this for progress
// GET /jobs/:id
func (h *TrainingHandler) GetJob(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job ID"})
		return
	}

	job, err := h.orchestrator.GetJob(c.Request.Context(), jobID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if job.OwnerID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// GetMyJobs lists the authenticated owner's training jobs, newest first
// GET /jobs
func (h *TrainingHandler) GetMyJobs(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit, offset := parsePagination(c)
	jobs, err := h.orchestrator.GetOwnerJobs(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":   jobs,
		"limit":  limit,
		"offset": offset,
	})
}
