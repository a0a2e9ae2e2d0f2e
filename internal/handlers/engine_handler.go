package handlers

import (
	"crypto/subtle"
	"net/http"

	"model-market/internal/models"
	"model-market/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EngineHandler receives callbacks from the training engine. The routes are
// authenticated with a shared secret rather than user JWTs.
type EngineHandler struct {
	orchestrator *services.TrainingOrchestrator
}

func NewEngineHandler(orchestrator *services.TrainingOrchestrator) *EngineHandler {
	return &EngineHandler{orchestrator: orchestrator}
}

// EngineAuthMiddleware checks the X-Engine-Token header against the configured
// callback secret.
func EngineAuthMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-Engine-Token")
		if token == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid engine token"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// Progress applies a progress update to a running job
// POST /engine/jobs/:id/progress
func (h *EngineHandler) Progress(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job ID"})
		return
	}

	var req models.ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orchestrator.OnProgress(c.Request.Context(), jobID, req.Percentage, req.Step); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Complete finalizes a job with its training result
// POST /engine/jobs/:id/complete
func (h *EngineHandler) Complete(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job ID"})
		return
	}

	var result models.TrainingResult
	if err := c.ShouldBindJSON(&result); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orchestrator.OnCompleted(c.Request.Context(), jobID, &result); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Fail finalizes a job as failed
// POST /engine/jobs/:id/fail
func (h *EngineHandler) Fail(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job ID"})
		return
	}

	var req models.FailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orchestrator.OnFailed(c.Request.Context(), jobID, req.Reason); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
