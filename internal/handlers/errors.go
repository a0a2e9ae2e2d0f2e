package handlers

import (
	"errors"
	"net/http"

	"model-market/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// respondServiceError maps service-layer errors onto HTTP status codes.
// Precondition and concurrency failures surface as 409 so clients know not
// to retry blindly.
func respondServiceError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	var transitionErr *services.InvalidTransitionError
	var jobRunningErr *services.JobAlreadyRunningError
	var progressErr *services.ProgressRegressionError
	var notPublishableErr *services.NotPublishableError
	var duplicateLeaseErr *services.DuplicateLeaseError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &jobRunningErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":  jobRunningErr.Error(),
			"job_id": jobRunningErr.JobID,
		})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, gin.H{
			"error": transitionErr.Error(),
			"from":  transitionErr.From,
			"to":    transitionErr.To,
		})
	case errors.As(err, &progressErr):
		c.JSON(http.StatusConflict, gin.H{"error": progressErr.Error()})
	case errors.As(err, &notPublishableErr):
		c.JSON(http.StatusConflict, gin.H{"error": notPublishableErr.Error()})
	case errors.As(err, &duplicateLeaseErr):
		c.JSON(http.StatusConflict, gin.H{"error": duplicateLeaseErr.Error()})
	case errors.Is(err, services.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "resource was modified concurrently, retry"})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
