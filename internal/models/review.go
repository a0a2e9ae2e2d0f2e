package models

import (
	"time"

	"github.com/google/uuid"
)

// ModelReview is a lessee's rating of a model. One review per (reviewer, model).
type ModelReview struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ModelID    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_reviews_reviewer_model" json:"model_id"`
	ReviewerID uint      `gorm:"not null;index;uniqueIndex:idx_reviews_reviewer_model" json:"reviewer_id"`
	Reviewer   *User     `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	LeaseID    uuid.UUID `gorm:"type:uuid;not null" json:"lease_id"`
	Rating     int       `gorm:"not null" json:"rating"` // 1-5
	Comment    string    `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ModelReview) TableName() string {
	return "model_reviews"
}

// CreateReviewRequest represents a request to review a leased model
type CreateReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}
