package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"model-market/internal/models"
	"model-market/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReviewService manages lessee reviews of leased models
type ReviewService struct {
	db   *gorm.DB
	repo *repository.Repository
}

func NewReviewService(db *gorm.DB, repo *repository.Repository) *ReviewService {
	return &ReviewService{db: db, repo: repo}
}

// CreateReview records a rating for a model the reviewer has leased. One
// review per (reviewer, model), enforced by a unique index.
func (s *ReviewService) CreateReview(
	ctx context.Context,
	reviewerID uint,
	modelID uuid.UUID,
	req *models.CreateReviewRequest,
) (*models.ModelReview, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, &ValidationError{Reason: "rating must be between 1 and 5"}
	}

	lease, err := s.repo.GetLatestLease(ctx, reviewerID, modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up lease: %w", err)
	}
	if lease == nil {
		return nil, &ValidationError{Reason: "only lessees can review a model"}
	}

	review := &models.ModelReview{
		ID:         uuid.New(),
		ModelID:    modelID,
		ReviewerID: reviewerID,
		LeaseID:    lease.ID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	}

	if err := s.db.WithContext(ctx).Create(review).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ValidationError{Reason: "you have already reviewed this model"}
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	log.Printf("Review %s created: model %s rated %d by user %d", review.ID, modelID, req.Rating, reviewerID)
	return review, nil
}

// GetModelReviews lists reviews for a model, newest first
func (s *ReviewService) GetModelReviews(ctx context.Context, modelID uuid.UUID, limit, offset int) ([]*models.ModelReview, error) {
	return s.repo.GetModelReviews(ctx, modelID, limit, offset)
}
