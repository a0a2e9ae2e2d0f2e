package services

import (
	"context"
	"log"

	"model-market/internal/models"
	"model-market/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PublishingService toggles a completed model's marketplace visibility and price
type PublishingService struct {
	db       *gorm.DB
	repo     *repository.Repository
	registry *RegistryService
}

func NewPublishingService(db *gorm.DB, repo *repository.Repository, registry *RegistryService) *PublishingService {
	return &PublishingService{db: db, repo: repo, registry: registry}
}

// Publish lists a COMPLETED model on the marketplace at the given monthly
// price (minor currency units). Any other status fails with NotPublishableError.
func (s *PublishingService) Publish(
	ctx context.Context,
	modelID uuid.UUID,
	actorID uint,
	priceMinor int64,
) (*models.Model, error) {
	if priceMinor <= 0 {
		return nil, &ValidationError{Reason: "monthly lease price must be positive"}
	}

	var model *models.Model
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		model, err = s.repo.GetModelByID(ctx, modelID)
		if err != nil {
			return err
		}
		if model.OwnerID != actorID {
			return &ValidationError{Reason: "only the owner can publish a model"}
		}
		if model.Status != models.ModelStatusCompleted {
			return &NotPublishableError{Status: model.Status}
		}

		return s.registry.ApplyTransition(tx, model, models.ModelStatusPublished, actorLabel(actorID),
			map[string]interface{}{
				"is_published":        true,
				"monthly_lease_price": priceMinor,
			})
	})
	if err != nil {
		return nil, err
	}

	model.IsPublished = true
	model.MonthlyLeasePrice = priceMinor
	log.Printf("Published model %s at %d minor units/month", modelID, priceMinor)
	return model, nil
}

// Unpublish delists a PUBLISHED model. Existing leases are untouched: lessees
// retain access through their lease window, only new leases are blocked.
func (s *PublishingService) Unpublish(
	ctx context.Context,
	modelID uuid.UUID,
	actorID uint,
) (*models.Model, error) {
	var model *models.Model
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		model, err = s.repo.GetModelByID(ctx, modelID)
		if err != nil {
			return err
		}
		if model.OwnerID != actorID {
			return &ValidationError{Reason: "only the owner can unpublish a model"}
		}
		if model.Status != models.ModelStatusPublished {
			return &InvalidTransitionError{From: model.Status, To: models.ModelStatusCompleted}
		}

		return s.registry.ApplyTransition(tx, model, models.ModelStatusCompleted, actorLabel(actorID),
			map[string]interface{}{"is_published": false})
	})
	if err != nil {
		return nil, err
	}

	model.IsPublished = false
	log.Printf("Unpublished model %s", modelID)
	return model, nil
}

// Archive retires a model. Archiving forces the published flag off so no new
// leases can be created; existing ACTIVE leases run to their end date.
func (s *PublishingService) Archive(
	ctx context.Context,
	modelID uuid.UUID,
	actorID uint,
) (*models.Model, error) {
	model, err := s.repo.GetModelByID(ctx, modelID)
	if err != nil {
		return nil, err
	}
	if model.OwnerID != actorID {
		return nil, &ValidationError{Reason: "only the owner can archive a model"}
	}

	archived, err := s.registry.Transition(ctx, modelID, models.ModelStatusArchived, actorLabel(actorID))
	if err != nil {
		return nil, err
	}

	log.Printf("Archived model %s", modelID)
	return archived, nil
}
