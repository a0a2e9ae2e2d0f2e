package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"model-market/internal/models"
	"model-market/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// legalTransitions is the authoritative model state machine. Every status
// mutation in the system goes through ApplyTransition and is validated here,
// never inferred ad hoc by callers.
var legalTransitions = map[models.ModelStatus][]models.ModelStatus{
	models.ModelStatusDraft:     {models.ModelStatusTraining},
	models.ModelStatusTraining:  {models.ModelStatusCompleted, models.ModelStatusFailed},
	models.ModelStatusFailed:    {models.ModelStatusTraining, models.ModelStatusArchived},
	models.ModelStatusCompleted: {models.ModelStatusPublished, models.ModelStatusArchived},
	models.ModelStatusPublished: {models.ModelStatusCompleted, models.ModelStatusArchived},
	models.ModelStatusArchived:  {},
}

// IsLegalTransition reports whether the (from, to) edge exists in the state machine
func IsLegalTransition(from, to models.ModelStatus) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// RegistryService owns Model entities and enforces the lifecycle state machine
type RegistryService struct {
	db   *gorm.DB
	repo *repository.Repository
}

func NewRegistryService(db *gorm.DB, repo *repository.Repository) *RegistryService {
	return &RegistryService{db: db, repo: repo}
}

// CreateModel creates a model in DRAFT for the given owner
func (s *RegistryService) CreateModel(
	ctx context.Context,
	ownerID uint,
	req *models.CreateModelRequest,
) (*models.Model, error) {
	if req.Name == "" {
		return nil, &ValidationError{Reason: "model name must not be empty"}
	}
	if req.Description == "" {
		return nil, &ValidationError{Reason: "model description must not be empty"}
	}
	if len(req.Features) == 0 {
		return nil, &ValidationError{Reason: "feature set must not be empty"}
	}
	switch req.ModelType {
	case models.ModelTypeClassification, models.ModelTypeRegression, models.ModelTypeClustering:
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown model type %q", req.ModelType)}
	}
	if req.TargetVariable == "" {
		return nil, &ValidationError{Reason: "target variable must not be empty"}
	}

	features, err := json.Marshal(req.Features)
	if err != nil {
		return nil, fmt.Errorf("failed to encode features: %w", err)
	}

	model := &models.Model{
		ID:                 uuid.New(),
		OwnerID:            ownerID,
		Name:               req.Name,
		Description:        req.Description,
		ModelType:          req.ModelType,
		TargetVariable:     req.TargetVariable,
		Features:           features,
		TrainingParameters: req.TrainingParameters,
		Status:             models.ModelStatusDraft,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		return s.recordEvent(tx, model, "", models.ModelStatusDraft, actorLabel(ownerID))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}

	log.Printf("Created model %s (%s) for owner %d", model.ID, model.Name, ownerID)
	return model, nil
}

// GetModel retrieves a model by ID
func (s *RegistryService) GetModel(ctx context.Context, modelID uuid.UUID) (*models.Model, error) {
	return s.repo.GetModelByID(ctx, modelID)
}

// ApplyTransition moves a model along a registry-legal edge inside the given
// transaction. The write is a compare-and-swap on (id, version, status); a
// lost race returns ErrVersionConflict and leaves nothing behind. Extra column
// updates ride along atomically with the status change. On success the
// in-memory model is updated to match.
func (s *RegistryService) ApplyTransition(
	tx *gorm.DB,
	model *models.Model,
	to models.ModelStatus,
	actor string,
	extra map[string]interface{},
) error {
	if !IsLegalTransition(model.Status, to) {
		return &InvalidTransitionError{From: model.Status, To: to}
	}

	updates := map[string]interface{}{
		"status":     to,
		"version":    model.Version + 1,
		"updated_at": time.Now(),
	}
	for column, value := range extra {
		updates[column] = value
	}

	result := tx.Model(&models.Model{}).
		Where("id = ? AND version = ? AND status = ?", model.ID, model.Version, model.Status).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	if err := s.recordEvent(tx, model, model.Status, to, actor); err != nil {
		return err
	}

	model.Status = to
	model.Version++
	return nil
}

// Transition applies a caller-requested transition (archive, and admin-driven
// corrections). Publish/unpublish/train flows use their own services, which
// delegate here for the status write itself.
func (s *RegistryService) Transition(
	ctx context.Context,
	modelID uuid.UUID,
	to models.ModelStatus,
	actor string,
) (*models.Model, error) {
	var model *models.Model
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		model, err = s.repo.GetModelByID(ctx, modelID)
		if err != nil {
			return err
		}

		extra := map[string]interface{}{}
		if to == models.ModelStatusArchived {
			// Archived models cannot be leased; visibility is forced off.
			extra["is_published"] = false
		}
		return s.ApplyTransition(tx, model, to, actor, extra)
	})
	if err != nil {
		return nil, err
	}
	if model.Status == models.ModelStatusArchived {
		model.IsPublished = false
	}
	return model, nil
}

// RecordMetrics writes training metrics while completing a model. It is only
// valid for a model currently TRAINING; the metric columns and the transition
// to COMPLETED commit together.
func (s *RegistryService) RecordMetrics(
	tx *gorm.DB,
	model *models.Model,
	result *models.TrainingResult,
	actor string,
) error {
	if model.Status != models.ModelStatusTraining {
		return &InvalidTransitionError{From: model.Status, To: models.ModelStatusCompleted}
	}

	importance := make(map[string]interface{}, len(result.FeatureImportance))
	for feature, weight := range result.FeatureImportance {
		importance[feature] = weight
	}

	extra := map[string]interface{}{
		"accuracy":     result.Accuracy,
		"precision":    result.Precision,
		"recall":       result.Recall,
		"f1_score":     result.F1Score,
		"total_return": result.TotalReturn,
		"sharpe_ratio": result.SharpeRatio,
		"max_drawdown": result.MaxDrawdown,
		"win_rate":     result.WinRate,
	}
	if len(importance) > 0 {
		encoded, err := json.Marshal(importance)
		if err != nil {
			return fmt.Errorf("failed to encode feature importance: %w", err)
		}
		extra["feature_importance"] = encoded
	}

	return s.ApplyTransition(tx, model, models.ModelStatusCompleted, actor, extra)
}

// DeleteModel removes a model. Deletion is soft-blocked while any ACTIVE lease
// references the model.
func (s *RegistryService) DeleteModel(ctx context.Context, modelID uuid.UUID, ownerID uint) error {
	model, err := s.repo.GetModelByID(ctx, modelID)
	if err != nil {
		return err
	}
	if model.OwnerID != ownerID {
		return &ValidationError{Reason: "only the owner can delete a model"}
	}

	activeLeases, err := s.repo.CountModelActiveLeases(ctx, modelID)
	if err != nil {
		return fmt.Errorf("failed to count active leases: %w", err)
	}
	if activeLeases > 0 {
		return &ValidationError{Reason: "model has active leases and cannot be deleted"}
	}

	job, err := s.repo.GetInFlightJob(ctx, modelID)
	if err != nil {
		return err
	}
	if job != nil {
		return &ValidationError{Reason: "model has a training job in flight and cannot be deleted"}
	}

	if err := s.db.WithContext(ctx).Delete(&models.Model{}, "id = ?", modelID).Error; err != nil {
		return fmt.Errorf("failed to delete model: %w", err)
	}

	log.Printf("Deleted model %s for owner %d", modelID, ownerID)
	return nil
}

func (s *RegistryService) recordEvent(
	tx *gorm.DB,
	model *models.Model,
	from, to models.ModelStatus,
	actor string,
) error {
	event := &models.ModelStatusEvent{
		ID:         uuid.New(),
		ModelID:    model.ID,
		OwnerID:    model.OwnerID,
		FromStatus: from,
		ToStatus:   to,
		Actor:      actor,
	}
	return tx.Create(event).Error
}

func actorLabel(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}
