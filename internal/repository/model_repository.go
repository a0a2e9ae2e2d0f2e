package repository

import (
	"context"

	"model-market/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying handle for transactional flows
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// CreateModel creates a new model
func (r *Repository) CreateModel(ctx context.Context, model *models.Model) error {
	return r.db.WithContext(ctx).Create(model).Error
}

// GetModelByID retrieves a model by ID
func (r *Repository) GetModelByID(ctx context.Context, modelID uuid.UUID) (*models.Model, error) {
	var model models.Model
	err := r.db.WithContext(ctx).Where("id = ?", modelID).First(&model).Error
	if err != nil {
		return nil, err
	}
	return &model, nil
}

// GetOwnerModels retrieves all models belonging to an owner
func (r *Repository) GetOwnerModels(ctx context.Context, ownerID uint, limit, offset int) ([]*models.Model, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Model{}).
		Where("owner_id = ?", ownerID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var results []*models.Model
	err = r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&results).Error
	if err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

// CountOwnerModelsByStatus counts an owner's models in the given status
func (r *Repository) CountOwnerModelsByStatus(ctx context.Context, ownerID uint, status models.ModelStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Model{}).
		Where("owner_id = ? AND status = ?", ownerID, status).
		Count(&count).Error
	return count, err
}

// CountOwnerModels counts all models belonging to an owner
func (r *Repository) CountOwnerModels(ctx context.Context, ownerID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Model{}).
		Where("owner_id = ?", ownerID).
		Count(&count).Error
	return count, err
}

// CountOwnerPublishedModels counts an owner's currently published models
func (r *Repository) CountOwnerPublishedModels(ctx context.Context, ownerID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Model{}).
		Where("owner_id = ? AND is_published = ?", ownerID, true).
		Count(&count).Error
	return count, err
}

// SumOwnerEarnings sums accumulated creator earnings across an owner's models
func (r *Repository) SumOwnerEarnings(ctx context.Context, ownerID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Model{}).
		Where("owner_id = ?", ownerID).
		Select("COALESCE(SUM(total_earnings), 0)").
		Scan(&total).Error
	return total, err
}

// GetRecentStatusEvents retrieves the latest status transitions for an owner's models
func (r *Repository) GetRecentStatusEvents(ctx context.Context, ownerID uint, limit int) ([]*models.ModelStatusEvent, error) {
	var events []*models.ModelStatusEvent
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
