package repository

import (
	"context"
	"time"

	"model-market/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetLeaseByID retrieves a lease by ID
func (r *Repository) GetLeaseByID(ctx context.Context, leaseID uuid.UUID) (*models.ModelLease, error) {
	var lease models.ModelLease
	err := r.db.WithContext(ctx).Where("id = ?", leaseID).First(&lease).Error
	if err != nil {
		return nil, err
	}
	return &lease, nil
}

// GetActiveLease retrieves the ACTIVE lease for a (lessee, model) pair, if any
func (r *Repository) GetActiveLease(ctx context.Context, lesseeID uint, modelID uuid.UUID) (*models.ModelLease, error) {
	var lease models.ModelLease
	err := r.db.WithContext(ctx).
		Where("lessee_id = ? AND model_id = ? AND status = ?", lesseeID, modelID, models.LeaseStatusActive).
		First(&lease).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lease, nil
}

// GetLatestLease retrieves the most recent lease for a (lessee, model) pair
// regardless of status
func (r *Repository) GetLatestLease(ctx context.Context, lesseeID uint, modelID uuid.UUID) (*models.ModelLease, error) {
	var lease models.ModelLease
	err := r.db.WithContext(ctx).
		Where("lessee_id = ? AND model_id = ?", lesseeID, modelID).
		Order("start_date DESC").
		First(&lease).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lease, nil
}

// GetLesseeLeases retrieves all leases held by a lessee
func (r *Repository) GetLesseeLeases(ctx context.Context, lesseeID uint, limit, offset int) ([]*models.ModelLease, error) {
	var leases []*models.ModelLease
	err := r.db.WithContext(ctx).
		Where("lessee_id = ?", lesseeID).
		Order("start_date DESC").
		Limit(limit).
		Offset(offset).
		Find(&leases).Error
	if err != nil {
		return nil, err
	}
	return leases, nil
}

// CountModelActiveLeases counts ACTIVE leases referencing a model
func (r *Repository) CountModelActiveLeases(ctx context.Context, modelID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ModelLease{}).
		Where("model_id = ? AND status = ?", modelID, models.LeaseStatusActive).
		Count(&count).Error
	return count, err
}

// CountOwnerActiveLeases counts ACTIVE leases on models belonging to an owner
func (r *Repository) CountOwnerActiveLeases(ctx context.Context, ownerID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ModelLease{}).
		Joins("JOIN models ON models.id = model_leases.model_id").
		Where("models.owner_id = ? AND model_leases.status = ?", ownerID, models.LeaseStatusActive).
		Count(&count).Error
	return count, err
}

// ExpireLeases marks ACTIVE leases past their end date as EXPIRED. Idempotent.
func (r *Repository) ExpireLeases(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.ModelLease{}).
		Where("status = ? AND end_date <= ?", models.LeaseStatusActive, now).
		Updates(map[string]interface{}{
			"status":     models.LeaseStatusExpired,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

// GetModelReviews retrieves reviews for a model, newest first
func (r *Repository) GetModelReviews(ctx context.Context, modelID uuid.UUID, limit, offset int) ([]*models.ModelReview, error) {
	var reviews []*models.ModelReview
	err := r.db.WithContext(ctx).
		Where("model_id = ?", modelID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}
