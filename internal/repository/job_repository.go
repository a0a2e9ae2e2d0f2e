package repository

import (
	"context"

	"model-market/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetJobByID retrieves a training job by ID
func (r *Repository) GetJobByID(ctx context.Context, jobID uuid.UUID) (*models.TrainingJob, error) {
	var job models.TrainingJob
	err := r.db.WithContext(ctx).Where("id = ?", jobID).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetInFlightJob retrieves the QUEUED/RUNNING job for a model, if any
func (r *Repository) GetInFlightJob(ctx context.Context, modelID uuid.UUID) (*models.TrainingJob, error) {
	var job models.TrainingJob
	err := r.db.WithContext(ctx).
		Where("model_id = ? AND status IN ?", modelID, models.InFlightJobStatuses).
		Order("queued_at DESC").
		First(&job).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetOwnerJobs retrieves training jobs for an owner's models, newest first
func (r *Repository) GetOwnerJobs(ctx context.Context, ownerID uint, limit, offset int) ([]*models.TrainingJob, error) {
	var jobs []*models.TrainingJob
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("queued_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// CountOwnerInFlightJobs counts QUEUED/RUNNING jobs for an owner
func (r *Repository) CountOwnerInFlightJobs(ctx context.Context, ownerID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TrainingJob{}).
		Where("owner_id = ? AND status IN ?", ownerID, models.InFlightJobStatuses).
		Count(&count).Error
	return count, err
}

// GetUnsyncedTerminalJobs retrieves terminal jobs whose model transition has
// not committed yet. The reconciler replays these.
func (r *Repository) GetUnsyncedTerminalJobs(ctx context.Context, limit int) ([]*models.TrainingJob, error) {
	var jobs []*models.TrainingJob
	err := r.db.WithContext(ctx).
		Where("model_synced = ? AND status IN ?", false,
			[]models.TrainingJobStatus{models.TrainingJobStatusCompleted, models.TrainingJobStatusFailed}).
		Order("queued_at ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}
