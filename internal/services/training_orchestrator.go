package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"model-market/internal/engine"
	"model-market/internal/models"
	"model-market/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const engineActor = "training-engine"

// casRetries bounds optimistic-lock retries before deferring to the reconciler.
const casRetries = 3

// TrainingOrchestrator bridges a user's train intent and the external training
// engine. It guarantees at most one in-flight job per model, applies progress
// monotonically, and drives the model transitions for terminal jobs.
type TrainingOrchestrator struct {
	db       *gorm.DB
	repo     *repository.Repository
	registry *RegistryService
	engine   engine.Engine
}

func NewTrainingOrchestrator(
	db *gorm.DB,
	repo *repository.Repository,
	registry *RegistryService,
	eng engine.Engine,
) *TrainingOrchestrator {
	return &TrainingOrchestrator{
		db:       db,
		repo:     repo,
		registry: registry,
		engine:   eng,
	}
}

// RequestTraining creates a QUEUED job and transitions the model to TRAINING
// atomically, then hands the training request to the engine. If a job is
// already in flight the call fails with JobAlreadyRunningError carrying that
// job's ID, which makes retries from unreliable clients idempotent.
func (s *TrainingOrchestrator) RequestTraining(
	ctx context.Context,
	modelID uuid.UUID,
	actorID uint,
) (*models.TrainingJob, error) {
	var job *models.TrainingJob
	var req *engine.TrainingRequest

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.Model
		if err := tx.Where("id = ?", modelID).First(&model).Error; err != nil {
			return err
		}
		if model.OwnerID != actorID {
			return &ValidationError{Reason: "only the owner can train a model"}
		}

		existing, err := s.repo.GetInFlightJob(ctx, modelID)
		if err != nil {
			return err
		}
		if existing != nil {
			return &JobAlreadyRunningError{JobID: existing.ID}
		}

		if !IsLegalTransition(model.Status, models.ModelStatusTraining) {
			return &InvalidTransitionError{From: model.Status, To: models.ModelStatusTraining}
		}

		features, err := model.FeatureList()
		if err != nil {
			return fmt.Errorf("failed to decode features: %w", err)
		}
		if len(features) == 0 {
			return &ValidationError{Reason: "feature set must not be empty"}
		}

		job = &models.TrainingJob{
			ID:       uuid.New(),
			ModelID:  model.ID,
			OwnerID:  model.OwnerID,
			Status:   models.TrainingJobStatusQueued,
			QueuedAt: time.Now(),
		}
		if err := tx.Create(job).Error; err != nil {
			return fmt.Errorf("failed to create training job: %w", err)
		}

		if err := s.registry.ApplyTransition(tx, &model, models.ModelStatusTraining, actorLabel(actorID), nil); err != nil {
			return err
		}

		req = buildTrainingRequest(&model, job.ID, features)
		return nil
	})

	if errors.Is(err, ErrVersionConflict) {
		// Lost the race to a concurrent train request; report the surviving job.
		existing, lookupErr := s.repo.GetInFlightJob(ctx, modelID)
		if lookupErr == nil && existing != nil {
			return nil, &JobAlreadyRunningError{JobID: existing.ID}
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	// Hand off outside the transaction; the orchestrator never blocks on the engine.
	if err := s.engine.Dispatch(ctx, req); err != nil {
		log.Printf("Warning: failed to dispatch job %s to training engine: %v", job.ID, err)
	}

	log.Printf("Queued training job %s for model %s", job.ID, modelID)
	return job, nil
}

// OnProgress applies a progress callback. Progress is monotone by contract:
// the guard lives in the UPDATE predicate so concurrent or duplicated
// deliveries cannot move a job backwards. The first progress event flips
// QUEUED to RUNNING and stamps started_at.
func (s *TrainingOrchestrator) OnProgress(
	ctx context.Context,
	jobID uuid.UUID,
	percentage int,
	step string,
) error {
	if percentage < 0 || percentage > 100 {
		return &ValidationError{Reason: fmt.Sprintf("progress percentage %d out of range", percentage)}
	}

	result := s.db.WithContext(ctx).Model(&models.TrainingJob{}).
		Where("id = ? AND status IN ? AND progress <= ?", jobID, models.InFlightJobStatuses, percentage).
		Updates(map[string]interface{}{
			"status":       models.TrainingJobStatusRunning,
			"progress":     percentage,
			"current_step": step,
			"started_at":   gorm.Expr("COALESCE(started_at, ?)", time.Now()),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}

	job, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == models.TrainingJobStatusCompleted || job.Status == models.TrainingJobStatusFailed {
		return &ValidationError{Reason: fmt.Sprintf("job %s is already %s", jobID, job.Status)}
	}
	if job.Progress > percentage {
		return &ProgressRegressionError{JobID: jobID, Recorded: job.Progress, Reported: percentage}
	}
	// Raced with an identical delivery; nothing left to apply.
	return nil
}

// OnCompleted finalizes a job and drives the model to COMPLETED with the
// reported metrics. Job finalization commits first with model_synced=false;
// the model-side write then flips the flag, and the reconciler replays any
// job whose model write never committed. Duplicate deliveries are no-ops.
func (s *TrainingOrchestrator) OnCompleted(
	ctx context.Context,
	jobID uuid.UUID,
	result *models.TrainingResult,
) error {
	if result == nil {
		return &ValidationError{Reason: "training result is required"}
	}

	resultData, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode training result: %w", err)
	}

	now := time.Now()
	outcome := s.db.WithContext(ctx).Model(&models.TrainingJob{}).
		Where("id = ? AND status IN ?", jobID, models.InFlightJobStatuses).
		Updates(map[string]interface{}{
			"status":       models.TrainingJobStatusCompleted,
			"progress":     100,
			"current_step": "completed",
			"result_data":  resultData,
			"model_synced": false,
			"started_at":   gorm.Expr("COALESCE(started_at, ?)", now),
			"completed_at": now,
		})
	if outcome.Error != nil {
		return outcome.Error
	}
	if outcome.RowsAffected == 0 {
		job, err := s.repo.GetJobByID(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status == models.TrainingJobStatusFailed {
			return &ValidationError{Reason: fmt.Sprintf("job %s already failed", jobID)}
		}
		if job.ModelSynced {
			// Duplicate delivery of a fully applied completion.
			return nil
		}
	}

	job, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return err
	}
	return s.syncModel(ctx, job, result)
}

// OnFailed finalizes a job as FAILED and transitions the model to FAILED.
// The model remains retrainable.
func (s *TrainingOrchestrator) OnFailed(
	ctx context.Context,
	jobID uuid.UUID,
	reason string,
) error {
	now := time.Now()
	outcome := s.db.WithContext(ctx).Model(&models.TrainingJob{}).
		Where("id = ? AND status IN ?", jobID, models.InFlightJobStatuses).
		Updates(map[string]interface{}{
			"status":        models.TrainingJobStatusFailed,
			"error_message": reason,
			"model_synced":  false,
			"started_at":    gorm.Expr("COALESCE(started_at, ?)", now),
			"completed_at":  now,
		})
	if outcome.Error != nil {
		return outcome.Error
	}
	if outcome.RowsAffected == 0 {
		job, err := s.repo.GetJobByID(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status == models.TrainingJobStatusCompleted {
			return &ValidationError{Reason: fmt.Sprintf("job %s already completed", jobID)}
		}
		if job.ModelSynced {
			return nil
		}
	}

	job, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return err
	}
	return s.syncModel(ctx, job, nil)
}

// syncModel applies the model-side transition for a terminal job and marks
// the job synced. It is idempotent: a model already past TRAINING is left
// alone, so replays and reconciliation are safe.
func (s *TrainingOrchestrator) syncModel(
	ctx context.Context,
	job *models.TrainingJob,
	result *models.TrainingResult,
) error {
	var err error
	for attempt := 0; attempt < casRetries; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var model models.Model
			if err := tx.Where("id = ?", job.ModelID).First(&model).Error; err != nil {
				return err
			}

			if model.Status == models.ModelStatusTraining {
				switch job.Status {
				case models.TrainingJobStatusCompleted:
					if result == nil {
						decoded, err := decodeResult(job)
						if err != nil {
							return err
						}
						result = decoded
					}
					if err := s.registry.RecordMetrics(tx, &model, result, engineActor); err != nil {
						return err
					}
				case models.TrainingJobStatusFailed:
					if err := s.registry.ApplyTransition(tx, &model, models.ModelStatusFailed, engineActor, nil); err != nil {
						return err
					}
				}
			}

			return tx.Model(&models.TrainingJob{}).
				Where("id = ?", job.ID).
				Update("model_synced", true).Error
		})
		if !errors.Is(err, ErrVersionConflict) {
			break
		}
	}

	if errors.Is(err, ErrVersionConflict) {
		// Leave the job unsynced; the reconciler will replay it.
		log.Printf("Warning: model sync for job %s deferred to reconciliation: %v", job.ID, err)
		return nil
	}
	return err
}

// Reconcile replays terminal jobs whose model transition never committed.
// Running it on an already-consistent store is a no-op.
func (s *TrainingOrchestrator) Reconcile(ctx context.Context) (int, error) {
	jobs, err := s.repo.GetUnsyncedTerminalJobs(ctx, 100)
	if err != nil {
		return 0, fmt.Errorf("failed to list unsynced jobs: %w", err)
	}

	repaired := 0
	for _, job := range jobs {
		if err := s.syncModel(ctx, job, nil); err != nil {
			log.Printf("Warning: reconciliation failed for job %s: %v", job.ID, err)
			continue
		}
		repaired++
	}
	return repaired, nil
}

// GetJob retrieves a training job by ID
func (s *TrainingOrchestrator) GetJob(ctx context.Context, jobID uuid.UUID) (*models.TrainingJob, error) {
	return s.repo.GetJobByID(ctx, jobID)
}

// GetOwnerJobs retrieves training jobs for an owner's models
func (s *TrainingOrchestrator) GetOwnerJobs(ctx context.Context, ownerID uint, limit, offset int) ([]*models.TrainingJob, error) {
	return s.repo.GetOwnerJobs(ctx, ownerID, limit, offset)
}

func decodeResult(job *models.TrainingJob) (*models.TrainingResult, error) {
	if len(job.ResultData) == 0 {
		return nil, fmt.Errorf("job %s has no result data", job.ID)
	}
	var result models.TrainingResult
	if err := json.Unmarshal(job.ResultData, &result); err != nil {
		return nil, fmt.Errorf("failed to decode result for job %s: %w", job.ID, err)
	}
	return &result, nil
}

func buildTrainingRequest(model *models.Model, jobID uuid.UUID, features []string) *engine.TrainingRequest {
	req := &engine.TrainingRequest{
		JobID:              jobID,
		ModelID:            model.ID,
		ModelType:          model.ModelType,
		Features:           features,
		TargetVariable:     model.TargetVariable,
		TrainingPeriodDays: 365,
		ValidationSplit:    0.2,
		Algorithm:          defaultAlgorithm(model.ModelType),
	}

	params := model.TrainingParameters
	if params == nil {
		return req
	}
	if days, ok := params["training_period_days"].(float64); ok && days > 0 {
		req.TrainingPeriodDays = int(days)
	}
	if split, ok := params["validation_split"].(float64); ok && split > 0 && split < 1 {
		req.ValidationSplit = split
	}
	if algorithm, ok := params["algorithm"].(string); ok && algorithm != "" {
		req.Algorithm = algorithm
	}
	if hyper, ok := params["hyperparameters"].(map[string]interface{}); ok {
		req.Hyperparameters = hyper
	}
	return req
}

func defaultAlgorithm(modelType models.ModelType) string {
	switch modelType {
	case models.ModelTypeRegression:
		return "gradient_boosting_regressor"
	case models.ModelTypeClustering:
		return "kmeans"
	default:
		return "gradient_boosting_classifier"
	}
}
