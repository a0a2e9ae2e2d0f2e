// Package engine defines the contract with the external training engine.
// The engine is an opaque collaborator: it accepts a training request and
// reports progress and results back through the Callbacks interface.
package engine

import (
	"context"

	"model-market/internal/models"

	"github.com/google/uuid"
)

// TrainingRequest is the payload handed to the training engine for one job
type TrainingRequest struct {
	JobID              uuid.UUID              `json:"job_id"`
	ModelID            uuid.UUID              `json:"model_id"`
	ModelType          models.ModelType       `json:"model_type"`
	Features           []string               `json:"features"`
	TargetVariable     string                 `json:"target_variable"`
	TrainingPeriodDays int                    `json:"training_period_days"`
	ValidationSplit    float64                `json:"validation_split"`
	Algorithm          string                 `json:"algorithm"`
	Hyperparameters    map[string]interface{} `json:"hyperparameters,omitempty"`
}

// Callbacks is the contract the engine reports back through. Delivery is
// at-least-once; implementations must tolerate duplicates and reordering.
type Callbacks interface {
	OnProgress(ctx context.Context, jobID uuid.UUID, percentage int, step string) error
	OnCompleted(ctx context.Context, jobID uuid.UUID, result *models.TrainingResult) error
	OnFailed(ctx context.Context, jobID uuid.UUID, reason string) error
}

// Engine dispatches training requests. Dispatch returns as soon as the
// request is accepted; execution is asynchronous.
type Engine interface {
	Dispatch(ctx context.Context, req *TrainingRequest) error
}
