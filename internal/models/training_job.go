package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type TrainingJobStatus string

const (
	TrainingJobStatusQueued    TrainingJobStatus = "QUEUED"
	TrainingJobStatusRunning   TrainingJobStatus = "RUNNING"
	TrainingJobStatusCompleted TrainingJobStatus = "COMPLETED"
	TrainingJobStatusFailed    TrainingJobStatus = "FAILED"
)

// InFlightJobStatuses are the non-terminal job states. At most one job per
// model may be in one of these at any time.
var InFlightJobStatuses = []TrainingJobStatus{
	TrainingJobStatusQueued,
	TrainingJobStatusRunning,
}

// TrainingJob represents one execution attempt of the training engine against a model
type TrainingJob struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ModelID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"model_id"`
	OwnerID      uint              `gorm:"not null;index" json:"owner_id"`
	Status       TrainingJobStatus `gorm:"size:50;not null;default:QUEUED;index" json:"status"`
	Progress     int               `gorm:"not null;default:0" json:"progress"` // 0-100, monotone while running
	CurrentStep  string            `gorm:"size:255" json:"current_step"`
	ErrorMessage *string           `gorm:"type:text" json:"error_message,omitempty"`
	ResultData   datatypes.JSON    `json:"result_data,omitempty"`
	// ModelSynced is false until the model-side transition for a terminal job
	// has committed; the reconciler replays unsynced jobs.
	ModelSynced bool       `gorm:"not null;default:true;index" json:"-"`
	QueuedAt    time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"queued_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (TrainingJob) TableName() string {
	return "training_jobs"
}

// TrainingResult is the payload a completed training run reports back.
type TrainingResult struct {
	Accuracy          float64                `json:"accuracy"`
	Precision         float64                `json:"precision"`
	Recall            float64                `json:"recall"`
	F1Score           float64                `json:"f1_score"`
	TotalReturn       float64                `json:"total_return"`
	SharpeRatio       float64                `json:"sharpe_ratio"`
	MaxDrawdown       float64                `json:"max_drawdown"`
	WinRate           float64                `json:"win_rate"`
	FeatureImportance map[string]float64     `json:"feature_importance"`
	Backtest          map[string]interface{} `json:"backtest,omitempty"`
}

// ProgressRequest is the engine's progress callback payload
type ProgressRequest struct {
	Percentage int    `json:"percentage" binding:"min=0,max=100"`
	Step       string `json:"step"`
}

// FailRequest is the engine's failure callback payload
type FailRequest struct {
	Reason string `json:"reason" binding:"required"`
}
