package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type ModelStatus string

const (
	ModelStatusDraft     ModelStatus = "DRAFT"
	ModelStatusTraining  ModelStatus = "TRAINING"
	ModelStatusCompleted ModelStatus = "COMPLETED"
	ModelStatusFailed    ModelStatus = "FAILED"
	ModelStatusPublished ModelStatus = "PUBLISHED"
	ModelStatusArchived  ModelStatus = "ARCHIVED"
)

type ModelType string

const (
	ModelTypeClassification ModelType = "CLASSIFICATION"
	ModelTypeRegression     ModelType = "REGRESSION"
	ModelTypeClustering     ModelType = "CLUSTERING"
)

// Model represents a user-owned predictive model progressing through the
// training/publication lifecycle.
type Model struct {
	ID                 uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID            uint              `gorm:"not null;index" json:"owner_id"`
	Owner              *User             `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Name               string            `gorm:"size:255;not null" json:"name"`
	Description        string            `gorm:"type:text;not null" json:"description"`
	ModelType          ModelType         `gorm:"size:50;not null" json:"model_type"`
	TargetVariable     string            `gorm:"size:255;not null" json:"target_variable"`
	Features           datatypes.JSON    `gorm:"not null" json:"features"`
	TrainingParameters datatypes.JSONMap `json:"training_parameters"`
	Status             ModelStatus       `gorm:"size:50;not null;default:DRAFT;index" json:"status"`
	// Version is bumped on every status mutation; writers compare-and-swap on it.
	Version int64 `gorm:"not null;default:0" json:"version"`

	// Metrics, present only once the model has completed a training run.
	Accuracy          *float64          `gorm:"type:decimal(10,6)" json:"accuracy,omitempty"`
	Precision         *float64          `gorm:"type:decimal(10,6)" json:"precision,omitempty"`
	Recall            *float64          `gorm:"type:decimal(10,6)" json:"recall,omitempty"`
	F1Score           *float64          `gorm:"type:decimal(10,6)" json:"f1_score,omitempty"`
	TotalReturn       *float64          `gorm:"type:decimal(12,6)" json:"total_return,omitempty"`
	SharpeRatio       *float64          `gorm:"type:decimal(10,6)" json:"sharpe_ratio,omitempty"`
	MaxDrawdown       *float64          `gorm:"type:decimal(10,6)" json:"max_drawdown,omitempty"`
	WinRate           *float64          `gorm:"type:decimal(10,6)" json:"win_rate,omitempty"`
	FeatureImportance datatypes.JSONMap `json:"feature_importance,omitempty"`

	IsPublished       bool  `gorm:"not null;default:false;index" json:"is_published"`
	MonthlyLeasePrice int64 `gorm:"not null;default:0" json:"monthly_lease_price"` // minor currency units
	TotalLeases       int64 `gorm:"not null;default:0" json:"total_leases"`
	TotalEarnings     int64 `gorm:"not null;default:0" json:"total_earnings"` // accumulated creator share, minor units

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Model) TableName() string {
	return "models"
}

// FeatureList decodes the stored feature set.
func (m *Model) FeatureList() ([]string, error) {
	var features []string
	if len(m.Features) == 0 {
		return features, nil
	}
	if err := json.Unmarshal(m.Features, &features); err != nil {
		return nil, err
	}
	return features, nil
}

// CreateModelRequest represents a request to create a new model
type CreateModelRequest struct {
	Name               string                 `json:"name" binding:"required"`
	Description        string                 `json:"description" binding:"required"`
	ModelType          ModelType              `json:"model_type" binding:"required"`
	TargetVariable     string                 `json:"target_variable" binding:"required"`
	Features           []string               `json:"features" binding:"required"`
	TrainingParameters map[string]interface{} `json:"training_parameters"`
}

// PublishModelRequest represents a request to publish a completed model
type PublishModelRequest struct {
	MonthlyLeasePrice decimal.Decimal `json:"monthly_lease_price" binding:"required"`
}

// MarketplaceModel is the read-only projection served by the marketplace browse endpoint
type MarketplaceModel struct {
	ID                uuid.UUID   `json:"id"`
	OwnerID           uint        `json:"owner_id"`
	CreatorNickname   string      `json:"creator_nickname"`
	Name              string      `json:"name"`
	Description       string      `json:"description"`
	ModelType         ModelType   `json:"model_type"`
	TargetVariable    string      `json:"target_variable"`
	Status            ModelStatus `json:"status"`
	Accuracy          *float64    `json:"accuracy,omitempty"`
	SharpeRatio       *float64    `json:"sharpe_ratio,omitempty"`
	TotalReturn       *float64    `json:"total_return,omitempty"`
	WinRate           *float64    `json:"win_rate,omitempty"`
	MonthlyLeasePrice int64       `json:"monthly_lease_price"`
	TotalLeases       int64       `json:"total_leases"`
	AvgRating         float64     `json:"avg_rating"`
	ReviewCount       int64       `json:"review_count"`
	CreatedAt         time.Time   `json:"created_at"`
}

// MarketplaceFilter holds browse filters and sorting
type MarketplaceFilter struct {
	Search        string    `form:"search"`
	ModelType     ModelType `form:"model_type"`
	MaxPriceMinor int64     `form:"-"`
	ExcludeOwner  uint      `form:"-"`
	Sort          string    `form:"sort"` // newest, price_asc, price_desc, popular, rating
	Limit         int       `form:"limit"`
	Offset        int       `form:"offset"`
}
