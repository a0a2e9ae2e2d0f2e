package models

import (
	"time"

	"github.com/google/uuid"
)

// ModelStatusEvent is an append-only log of model status transitions. It is
// written in the same transaction as the transition itself and consumed by
// the dashboard aggregator.
type ModelStatusEvent struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	ModelID    uuid.UUID   `gorm:"type:uuid;not null;index" json:"model_id"`
	OwnerID    uint        `gorm:"not null;index" json:"owner_id"`
	FromStatus ModelStatus `gorm:"size:50" json:"from_status"`
	ToStatus   ModelStatus `gorm:"size:50;not null" json:"to_status"`
	Actor      string      `gorm:"size:255;not null" json:"actor"`
	CreatedAt  time.Time   `gorm:"default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (ModelStatusEvent) TableName() string {
	return "model_status_events"
}
