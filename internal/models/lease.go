package models

import (
	"time"

	"github.com/google/uuid"
)

type LeaseStatus string

const (
	LeaseStatusActive    LeaseStatus = "ACTIVE"
	LeaseStatusExpired   LeaseStatus = "EXPIRED"
	LeaseStatusCancelled LeaseStatus = "CANCELLED"
)

// LeasePeriod is the fixed lease window.
const LeasePeriod = 30 * 24 * time.Hour

// ModelLease represents a fixed 30-day right for one user to consume a
// published model's predictions. Financial fields are snapshotted at lease
// time in minor currency units and are immutable thereafter.
type ModelLease struct {
	ID                 uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	LesseeID           uint        `gorm:"not null;index" json:"lessee_id"`
	Lessee             *User       `gorm:"foreignKey:LesseeID" json:"lessee,omitempty"`
	ModelID            uuid.UUID   `gorm:"type:uuid;not null;index" json:"model_id"`
	LeasePrice         int64       `gorm:"not null" json:"lease_price"`
	PlatformCommission int64       `gorm:"not null" json:"platform_commission"`
	CreatorEarnings    int64       `gorm:"not null" json:"creator_earnings"`
	Status             LeaseStatus `gorm:"size:50;not null;default:ACTIVE;index" json:"status"`
	StartDate          time.Time   `gorm:"not null" json:"start_date"`
	EndDate            time.Time   `gorm:"not null;index" json:"end_date"`
	CreatedAt          time.Time   `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time   `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
	CancelledAt        *time.Time  `json:"cancelled_at,omitempty"`
}

func (ModelLease) TableName() string {
	return "model_leases"
}
