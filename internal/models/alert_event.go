package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AlertStatus string

const (
	AlertStatusPending    AlertStatus = "pending"
	AlertStatusSent       AlertStatus = "sent"
	AlertStatusSuppressed AlertStatus = "suppressed"
	AlertStatusFailed     AlertStatus = "failed"
)

// AlertEvent records every trigger outcome, including suppressed ones.
// At most one pending/sent event per dedup key is active; the partial
// unique index on dedup_key enforces that under concurrent checks.
type AlertEvent struct {
	EventID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	RuleID   uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID   int64     `gorm:"not null;index"`
	FundCode string    `gorm:"type:varchar(20);not null"`

	RuleType    AlertRuleType  `gorm:"type:varchar(20);not null"`
	TriggeredAt time.Time      `gorm:"type:timestamptz;not null;index"`
	Payload     datatypes.JSON `gorm:"type:jsonb"`

	DedupKey string      `gorm:"type:varchar(128);not null;index;uniqueIndex:uq_alert_events_active_dedup,where:status IN ('pending','sent')"`
	Status   AlertStatus `gorm:"type:varchar(20);not null;default:'pending';index"`

	SentAt *time.Time `gorm:"type:timestamptz"`
	Error  *string    `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (AlertEvent) TableName() string {
	return "alert_events"
}
