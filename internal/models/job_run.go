package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type JobType string

const (
	JobTypeNAVSync    JobType = "nav_sync"
	JobTypeSettle     JobType = "settle"
	JobTypeAlertCheck JobType = "alert_check"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// JobRun tracks one scheduled execution. The idempotency key collapses
// re-submissions of the same (type, params, scheduled slot) to one row.
type JobRun struct {
	JobID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	JobType JobType   `gorm:"type:varchar(20);not null;index"`

	ScheduledAt time.Time  `gorm:"type:timestamptz;not null"`
	StartedAt   *time.Time `gorm:"type:timestamptz"`
	FinishedAt  *time.Time `gorm:"type:timestamptz"`

	Status      JobStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	Attempt     int       `gorm:"not null;default:0"`
	MaxAttempts int       `gorm:"not null;default:3"`

	IdempotencyKey string         `gorm:"type:varchar(64);not null;uniqueIndex"`
	Payload        datatypes.JSON `gorm:"type:jsonb"`
	Error          *string        `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (JobRun) TableName() string {
	return "job_runs"
}
