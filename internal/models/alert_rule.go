package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AlertRuleType string

const (
	AlertRuleThreshold  AlertRuleType = "threshold"
	AlertRuleDrawdown   AlertRuleType = "drawdown"
	AlertRuleVolatility AlertRuleType = "volatility"
	AlertRuleNewHigh    AlertRuleType = "new_high"
	AlertRuleNewLow     AlertRuleType = "new_low"
)

// RuleParams is the JSONB parameter blob attached to a rule. Which fields
// matter depends on the rule type; absent thresholds mean "never trigger".
type RuleParams struct {
	ThresholdValue *float64 `json:"threshold_value,omitempty"`
	ThresholdPct   *float64 `json:"threshold_pct,omitempty"`
	WindowDays     int      `json:"window_days"`
	MinTriggerPct  *float64 `json:"min_trigger_pct,omitempty"`
}

type AlertRule struct {
	RuleID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID int64     `gorm:"not null;index"`

	// Empty fund code means the rule applies to every monitored fund.
	FundCode *string `gorm:"type:varchar(20);index"`

	RuleType AlertRuleType                  `gorm:"type:varchar(20);not null"`
	Params   datatypes.JSONType[RuleParams] `gorm:"type:jsonb"`
	Enabled  bool                           `gorm:"not null;default:true;index"`

	CooldownSeconds int64 `gorm:"not null;default:3600"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (AlertRule) TableName() string {
	return "alert_rules"
}
