package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TradeType string

const (
	TradeTypeBuy  TradeType = "buy"
	TradeTypeSell TradeType = "sell"
	TradeTypeSIP  TradeType = "sip"
)

type TradeStatus string

const (
	TradeStatusCreated   TradeStatus = "created"
	TradeStatusConfirmed TradeStatus = "confirmed"
	TradeStatusSettled   TradeStatus = "settled"
	TradeStatusCancelled TradeStatus = "cancelled"
	TradeStatusFailed    TradeStatus = "failed"
)

// Trade is an append-mostly event row; holdings are rebuilt from these,
// never stored as authoritative state. Rows are only mutated through
// state-machine-validated status transitions.
type Trade struct {
	TradeID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID   int64     `gorm:"not null;index:idx_trades_user_date"`
	FundCode string    `gorm:"type:varchar(20);not null;index"`

	TradeType TradeType `gorm:"type:varchar(10);not null"`

	// Shares is required for sells, Amount for buys and SIPs.
	Shares   *decimal.Decimal `gorm:"type:numeric(30,10)"`
	Amount   *decimal.Decimal `gorm:"type:numeric(30,10)"`
	NavPrice decimal.Decimal  `gorm:"type:numeric(20,10);not null"`

	TradeDate  time.Time  `gorm:"type:date;not null;index:idx_trades_user_date"`
	SettleDate *time.Time `gorm:"type:date"`

	TradeStatus    TradeStatus `gorm:"type:varchar(20);not null;default:'created';index"`
	IdempotencyKey string      `gorm:"type:varchar(64);not null;uniqueIndex"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Trade) TableName() string {
	return "simulation_trades"
}

// Position is a derived aggregate, valid only as of a given date. It is a
// pure fold over the trade log; any stored copy is a cache, never truth.
type Position struct {
	UserID    int64           `json:"user_id"`
	FundCode  string          `json:"fund_code"`
	Shares    decimal.Decimal `json:"shares"`
	TotalCost decimal.Decimal `json:"total_cost"`
	AvgCost   decimal.Decimal `json:"avg_cost"`
	AsOfDate  time.Time       `json:"as_of_date"`
}
