package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type FundType string

const (
	FundTypeMutual FundType = "mutual"
	FundTypeETF    FundType = "etf"
	FundTypeIndex  FundType = "index"
	FundTypeLOF    FundType = "lof"
)

type DataSource string

const (
	DataSourceEastMoney DataSource = "eastmoney"
	DataSourceManual    DataSource = "manual"
)

// QualityFlag tags a NAV row with anything suspicious about its source data.
type QualityFlag string

const (
	QualityOK            QualityFlag = "ok"
	QualityMissingFields QualityFlag = "missing_fields"
	QualityOutlier       QualityFlag = "outlier"
	QualityDelayed       QualityFlag = "delayed"
	QualityStale         QualityFlag = "stale"
)

type Fund struct {
	FundCode string   `gorm:"type:varchar(20);primaryKey"`
	Name     string   `gorm:"type:varchar(100);not null"`
	FundType FundType `gorm:"type:varchar(10);not null;default:'mutual'"`
	Currency string   `gorm:"type:varchar(10);not null;default:'CNY'"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Fund) TableName() string {
	return "funds"
}

// FundNAV is one end-of-day NAV observation, keyed by (fund_code, nav_date).
type FundNAV struct {
	ID       uint64    `gorm:"primaryKey;autoIncrement"`
	FundCode string    `gorm:"type:varchar(20);not null;uniqueIndex:uq_nav_fund_date"`
	NavDate  time.Time `gorm:"type:date;not null;uniqueIndex:uq_nav_fund_date;index"`

	Nav      decimal.Decimal  `gorm:"type:numeric(20,10);not null"`
	AccNav   *decimal.Decimal `gorm:"type:numeric(20,10)"`
	DailyPct *float64

	DataSource    DataSource     `gorm:"type:varchar(20);not null"`
	LastUpdatedAt time.Time      `gorm:"type:timestamptz;not null"`
	QualityFlags  datatypes.JSON `gorm:"type:jsonb"`

	IngestedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (FundNAV) TableName() string {
	return "fund_nav_timeseries"
}
