package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fundwatch/internal/models"
)

// NAV is one validated end-of-day observation from a data source.
type NAV struct {
	FundCode      string
	NavDate       time.Time
	Nav           decimal.Decimal
	AccNav        *decimal.Decimal
	DailyPct      *float64
	Source        models.DataSource
	LastUpdatedAt time.Time
	QualityFlags  []models.QualityFlag
}

type FundInfo struct {
	FundCode string
	Name     string
	FundType models.FundType
	Currency string
}

// Provider is the market-data contract consumed by the sync job and the
// alert checker. History is returned ascending by date with every NAV
// already validated positive; anything suspect is tagged via quality flags.
type Provider interface {
	Source() models.DataSource
	FetchFundInfo(ctx context.Context, fundCode string) (*FundInfo, error)
	FetchLatestNAV(ctx context.Context, fundCode string) (*NAV, error)
	FetchNAVHistory(ctx context.Context, fundCode string, start, end time.Time) ([]NAV, error)
	HealthCheck(ctx context.Context) error
}

// AdapterError carries a fallback hint so the caller can degrade to
// another source instead of failing the whole sync cycle.
type AdapterError struct {
	Message        string
	CanFallback    bool
	FallbackSource models.DataSource
	Err            error
}

func (e *AdapterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AdapterError) Unwrap() error { return e.Err }
