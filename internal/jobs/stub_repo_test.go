package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fundwatch/internal/marketdata"
	"fundwatch/internal/models"
	"fundwatch/internal/repository"
)

func dec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

type jobStatusUpdate struct {
	status models.JobStatus
	at     time.Time
}

// stubRepo is a test-only in-memory implementation of repository.Repository.
// Job-run bookkeeping, NAV reads and alert-event writes carry real behavior.
type stubRepo struct {
	navRows          []models.FundNAV
	rules            []models.AlertRule
	events           []models.AlertEvent
	runKeys          map[string]bool
	jobStatusUpdates []jobStatusUpdate
}

func newStubRepo() *stubRepo {
	return &stubRepo{runKeys: make(map[string]bool)}
}

func (s *stubRepo) ListNAVSeries(ctx context.Context, fundCode string, start, end time.Time) ([]models.FundNAV, error) {
	var out []models.FundNAV
	for _, row := range s.navRows {
		if row.FundCode == fundCode {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *stubRepo) ListEnabledAlertRules(ctx context.Context) ([]models.AlertRule, error) {
	var out []models.AlertRule
	for _, r := range s.rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubRepo) InsertAlertEvent(ctx context.Context, item *models.AlertEvent) (bool, error) {
	s.events = append(s.events, *item)
	return true, nil
}

func (s *stubRepo) InsertJobRunIdempotent(ctx context.Context, item *models.JobRun) (bool, error) {
	if s.runKeys[item.IdempotencyKey] {
		return false, nil
	}
	s.runKeys[item.IdempotencyKey] = true
	return true, nil
}

func (s *stubRepo) UpdateJobRunStatus(ctx context.Context, jobID uuid.UUID, status models.JobStatus, errMsg *string, at time.Time) error {
	s.jobStatusUpdates = append(s.jobStatusUpdates, jobStatusUpdate{status: status, at: at})
	return nil
}

func (s *stubRepo) InsertTradeIdempotent(ctx context.Context, item *models.Trade) (bool, error) {
	return true, nil
}
func (s *stubRepo) FindTradeByIdempotencyKey(ctx context.Context, key string) (*models.Trade, error) {
	return nil, nil
}
func (s *stubRepo) GetTradeByID(ctx context.Context, tradeID uuid.UUID) (*models.Trade, error) {
	return nil, nil
}
func (s *stubRepo) UpdateTradeStatusConditional(ctx context.Context, tradeID uuid.UUID, from, to models.TradeStatus, settleDate *time.Time, updatedAt time.Time) (bool, error) {
	return false, nil
}
func (s *stubRepo) FindTradesForUser(ctx context.Context, userID int64, asOf time.Time, statuses []models.TradeStatus) ([]models.Trade, error) {
	return nil, nil
}
func (s *stubRepo) FindSettleableTrades(ctx context.Context, today time.Time, limit int) ([]models.Trade, error) {
	return nil, nil
}
func (s *stubRepo) ListTrades(ctx context.Context, params repository.ListTradesParams) ([]models.Trade, error) {
	return nil, nil
}
func (s *stubRepo) InsertAlertRule(ctx context.Context, item *models.AlertRule) error { return nil }
func (s *stubRepo) FindAlertRulesForUser(ctx context.Context, userID int64) ([]models.AlertRule, error) {
	return nil, nil
}
func (s *stubRepo) FindLatestAlertEventByDedupKey(ctx context.Context, key string) (*models.AlertEvent, error) {
	return nil, nil
}
func (s *stubRepo) UpdateAlertEventStatus(ctx context.Context, eventID uuid.UUID, status models.AlertStatus, sentAt *time.Time, errMsg *string) error {
	return nil
}
func (s *stubRepo) ListPendingAlertEvents(ctx context.Context, limit int) ([]models.AlertEvent, error) {
	return nil, nil
}
func (s *stubRepo) ListAlertEvents(ctx context.Context, params repository.ListAlertEventsParams) ([]models.AlertEvent, error) {
	return nil, nil
}
func (s *stubRepo) UpsertFund(ctx context.Context, item *models.Fund) error { return nil }
func (s *stubRepo) ListFunds(ctx context.Context) ([]models.Fund, error)   { return nil, nil }
func (s *stubRepo) UpsertFundNAV(ctx context.Context, item *models.FundNAV) error {
	return nil
}
func (s *stubRepo) GetLatestNAV(ctx context.Context, fundCode string) (*models.FundNAV, error) {
	return nil, nil
}

var _ repository.Repository = (*stubRepo)(nil)

// stubProvider serves canned NAV history.
type stubProvider struct {
	history []marketdata.NAV
}

func (p *stubProvider) Source() models.DataSource { return models.DataSourceManual }
func (p *stubProvider) FetchFundInfo(ctx context.Context, fundCode string) (*marketdata.FundInfo, error) {
	return &marketdata.FundInfo{FundCode: fundCode, Name: "stub fund"}, nil
}
func (p *stubProvider) FetchLatestNAV(ctx context.Context, fundCode string) (*marketdata.NAV, error) {
	if len(p.history) == 0 {
		return nil, &marketdata.AdapterError{Message: "no data", CanFallback: true}
	}
	nav := p.history[len(p.history)-1]
	return &nav, nil
}
func (p *stubProvider) FetchNAVHistory(ctx context.Context, fundCode string, start, end time.Time) ([]marketdata.NAV, error) {
	return p.history, nil
}
func (p *stubProvider) HealthCheck(ctx context.Context) error { return nil }

var _ marketdata.Provider = (*stubProvider)(nil)
