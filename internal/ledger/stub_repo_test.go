package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fundwatch/internal/models"
	"fundwatch/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// Only the trade methods carry real behavior; the rest are no-ops.
type stubRepo struct {
	tradesByID  map[uuid.UUID]models.Trade
	tradesByKey map[string]uuid.UUID
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		tradesByID:  make(map[uuid.UUID]models.Trade),
		tradesByKey: make(map[string]uuid.UUID),
	}
}

func (s *stubRepo) InsertTradeIdempotent(ctx context.Context, item *models.Trade) (bool, error) {
	if _, ok := s.tradesByKey[item.IdempotencyKey]; ok {
		return false, nil
	}
	s.tradesByKey[item.IdempotencyKey] = item.TradeID
	s.tradesByID[item.TradeID] = *item
	return true, nil
}

func (s *stubRepo) FindTradeByIdempotencyKey(ctx context.Context, key string) (*models.Trade, error) {
	id, ok := s.tradesByKey[key]
	if !ok {
		return nil, nil
	}
	t := s.tradesByID[id]
	return &t, nil
}

func (s *stubRepo) GetTradeByID(ctx context.Context, tradeID uuid.UUID) (*models.Trade, error) {
	t, ok := s.tradesByID[tradeID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *stubRepo) UpdateTradeStatusConditional(ctx context.Context, tradeID uuid.UUID, from, to models.TradeStatus, settleDate *time.Time, updatedAt time.Time) (bool, error) {
	t, ok := s.tradesByID[tradeID]
	if !ok || t.TradeStatus != from {
		return false, nil
	}
	t.TradeStatus = to
	t.UpdatedAt = updatedAt
	if settleDate != nil {
		t.SettleDate = settleDate
	}
	s.tradesByID[tradeID] = t
	return true, nil
}

func (s *stubRepo) FindTradesForUser(ctx context.Context, userID int64, asOf time.Time, statuses []models.TradeStatus) ([]models.Trade, error) {
	var out []models.Trade
	for _, t := range s.tradesByID {
		if t.UserID != userID || t.TradeDate.After(asOf) {
			continue
		}
		for _, st := range statuses {
			if t.TradeStatus == st {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}

func (s *stubRepo) FindSettleableTrades(ctx context.Context, today time.Time, limit int) ([]models.Trade, error) {
	var out []models.Trade
	for _, t := range s.tradesByID {
		if t.TradeStatus == models.TradeStatusConfirmed ||
			(t.TradeStatus == models.TradeStatusCreated && t.TradeDate.Before(today)) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *stubRepo) ListTrades(ctx context.Context, params repository.ListTradesParams) ([]models.Trade, error) {
	return nil, nil
}

func (s *stubRepo) InsertAlertRule(ctx context.Context, item *models.AlertRule) error { return nil }
func (s *stubRepo) ListEnabledAlertRules(ctx context.Context) ([]models.AlertRule, error) {
	return nil, nil
}
func (s *stubRepo) FindAlertRulesForUser(ctx context.Context, userID int64) ([]models.AlertRule, error) {
	return nil, nil
}
func (s *stubRepo) InsertAlertEvent(ctx context.Context, item *models.AlertEvent) (bool, error) {
	return true, nil
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
func (s *stubRepo) ListNAVSeries(ctx context.Context, fundCode string, start, end time.Time) ([]models.FundNAV, error) {
	return nil, nil
}
func (s *stubRepo) GetLatestNAV(ctx context.Context, fundCode string) (*models.FundNAV, error) {
	return nil, nil
}
func (s *stubRepo) InsertJobRunIdempotent(ctx context.Context, item *models.JobRun) (bool, error) {
	return true, nil
}
func (s *stubRepo) UpdateJobRunStatus(ctx context.Context, jobID uuid.UUID, status models.JobStatus, errMsg *string, at time.Time) error {
	return nil
}

var _ repository.Repository = (*stubRepo)(nil)
