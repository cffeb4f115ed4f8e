package alert

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fundwatch/internal/models"
	"fundwatch/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// Only the alert methods carry real behavior.
type stubRepo struct {
	rules  []models.AlertRule
	events []models.AlertEvent
}

func (s *stubRepo) InsertAlertRule(ctx context.Context, item *models.AlertRule) error {
	s.rules = append(s.rules, *item)
	return nil
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

func (s *stubRepo) FindAlertRulesForUser(ctx context.Context, userID int64) ([]models.AlertRule, error) {
	var out []models.AlertRule
	for _, r := range s.rules {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

// InsertAlertEvent mirrors the store's partial unique index: an active
// (pending/sent) row blocks another active row for the same dedup key.
func (s *stubRepo) InsertAlertEvent(ctx context.Context, item *models.AlertEvent) (bool, error) {
	active := item.Status == models.AlertStatusPending || item.Status == models.AlertStatusSent
	if active {
		for _, e := range s.events {
			if e.DedupKey == item.DedupKey &&
				(e.Status == models.AlertStatusPending || e.Status == models.AlertStatusSent) {
				return false, nil
			}
		}
	}
	s.events = append(s.events, *item)
	return true, nil
}

func (s *stubRepo) FindLatestAlertEventByDedupKey(ctx context.Context, key string) (*models.AlertEvent, error) {
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].DedupKey == key {
			e := s.events[i]
			return &e, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) UpdateAlertEventStatus(ctx context.Context, eventID uuid.UUID, status models.AlertStatus, sentAt *time.Time, errMsg *string) error {
	for i := range s.events {
		if s.events[i].EventID == eventID {
			s.events[i].Status = status
			if sentAt != nil {
				s.events[i].SentAt = sentAt
			}
			if errMsg != nil {
				s.events[i].Error = errMsg
			}
		}
	}
	return nil
}

func (s *stubRepo) ListPendingAlertEvents(ctx context.Context, limit int) ([]models.AlertEvent, error) {
	var out []models.AlertEvent
	for _, e := range s.events {
		if e.Status == models.AlertStatusPending {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubRepo) ListAlertEvents(ctx context.Context, params repository.ListAlertEventsParams) ([]models.AlertEvent, error) {
	return s.events, nil
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
