package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fundwatch/internal/models"
	"fundwatch/internal/repository"
)

// Store implements repository.Repository on top of gorm/Postgres.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ repository.Repository = (*Store)(nil)

func (s *Store) InsertTradeIdempotent(ctx context.Context, item *models.Trade) (bool, error) {
	if item == nil {
		return false, errors.New("trade is nil")
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).
		Create(item)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) FindTradeByIdempotencyKey(ctx context.Context, key string) (*models.Trade, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("idempotency key is empty")
	}
	var out models.Trade
	err := s.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) GetTradeByID(ctx context.Context, tradeID uuid.UUID) (*models.Trade, error) {
	var out models.Trade
	err := s.db.WithContext(ctx).
		Where("trade_id = ?", tradeID).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) UpdateTradeStatusConditional(ctx context.Context, tradeID uuid.UUID, from, to models.TradeStatus, settleDate *time.Time, updatedAt time.Time) (bool, error) {
	updates := map[string]any{
		"trade_status": to,
		"updated_at":   updatedAt,
	}
	if settleDate != nil {
		updates["settle_date"] = *settleDate
	}
	res := s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("trade_id = ? AND trade_status = ?", tradeID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) FindTradesForUser(ctx context.Context, userID int64, asOf time.Time, statuses []models.TradeStatus) ([]models.Trade, error) {
	q := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("trade_date <= ?", asOf)
	if len(statuses) > 0 {
		q = q.Where("trade_status IN ?", statuses)
	}
	var out []models.Trade
	if err := q.Order("trade_date ASC, created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) FindSettleableTrades(ctx context.Context, today time.Time, limit int) ([]models.Trade, error) {
	if limit <= 0 {
		limit = 500
	}
	var out []models.Trade
	err := s.db.WithContext(ctx).
		Where("trade_status = ? OR (trade_status = ? AND trade_date < ?)",
			models.TradeStatusConfirmed, models.TradeStatusCreated, today).
		Order("trade_date ASC, created_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListTrades(ctx context.Context, params repository.ListTradesParams) ([]models.Trade, error) {
	q := s.db.WithContext(ctx).Model(&models.Trade{})
	if params.UserID != nil {
		q = q.Where("user_id = ?", *params.UserID)
	}
	if params.FundCode != nil && strings.TrimSpace(*params.FundCode) != "" {
		q = q.Where("fund_code = ?", strings.TrimSpace(*params.FundCode))
	}
	if params.Status != nil {
		q = q.Where("trade_status = ?", *params.Status)
	}
	if params.Since != nil {
		q = q.Where("trade_date >= ?", *params.Since)
	}
	if params.Until != nil {
		q = q.Where("trade_date <= ?", *params.Until)
	}
	order := "created_at DESC"
	if params.Asc {
		order = "created_at ASC"
	}
	limit := params.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []models.Trade
	if err := q.Order(order).Limit(limit).Offset(params.Offset).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) InsertAlertRule(ctx context.Context, item *models.AlertRule) error {
	if item == nil {
		return errors.New("alert rule is nil")
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListEnabledAlertRules(ctx context.Context) ([]models.AlertRule, error) {
	var out []models.AlertRule
	err := s.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) FindAlertRulesForUser(ctx context.Context, userID int64) ([]models.AlertRule, error) {
	var out []models.AlertRule
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// InsertAlertEvent rides on the partial unique index over active dedup
// keys: a pending insert that collides with an existing pending/sent row
// is dropped by the database, not raced in application code.
func (s *Store) InsertAlertEvent(ctx context.Context, item *models.AlertEvent) (bool, error) {
	if item == nil {
		return false, errors.New("alert event is nil")
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "dedup_key"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "status IN ('pending','sent')"}}},
			DoNothing:   true,
		}).
		Create(item)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) FindLatestAlertEventByDedupKey(ctx context.Context, key string) (*models.AlertEvent, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("dedup key is empty")
	}
	var out models.AlertEvent
	err := s.db.WithContext(ctx).
		Where("dedup_key = ?", key).
		Order("created_at DESC").
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) UpdateAlertEventStatus(ctx context.Context, eventID uuid.UUID, status models.AlertStatus, sentAt *time.Time, errMsg *string) error {
	updates := map[string]any{"status": status}
	if sentAt != nil {
		updates["sent_at"] = *sentAt
	}
	if errMsg != nil {
		updates["error"] = *errMsg
	}
	return s.db.WithContext(ctx).
		Model(&models.AlertEvent{}).
		Where("event_id = ?", eventID).
		Updates(updates).Error
}

func (s *Store) ListPendingAlertEvents(ctx context.Context, limit int) ([]models.AlertEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []models.AlertEvent
	err := s.db.WithContext(ctx).
		Where("status = ?", models.AlertStatusPending).
		Order("triggered_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListAlertEvents(ctx context.Context, params repository.ListAlertEventsParams) ([]models.AlertEvent, error) {
	q := s.db.WithContext(ctx).Model(&models.AlertEvent{})
	if params.UserID != nil {
		q = q.Where("user_id = ?", *params.UserID)
	}
	if params.RuleID != nil {
		q = q.Where("rule_id = ?", *params.RuleID)
	}
	if params.FundCode != nil && strings.TrimSpace(*params.FundCode) != "" {
		q = q.Where("fund_code = ?", strings.TrimSpace(*params.FundCode))
	}
	if params.Status != nil {
		q = q.Where("status = ?", *params.Status)
	}
	if params.Since != nil {
		q = q.Where("triggered_at >= ?", *params.Since)
	}
	order := "created_at DESC"
	if params.Asc {
		order = "created_at ASC"
	}
	limit := params.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []models.AlertEvent
	if err := q.Order(order).Limit(limit).Offset(params.Offset).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UpsertFund(ctx context.Context, item *models.Fund) error {
	if item == nil {
		return errors.New("fund is nil")
	}
	item.FundCode = strings.TrimSpace(item.FundCode)
	if item.FundCode == "" {
		return errors.New("fund code is empty")
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "fund_code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "fund_type", "currency", "updated_at"}),
		}).
		Create(item).Error
}

func (s *Store) ListFunds(ctx context.Context) ([]models.Fund, error) {
	var out []models.Fund
	if err := s.db.WithContext(ctx).Order("fund_code ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UpsertFundNAV(ctx context.Context, item *models.FundNAV) error {
	if item == nil {
		return errors.New("nav row is nil")
	}
	item.FundCode = strings.TrimSpace(item.FundCode)
	if item.FundCode == "" {
		return errors.New("fund code is empty")
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "fund_code"}, {Name: "nav_date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"nav", "acc_nav", "daily_pct", "data_source", "last_updated_at", "quality_flags",
			}),
		}).
		Create(item).Error
}

func (s *Store) ListNAVSeries(ctx context.Context, fundCode string, start, end time.Time) ([]models.FundNAV, error) {
	fundCode = strings.TrimSpace(fundCode)
	if fundCode == "" {
		return nil, errors.New("fund code is empty")
	}
	q := s.db.WithContext(ctx).Where("fund_code = ?", fundCode)
	if !start.IsZero() {
		q = q.Where("nav_date >= ?", start)
	}
	if !end.IsZero() {
		q = q.Where("nav_date <= ?", end)
	}
	var out []models.FundNAV
	if err := q.Order("nav_date ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetLatestNAV(ctx context.Context, fundCode string) (*models.FundNAV, error) {
	fundCode = strings.TrimSpace(fundCode)
	if fundCode == "" {
		return nil, errors.New("fund code is empty")
	}
	var out models.FundNAV
	err := s.db.WithContext(ctx).
		Where("fund_code = ?", fundCode).
		Order("nav_date DESC").
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) InsertJobRunIdempotent(ctx context.Context, item *models.JobRun) (bool, error) {
	if item == nil {
		return false, errors.New("job run is nil")
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).
		Create(item)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) UpdateJobRunStatus(ctx context.Context, jobID uuid.UUID, status models.JobStatus, errMsg *string, at time.Time) error {
	updates := map[string]any{"status": status}
	switch status {
	case models.JobStatusRunning:
		updates["started_at"] = at
		updates["attempt"] = gorm.Expr("attempt + 1")
	case models.JobStatusCompleted, models.JobStatusFailed, models.JobStatusCancelled:
		updates["finished_at"] = at
	}
	if errMsg != nil {
		updates["error"] = *errMsg
	}
	return s.db.WithContext(ctx).
		Model(&models.JobRun{}).
		Where("job_id = ?", jobID).
		Updates(updates).Error
}
