package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fundwatch/internal/models"
)

// Repository is the persistence contract consumed by the ledger, the alert
// engine and the jobs. Correctness under concurrent callers is pushed down
// here: idempotent inserts ride on unique constraints with conflict
// handling, and status transitions are conditional updates.
type Repository interface {
	// Trades.
	InsertTradeIdempotent(ctx context.Context, item *models.Trade) (created bool, err error)
	FindTradeByIdempotencyKey(ctx context.Context, key string) (*models.Trade, error)
	GetTradeByID(ctx context.Context, tradeID uuid.UUID) (*models.Trade, error)
	// UpdateTradeStatusConditional applies the transition only when the row
	// still holds the observed from-status; false means a concurrent writer
	// got there first and the caller should reload.
	UpdateTradeStatusConditional(ctx context.Context, tradeID uuid.UUID, from, to models.TradeStatus, settleDate *time.Time, updatedAt time.Time) (bool, error)
	FindTradesForUser(ctx context.Context, userID int64, asOf time.Time, statuses []models.TradeStatus) ([]models.Trade, error)
	FindSettleableTrades(ctx context.Context, today time.Time, limit int) ([]models.Trade, error)
	ListTrades(ctx context.Context, params ListTradesParams) ([]models.Trade, error)

	// Alert rules.
	InsertAlertRule(ctx context.Context, item *models.AlertRule) error
	ListEnabledAlertRules(ctx context.Context) ([]models.AlertRule, error)
	FindAlertRulesForUser(ctx context.Context, userID int64) ([]models.AlertRule, error)

	// Alert events. InsertAlertEvent reports false without error when an
	// active (pending/sent) event already holds the dedup key; the caller
	// decides how to record the losing trigger.
	InsertAlertEvent(ctx context.Context, item *models.AlertEvent) (created bool, err error)
	FindLatestAlertEventByDedupKey(ctx context.Context, key string) (*models.AlertEvent, error)
	UpdateAlertEventStatus(ctx context.Context, eventID uuid.UUID, status models.AlertStatus, sentAt *time.Time, errMsg *string) error
	ListPendingAlertEvents(ctx context.Context, limit int) ([]models.AlertEvent, error)
	ListAlertEvents(ctx context.Context, params ListAlertEventsParams) ([]models.AlertEvent, error)

	// Funds and NAV history.
	UpsertFund(ctx context.Context, item *models.Fund) error
	ListFunds(ctx context.Context) ([]models.Fund, error)
	UpsertFundNAV(ctx context.Context, item *models.FundNAV) error
	ListNAVSeries(ctx context.Context, fundCode string, start, end time.Time) ([]models.FundNAV, error)
	GetLatestNAV(ctx context.Context, fundCode string) (*models.FundNAV, error)

	// Job bookkeeping.
	InsertJobRunIdempotent(ctx context.Context, item *models.JobRun) (created bool, err error)
	UpdateJobRunStatus(ctx context.Context, jobID uuid.UUID, status models.JobStatus, errMsg *string, at time.Time) error
}

type ListTradesParams struct {
	Limit    int
	Offset   int
	UserID   *int64
	FundCode *string
	Status   *models.TradeStatus
	Since    *time.Time
	Until    *time.Time
	Asc      bool
}

type ListAlertEventsParams struct {
	Limit    int
	Offset   int
	UserID   *int64
	RuleID   *uuid.UUID
	FundCode *string
	Status   *models.AlertStatus
	Since    *time.Time
	Asc      bool
}
