package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"fundwatch/internal/models"
	"fundwatch/internal/repository"
)

// allFunds is the fund code recorded on events from rules that watch
// every monitored fund.
const allFunds = "ALL"

// Engine evaluates alert rules against NAV data and records every trigger
// outcome, suppressed ones included, so the audit trail is complete.
type Engine struct {
	Repo   repository.Repository
	Logger *zap.Logger

	Now func() time.Time
}

func NewEngine(repo repository.Repository, logger *zap.Logger) *Engine {
	return &Engine{
		Repo:   repo,
		Logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// CheckRule evaluates one rule against the fund's current NAV and history.
// A non-trigger returns (nil, nil): nothing is persisted and no dedup work
// happens. A trigger inside the cooldown window of the latest SENT event
// sharing its dedup key is persisted as a new SUPPRESSED event rather than
// dropped. Everything else is persisted as PENDING, awaiting dispatch. At
// most one pending/sent event may hold a dedup key at a time; a trigger
// that loses that insert race is downgraded to SUPPRESSED as well.
func (e *Engine) CheckRule(ctx context.Context, rule models.AlertRule, currentNav float64, navSeries []float64, triggeredAt time.Time) (*models.AlertEvent, error) {
	params := rule.Params.Data()

	var (
		triggered bool
		payload   map[string]any
	)

	switch rule.RuleType {
	case models.AlertRuleThreshold:
		triggered = EvaluateThreshold(currentNav, params)
		payload = map[string]any{"current_nav": currentNav, "threshold": params.ThresholdValue}

	case models.AlertRuleDrawdown:
		var drawdown float64
		triggered, drawdown = EvaluateDrawdown(navSeries, params)
		payload = map[string]any{"drawdown_pct": drawdown, "threshold_pct": params.ThresholdPct}

	case models.AlertRuleVolatility:
		var vol float64
		triggered, vol = EvaluateVolatility(navSeries, params)
		payload = map[string]any{"volatility_pct": vol, "threshold_pct": params.ThresholdPct}

	case models.AlertRuleNewHigh:
		triggered = EvaluateNewHigh(navSeries)
		payload = map[string]any{"current_nav": currentNav, "is_new_high": triggered}

	case models.AlertRuleNewLow:
		triggered = EvaluateNewLow(navSeries)
		payload = map[string]any{"current_nav": currentNav, "is_new_low": triggered}

	default:
		return nil, fmt.Errorf("unknown rule type %q", rule.RuleType)
	}

	if !triggered {
		return nil, nil
	}

	fundCode := allFunds
	if rule.FundCode != nil && strings.TrimSpace(*rule.FundCode) != "" {
		fundCode = strings.TrimSpace(*rule.FundCode)
	}

	dedupKey := DedupKey(rule.UserID, fundCode, rule.RuleType, rule.CooldownSeconds, triggeredAt)

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	event := &models.AlertEvent{
		EventID:     uuid.New(),
		RuleID:      rule.RuleID,
		UserID:      rule.UserID,
		FundCode:    fundCode,
		RuleType:    rule.RuleType,
		TriggeredAt: triggeredAt,
		Payload:     datatypes.JSON(payloadJSON),
		DedupKey:    dedupKey,
		Status:      models.AlertStatusPending,
		CreatedAt:   e.Now(),
	}

	latest, err := e.Repo.FindLatestAlertEventByDedupKey(ctx, dedupKey)
	if err != nil {
		return nil, fmt.Errorf("lookup dedup key: %w", err)
	}
	if latest != nil && latest.Status == models.AlertStatusSent && latest.SentAt != nil {
		if triggeredAt.Sub(*latest.SentAt) < time.Duration(rule.CooldownSeconds)*time.Second {
			event.Status = models.AlertStatusSuppressed
		}
	}

	created, err := e.Repo.InsertAlertEvent(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("insert alert event: %w", err)
	}
	if !created {
		// Another check already holds the active slot for this dedup key,
		// so this trigger is the race loser. It still leaves an audit row.
		event.Status = models.AlertStatusSuppressed
		if _, err := e.Repo.InsertAlertEvent(ctx, event); err != nil {
			return nil, fmt.Errorf("insert suppressed alert event: %w", err)
		}
	}

	if e.Logger != nil {
		e.Logger.Info("alert triggered",
			zap.String("event_id", event.EventID.String()),
			zap.String("rule_id", rule.RuleID.String()),
			zap.String("rule_type", string(rule.RuleType)),
			zap.String("fund_code", fundCode),
			zap.String("status", string(event.Status)),
		)
	}
	return event, nil
}

type CreateRuleRequest struct {
	UserID          int64
	FundCode        *string
	RuleType        models.AlertRuleType
	Params          models.RuleParams
	CooldownSeconds int64
}

func (e *Engine) CreateRule(ctx context.Context, req CreateRuleRequest) (*models.AlertRule, error) {
	if req.UserID <= 0 {
		return nil, errors.New("user id is required")
	}
	switch req.RuleType {
	case models.AlertRuleThreshold, models.AlertRuleDrawdown, models.AlertRuleVolatility,
		models.AlertRuleNewHigh, models.AlertRuleNewLow:
	default:
		return nil, fmt.Errorf("unknown rule type %q", req.RuleType)
	}
	if req.CooldownSeconds <= 0 {
		req.CooldownSeconds = 3600
	}

	now := e.Now()
	rule := &models.AlertRule{
		RuleID:          uuid.New(),
		UserID:          req.UserID,
		FundCode:        req.FundCode,
		RuleType:        req.RuleType,
		Params:          datatypes.NewJSONType(req.Params),
		Enabled:         true,
		CooldownSeconds: req.CooldownSeconds,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := e.Repo.InsertAlertRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("insert alert rule: %w", err)
	}
	return rule, nil
}

func (e *Engine) ListRules(ctx context.Context, userID int64) ([]models.AlertRule, error) {
	return e.Repo.FindAlertRulesForUser(ctx, userID)
}

// GetPendingAlerts returns events awaiting dispatch, oldest trigger first.
func (e *Engine) GetPendingAlerts(ctx context.Context, limit int) ([]models.AlertEvent, error) {
	return e.Repo.ListPendingAlertEvents(ctx, limit)
}

// MarkSent finalizes a dispatched event. The write is unconditional; the
// delivery mechanism owns ordering.
func (e *Engine) MarkSent(ctx context.Context, eventID uuid.UUID) error {
	sentAt := e.Now()
	return e.Repo.UpdateAlertEventStatus(ctx, eventID, models.AlertStatusSent, &sentAt, nil)
}

func (e *Engine) MarkFailed(ctx context.Context, eventID uuid.UUID, reason string) error {
	return e.Repo.UpdateAlertEventStatus(ctx, eventID, models.AlertStatusFailed, nil, &reason)
}
