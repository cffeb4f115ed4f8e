package jobs

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"fundwatch/internal/models"
)

const defaultWindowDays = 30

// checkAlerts evaluates every enabled rule against a fresh NAV window. A
// rule whose fund has no data is skipped, not failed: one dead fund must
// never silence the rest of the cycle.
func (s *Scheduler) checkAlerts(ctx context.Context) error {
	rules, err := s.Repo.ListEnabledAlertRules(ctx)
	if err != nil {
		return err
	}

	now := s.Now()
	triggered := 0
	for _, rule := range rules {
		event, err := s.checkOne(ctx, rule, now)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("rule check skipped",
					zap.String("rule_id", rule.RuleID.String()),
					zap.String("rule_type", string(rule.RuleType)),
					zap.Error(err),
				)
			}
			continue
		}
		if event != nil && event.Status != models.AlertStatusSuppressed {
			triggered++
		}
	}

	if s.Logger != nil {
		s.Logger.Info("alert check finished",
			zap.Int("rules", len(rules)),
			zap.Int("triggered", triggered),
		)
	}
	return nil
}

func (s *Scheduler) checkOne(ctx context.Context, rule models.AlertRule, now time.Time) (*models.AlertEvent, error) {
	fundCode := ""
	if rule.FundCode != nil {
		fundCode = strings.TrimSpace(*rule.FundCode)
	}
	if fundCode == "" {
		if len(s.MonitoredFunds) == 0 {
			return nil, nil
		}
		fundCode = s.MonitoredFunds[0]
	}

	windowDays := rule.Params.Data().WindowDays
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	lookback := s.LookbackFactor
	if lookback <= 0 {
		lookback = 2
	}

	end := now.Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -windowDays*lookback)

	navSeries, err := s.navWindow(ctx, fundCode, start, end, windowDays)
	if err != nil {
		return nil, err
	}
	if len(navSeries) == 0 {
		// No data anywhere for this fund. Evaluating against a fabricated
		// NAV of zero would poison the audit trail, so the rule is skipped.
		if s.Logger != nil {
			s.Logger.Warn("no nav data for rule, skipping",
				zap.String("rule_id", rule.RuleID.String()),
				zap.String("fund_code", fundCode),
			)
		}
		return nil, nil
	}
	currentNav := navSeries[len(navSeries)-1]

	return s.Alerts.CheckRule(ctx, rule, currentNav, navSeries, now)
}

// navWindow reads the synced timeseries first and only reaches for the
// provider when the store has nothing for the range.
func (s *Scheduler) navWindow(ctx context.Context, fundCode string, start, end time.Time, windowDays int) ([]float64, error) {
	stored, err := s.Repo.ListNAVSeries(ctx, fundCode, start, end)
	if err != nil {
		return nil, err
	}
	if len(stored) > 0 {
		if len(stored) > windowDays {
			stored = stored[len(stored)-windowDays:]
		}
		out := make([]float64, 0, len(stored))
		for _, row := range stored {
			out = append(out, row.Nav.InexactFloat64())
		}
		return out, nil
	}

	history, err := s.Provider.FetchNAVHistory(ctx, fundCode, start, end)
	if err != nil {
		return nil, err
	}
	if len(history) > windowDays {
		history = history[len(history)-windowDays:]
	}
	out := make([]float64, 0, len(history))
	for _, nav := range history {
		out = append(out, nav.Nav.InexactFloat64())
	}
	return out, nil
}
