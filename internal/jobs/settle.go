package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// settleTrades finalizes everything eligible: confirmed trades, plus
// created trades whose trade date has passed (the T+1 catch-up). Failures
// are per-trade; the batch keeps going.
func (s *Scheduler) settleTrades(ctx context.Context) error {
	today := s.Now().Truncate(24 * time.Hour)

	trades, err := s.Repo.FindSettleableTrades(ctx, today, s.SettleBatch)
	if err != nil {
		return err
	}

	settled := 0
	for _, trade := range trades {
		if _, err := s.Ledger.SettleTrade(ctx, trade.TradeID); err != nil {
			if s.Logger != nil {
				s.Logger.Warn("settle failed",
					zap.String("trade_id", trade.TradeID.String()),
					zap.Error(err),
				)
			}
			continue
		}
		settled++
	}

	if s.Logger != nil {
		s.Logger.Info("settle finished",
			zap.Int("settled", settled),
			zap.Int("eligible", len(trades)),
		)
	}
	return nil
}
