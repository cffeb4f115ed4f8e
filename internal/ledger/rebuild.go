package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fundwatch/internal/models"
)

// RebuildPositions folds a trade log into per-fund holdings as of a cutoff
// date. The fold is pure and deterministic: same trades and cutoff always
// yield the same positions, which is what makes holdings auditable instead
// of stored state. Trades that are not confirmed/settled, dated after the
// cutoff, or missing their required quantity are skipped, never raised.
func RebuildPositions(trades []models.Trade, asOf time.Time) map[string]models.Position {
	sorted := make([]models.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TradeDate.Before(sorted[j].TradeDate)
	})

	positions := make(map[string]models.Position)

	for _, trade := range sorted {
		if trade.TradeStatus != models.TradeStatusConfirmed && trade.TradeStatus != models.TradeStatusSettled {
			continue
		}
		if trade.TradeDate.After(asOf) {
			continue
		}

		pos, ok := positions[trade.FundCode]
		if !ok {
			pos = models.Position{
				UserID:   trade.UserID,
				FundCode: trade.FundCode,
				AsOfDate: asOf,
			}
		}

		switch trade.TradeType {
		case models.TradeTypeBuy, models.TradeTypeSIP:
			if trade.Amount == nil || !trade.NavPrice.IsPositive() {
				continue
			}
			pos.Shares = pos.Shares.Add(trade.Amount.Div(trade.NavPrice))
			pos.TotalCost = pos.TotalCost.Add(*trade.Amount)

		case models.TradeTypeSell:
			if trade.Shares == nil {
				continue
			}
			sold := *trade.Shares
			pos.Shares = pos.Shares.Sub(sold)
			// Cost basis shrinks by the sold fraction. The ratio uses the
			// post-sale share count in its denominator; this matches the
			// ledger's historical accounting and is kept as-is pending a
			// review of partial-sell cost treatment.
			if pos.Shares.Sign() >= 0 {
				if denom := pos.Shares.Add(sold); denom.IsPositive() {
					ratio := sold.Div(denom)
					pos.TotalCost = pos.TotalCost.Sub(pos.TotalCost.Mul(ratio))
				}
			}
		}

		positions[trade.FundCode] = pos
	}

	for code, pos := range positions {
		if pos.Shares.IsPositive() {
			pos.AvgCost = pos.TotalCost.Div(pos.Shares)
		} else {
			pos.AvgCost = decimal.Zero
		}
		positions[code] = pos
	}

	return positions
}

// UnrealizedPnL values an open position against the current NAV. Returns
// nil when the position or inputs cannot be valued.
func UnrealizedPnL(shares, avgCost, currentNav decimal.Decimal) *decimal.Decimal {
	if !shares.IsPositive() || !avgCost.IsPositive() || !currentNav.IsPositive() {
		return nil
	}
	pnl := currentNav.Sub(avgCost).Mul(shares)
	return &pnl
}
