package ledger

import (
	"fmt"
	"time"

	"fundwatch/internal/models"
)

// validTransitions is the full trade lifecycle. Settled, cancelled and
// failed are terminal.
var validTransitions = map[models.TradeStatus][]models.TradeStatus{
	models.TradeStatusCreated: {
		models.TradeStatusConfirmed,
		models.TradeStatusCancelled,
		models.TradeStatusFailed,
	},
	models.TradeStatusConfirmed: {
		models.TradeStatusSettled,
		models.TradeStatusFailed,
	},
	models.TradeStatusSettled:   {},
	models.TradeStatusCancelled: {},
	models.TradeStatusFailed:    {},
}

func CanTransition(from, to models.TradeStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition returns a copy of the trade with the new status and a refreshed
// updated_at. The input is never mutated, so readers holding the
// pre-transition value stay consistent.
func Transition(trade models.Trade, to models.TradeStatus, now time.Time) (models.Trade, error) {
	if !CanTransition(trade.TradeStatus, to) {
		return models.Trade{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, trade.TradeStatus, to)
	}
	out := trade
	out.TradeStatus = to
	out.UpdatedAt = now
	return out, nil
}
