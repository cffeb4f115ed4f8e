package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fundwatch/internal/models"
	"fundwatch/internal/repository"
)

// Service owns the trade log. Positions are always recomputed from it;
// nothing here stores holdings as mutable truth.
type Service struct {
	Repo   repository.Repository
	Logger *zap.Logger

	// Now supplies all timestamps so tests can pin the clock.
	Now func() time.Time
}

func NewService(repo repository.Repository, logger *zap.Logger) *Service {
	return &Service{
		Repo:   repo,
		Logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

type CreateTradeRequest struct {
	UserID      int64
	FundCode    string
	TradeType   models.TradeType
	Amount      *decimal.Decimal
	Shares      *decimal.Decimal
	NavPrice    decimal.Decimal
	TradeDate   time.Time
	ClientMsgID string
}

func (r *CreateTradeRequest) validate() error {
	r.FundCode = strings.TrimSpace(r.FundCode)
	if r.FundCode == "" {
		return fmt.Errorf("%w: fund code is required", ErrValidation)
	}
	if r.UserID <= 0 {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if !r.NavPrice.IsPositive() {
		return fmt.Errorf("%w: nav price must be positive", ErrValidation)
	}
	if r.TradeDate.IsZero() {
		return fmt.Errorf("%w: trade date is required", ErrValidation)
	}
	switch r.TradeType {
	case models.TradeTypeBuy, models.TradeTypeSIP:
		if r.Amount == nil || !r.Amount.IsPositive() {
			return fmt.Errorf("%w: %s requires a positive amount", ErrValidation, r.TradeType)
		}
	case models.TradeTypeSell:
		if r.Shares == nil || !r.Shares.IsPositive() {
			return fmt.Errorf("%w: sell requires positive shares", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown trade type %q", ErrValidation, r.TradeType)
	}
	return nil
}

// CreateTrade persists a trade request exactly once. A re-submission with
// the same logical fields returns the original row with existed=true; it is
// a success, not an error. Two concurrent submissions race on the unique
// idempotency key and exactly one wins the insert.
func (s *Service) CreateTrade(ctx context.Context, req CreateTradeRequest) (*models.Trade, bool, error) {
	if err := req.validate(); err != nil {
		return nil, false, err
	}

	key := IdempotencyKey(req.UserID, req.FundCode, req.TradeType, req.TradeDate, req.Amount, req.NavPrice, req.ClientMsgID)

	now := s.Now()
	trade := &models.Trade{
		TradeID:        uuid.New(),
		UserID:         req.UserID,
		FundCode:       req.FundCode,
		TradeType:      req.TradeType,
		Shares:         req.Shares,
		Amount:         req.Amount,
		NavPrice:       req.NavPrice,
		TradeDate:      req.TradeDate,
		TradeStatus:    models.TradeStatusCreated,
		IdempotencyKey: key,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	created, err := s.Repo.InsertTradeIdempotent(ctx, trade)
	if err != nil {
		return nil, false, fmt.Errorf("insert trade: %w", err)
	}
	if created {
		if s.Logger != nil {
			s.Logger.Info("trade created",
				zap.String("trade_id", trade.TradeID.String()),
				zap.Int64("user_id", trade.UserID),
				zap.String("fund_code", trade.FundCode),
				zap.String("trade_type", string(trade.TradeType)),
			)
		}
		return trade, false, nil
	}

	existing, err := s.Repo.FindTradeByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("load existing trade: %w", err)
	}
	if existing == nil {
		return nil, false, fmt.Errorf("insert conflicted but no row found for key %s", key)
	}
	return existing, true, nil
}

// ConfirmTrade moves a created trade to confirmed.
func (s *Service) ConfirmTrade(ctx context.Context, tradeID uuid.UUID) (*models.Trade, error) {
	return s.applyTransition(ctx, tradeID, models.TradeStatusConfirmed, nil)
}

// CancelTrade voids a trade that has not been confirmed yet.
func (s *Service) CancelTrade(ctx context.Context, tradeID uuid.UUID) (*models.Trade, error) {
	return s.applyTransition(ctx, tradeID, models.TradeStatusCancelled, nil)
}

// SettleTrade finalizes a confirmed trade, stamping its settle date. A
// trade still sitting in created with a trade date before today is settled
// too: it is confirmed first, then settled, matching the scheduler's
// relaxed same-day rule.
func (s *Service) SettleTrade(ctx context.Context, tradeID uuid.UUID) (*models.Trade, error) {
	trade, err := s.Repo.GetTradeByID(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("load trade: %w", err)
	}
	if trade == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, tradeID)
	}

	now := s.Now()
	today := now.Truncate(24 * time.Hour)

	if trade.TradeStatus == models.TradeStatusCreated && trade.TradeDate.Before(today) {
		confirmed, err := s.ConfirmTrade(ctx, tradeID)
		if err != nil {
			return nil, err
		}
		trade = confirmed
	}

	settleDate := today
	return s.applyTransitionOn(ctx, *trade, models.TradeStatusSettled, &settleDate)
}

func (s *Service) applyTransition(ctx context.Context, tradeID uuid.UUID, to models.TradeStatus, settleDate *time.Time) (*models.Trade, error) {
	trade, err := s.Repo.GetTradeByID(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("load trade: %w", err)
	}
	if trade == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, tradeID)
	}
	return s.applyTransitionOn(ctx, *trade, to, settleDate)
}

// applyTransitionOn validates the move in memory, then applies it as a
// conditional update keyed on the observed status. Losing the race to a
// concurrent writer that reached the same target is treated as a no-op.
func (s *Service) applyTransitionOn(ctx context.Context, trade models.Trade, to models.TradeStatus, settleDate *time.Time) (*models.Trade, error) {
	next, err := Transition(trade, to, s.Now())
	if err != nil {
		return nil, err
	}

	applied, err := s.Repo.UpdateTradeStatusConditional(ctx, trade.TradeID, trade.TradeStatus, to, settleDate, next.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update trade status: %w", err)
	}
	if !applied {
		current, err := s.Repo.GetTradeByID(ctx, trade.TradeID)
		if err != nil {
			return nil, fmt.Errorf("reload trade: %w", err)
		}
		if current != nil && current.TradeStatus == to {
			return current, nil
		}
		got := models.TradeStatus("gone")
		if current != nil {
			got = current.TradeStatus
		}
		return nil, fmt.Errorf("%w: %s -> %s (now %s)", ErrInvalidTransition, trade.TradeStatus, to, got)
	}

	if settleDate != nil {
		next.SettleDate = settleDate
	}
	if s.Logger != nil {
		s.Logger.Info("trade status updated",
			zap.String("trade_id", trade.TradeID.String()),
			zap.String("from", string(trade.TradeStatus)),
			zap.String("to", string(to)),
		)
	}
	return &next, nil
}

// GetPositions rebuilds the user's holdings from confirmed and settled
// trades dated on or before asOf. A nil asOf means today.
func (s *Service) GetPositions(ctx context.Context, userID int64, asOf *time.Time) (map[string]models.Position, error) {
	cutoff := s.Now().Truncate(24 * time.Hour)
	if asOf != nil {
		cutoff = *asOf
	}

	trades, err := s.Repo.FindTradesForUser(ctx, userID, cutoff,
		[]models.TradeStatus{models.TradeStatusConfirmed, models.TradeStatusSettled})
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}

	return RebuildPositions(trades, cutoff), nil
}
