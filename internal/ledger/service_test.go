package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"fundwatch/internal/models"
)

func newTestService(repo *stubRepo, now time.Time) *Service {
	svc := NewService(repo, nil)
	svc.Now = func() time.Time { return now }
	return svc
}

func buyRequest() CreateTradeRequest {
	return CreateTradeRequest{
		UserID:      1,
		FundCode:    "110011",
		TradeType:   models.TradeTypeBuy,
		Amount:      dp("1000"),
		NavPrice:    d("1.5"),
		TradeDate:   day("2024-01-25"),
		ClientMsgID: "msg-1",
	}
}

func TestCreateTradeIdempotent(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, day("2024-01-25"))
	ctx := context.Background()

	first, existed, err := svc.CreateTrade(ctx, buyRequest())
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if existed {
		t.Fatalf("first create reported existed")
	}

	second, existed, err := svc.CreateTrade(ctx, buyRequest())
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if !existed {
		t.Fatalf("duplicate create not reported as existing")
	}
	if first.TradeID != second.TradeID {
		t.Fatalf("duplicate created a second trade: %s vs %s", first.TradeID, second.TradeID)
	}
	if len(repo.tradesByID) != 1 {
		t.Fatalf("expected exactly one stored row, got %d", len(repo.tradesByID))
	}
}

func TestCreateTradeValidation(t *testing.T) {
	svc := newTestService(newStubRepo(), day("2024-01-25"))
	ctx := context.Background()

	req := buyRequest()
	req.Amount = nil
	if _, _, err := svc.CreateTrade(ctx, req); !errors.Is(err, ErrValidation) {
		t.Fatalf("buy without amount: got %v, want ErrValidation", err)
	}

	req = buyRequest()
	req.TradeType = models.TradeTypeSell
	req.Shares = nil
	if _, _, err := svc.CreateTrade(ctx, req); !errors.Is(err, ErrValidation) {
		t.Fatalf("sell without shares: got %v, want ErrValidation", err)
	}

	req = buyRequest()
	req.NavPrice = d("0")
	if _, _, err := svc.CreateTrade(ctx, req); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero nav: got %v, want ErrValidation", err)
	}
}

func TestSettleRoundTrip(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, day("2024-01-26"))
	ctx := context.Background()

	trade, _, err := svc.CreateTrade(ctx, buyRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.ConfirmTrade(ctx, trade.TradeID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	settled, err := svc.SettleTrade(ctx, trade.TradeID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settled.TradeStatus != models.TradeStatusSettled {
		t.Fatalf("status = %s, want settled", settled.TradeStatus)
	}
	if settled.SettleDate == nil {
		t.Fatalf("settle_date not set")
	}
}

func TestSettleCreatedTradeFromYesterday(t *testing.T) {
	// The settlement job also picks up trades that never got an explicit
	// confirmation, as long as their trade date has passed.
	repo := newStubRepo()
	svc := newTestService(repo, day("2024-01-26"))
	ctx := context.Background()

	trade, _, err := svc.CreateTrade(ctx, buyRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	settled, err := svc.SettleTrade(ctx, trade.TradeID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settled.TradeStatus != models.TradeStatusSettled {
		t.Fatalf("status = %s, want settled", settled.TradeStatus)
	}
}

func TestSettleSameDayCreatedTradeRejected(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, day("2024-01-25"))
	ctx := context.Background()

	trade, _, err := svc.CreateTrade(ctx, buyRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.SettleTrade(ctx, trade.TradeID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("same-day created trade settled: got %v, want ErrInvalidTransition", err)
	}
}

func TestSettleMissingTrade(t *testing.T) {
	svc := newTestService(newStubRepo(), day("2024-01-26"))
	if _, err := svc.SettleTrade(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestGetPositions(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, day("2024-01-27"))
	ctx := context.Background()

	trade, _, err := svc.CreateTrade(ctx, buyRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.ConfirmTrade(ctx, trade.TradeID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	positions, err := svc.GetPositions(ctx, 1, nil)
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	pos, ok := positions["110011"]
	if !ok {
		t.Fatalf("no position for fund")
	}
	want := d("1000").Div(d("1.5"))
	if !pos.Shares.Sub(want).Abs().LessThan(d("0.0001")) {
		t.Fatalf("shares = %s, want ~%s", pos.Shares, want)
	}

	// Created trades never count toward holdings.
	if _, _, err := svc.CreateTrade(ctx, CreateTradeRequest{
		UserID:    1,
		FundCode:  "161725",
		TradeType: models.TradeTypeBuy,
		Amount:    dp("500"),
		NavPrice:  d("2.0"),
		TradeDate: day("2024-01-26"),
	}); err != nil {
		t.Fatalf("create second: %v", err)
	}
	positions, err = svc.GetPositions(ctx, 1, nil)
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	if _, ok := positions["161725"]; ok {
		t.Fatalf("created trade leaked into positions")
	}
}
