package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fundwatch/internal/ledger"
	"fundwatch/internal/models"
	"fundwatch/internal/repository"
)

type TradeHandler struct {
	Ledger *ledger.Service
	Repo   repository.Repository
}

func (h *TradeHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/trades")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.POST("/:id/confirm", h.confirm)
	g.POST("/:id/cancel", h.cancel)
	g.POST("/:id/settle", h.settle)
}

type createTradeBody struct {
	UserID      int64            `json:"user_id" binding:"required"`
	FundCode    string           `json:"fund_code" binding:"required"`
	TradeType   string           `json:"trade_type" binding:"required"`
	Amount      *decimal.Decimal `json:"amount"`
	Shares      *decimal.Decimal `json:"shares"`
	NavPrice    decimal.Decimal  `json:"nav_price" binding:"required"`
	TradeDate   string           `json:"trade_date" binding:"required"`
	ClientMsgID string           `json:"client_msg_id"`
}

// create accepts a trade request. A duplicate of an earlier request is a
// success: the original row comes back with meta.existed=true and no new
// row is written.
func (h *TradeHandler) create(c *gin.Context) {
	if h.Ledger == nil {
		Error(c, http.StatusInternalServerError, "ledger unavailable", nil)
		return
	}
	var body createTradeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	tradeDate, err := time.Parse("2006-01-02", strings.TrimSpace(body.TradeDate))
	if err != nil {
		Error(c, http.StatusBadRequest, "trade_date must be YYYY-MM-DD", nil)
		return
	}

	trade, existed, err := h.Ledger.CreateTrade(c.Request.Context(), ledger.CreateTradeRequest{
		UserID:      body.UserID,
		FundCode:    body.FundCode,
		TradeType:   models.TradeType(strings.ToLower(strings.TrimSpace(body.TradeType))),
		Amount:      body.Amount,
		Shares:      body.Shares,
		NavPrice:    body.NavPrice,
		TradeDate:   tradeDate,
		ClientMsgID: body.ClientMsgID,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrValidation) {
			Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, trade, map[string]any{"existed": existed})
}

func (h *TradeHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListTradesParams{
		Limit:    intQuery(c, "limit", 50),
		Offset:   intQuery(c, "offset", 0),
		UserID:   int64QueryPtr(c, "user_id"),
		FundCode: strQueryPtr(c, "fund_code"),
		Since:    dateQueryPtr(c, "since"),
		Until:    dateQueryPtr(c, "until"),
		Asc:      strings.EqualFold(c.Query("order"), "asc"),
	}
	if v := strQueryPtr(c, "status"); v != nil {
		status := models.TradeStatus(strings.ToLower(*v))
		params.Status = &status
	}

	items, err := h.Repo.ListTrades(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"limit": params.Limit, "offset": params.Offset})
}

func (h *TradeHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid trade id", nil)
		return
	}
	trade, err := h.Repo.GetTradeByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if trade == nil {
		Error(c, http.StatusNotFound, "trade not found", nil)
		return
	}
	Ok(c, trade, nil)
}

func (h *TradeHandler) confirm(c *gin.Context) {
	h.transition(c, h.Ledger.ConfirmTrade)
}

func (h *TradeHandler) cancel(c *gin.Context) {
	h.transition(c, h.Ledger.CancelTrade)
}

func (h *TradeHandler) settle(c *gin.Context) {
	h.transition(c, h.Ledger.SettleTrade)
}

func (h *TradeHandler) transition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) (*models.Trade, error)) {
	if h.Ledger == nil {
		Error(c, http.StatusInternalServerError, "ledger unavailable", nil)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid trade id", nil)
		return
	}
	trade, err := fn(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			Error(c, http.StatusNotFound, err.Error(), nil)
		case errors.Is(err, ledger.ErrInvalidTransition):
			Error(c, http.StatusConflict, err.Error(), nil)
		default:
			Error(c, http.StatusBadGateway, err.Error(), nil)
		}
		return
	}
	Ok(c, trade, nil)
}
