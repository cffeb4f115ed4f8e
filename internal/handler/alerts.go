package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fundwatch/internal/alert"
	"fundwatch/internal/models"
	"fundwatch/internal/repository"
)

type AlertHandler struct {
	Engine *alert.Engine
	Repo   repository.Repository
}

func (h *AlertHandler) Register(r *gin.Engine) {
	rules := r.Group("/api/v1/alerts/rules")
	rules.GET("", h.listRules)
	rules.POST("", h.createRule)

	events := r.Group("/api/v1/alerts/events")
	events.GET("", h.listEvents)
	events.GET("/pending", h.listPending)
	events.POST("/:id/sent", h.markSent)
	events.POST("/:id/failed", h.markFailed)
}

type createRuleBody struct {
	UserID          int64             `json:"user_id" binding:"required"`
	FundCode        *string           `json:"fund_code"`
	RuleType        string            `json:"rule_type" binding:"required"`
	Params          models.RuleParams `json:"params"`
	CooldownSeconds int64             `json:"cooldown_seconds"`
}

func (h *AlertHandler) createRule(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "alert engine unavailable", nil)
		return
	}
	var body createRuleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	rule, err := h.Engine.CreateRule(c.Request.Context(), alert.CreateRuleRequest{
		UserID:          body.UserID,
		FundCode:        body.FundCode,
		RuleType:        models.AlertRuleType(strings.ToLower(strings.TrimSpace(body.RuleType))),
		Params:          body.Params,
		CooldownSeconds: body.CooldownSeconds,
	})
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	Ok(c, rule, nil)
}

func (h *AlertHandler) listRules(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "alert engine unavailable", nil)
		return
	}
	userID := int64QueryPtr(c, "user_id")
	if userID == nil || *userID <= 0 {
		Error(c, http.StatusBadRequest, "user_id is required", nil)
		return
	}
	rules, err := h.Engine.ListRules(c.Request.Context(), *userID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, rules, nil)
}

func (h *AlertHandler) listEvents(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListAlertEventsParams{
		Limit:    intQuery(c, "limit", 50),
		Offset:   intQuery(c, "offset", 0),
		UserID:   int64QueryPtr(c, "user_id"),
		FundCode: strQueryPtr(c, "fund_code"),
		Since:    dateQueryPtr(c, "since"),
		Asc:      strings.EqualFold(c.Query("order"), "asc"),
	}
	if v := strQueryPtr(c, "rule_id"); v != nil {
		if id, err := uuid.Parse(*v); err == nil {
			params.RuleID = &id
		}
	}
	if v := strQueryPtr(c, "status"); v != nil {
		status := models.AlertStatus(strings.ToLower(*v))
		params.Status = &status
	}

	items, err := h.Repo.ListAlertEvents(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"limit": params.Limit, "offset": params.Offset})
}

func (h *AlertHandler) listPending(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "alert engine unavailable", nil)
		return
	}
	items, err := h.Engine.GetPendingAlerts(c.Request.Context(), intQuery(c, "limit", 100))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *AlertHandler) markSent(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "alert engine unavailable", nil)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid event id", nil)
		return
	}
	if err := h.Engine.MarkSent(c.Request.Context(), id); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"event_id": id, "status": models.AlertStatusSent}, nil)
}

type markFailedBody struct {
	Reason string `json:"reason"`
}

func (h *AlertHandler) markFailed(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "alert engine unavailable", nil)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid event id", nil)
		return
	}
	var body markFailedBody
	_ = c.ShouldBindJSON(&body)
	if err := h.Engine.MarkFailed(c.Request.Context(), id, body.Reason); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"event_id": id, "status": models.AlertStatusFailed}, nil)
}
