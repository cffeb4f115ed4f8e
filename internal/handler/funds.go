package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fundwatch/internal/marketdata"
	"fundwatch/internal/models"
	"fundwatch/internal/repository"
)

type FundHandler struct {
	Repo     repository.Repository
	Provider marketdata.Provider
}

func (h *FundHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/funds")
	g.GET("", h.list)
	g.POST("", h.register)
	g.GET("/:code/nav", h.navSeries)
	g.GET("/:code/nav/latest", h.latestNAV)
}

func (h *FundHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	funds, err := h.Repo.ListFunds(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, funds, nil)
}

type registerFundBody struct {
	FundCode string `json:"fund_code" binding:"required"`
	Name     string `json:"name"`
}

// register stores a fund for monitoring. When the name is omitted it is
// looked up from the data source.
func (h *FundHandler) register(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var body registerFundBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	fund := &models.Fund{
		FundCode: strings.TrimSpace(body.FundCode),
		Name:     strings.TrimSpace(body.Name),
		FundType: models.FundTypeMutual,
		Currency: "CNY",
	}
	if fund.Name == "" && h.Provider != nil {
		info, err := h.Provider.FetchFundInfo(c.Request.Context(), fund.FundCode)
		if err != nil {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
		fund.Name = info.Name
		fund.FundType = info.FundType
		fund.Currency = info.Currency
	}
	if fund.Name == "" {
		Error(c, http.StatusBadRequest, "name is required", nil)
		return
	}

	if err := h.Repo.UpsertFund(c.Request.Context(), fund); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, fund, nil)
}

func (h *FundHandler) navSeries(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	code := strings.TrimSpace(c.Param("code"))

	var start, end time.Time
	if v := dateQueryPtr(c, "start"); v != nil {
		start = *v
	}
	if v := dateQueryPtr(c, "end"); v != nil {
		end = *v
	}

	series, err := h.Repo.ListNAVSeries(c.Request.Context(), code, start, end)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, series, map[string]any{"points": len(series)})
}

func (h *FundHandler) latestNAV(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	code := strings.TrimSpace(c.Param("code"))
	nav, err := h.Repo.GetLatestNAV(c.Request.Context(), code)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if nav == nil {
		Error(c, http.StatusNotFound, "no nav data", nil)
		return
	}
	Ok(c, nav, nil)
}
