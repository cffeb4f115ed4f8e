package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fundwatch/internal/ledger"
)

type PositionHandler struct {
	Ledger *ledger.Service
}

func (h *PositionHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/positions", h.list)
}

// list rebuilds holdings from the trade log on every call. There is no
// stored position to serve; staleness is bounded by the request itself.
func (h *PositionHandler) list(c *gin.Context) {
	if h.Ledger == nil {
		Error(c, http.StatusInternalServerError, "ledger unavailable", nil)
		return
	}
	userID := int64QueryPtr(c, "user_id")
	if userID == nil || *userID <= 0 {
		Error(c, http.StatusBadRequest, "user_id is required", nil)
		return
	}
	asOf := dateQueryPtr(c, "as_of")

	positions, err := h.Ledger.GetPositions(c.Request.Context(), *userID, asOf)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, positions, map[string]any{"funds": len(positions)})
}
