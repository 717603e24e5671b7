package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/domain/reports"
	"pharmapos/internal/infrastructure/http/v1/dto"
)

// ReportsHandler handles reporting endpoints.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// reportDay parses the optional date query parameter, defaulting to today.
func (h *ReportsHandler) reportDay(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return time.Now(), true
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid date, expected YYYY-MM-DD").WithDetail("value", raw))
		return time.Time{}, false
	}
	return day, true
}

// DailySales handles GET /reports/daily-sales?date=2026-08-31
func (h *ReportsHandler) DailySales(c *gin.Context) {
	day, ok := h.reportDay(c)
	if !ok {
		return
	}

	summary, err := h.service.DailySales(c.Request.Context(), day)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, summary)
}

// DailySalesRows handles GET /reports/daily-sales/rows?date=2026-08-31
func (h *ReportsHandler) DailySalesRows(c *gin.Context) {
	day, ok := h.reportDay(c)
	if !ok {
		return
	}

	rows, err := h.service.DailySalesRows(c.Request.Context(), day)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": rows})
}

// ClientTiers handles GET /reports/client-tiers
func (h *ReportsHandler) ClientTiers(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	tiers, err := h.service.ClientTiers(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": tiers})
}

// StockStats handles GET /reports/stock-stats
func (h *ReportsHandler) StockStats(c *gin.Context) {
	stats, err := h.service.StockStats(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, stats)
}

// RegisterRoutes registers report routes.
func (h *ReportsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/daily-sales", h.DailySales)
	rg.GET("/daily-sales/rows", h.DailySalesRows)
	rg.GET("/client-tiers", h.ClientTiers)
	rg.GET("/stock-stats", h.StockStats)
}
