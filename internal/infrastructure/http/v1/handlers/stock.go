package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/domain/ledger"
	"pharmapos/internal/infrastructure/http/v1/dto"
	"pharmapos/internal/infrastructure/http/v1/middleware"
)

// StockHandler handles manual stock movement endpoints.
type StockHandler struct {
	*BaseHandler
	ledger *ledger.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, ledgerSvc *ledger.Service) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		ledger:      ledgerSvc,
	}
}

// AddStock handles POST /stock/:medicamentId/entries
func (h *StockHandler) AddStock(c *gin.Context) {
	h.record(c, ledger.TypeEntry)
}

// RemoveStock handles POST /stock/:medicamentId/exits
func (h *StockHandler) RemoveStock(c *gin.Context) {
	h.record(c, ledger.TypeExit)
}

// AdjustStock handles POST /stock/:medicamentId/adjustments
func (h *StockHandler) AdjustStock(c *gin.Context) {
	h.record(c, ledger.TypeAdjustment)
}

func (h *StockHandler) record(c *gin.Context, movementType ledger.MovementType) {
	ctx := c.Request.Context()

	medicamentID, ok := h.ParamID(c, "medicamentId")
	if !ok {
		return
	}

	var req dto.StockMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if req.Quantity == 0 {
		h.Error(c, apperror.NewValidation("quantity cannot be zero").WithDetail("field", "quantity"))
		return
	}

	userID := h.UserIDRef(c)

	var (
		m   *ledger.StockMovement
		err error
	)
	switch movementType {
	case ledger.TypeEntry:
		m, err = h.ledger.AddStock(ctx, medicamentID, req.Quantity, req.Reason, userID)
	case ledger.TypeExit:
		m, err = h.ledger.RemoveStock(ctx, medicamentID, req.Quantity, req.Reason, userID)
	default:
		m, err = h.ledger.AdjustStock(ctx, medicamentID, req.Quantity, req.Reason, userID)
	}
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, m)
}

// Reverse handles POST /stock/movements/:id/reverse
func (h *StockHandler) Reverse(c *gin.Context) {
	ctx := c.Request.Context()

	movementID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var req dto.ReverseMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	m, err := h.ledger.ReverseMovement(ctx, movementID, h.UserIDRef(c), req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, m)
}

// Movements handles GET /stock/movements?since=2026-01-01T00:00:00Z
func (h *StockHandler) Movements(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	since := time.Time{}
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid since timestamp").WithDetail("value", raw))
			return
		}
		since = parsed
	}

	result, err := h.ledger.MovementsSince(c.Request.Context(), since, q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// RegisterRoutes registers stock routes. All stock writes require the
// pharmacist or admin role.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	manage := middleware.RequireRole("admin", "pharmacien")

	rg.GET("/movements", h.Movements)
	rg.POST("/movements/:id/reverse", manage, h.Reverse)
	rg.POST("/:medicamentId/entries", manage, h.AddStock)
	rg.POST("/:medicamentId/exits", manage, h.RemoveStock)
	rg.POST("/:medicamentId/adjustments", manage, h.AdjustStock)
}
