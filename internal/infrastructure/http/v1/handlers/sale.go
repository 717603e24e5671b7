package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pharmapos/internal/domain/ledger"
	"pharmapos/internal/domain/sale"
	"pharmapos/internal/infrastructure/http/v1/dto"
)

// SaleHandler handles checkout and sale history endpoints.
type SaleHandler struct {
	*BaseHandler
	processor *sale.Processor
	canceller *sale.CancellationHandler
	ledger    *ledger.Service
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(base *BaseHandler, processor *sale.Processor, canceller *sale.CancellationHandler, ledgerSvc *ledger.Service) *SaleHandler {
	return &SaleHandler{
		BaseHandler: base,
		processor:   processor,
		canceller:   canceller,
		ledger:      ledgerSvc,
	}
}

// Create handles POST /sales
func (h *SaleHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	operatorID, ok := h.UserID(c)
	if !ok {
		return
	}

	var req dto.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	s, err := h.processor.ProcessSale(ctx, req.ToProcessRequest(operatorID))
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, s)
}

// Get handles GET /sales/:id
func (h *SaleHandler) Get(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	s, err := h.processor.Get(c.Request.Context(), id)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, s)
}

// GetByNumber handles GET /sales/number/:number
func (h *SaleHandler) GetByNumber(c *gin.Context) {
	s, err := h.processor.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, s)
}

// List handles GET /sales
func (h *SaleHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.processor.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// Today handles GET /sales/today
func (h *SaleHandler) Today(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.processor.ListToday(c.Request.Context(), time.Now(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// Cancel handles POST /sales/:id/cancel
func (h *SaleHandler) Cancel(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	operatorID, ok := h.UserID(c)
	if !ok {
		return
	}

	var req dto.CancelSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	s, err := h.canceller.CancelSale(ctx, id, operatorID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, s)
}

// Movements handles GET /sales/:id/movements
func (h *SaleHandler) Movements(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	movements, err := h.ledger.MovementsBySale(c.Request.Context(), id)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": movements})
}

// RegisterRoutes registers sale routes.
func (h *SaleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/today", h.Today)
	rg.GET("/number/:number", h.GetByNumber)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/movements", h.Movements)
	rg.POST("/:id/cancel", h.Cancel)
}
