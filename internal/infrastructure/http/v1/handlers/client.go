package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmapos/internal/domain/client"
	"pharmapos/internal/domain/loyalty"
	"pharmapos/internal/domain/sale"
	"pharmapos/internal/infrastructure/http/v1/dto"
)

// ClientHandler handles client registry endpoints.
type ClientHandler struct {
	*BaseHandler
	service *client.Service
	loyalty *loyalty.Engine
	sales   *sale.Processor
}

// NewClientHandler creates a new client handler.
func NewClientHandler(base *BaseHandler, service *client.Service, engine *loyalty.Engine, sales *sale.Processor) *ClientHandler {
	return &ClientHandler{
		BaseHandler: base,
		service:     service,
		loyalty:     engine,
		sales:       sales,
	}
}

// Create handles POST /clients
func (h *ClientHandler) Create(c *gin.Context) {
	var req dto.CreateClientRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cl := req.ToClient()
	if err := h.service.Create(c.Request.Context(), cl); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, cl.ID)
}

// Get handles GET /clients/:id
func (h *ClientHandler) Get(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	cl, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, cl)
}

// Update handles PUT /clients/:id
func (h *ClientHandler) Update(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateClientRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cl := req.ToClient(id)
	if err := h.service.Update(c.Request.Context(), cl); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, cl)
}

// Delete handles DELETE /clients/:id
func (h *ClientHandler) Delete(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// List handles GET /clients
func (h *ClientHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// LoyaltyStatus handles GET /clients/:id/loyalty
func (h *ClientHandler) LoyaltyStatus(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	cl, err := h.service.Get(ctx, id)
	if err != nil {
		h.Error(c, err)
		return
	}

	tier, err := h.loyalty.ResolveTier(ctx, cl.LoyaltyPoints)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.LoyaltyStatusResponse{
		ClientID:        cl.ID,
		LoyaltyPoints:   cl.LoyaltyPoints,
		TotalSpent:      cl.TotalSpent,
		TierName:        tier.Name,
		DiscountPercent: tier.DiscountPercent,
	}

	next, pointsToNext, err := h.loyalty.NextTier(ctx, cl.LoyaltyPoints)
	if err != nil {
		h.Error(c, err)
		return
	}
	if next != nil {
		resp.NextTierName = &next.Name
		resp.PointsToNext = &pointsToNext
	}

	h.OK(c, resp)
}

// Sales handles GET /clients/:id/sales
func (h *ClientHandler) Sales(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.sales.ListByClient(c.Request.Context(), id, q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// RegisterRoutes registers client routes.
func (h *ClientHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.GET("/:id/loyalty", h.LoyaltyStatus)
	rg.GET("/:id/sales", h.Sales)
}
