package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmapos/internal/domain/loyalty"
	"pharmapos/internal/infrastructure/http/v1/dto"
	"pharmapos/internal/infrastructure/http/v1/middleware"
)

// LoyaltyHandler handles loyalty tier endpoints.
type LoyaltyHandler struct {
	*BaseHandler
	engine *loyalty.Engine
}

// NewLoyaltyHandler creates a new loyalty handler.
func NewLoyaltyHandler(base *BaseHandler, engine *loyalty.Engine) *LoyaltyHandler {
	return &LoyaltyHandler{
		BaseHandler: base,
		engine:      engine,
	}
}

// List handles GET /tiers
func (h *LoyaltyHandler) List(c *gin.Context) {
	var (
		tiers []*loyalty.Tier
		err   error
	)
	if c.Query("includeInactive") == "true" {
		tiers, err = h.engine.AllTiers(c.Request.Context())
	} else {
		tiers, err = h.engine.Tiers(c.Request.Context())
	}
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": tiers})
}

// Update handles PUT /tiers/:id
func (h *LoyaltyHandler) Update(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateTierRequest
	if !h.BindJSON(c, &req) {
		return
	}

	t := req.ToTier(id)
	if err := h.engine.UpdateTier(c.Request.Context(), t); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, t)
}

// RegisterRoutes registers loyalty tier routes. Tier edits are admin only.
func (h *LoyaltyHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.PUT("/:id", middleware.RequireRole("admin"), h.Update)
}
