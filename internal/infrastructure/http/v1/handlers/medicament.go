package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmapos/internal/domain/catalog"
	"pharmapos/internal/domain/ledger"
	"pharmapos/internal/infrastructure/http/v1/dto"
	"pharmapos/internal/infrastructure/http/v1/middleware"
)

// MedicamentHandler handles catalog endpoints.
type MedicamentHandler struct {
	*BaseHandler
	service *catalog.Service
	ledger  *ledger.Service
}

// NewMedicamentHandler creates a new medicament handler.
func NewMedicamentHandler(base *BaseHandler, service *catalog.Service, ledgerSvc *ledger.Service) *MedicamentHandler {
	return &MedicamentHandler{
		BaseHandler: base,
		service:     service,
		ledger:      ledgerSvc,
	}
}

// Create handles POST /medicaments
func (h *MedicamentHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateMedicamentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	m := req.ToMedicament()
	if err := h.service.Create(ctx, m, req.InitialQuantity, h.UserIDRef(c)); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, m.ID)
}

// Get handles GET /medicaments/:id
func (h *MedicamentHandler) Get(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	m, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, m)
}

// GetByCode handles GET /medicaments/code/:code
func (h *MedicamentHandler) GetByCode(c *gin.Context) {
	m, err := h.service.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, m)
}

// Update handles PUT /medicaments/:id
func (h *MedicamentHandler) Update(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateMedicamentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	m := req.ToMedicament(id)
	if err := h.service.Update(c.Request.Context(), m); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, m)
}

// Deactivate handles POST /medicaments/:id/deactivate
func (h *MedicamentHandler) Deactivate(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), id); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// Reactivate handles POST /medicaments/:id/reactivate
func (h *MedicamentHandler) Reactivate(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Reactivate(c.Request.Context(), id); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// List handles GET /medicaments
func (h *MedicamentHandler) List(c *gin.Context) {
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

// LowStock handles GET /medicaments/low-stock
func (h *MedicamentHandler) LowStock(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.FindLowStock(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// ExpiringSoon handles GET /medicaments/expiring
func (h *MedicamentHandler) ExpiringSoon(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	days := h.ParseIntQuery(c, "days", 30)
	result, err := h.service.FindExpiringSoon(c.Request.Context(), days, q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// Movements handles GET /medicaments/:id/movements
func (h *MedicamentHandler) Movements(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.ledger.History(c.Request.Context(), id, q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// Rebuild handles POST /medicaments/:id/rebuild
func (h *MedicamentHandler) Rebuild(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	quantity, err := h.ledger.Rebuild(c.Request.Context(), id)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.RebuildResponse{
		MedicamentID:    id,
		QuantityInStock: quantity,
	})
}

// RegisterRoutes registers medicament routes. Catalog writes require
// the pharmacist or admin role; reads are open to all operators.
func (h *MedicamentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	manage := middleware.RequireRole("admin", "pharmacien")

	rg.GET("", h.List)
	rg.GET("/low-stock", h.LowStock)
	rg.GET("/expiring", h.ExpiringSoon)
	rg.GET("/code/:code", h.GetByCode)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/movements", h.Movements)

	rg.POST("", manage, h.Create)
	rg.PUT("/:id", manage, h.Update)
	rg.POST("/:id/deactivate", manage, h.Deactivate)
	rg.POST("/:id/reactivate", manage, h.Reactivate)
	rg.POST("/:id/rebuild", middleware.RequireRole("admin"), h.Rebuild)
}
