package handler

import (
	"github.com/gin-gonic/gin"

	catalogapp "github.com/pos/backend/internal/application/catalog"
)

// VariantHandler exposes the product variant catalog endpoints.
type VariantHandler struct {
	BaseHandler
	variantService *catalogapp.VariantService
}

// NewVariantHandler creates a new VariantHandler.
func NewVariantHandler(variantService *catalogapp.VariantService) *VariantHandler {
	return &VariantHandler{variantService: variantService}
}

// RegisterRoutes registers variant routes on the given group.
func (h *VariantHandler) RegisterRoutes(rg *gin.RouterGroup) {
	variants := rg.Group("/variants")
	{
		variants.POST("", h.Create)
		variants.GET("", h.List)
		variants.GET("/:id", h.Get)
		variants.GET("/sku/:sku", h.GetBySKU)
		variants.PUT("/:id/price", h.ChangePrice)
		variants.POST("/:id/activate", h.Activate)
		variants.POST("/:id/deactivate", h.Deactivate)
	}
}

// Create registers a new sellable variant.
func (h *VariantHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req catalogapp.CreateVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	resp, err := h.variantService.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// List returns a page of variants for the actor's tenant.
func (h *VariantHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	filter, ok := h.BindListRequest(c)
	if !ok {
		return
	}
	if active := c.Query("active"); active != "" {
		filter.Filters["is_active"] = active == "true"
	}
	resp, err := h.variantService.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Paginated(c, resp, filter, len(resp))
}

// Get returns a single variant by ID.
func (h *VariantHandler) Get(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.variantService.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetBySKU looks a variant up by its SKU, case-insensitively.
func (h *VariantHandler) GetBySKU(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	resp, err := h.variantService.GetBySKU(c.Request.Context(), actor, c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ChangePrice updates the variant's unit price.
func (h *VariantHandler) ChangePrice(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req catalogapp.ChangePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	resp, err := h.variantService.ChangePrice(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Activate makes a variant sellable again.
func (h *VariantHandler) Activate(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.variantService.Activate(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Deactivate retires a variant from sale without deleting its history.
func (h *VariantHandler) Deactivate(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.variantService.Deactivate(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
