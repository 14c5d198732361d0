package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	inventoryapp "github.com/pos/backend/internal/application/inventory"
)

// StockHandler exposes the stock ledger endpoints.
type StockHandler struct {
	BaseHandler
	stockService *inventoryapp.StockLedgerService
}

// NewStockHandler creates a new StockHandler.
func NewStockHandler(stockService *inventoryapp.StockLedgerService) *StockHandler {
	return &StockHandler{stockService: stockService}
}

// RegisterRoutes registers stock routes on the given group.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	stock := rg.Group("/stock")
	{
		stock.POST("/adjust", h.Adjust)
		stock.POST("/set", h.SetAbsolute)
		stock.POST("/transfer", h.Transfer)
		stock.GET("/variants/:variant_id/stores/:store_id", h.GetCell)
		stock.GET("/variants/:variant_id/total", h.GetTotal)
		stock.GET("/variants/:variant_id/history", h.GetHistory)
	}
}

// Adjust applies a signed delta to one stock cell.
func (h *StockHandler) Adjust(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req inventoryapp.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	resp, err := h.stockService.Adjust(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SetAbsolute overwrites the cell quantity with a counted total, as
// after a physical stocktake.
func (h *StockHandler) SetAbsolute(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req inventoryapp.SetStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	resp, err := h.stockService.SetAbsolute(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Transfer moves quantity between two stores atomically.
func (h *StockHandler) Transfer(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req inventoryapp.TransferStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	resp, err := h.stockService.Transfer(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetCell returns the on-hand quantity for one variant in one store.
func (h *StockHandler) GetCell(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	variantID, ok := h.ParseUUIDParam(c, "variant_id")
	if !ok {
		return
	}
	storeID, ok := h.ParseUUIDParam(c, "store_id")
	if !ok {
		return
	}
	resp, err := h.stockService.GetStock(c.Request.Context(), actor.TenantID, variantID, storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetTotal returns the variant's quantity summed across all stores.
func (h *StockHandler) GetTotal(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	variantID, ok := h.ParseUUIDParam(c, "variant_id")
	if !ok {
		return
	}
	total, err := h.stockService.GetTotalStock(c.Request.Context(), actor.TenantID, variantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"variant_id": variantID, "total": total})
}

// GetHistory returns the movement trail for a variant, newest first.
func (h *StockHandler) GetHistory(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	variantID, ok := h.ParseUUIDParam(c, "variant_id")
	if !ok {
		return
	}
	filter, ok := h.BindListRequest(c)
	if !ok {
		return
	}
	if storeID := c.Query("store_id"); storeID != "" {
		parsed, err := uuid.Parse(storeID)
		if err != nil {
			h.BadRequest(c, err)
			return
		}
		filter.Filters["store_id"] = parsed
	}
	resp, err := h.stockService.GetHistory(c.Request.Context(), actor.TenantID, variantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Paginated(c, resp, filter, len(resp))
}
