package handler

import (
	"github.com/gin-gonic/gin"

	salesapp "github.com/pos/backend/internal/application/sales"
)

// ReturnHandler exposes the return and exchange reconciliation
// endpoints.
type ReturnHandler struct {
	BaseHandler
	returnReconciler *salesapp.ReturnReconciler
}

// NewReturnHandler creates a new ReturnHandler.
func NewReturnHandler(returnReconciler *salesapp.ReturnReconciler) *ReturnHandler {
	return &ReturnHandler{returnReconciler: returnReconciler}
}

// RegisterRoutes registers return routes on the given group.
func (h *ReturnHandler) RegisterRoutes(rg *gin.RouterGroup) {
	returns := rg.Group("/returns")
	{
		returns.POST("", h.Reconcile)
		returns.GET("/sales/:sale_id", h.ListBySale)
	}
}

// Reconcile processes a return or exchange against a committed sale.
func (h *ReturnHandler) Reconcile(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req salesapp.ReconcileReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader(idempotencyKeyHeader)
	}
	resp, err := h.returnReconciler.Reconcile(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ListBySale returns all returns processed against one sale.
func (h *ReturnHandler) ListBySale(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	saleID, ok := h.ParseUUIDParam(c, "sale_id")
	if !ok {
		return
	}
	resp, err := h.returnReconciler.ListBySale(c.Request.Context(), actor, saleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
