package handler

import (
	"github.com/gin-gonic/gin"

	salesapp "github.com/pos/backend/internal/application/sales"
)

// idempotencyKeyHeader lets clients pass the duplicate-suppression key
// out of band. A key in the request body takes precedence.
const idempotencyKeyHeader = "Idempotency-Key"

// SaleHandler exposes quoting, sale recording, and reconciliation
// endpoints.
type SaleHandler struct {
	BaseHandler
	quoteService *salesapp.QuoteService
	saleRecorder *salesapp.SaleRecorder
}

// NewSaleHandler creates a new SaleHandler.
func NewSaleHandler(quoteService *salesapp.QuoteService, saleRecorder *salesapp.SaleRecorder) *SaleHandler {
	return &SaleHandler{
		quoteService: quoteService,
		saleRecorder: saleRecorder,
	}
}

// RegisterRoutes registers sale routes on the given group.
func (h *SaleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sales := rg.Group("/sales")
	{
		sales.POST("/quote", h.Quote)
		sales.POST("", h.Record)
		sales.GET("/:id", h.Get)
		sales.POST("/installments", h.RecordInstallment)
		sales.GET("/reconciliation", h.ListNeedingReconciliation)
		sales.POST("/:id/reconciliation/resolve", h.ResolveReconciliation)
	}
}

// Quote prices a cart without persisting anything.
func (h *SaleHandler) Quote(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req salesapp.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	resp, err := h.quoteService.Quote(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Record commits a priced cart as a sale, deducting stock and settling
// customer balances in one transaction.
func (h *SaleHandler) Record(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req salesapp.RecordSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader(idempotencyKeyHeader)
	}
	resp, err := h.saleRecorder.RecordSale(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get returns a sale with its line items.
func (h *SaleHandler) Get(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.saleRecorder.GetSale(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RecordInstallment registers a payment against a credit sale.
func (h *SaleHandler) RecordInstallment(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req salesapp.RecordInstallmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	resp, err := h.saleRecorder.RecordInstallment(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListNeedingReconciliation returns committed sales whose side effects
// did not fully apply and need manual review.
func (h *SaleHandler) ListNeedingReconciliation(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	filter, ok := h.BindListRequest(c)
	if !ok {
		return
	}
	resp, err := h.saleRecorder.ListNeedingReconciliation(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Paginated(c, resp, filter, len(resp))
}

// ResolveReconciliation clears the reconciliation flag after manual
// review.
func (h *SaleHandler) ResolveReconciliation(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.saleRecorder.ResolveReconciliation(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
