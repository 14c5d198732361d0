package handler

import (
	"github.com/gin-gonic/gin"

	cashsessionapp "github.com/pos/backend/internal/application/cashsession"
)

// SessionHandler exposes the cash session endpoints.
type SessionHandler struct {
	BaseHandler
	sessionService *cashsessionapp.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *cashsessionapp.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// RegisterRoutes registers cash session routes on the given group.
func (h *SessionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sessions := rg.Group("/cash-sessions")
	{
		sessions.POST("/open", h.Open)
		sessions.POST("/movements", h.RecordMovement)
		sessions.POST("/close", h.Close)
		sessions.GET("/:id", h.Get)
		sessions.GET("/stores/:store_id/open", h.GetOpen)
		sessions.GET("/stores/:store_id", h.ListByStore)
	}
}

// Open starts a cash session for a store with an opening float.
func (h *SessionHandler) Open(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req cashsessionapp.OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	resp, err := h.sessionService.Open(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// RecordMovement drops cash into or takes cash out of the open session.
func (h *SessionHandler) RecordMovement(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req cashsessionapp.RecordMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	resp, err := h.sessionService.RecordMovement(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Close closes the open session against a counted cash total and
// reports the variance.
func (h *SessionHandler) Close(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req cashsessionapp.CloseSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	resp, err := h.sessionService.Close(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Get returns a session with its cash movements.
func (h *SessionHandler) Get(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.sessionService.GetSession(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetOpen returns the currently open session for a store.
func (h *SessionHandler) GetOpen(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	storeID, ok := h.ParseUUIDParam(c, "store_id")
	if !ok {
		return
	}
	resp, err := h.sessionService.GetOpen(c.Request.Context(), actor, storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListByStore returns a page of sessions for a store, newest first.
func (h *SessionHandler) ListByStore(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	storeID, ok := h.ParseUUIDParam(c, "store_id")
	if !ok {
		return
	}
	filter, ok := h.BindListRequest(c)
	if !ok {
		return
	}
	resp, err := h.sessionService.ListByStore(c.Request.Context(), actor, storeID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Paginated(c, resp, filter, len(resp))
}
