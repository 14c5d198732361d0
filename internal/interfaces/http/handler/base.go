package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/interfaces/http/dto"
	"github.com/pos/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides response helpers shared by all handlers.
type BaseHandler struct{}

// Success sends a 200 with the data wrapped in the standard envelope.
func (h *BaseHandler) Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 with the data wrapped in the standard envelope.
func (h *BaseHandler) Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 with an empty body.
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Paginated sends a 200 with the page of results and its pagination
// meta.
func (h *BaseHandler) Paginated(c *gin.Context, data interface{}, filter shared.Filter, count int) {
	c.JSON(http.StatusOK, dto.NewListResponse(data, filter, count))
}

// BadRequest sends a 400 for requests that failed binding or parsing.
func (h *BaseHandler) BadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrorCodeBadRequest, err.Error(), h.requestID(c)))
}

// HandleError translates a domain error into an HTTP response. Anything
// that is not a DomainError is treated as an internal failure and its
// detail is not leaked to the client.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	var de *shared.DomainError
	if errors.As(err, &de) {
		status := dto.StatusForKind(de.Kind)
		c.JSON(status, dto.NewErrorResponse(de.Code, de.Message, h.requestID(c)))
		return
	}
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.ErrorCodeInternal, "An unexpected error occurred", h.requestID(c)))
}

// Actor returns the authenticated actor resolved by the auth middleware.
// Routes behind the middleware always have one; if it is missing the
// handler aborts with 401 and returns false.
func (h *BaseHandler) Actor(c *gin.Context) (shared.Actor, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(dto.ErrorCodeUnauthorized, "Authentication required", h.requestID(c)))
		return shared.Actor{}, false
	}
	return actor, true
}

// ParseUUIDParam parses a UUID path parameter, responding with 400 on
// failure.
func (h *BaseHandler) ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, errors.New("invalid "+name+" parameter"))
		return uuid.Nil, false
	}
	return id, true
}

// BindListRequest binds the common pagination query parameters,
// responding with 400 on failure.
func (h *BaseHandler) BindListRequest(c *gin.Context) (shared.Filter, bool) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err)
		return shared.Filter{}, false
	}
	return req.ToFilter(), true
}

func (h *BaseHandler) requestID(c *gin.Context) string {
	return c.GetString(middleware.RequestIDKey)
}
