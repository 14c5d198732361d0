package dto

import (
	"net/http"

	"github.com/pos/backend/internal/domain/shared"
)

// Error codes for failures raised by the HTTP layer itself, before any
// application code runs.
const (
	ErrorCodeBadRequest   = "BAD_REQUEST"
	ErrorCodeUnauthorized = "UNAUTHORIZED"
	ErrorCodeInternal     = "INTERNAL_ERROR"
)

// StatusForKind maps a domain error kind to an HTTP status code.
//
// Validation failures from the domain map to 422 rather than 400: the
// request was well formed, the business rules rejected it. 400 is
// reserved for requests the HTTP layer could not even bind.
func StatusForKind(kind shared.ErrorKind) int {
	switch kind {
	case shared.KindValidation:
		return http.StatusUnprocessableEntity
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindConflict:
		return http.StatusConflict
	case shared.KindForbidden:
		return http.StatusForbidden
	case shared.KindPersistence:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
