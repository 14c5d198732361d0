package shared

import "errors"

// ErrorKind classifies a domain error for callers that need to decide
// between rejecting, retrying, or escalating an operation.
type ErrorKind string

const (
	// KindValidation marks errors raised before any mutation. Safe to
	// retry after the caller corrects the request.
	KindValidation ErrorKind = "validation"
	// KindConflict marks stale-state errors (optimistic lock failures,
	// concurrent over-returns). The caller must re-fetch and retry.
	KindConflict ErrorKind = "conflict"
	// KindPersistence marks storage failures. Nothing was committed; the
	// operation is safe to retry with the same idempotency key.
	KindPersistence ErrorKind = "persistence"
	// KindNotFound marks lookups of entities that do not exist.
	KindNotFound ErrorKind = "not_found"
	// KindForbidden marks authorization failures resolved from the acting
	// user's role, e.g. an over-threshold return without override authority.
	KindForbidden ErrorKind = "forbidden"
)

// DomainError is the error type returned by all domain and application code.
type DomainError struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Kind    ErrorKind `json:"-"`
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a validation-kind domain error.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindValidation}
}

// NewConflictError creates a conflict-kind domain error.
func NewConflictError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindConflict}
}

// NewForbiddenError creates a forbidden-kind domain error.
func NewForbiddenError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindForbidden}
}

// NewPersistenceError wraps a storage failure as a domain error.
func NewPersistenceError(message string) *DomainError {
	return &DomainError{Code: "PERSISTENCE_FAILURE", Message: message, Kind: KindPersistence}
}

// KindOf returns the kind of err. Unknown errors classify as persistence
// failures, the safe default: nothing should be assumed committed.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindPersistence
}

// IsConflict reports whether err should be resolved by re-fetching state
// and retrying.
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}

// Common domain errors.
var (
	ErrNotFound            = &DomainError{Code: "NOT_FOUND", Message: "Resource not found", Kind: KindNotFound}
	ErrAlreadyExists       = &DomainError{Code: "ALREADY_EXISTS", Message: "Resource already exists", Kind: KindValidation}
	ErrInvalidInput        = &DomainError{Code: "INVALID_INPUT", Message: "Invalid input provided", Kind: KindValidation}
	ErrConcurrencyConflict = &DomainError{Code: "CONCURRENCY_CONFLICT", Message: "Resource was modified by another process", Kind: KindConflict}
	ErrForbidden           = &DomainError{Code: "FORBIDDEN", Message: "Access to this resource is forbidden", Kind: KindForbidden}
	ErrInvalidState        = &DomainError{Code: "INVALID_STATE", Message: "Operation not allowed in current state", Kind: KindValidation}
	ErrInsufficientStock   = &DomainError{Code: "INSUFFICIENT_STOCK", Message: "Insufficient stock available", Kind: KindValidation}
	ErrInsufficientCredit  = &DomainError{Code: "INSUFFICIENT_CREDIT", Message: "Insufficient store credit available", Kind: KindValidation}
	ErrInsufficientPoints  = &DomainError{Code: "INSUFFICIENT_POINTS", Message: "Insufficient loyalty points available", Kind: KindValidation}
	ErrApprovalRequired    = &DomainError{Code: "APPROVAL_REQUIRED", Message: "Operation exceeds threshold and requires override authority", Kind: KindForbidden}
)
