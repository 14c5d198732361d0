package shared

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the base interface for all repositories.
type Repository[T any] interface {
	FindByID(ctx context.Context, id uuid.UUID) (*T, error)
	FindAll(ctx context.Context, filter Filter) ([]T, error)
	Save(ctx context.Context, entity *T) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TenantRepository is a repository scoped to a tenant.
type TenantRepository[T any] interface {
	Repository[T]
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*T, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter Filter) ([]T, error)
}

// Filter represents query filter options.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Filters  map[string]interface{}
}

// DefaultFilter returns a filter with default values.
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: 20,
		OrderBy:  "created_at",
		OrderDir: "desc",
		Filters:  make(map[string]interface{}),
	}
}

// Actor is the acting user resolved by the identity collaborator. The
// engine never authenticates; it only authorizes against role flags that
// arrive already resolved.
type Actor struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	StoreID  uuid.UUID
	Role     Role
}

// Role carries the authorization flags the engine consults.
type Role string

const (
	RoleCashier Role = "cashier"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// CanOverrideReturns reports whether the role may process returns above
// the approval threshold.
func (r Role) CanOverrideReturns() bool {
	return r == RoleManager || r == RoleAdmin
}

// CanCorrectStock reports whether the role may post manual stock
// corrections.
func (r Role) CanCorrectStock() bool {
	return r == RoleManager || r == RoleAdmin
}
