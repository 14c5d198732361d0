package partner

import (
	"context"

	"github.com/google/uuid"

	"github.com/pos/backend/internal/domain/shared"
)

// CustomerRepository defines persistence operations for customers.
// Balance mutations go through SaveWithLock: two concurrent sales on the
// same customer must not both apply against the same starting balance.
type CustomerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Customer, error)
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Customer, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Customer, error)
	Save(ctx context.Context, customer *Customer) error
	SaveWithLock(ctx context.Context, customer *Customer) error
	CountForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// BalanceEntryRepository is the append-only store for balance movements.
type BalanceEntryRepository interface {
	Append(ctx context.Context, entry *BalanceEntry) error
	FindByCustomer(ctx context.Context, tenantID, customerID uuid.UUID, filter shared.Filter) ([]BalanceEntry, error)
	FindBySale(ctx context.Context, tenantID, saleID uuid.UUID) ([]BalanceEntry, error)
}
