package sales

import (
	"context"

	"github.com/google/uuid"

	"github.com/pos/backend/internal/domain/shared"
)

// SaleRepository defines persistence operations for sales.
// SaveWithLock enforces optimistic locking against the aggregate version;
// the return path depends on it to serialize concurrent return requests
// against the same sale.
type SaleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Sale, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Sale, error)
	FindByReceiptNumber(ctx context.Context, tenantID uuid.UUID, receiptNumber string) (*Sale, error)
	FindByCustomer(ctx context.Context, tenantID, customerID uuid.UUID, filter shared.Filter) ([]Sale, error)
	FindByStore(ctx context.Context, tenantID, storeID uuid.UUID, filter shared.Filter) ([]Sale, error)
	FindNeedingReconciliation(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Sale, error)
	Save(ctx context.Context, sale *Sale) error
	SaveWithLock(ctx context.Context, sale *Sale) error
	CountForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// ReturnRecordRepository stores processed returns. Records are append-only;
// a mistaken return is corrected by a new compensating transaction, not
// by editing history.
type ReturnRecordRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ReturnRecord, error)
	FindBySale(ctx context.Context, tenantID, saleID uuid.UUID) ([]ReturnRecord, error)
	FindByStore(ctx context.Context, tenantID, storeID uuid.UUID, filter shared.Filter) ([]ReturnRecord, error)
	Save(ctx context.Context, record *ReturnRecord) error
}
