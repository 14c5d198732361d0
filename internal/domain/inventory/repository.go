package inventory

import (
	"context"

	"github.com/google/uuid"

	"github.com/pos/backend/internal/domain/shared"
)

// StockCellRepository defines persistence operations for stock cells.
// SaveWithLock must enforce optimistic locking against the aggregate
// version; callers treat a conflict as retryable.
type StockCellRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*StockCell, error)
	FindByVariantAndStore(ctx context.Context, tenantID, variantID, storeID uuid.UUID) (*StockCell, error)
	FindByVariant(ctx context.Context, tenantID, variantID uuid.UUID) ([]StockCell, error)
	FindByStore(ctx context.Context, tenantID, storeID uuid.UUID, filter shared.Filter) ([]StockCell, error)
	// GetOrCreate returns the cell for a variant-store pair, creating an
	// empty one if none exists. Creation races resolve to the winner's row.
	GetOrCreate(ctx context.Context, tenantID, variantID, storeID uuid.UUID) (*StockCell, error)
	Save(ctx context.Context, cell *StockCell) error
	SaveWithLock(ctx context.Context, cell *StockCell) error
	// SumQuantityByVariant returns the variant's total stock across all
	// stores. This derived aggregate is the only cross-store quantity
	// read; per-store cells remain authoritative.
	SumQuantityByVariant(ctx context.Context, tenantID, variantID uuid.UUID) (int, error)
}

// StockHistoryRepository is the append-only store for ledger entries.
// There is deliberately no update or delete.
type StockHistoryRepository interface {
	Append(ctx context.Context, entry *StockHistoryEntry) error
	FindByCell(ctx context.Context, tenantID, cellID uuid.UUID, filter shared.Filter) ([]StockHistoryEntry, error)
	FindByVariant(ctx context.Context, tenantID, variantID uuid.UUID, filter shared.Filter) ([]StockHistoryEntry, error)
	CountByCell(ctx context.Context, tenantID, cellID uuid.UUID) (int64, error)
}
