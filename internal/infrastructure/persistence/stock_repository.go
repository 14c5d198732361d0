package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pos/backend/internal/domain/inventory"
	"github.com/pos/backend/internal/domain/shared"
)

// GormStockCellRepository implements StockCellRepository using GORM
type GormStockCellRepository struct {
	db *gorm.DB
}

// NewGormStockCellRepository creates a new GormStockCellRepository
func NewGormStockCellRepository(db *gorm.DB) *GormStockCellRepository {
	return &GormStockCellRepository{db: db}
}

// FindByID finds a stock cell by its ID
func (r *GormStockCellRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockCell, error) {
	var cell inventory.StockCell
	if err := r.db.WithContext(ctx).First(&cell, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &cell, nil
}

// FindByVariantAndStore finds the cell for a variant-store pair
func (r *GormStockCellRepository) FindByVariantAndStore(ctx context.Context, tenantID, variantID, storeID uuid.UUID) (*inventory.StockCell, error) {
	var cell inventory.StockCell
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND variant_id = ? AND store_id = ?", tenantID, variantID, storeID).
		First(&cell).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &cell, nil
}

// FindByVariant finds all cells holding a variant across stores
func (r *GormStockCellRepository) FindByVariant(ctx context.Context, tenantID, variantID uuid.UUID) ([]inventory.StockCell, error) {
	var cells []inventory.StockCell
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND variant_id = ?", tenantID, variantID).
		Find(&cells).Error; err != nil {
		return nil, err
	}
	return cells, nil
}

// FindByStore finds all cells in a store
func (r *GormStockCellRepository) FindByStore(ctx context.Context, tenantID, storeID uuid.UUID, filter shared.Filter) ([]inventory.StockCell, error) {
	var cells []inventory.StockCell
	query := r.db.WithContext(ctx).Model(&inventory.StockCell{}).
		Where("tenant_id = ? AND store_id = ?", tenantID, storeID)
	query = applyPagination(query, filter, "variant_id ASC")

	if err := query.Find(&cells).Error; err != nil {
		return nil, err
	}
	return cells, nil
}

// GetOrCreate returns the cell for a variant-store pair, creating an
// empty one if none exists. A creation race resolves to the winner's
// row via the unique index on (variant_id, store_id).
func (r *GormStockCellRepository) GetOrCreate(ctx context.Context, tenantID, variantID, storeID uuid.UUID) (*inventory.StockCell, error) {
	cell, err := r.FindByVariantAndStore(ctx, tenantID, variantID, storeID)
	if err == nil {
		return cell, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	fresh, err := inventory.NewStockCell(tenantID, variantID, storeID)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(fresh).Error; err != nil {
		return nil, err
	}
	return r.FindByVariantAndStore(ctx, tenantID, variantID, storeID)
}

// Save creates or updates a stock cell
func (r *GormStockCellRepository) Save(ctx context.Context, cell *inventory.StockCell) error {
	return r.db.WithContext(ctx).Save(cell).Error
}

// SaveWithLock saves a cell with an optimistic lock on the version column
func (r *GormStockCellRepository) SaveWithLock(ctx context.Context, cell *inventory.StockCell) error {
	result := r.db.WithContext(ctx).
		Model(&inventory.StockCell{}).
		Where("id = ? AND version < ?", cell.ID, cell.Version).
		Select("*").Omit("id", "created_at").
		Updates(cell)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// SumQuantityByVariant returns the variant's total stock across stores
func (r *GormStockCellRepository) SumQuantityByVariant(ctx context.Context, tenantID, variantID uuid.UUID) (int, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.StockCell{}).
		Where("tenant_id = ? AND variant_id = ?", tenantID, variantID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return int(total), nil
}

// GormStockHistoryRepository implements the append-only ledger store.
// There is deliberately no update or delete path.
type GormStockHistoryRepository struct {
	db *gorm.DB
}

// NewGormStockHistoryRepository creates a new GormStockHistoryRepository
func NewGormStockHistoryRepository(db *gorm.DB) *GormStockHistoryRepository {
	return &GormStockHistoryRepository{db: db}
}

// Append inserts a new ledger entry
func (r *GormStockHistoryRepository) Append(ctx context.Context, entry *inventory.StockHistoryEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByCell returns ledger entries for one cell, newest first
func (r *GormStockHistoryRepository) FindByCell(ctx context.Context, tenantID, cellID uuid.UUID, filter shared.Filter) ([]inventory.StockHistoryEntry, error) {
	var entries []inventory.StockHistoryEntry
	query := r.db.WithContext(ctx).Model(&inventory.StockHistoryEntry{}).
		Where("tenant_id = ? AND stock_cell_id = ?", tenantID, cellID)
	query = applyPagination(query, filter, "recorded_at DESC")

	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByVariant returns ledger entries for a variant across stores, newest first
func (r *GormStockHistoryRepository) FindByVariant(ctx context.Context, tenantID, variantID uuid.UUID, filter shared.Filter) ([]inventory.StockHistoryEntry, error) {
	var entries []inventory.StockHistoryEntry
	query := r.db.WithContext(ctx).Model(&inventory.StockHistoryEntry{}).
		Where("tenant_id = ? AND variant_id = ?", tenantID, variantID)
	query = applyPagination(query, filter, "recorded_at DESC")

	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CountByCell counts ledger entries for one cell
func (r *GormStockHistoryRepository) CountByCell(ctx context.Context, tenantID, cellID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.StockHistoryEntry{}).
		Where("tenant_id = ? AND stock_cell_id = ?", tenantID, cellID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

var (
	_ inventory.StockCellRepository    = (*GormStockCellRepository)(nil)
	_ inventory.StockHistoryRepository = (*GormStockHistoryRepository)(nil)
)
