package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pos/backend/internal/domain/sales"
	"github.com/pos/backend/internal/domain/shared"
)

// GormSaleRepository implements SaleRepository using GORM
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// FindByID finds a sale by its ID, with items and installments loaded
func (r *GormSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	var sale sales.Sale
	if err := r.db.WithContext(ctx).
		Preload("Items").Preload("Installments").
		First(&sale, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &sale, nil
}

// FindByIDForTenant finds a sale by ID within a tenant
func (r *GormSaleRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*sales.Sale, error) {
	var sale sales.Sale
	if err := r.db.WithContext(ctx).
		Preload("Items").Preload("Installments").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&sale).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &sale, nil
}

// FindByReceiptNumber finds a sale by receipt number within a tenant
func (r *GormSaleRepository) FindByReceiptNumber(ctx context.Context, tenantID uuid.UUID, receiptNumber string) (*sales.Sale, error) {
	var sale sales.Sale
	if err := r.db.WithContext(ctx).
		Preload("Items").Preload("Installments").
		Where("tenant_id = ? AND receipt_number = ?", tenantID, receiptNumber).
		First(&sale).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &sale, nil
}

// FindByCustomer finds sales for a customer, newest first
func (r *GormSaleRepository) FindByCustomer(ctx context.Context, tenantID, customerID uuid.UUID, filter shared.Filter) ([]sales.Sale, error) {
	var result []sales.Sale
	query := r.db.WithContext(ctx).Model(&sales.Sale{}).
		Preload("Items").
		Where("tenant_id = ? AND customer_id = ?", tenantID, customerID)
	query = applyPagination(query, filter, "created_at DESC")

	if err := query.Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// FindByStore finds sales recorded at a store, newest first
func (r *GormSaleRepository) FindByStore(ctx context.Context, tenantID, storeID uuid.UUID, filter shared.Filter) ([]sales.Sale, error) {
	var result []sales.Sale
	query := r.db.WithContext(ctx).Model(&sales.Sale{}).
		Preload("Items").
		Where("tenant_id = ? AND store_id = ?", tenantID, storeID)
	query = applyPagination(query, filter, "created_at DESC")

	if err := query.Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// FindNeedingReconciliation finds sales flagged for manual review
func (r *GormSaleRepository) FindNeedingReconciliation(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]sales.Sale, error) {
	var result []sales.Sale
	query := r.db.WithContext(ctx).Model(&sales.Sale{}).
		Preload("Items").
		Where("tenant_id = ? AND needs_reconciliation = ?", tenantID, true)
	query = applyPagination(query, filter, "created_at ASC")

	if err := query.Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// Save creates or updates a sale together with its items and installments
func (r *GormSaleRepository) Save(ctx context.Context, sale *sales.Sale) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(sale).Error
}

// SaveWithLock saves a sale with an optimistic lock on the version
// column, then upserts its items and installments. Items change when a
// return bumps per-line returned quantities; both writes belong to the
// caller's transaction.
func (r *GormSaleRepository) SaveWithLock(ctx context.Context, sale *sales.Sale) error {
	result := r.db.WithContext(ctx).
		Model(&sales.Sale{}).
		Where("id = ? AND version < ?", sale.ID, sale.Version).
		Select("*").Omit("id", "created_at", "Items", "Installments").
		Updates(sale)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}

	if len(sale.Items) > 0 {
		if err := r.db.WithContext(ctx).Save(&sale.Items).Error; err != nil {
			return err
		}
	}
	if len(sale.Installments) > 0 {
		if err := r.db.WithContext(ctx).Save(&sale.Installments).Error; err != nil {
			return err
		}
	}
	return nil
}

// CountForTenant counts sales for a tenant
func (r *GormSaleRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&sales.Sale{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GormReturnRecordRepository implements the append-only return store
type GormReturnRecordRepository struct {
	db *gorm.DB
}

// NewGormReturnRecordRepository creates a new GormReturnRecordRepository
func NewGormReturnRecordRepository(db *gorm.DB) *GormReturnRecordRepository {
	return &GormReturnRecordRepository{db: db}
}

// FindByID finds a return record by its ID, with lines loaded
func (r *GormReturnRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.ReturnRecord, error) {
	var record sales.ReturnRecord
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&record, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &record, nil
}

// FindBySale finds all returns processed against a sale
func (r *GormReturnRecordRepository) FindBySale(ctx context.Context, tenantID, saleID uuid.UUID) ([]sales.ReturnRecord, error) {
	var records []sales.ReturnRecord
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("tenant_id = ? AND sale_id = ?", tenantID, saleID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindByStore finds returns processed at a store, newest first
func (r *GormReturnRecordRepository) FindByStore(ctx context.Context, tenantID, storeID uuid.UUID, filter shared.Filter) ([]sales.ReturnRecord, error) {
	var records []sales.ReturnRecord
	query := r.db.WithContext(ctx).Model(&sales.ReturnRecord{}).
		Preload("Lines").
		Where("tenant_id = ? AND store_id = ?", tenantID, storeID)
	query = applyPagination(query, filter, "created_at DESC")

	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Save inserts a return record with its lines. Records are append-only;
// there is no update path.
func (r *GormReturnRecordRepository) Save(ctx context.Context, record *sales.ReturnRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

var (
	_ sales.SaleRepository         = (*GormSaleRepository)(nil)
	_ sales.ReturnRecordRepository = (*GormReturnRecordRepository)(nil)
)
