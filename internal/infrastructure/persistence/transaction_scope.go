package persistence

import (
	"context"

	"gorm.io/gorm"

	appinv "github.com/pos/backend/internal/application/inventory"
	appsales "github.com/pos/backend/internal/application/sales"
	"github.com/pos/backend/internal/domain/cashsession"
	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/inventory"
	"github.com/pos/backend/internal/domain/partner"
	"github.com/pos/backend/internal/domain/sales"
)

// GormTransactionScope implements the sale/return transaction scope
// using GORM transactions. Every repository handed to fn is bound to
// the same transaction; an error from fn rolls the whole unit back.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appsales.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepositories{tx: tx})
	})
}

// GormInventoryTransactionScope implements the stock ledger transaction
// scope. A cell mutation and its ledger entry land atomically.
type GormInventoryTransactionScope struct {
	db *gorm.DB
}

// NewGormInventoryTransactionScope creates a new GormInventoryTransactionScope
func NewGormInventoryTransactionScope(db *gorm.DB) *GormInventoryTransactionScope {
	return &GormInventoryTransactionScope{db: db}
}

// Execute runs fn within a database transaction
func (s *GormInventoryTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepositories{tx: tx})
	})
}

// gormRepositories provides every repository bound to one transaction.
// It satisfies both the stock ledger scope and the wider sale/return
// scope.
type gormRepositories struct {
	tx *gorm.DB
}

func (r *gormRepositories) SaleRepo() sales.SaleRepository {
	return NewGormSaleRepository(r.tx)
}

func (r *gormRepositories) ReturnRepo() sales.ReturnRecordRepository {
	return NewGormReturnRecordRepository(r.tx)
}

func (r *gormRepositories) CellRepo() inventory.StockCellRepository {
	return NewGormStockCellRepository(r.tx)
}

func (r *gormRepositories) HistoryRepo() inventory.StockHistoryRepository {
	return NewGormStockHistoryRepository(r.tx)
}

func (r *gormRepositories) CustomerRepo() partner.CustomerRepository {
	return NewGormCustomerRepository(r.tx)
}

func (r *gormRepositories) BalanceRepo() partner.BalanceEntryRepository {
	return NewGormBalanceEntryRepository(r.tx)
}

func (r *gormRepositories) SessionRepo() cashsession.CashSessionRepository {
	return NewGormCashSessionRepository(r.tx)
}

func (r *gormRepositories) VariantRepo() catalog.ProductVariantRepository {
	return NewGormProductVariantRepository(r.tx)
}

var (
	_ appsales.TransactionScope          = (*GormTransactionScope)(nil)
	_ appinv.TransactionScope            = (*GormInventoryTransactionScope)(nil)
	_ appsales.TransactionalRepositories = (*gormRepositories)(nil)
	_ appinv.TransactionalRepositories   = (*gormRepositories)(nil)
)
