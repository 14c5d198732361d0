package sales

import (
	"context"

	"github.com/pos/backend/internal/domain/cashsession"
	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/inventory"
	"github.com/pos/backend/internal/domain/partner"
	"github.com/pos/backend/internal/domain/sales"
)

// TransactionalRepositories exposes every repository the sale and return
// flows touch, bound to one transaction. The return path in particular
// must mutate the sale, the stock cells, the customer balances, and the
// cash session atomically; partial settlement is never acceptable.
type TransactionalRepositories interface {
	SaleRepo() sales.SaleRepository
	ReturnRepo() sales.ReturnRecordRepository
	CellRepo() inventory.StockCellRepository
	HistoryRepo() inventory.StockHistoryRepository
	CustomerRepo() partner.CustomerRepository
	BalanceRepo() partner.BalanceEntryRepository
	SessionRepo() cashsession.CashSessionRepository
	VariantRepo() catalog.ProductVariantRepository
}

// TransactionScope executes a function within a database transaction.
// If fn returns an error the transaction rolls back; otherwise it commits.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}
