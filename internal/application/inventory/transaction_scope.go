package inventory

import (
	"context"

	"github.com/pos/backend/internal/domain/inventory"
)

// TransactionScope provides transactional access to the stock repositories.
// A stock mutation and its ledger entry must land atomically: no history
// row without the quantity change, and no quantity change without the row.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the stock repositories bound to the
// current transaction.
type TransactionalRepositories interface {
	// CellRepo returns the stock cell repository scoped to the transaction
	CellRepo() inventory.StockCellRepository
	// HistoryRepo returns the append-only ledger repository scoped to the transaction
	HistoryRepo() inventory.StockHistoryRepository
}

// NoOpTransactionScope runs the function without a real transaction.
// Used in tests and with stores that only support single-row atomicity.
type NoOpTransactionScope struct {
	cellRepo    inventory.StockCellRepository
	historyRepo inventory.StockHistoryRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given repositories.
func NewNoOpTransactionScope(cellRepo inventory.StockCellRepository, historyRepo inventory.StockHistoryRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{cellRepo: cellRepo, historyRepo: historyRepo}
}

// Execute runs fn directly against the wrapped repositories.
func (s *NoOpTransactionScope) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(noOpRepositories{s})
}

type noOpRepositories struct {
	scope *NoOpTransactionScope
}

func (r noOpRepositories) CellRepo() inventory.StockCellRepository {
	return r.scope.cellRepo
}

func (r noOpRepositories) HistoryRepo() inventory.StockHistoryRepository {
	return r.scope.historyRepo
}
