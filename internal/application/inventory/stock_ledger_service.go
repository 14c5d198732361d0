package inventory

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/domain/inventory"
	"github.com/pos/backend/internal/domain/shared"
)

// maxConflictRetries bounds the re-fetch loop on optimistic lock
// conflicts. Past this the conflict surfaces to the caller.
const maxConflictRetries = 3

// StockLedgerService owns every stock mutation. Each mutation writes the
// cell and exactly one ledger entry in one transaction; the conflict
// retry loop re-fetches the cell so a concurrent writer's result is
// observed before the next attempt.
type StockLedgerService struct {
	txScope        TransactionScope
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	defaultPolicy  inventory.AdjustPolicy
}

// NewStockLedgerService creates a new StockLedgerService. The policy is
// the default for negative adjustments; callers on the sale path pass it
// through from configuration.
func NewStockLedgerService(txScope TransactionScope, logger *zap.Logger, defaultPolicy inventory.AdjustPolicy) *StockLedgerService {
	return &StockLedgerService{
		txScope:       txScope,
		logger:        logger,
		defaultPolicy: defaultPolicy,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *StockLedgerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// DefaultPolicy returns the configured oversell policy
func (s *StockLedgerService) DefaultPolicy() inventory.AdjustPolicy {
	return s.defaultPolicy
}

// Adjust applies a signed delta using the configured oversell policy.
func (s *StockLedgerService) Adjust(ctx context.Context, actor shared.Actor, req AdjustStockRequest) (*AdjustStockResponse, error) {
	return s.AdjustWithPolicy(ctx, actor, req, s.defaultPolicy)
}

// AdjustWithPolicy applies a signed delta with an explicit policy. Manual
// corrections are gated on the actor's role before anything mutates.
func (s *StockLedgerService) AdjustWithPolicy(ctx context.Context, actor shared.Actor, req AdjustStockRequest, policy inventory.AdjustPolicy) (*AdjustStockResponse, error) {
	if req.Reason == inventory.ReasonManualCorrection && !actor.Role.CanCorrectStock() {
		return nil, shared.NewForbiddenError("FORBIDDEN", "Manual stock corrections require manager authority")
	}

	var resp *AdjustStockResponse
	err := s.withConflictRetry(ctx, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			cell, err := repos.CellRepo().GetOrCreate(ctx, actor.TenantID, req.VariantID, req.StoreID)
			if err != nil {
				return err
			}

			entry, err := cell.Adjust(req.Delta, req.Reason, actor.UserID, req.Note, policy)
			if err != nil {
				return err
			}
			if err := repos.HistoryRepo().Append(ctx, entry); err != nil {
				return err
			}
			if err := repos.CellRepo().SaveWithLock(ctx, cell); err != nil {
				return err
			}

			s.publishEvents(ctx, cell)
			resp = &AdjustStockResponse{
				Cell:    ToStockCellResponse(cell),
				Applied: entry.Change,
				Entry:   ToStockHistoryResponse(entry),
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock adjusted",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("variant_id", req.VariantID.String()),
		zap.String("store_id", req.StoreID.String()),
		zap.Int("delta", req.Delta),
		zap.Int("applied", resp.Applied),
		zap.Int("resulting", resp.Cell.Quantity),
		zap.String("reason", req.Reason.String()))

	return resp, nil
}

// SetAbsolute sets a cell to an exact counted quantity. Manager-only.
func (s *StockLedgerService) SetAbsolute(ctx context.Context, actor shared.Actor, req SetStockRequest) (*AdjustStockResponse, error) {
	if !actor.Role.CanCorrectStock() {
		return nil, shared.NewForbiddenError("FORBIDDEN", "Stock corrections require manager authority")
	}

	var resp *AdjustStockResponse
	err := s.withConflictRetry(ctx, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			cell, err := repos.CellRepo().GetOrCreate(ctx, actor.TenantID, req.VariantID, req.StoreID)
			if err != nil {
				return err
			}

			entry, delta, err := cell.SetAbsolute(req.NewTotal, inventory.ReasonManualCorrection, actor.UserID, req.Note)
			if err != nil {
				return err
			}
			if err := repos.HistoryRepo().Append(ctx, entry); err != nil {
				return err
			}
			if err := repos.CellRepo().SaveWithLock(ctx, cell); err != nil {
				return err
			}

			s.publishEvents(ctx, cell)
			resp = &AdjustStockResponse{
				Cell:    ToStockCellResponse(cell),
				Applied: delta,
				Entry:   ToStockHistoryResponse(entry),
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock set to absolute",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("variant_id", req.VariantID.String()),
		zap.String("store_id", req.StoreID.String()),
		zap.Int("new_total", req.NewTotal),
		zap.Int("applied", resp.Applied))

	return resp, nil
}

// Transfer moves quantity between stores. Both deltas apply in one
// transaction or neither does; transfers never clamp.
func (s *StockLedgerService) Transfer(ctx context.Context, actor shared.Actor, req TransferStockRequest) (*TransferStockResponse, error) {
	if req.SourceStoreID == req.DestStoreID {
		return nil, shared.NewDomainError("INVALID_TRANSFER", "Source and destination stores must differ")
	}

	var resp *TransferStockResponse
	err := s.withConflictRetry(ctx, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			source, err := repos.CellRepo().GetOrCreate(ctx, actor.TenantID, req.VariantID, req.SourceStoreID)
			if err != nil {
				return err
			}
			dest, err := repos.CellRepo().GetOrCreate(ctx, actor.TenantID, req.VariantID, req.DestStoreID)
			if err != nil {
				return err
			}

			outEntry, err := source.TransferOut(req.Quantity, actor.UserID, req.DestStoreID)
			if err != nil {
				return err
			}
			inEntry, err := dest.TransferIn(req.Quantity, actor.UserID, req.SourceStoreID)
			if err != nil {
				return err
			}

			if err := repos.HistoryRepo().Append(ctx, outEntry); err != nil {
				return err
			}
			if err := repos.HistoryRepo().Append(ctx, inEntry); err != nil {
				return err
			}
			if err := repos.CellRepo().SaveWithLock(ctx, source); err != nil {
				return err
			}
			if err := repos.CellRepo().SaveWithLock(ctx, dest); err != nil {
				return err
			}

			resp = &TransferStockResponse{
				Source: ToStockCellResponse(source),
				Dest:   ToStockCellResponse(dest),
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock transferred",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("variant_id", req.VariantID.String()),
		zap.String("source_store_id", req.SourceStoreID.String()),
		zap.String("dest_store_id", req.DestStoreID.String()),
		zap.Int("quantity", req.Quantity))

	return resp, nil
}

// GetStock returns the cell for a variant-store pair
func (s *StockLedgerService) GetStock(ctx context.Context, tenantID, variantID, storeID uuid.UUID) (*StockCellResponse, error) {
	var resp *StockCellResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		cell, err := repos.CellRepo().FindByVariantAndStore(ctx, tenantID, variantID, storeID)
		if err != nil {
			return err
		}
		r := ToStockCellResponse(cell)
		resp = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetTotalStock returns the variant's quantity summed across stores
func (s *StockLedgerService) GetTotalStock(ctx context.Context, tenantID, variantID uuid.UUID) (int, error) {
	var total int
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		t, err := repos.CellRepo().SumQuantityByVariant(ctx, tenantID, variantID)
		if err != nil {
			return err
		}
		total = t
		return nil
	})
	return total, err
}

// GetHistory returns ledger entries for a variant, newest first
func (s *StockLedgerService) GetHistory(ctx context.Context, tenantID, variantID uuid.UUID, filter shared.Filter) ([]StockHistoryResponse, error) {
	var out []StockHistoryResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		entries, err := repos.HistoryRepo().FindByVariant(ctx, tenantID, variantID, filter)
		if err != nil {
			return err
		}
		out = make([]StockHistoryResponse, 0, len(entries))
		for i := range entries {
			out = append(out, ToStockHistoryResponse(&entries[i]))
		}
		return nil
	})
	return out, err
}

// withConflictRetry re-runs fn while it fails with a conflict, up to
// maxConflictRetries attempts. Each attempt re-fetches inside fn, so the
// loser of a race prices its next attempt against the winner's state.
func (s *StockLedgerService) withConflictRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = fn()
		if err == nil || !shared.IsConflict(err) {
			return err
		}
		s.logger.Debug("retrying after conflict", zap.Int("attempt", attempt+1))
	}
	return err
}

func (s *StockLedgerService) publishEvents(ctx context.Context, aggregate shared.AggregateRoot) {
	if s.eventPublisher == nil {
		return
	}
	events := aggregate.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish domain events", zap.Error(err))
	}
	aggregate.ClearDomainEvents()
}
