package sales

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/domain/cashsession"
	"github.com/pos/backend/internal/domain/inventory"
	"github.com/pos/backend/internal/domain/partner"
	"github.com/pos/backend/internal/domain/sales"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/domain/shared/valueobject"
)

// ReturnReconciler processes returns and exchanges. Unlike the sale
// path, everything here is atomic: the sale mutation, the restock, the
// customer balance movements, and the cash entry commit together or not
// at all. A return that half-settles is worse than one that fails.
type ReturnReconciler struct {
	txScope        TransactionScope
	idempotency    shared.IdempotencyStore
	idempotencyCfg shared.IdempotencyConfig
	eventPublisher shared.EventPublisher
	cfg            PricingConfig
	logger         *zap.Logger
}

// NewReturnReconciler creates a return reconciler. The idempotency store
// may be nil, which disables duplicate detection.
func NewReturnReconciler(txScope TransactionScope, idempotency shared.IdempotencyStore, cfg PricingConfig, logger *zap.Logger) *ReturnReconciler {
	return &ReturnReconciler{
		txScope:        txScope,
		idempotency:    idempotency,
		idempotencyCfg: shared.DefaultIdempotencyConfig(),
		cfg:            cfg,
		logger:         logger,
	}
}

// SetEventPublisher sets the event publisher for domain events.
func (s *ReturnReconciler) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Reconcile validates and settles a return request against a committed
// sale. Validation is all-or-nothing and re-runs inside the transaction
// against the freshly locked sale, so a request raced by another return
// is re-validated against the winner's state, never a stale snapshot.
func (s *ReturnReconciler) Reconcile(ctx context.Context, actor shared.Actor, req ReconcileReturnRequest) (*ReturnResponse, error) {
	method := sales.RefundMethod(req.RefundMethod)
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_REFUND_METHOD", "Unknown refund method")
	}

	idemKey, err := s.checkDuplicate(ctx, actor, req)
	if err != nil {
		return nil, err
	}

	var record *sales.ReturnRecord
	var sale *sales.Sale
	var customer *partner.Customer
	err = withConflictRetry(s.logger, func() error {
		record, sale, customer = nil, nil, nil
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			found, err := repos.SaleRepo().FindByIDForTenant(ctx, actor.TenantID, req.SaleID)
			if err != nil {
				return err
			}
			sale = found

			request := make([]sales.ReturnRequestLine, 0, len(req.Lines))
			lines := make(map[uuid.UUID]int, len(req.Lines))
			for _, line := range req.Lines {
				request = append(request, sales.ReturnRequestLine{SaleItemID: line.SaleItemID, Quantity: line.Quantity})
				lines[line.SaleItemID] += line.Quantity
			}

			record, err = sales.NewReturnRecord(sale, request, req.Reason, req.Notes, method, actor.UserID)
			if err != nil {
				return err
			}

			// Approval gate. Checked before any mutation so a rejected
			// request leaves nothing behind but the event.
			refund := valueobject.NewDefault(record.RefundValue)
			over, err := refund.GreaterThan(s.cfg.ApprovalThreshold)
			if err != nil {
				return err
			}
			if over && !actor.Role.CanOverrideReturns() {
				s.publishOne(ctx, sales.NewReturnApprovalRequiredEvent(
					sale.TenantID, sale.ID, actor.UserID,
					record.RefundValue, s.cfg.ApprovalThreshold.Amount()))
				return shared.ErrApprovalRequired
			}

			if err := sale.ApplyReturn(lines); err != nil {
				return err
			}

			if err := s.restock(ctx, repos, actor, sale, record); err != nil {
				return err
			}

			if sale.CustomerID != nil {
				customer, err = repos.CustomerRepo().FindByIDForTenant(ctx, sale.TenantID, *sale.CustomerID)
				if err != nil {
					return err
				}
			}

			if err := s.settle(ctx, repos, actor, sale, record, customer, refund); err != nil {
				return err
			}

			if err := s.clawback(ctx, repos, actor, record, customer); err != nil {
				return err
			}

			if err := repos.ReturnRepo().Save(ctx, record); err != nil {
				return err
			}
			if err := repos.SaleRepo().SaveWithLock(ctx, sale); err != nil {
				return err
			}
			if customer != nil {
				if err := repos.CustomerRepo().SaveWithLock(ctx, customer); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		s.releaseIdempotencyKey(ctx, idemKey)
		return nil, err
	}

	s.publishEvents(ctx, sale)
	if customer != nil {
		s.publishEvents(ctx, customer)
	}
	s.publishOne(ctx, sales.NewReturnProcessedEvent(record))

	s.logger.Info("return processed",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("sale_id", sale.ID.String()),
		zap.String("return_id", record.ID.String()),
		zap.String("refund_value", record.RefundValue.String()),
		zap.String("refund_method", record.RefundMethod.String()),
		zap.Int("loyalty_clawback", record.LoyaltyClawback),
		zap.String("sale_status", sale.Status.String()))

	resp := ToReturnResponse(record, sale.Status)
	return &resp, nil
}

// checkDuplicate reserves the request's idempotency key. On a fresh key
// it returns the marked key so the caller can release it if the return
// fails to settle.
func (s *ReturnReconciler) checkDuplicate(ctx context.Context, actor shared.Actor, req ReconcileReturnRequest) (string, error) {
	if s.idempotency == nil || req.IdempotencyKey == "" || !s.idempotencyCfg.Enabled {
		return "", nil
	}
	key := "return:" + actor.TenantID.String() + ":" + req.IdempotencyKey
	fresh, err := s.idempotency.MarkProcessed(ctx, key, s.idempotencyCfg.TTL)
	if err != nil {
		s.logger.Warn("idempotency check failed, proceeding", zap.Error(err))
		return "", nil
	}
	if !fresh {
		return "", shared.NewConflictError("DUPLICATE_REQUEST", "Return was already processed")
	}
	return key, nil
}

// releaseIdempotencyKey frees a key reserved by checkDuplicate after the
// settlement failed, so a corrected retry is not rejected as a duplicate.
func (s *ReturnReconciler) releaseIdempotencyKey(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.logger.Warn("failed to release idempotency key", zap.Error(err))
	}
}

// restock puts the returned units back on the shelf of the sale's store.
// Additions cannot go negative, so no policy decision arises here.
func (s *ReturnReconciler) restock(ctx context.Context, repos TransactionalRepositories, actor shared.Actor, sale *sales.Sale, record *sales.ReturnRecord) error {
	for idx := range record.Lines {
		line := &record.Lines[idx]
		cell, err := repos.CellRepo().GetOrCreate(ctx, sale.TenantID, line.VariantID, sale.StoreID)
		if err != nil {
			return err
		}
		entry, err := cell.Adjust(line.Quantity, inventory.ReasonReturn, actor.UserID, "return "+record.ID.String(), inventory.RejectBelowZero)
		if err != nil {
			return err
		}
		if err := repos.HistoryRepo().Append(ctx, entry); err != nil {
			return err
		}
		if err := repos.CellRepo().SaveWithLock(ctx, cell); err != nil {
			return err
		}
	}
	return nil
}

// settle applies exactly one refund channel. Cash leaves the drawer,
// store credit lands on the customer, and exchange value is carried
// into the replacement sale by the caller (nothing moves here).
func (s *ReturnReconciler) settle(ctx context.Context, repos TransactionalRepositories, actor shared.Actor, sale *sales.Sale, record *sales.ReturnRecord, customer *partner.Customer, refund valueobject.Money) error {
	switch record.RefundMethod {
	case sales.RefundMethodCash:
		session, err := repos.SessionRepo().FindOpenByStore(ctx, sale.TenantID, sale.StoreID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError("NO_OPEN_SESSION", "Cash refunds need an open cash session")
			}
			return err
		}
		ref := cashsession.EntryRef{SaleID: &sale.ID, ReturnID: &record.ID}
		if _, err := session.RecordEntry(cashsession.EntryTypeRefund, refund, ref, actor.UserID, "return "+record.ID.String()); err != nil {
			return err
		}
		return repos.SessionRepo().SaveWithLock(ctx, session)

	case sales.RefundMethodStoreCredit:
		// NewReturnRecord already rejected this method without a customer.
		entry, err := customer.AddStoreCredit(refund, partner.BalanceReasonRefund, partner.BalanceRef{SaleID: &sale.ID, ReturnID: &record.ID}, actor.UserID)
		if err != nil {
			return err
		}
		return repos.BalanceRepo().Append(ctx, entry)

	case sales.RefundMethodExchange:
		// The refund value funds the replacement sale as exchange credit.
		return nil
	}
	return shared.NewDomainError("INVALID_REFUND_METHOD", "Unknown refund method")
}

// clawback takes back the loyalty points earned on the returned value.
// It clamps rather than fails when the customer already spent them; the
// shortfall is noted on the balance entry.
func (s *ReturnReconciler) clawback(ctx context.Context, repos TransactionalRepositories, actor shared.Actor, record *sales.ReturnRecord, customer *partner.Customer) error {
	if customer == nil || record.LoyaltyClawback == 0 {
		return nil
	}
	ref := partner.BalanceRef{SaleID: &record.SaleID, ReturnID: &record.ID}
	entry, applied, err := customer.ClawbackPoints(record.LoyaltyClawback, ref, actor.UserID)
	if err != nil {
		return err
	}
	if applied < record.LoyaltyClawback {
		s.logger.Warn("loyalty clawback clamped",
			zap.String("customer_id", customer.ID.String()),
			zap.Int("wanted", record.LoyaltyClawback),
			zap.Int("applied", applied))
	}
	if entry == nil {
		return nil
	}
	return repos.BalanceRepo().Append(ctx, entry)
}

// ListBySale returns the processed returns against one sale.
func (s *ReturnReconciler) ListBySale(ctx context.Context, actor shared.Actor, saleID uuid.UUID) ([]ReturnResponse, error) {
	var out []ReturnResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		sale, err := repos.SaleRepo().FindByIDForTenant(ctx, actor.TenantID, saleID)
		if err != nil {
			return err
		}
		records, err := repos.ReturnRepo().FindBySale(ctx, actor.TenantID, saleID)
		if err != nil {
			return err
		}
		out = make([]ReturnResponse, 0, len(records))
		for idx := range records {
			out = append(out, ToReturnResponse(&records[idx], sale.Status))
		}
		return nil
	})
	return out, err
}

func (s *ReturnReconciler) publishOne(ctx context.Context, event shared.DomainEvent) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish domain event", zap.Error(err))
	}
}

func (s *ReturnReconciler) publishEvents(ctx context.Context, aggregate shared.AggregateRoot) {
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
