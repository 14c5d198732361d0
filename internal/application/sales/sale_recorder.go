package sales

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/domain/cashsession"
	"github.com/pos/backend/internal/domain/inventory"
	"github.com/pos/backend/internal/domain/partner"
	"github.com/pos/backend/internal/domain/pricing"
	"github.com/pos/backend/internal/domain/sales"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/domain/shared/valueobject"
)

const maxConflictRetries = 3

// withConflictRetry re-runs fn while it fails with a conflict, up to
// maxConflictRetries attempts. Each attempt re-fetches inside fn.
func withConflictRetry(logger *zap.Logger, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = fn()
		if err == nil || !shared.IsConflict(err) {
			return err
		}
		logger.Debug("retrying after conflict", zap.Int("attempt", attempt+1))
	}
	return err
}

// SaleRecorder commits priced carts as sales. The sale persist is
// fail-closed: any failure before the sale row lands aborts the whole
// request. Once the sale is persisted it stands; stock, loyalty, and
// cash side effects that fail afterwards flag the sale for
// reconciliation instead of rolling it back.
type SaleRecorder struct {
	txScope        TransactionScope
	idempotency    shared.IdempotencyStore
	idempotencyCfg shared.IdempotencyConfig
	eventPublisher shared.EventPublisher
	engine         *pricing.Engine
	cfg            PricingConfig
	logger         *zap.Logger
}

// NewSaleRecorder creates a sale recorder. The idempotency store may be
// nil, which disables duplicate detection.
func NewSaleRecorder(txScope TransactionScope, idempotency shared.IdempotencyStore, cfg PricingConfig, logger *zap.Logger) *SaleRecorder {
	return &SaleRecorder{
		txScope:        txScope,
		idempotency:    idempotency,
		idempotencyCfg: shared.DefaultIdempotencyConfig(),
		engine:         pricing.NewEngine(),
		cfg:            cfg,
		logger:         logger,
	}
}

// SetEventPublisher sets the event publisher for domain events.
func (s *SaleRecorder) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// RecordSale prices the cart, commits the sale, and drives the side
// effects. A repeated idempotency key returns the already-recorded sale
// instead of recording a second one.
func (s *SaleRecorder) RecordSale(ctx context.Context, actor shared.Actor, req RecordSaleRequest) (*SaleResponse, error) {
	method := sales.PaymentMethod(req.PaymentMethod)
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Unknown payment method")
	}

	dup, idemKey, err := s.checkDuplicate(ctx, actor, req)
	if dup != nil || err != nil {
		return dup, err
	}

	// Phase 1, fail-closed: price, build, commit, and persist the sale
	// in one transaction. Nothing else has happened yet, so any error
	// here leaves no trace.
	var sale *sales.Sale
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		quote, variants, _, exchangeCredits, err := resolveCart(ctx, repos, actor.TenantID, cartInputs{
			Items:                 req.Items,
			CustomerID:            req.CustomerID,
			ManualDiscountPct:     req.ManualDiscountPct,
			PromoDiscount:         req.PromoDiscount,
			LoyaltyPointsRedeemed: req.LoyaltyPointsRedeemed,
			StoreCreditApplied:    req.StoreCreditApplied,
			ExchangeCreditApplied: req.ExchangeCreditApplied,
			OriginalSaleID:        req.OriginalSaleID,
			IsCredit:              req.IsCredit,
		}, s.cfg)
		if err != nil {
			return err
		}

		totals, err := s.engine.ComputeTotals(quote)
		if err != nil {
			return err
		}

		if existing, err := repos.SaleRepo().FindByReceiptNumber(ctx, actor.TenantID, req.ReceiptNumber); err == nil && existing != nil {
			return shared.NewConflictError("DUPLICATE_RECEIPT", "Receipt number already recorded")
		} else if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		sale, err = sales.NewSale(actor.TenantID, req.StoreID, actor.UserID, req.ReceiptNumber, req.CustomerID)
		if err != nil {
			return err
		}
		for _, line := range req.Items {
			variant := variants[line.VariantID]
			if _, err := sale.AddItem(line.VariantID, variant.SKU, variant.ProductName, line.Quantity, variant.GetUnitPriceMoney()); err != nil {
				return err
			}
		}
		if err := sale.ApplyPricing(totals, totals.PointsToEarn, totals.PointsUsed); err != nil {
			return err
		}
		if err := sale.Commit(sales.CommitOptions{
			PaymentMethod:      method,
			IsCredit:           req.IsCredit,
			DepositPaid:        valueobject.NewDefault(req.DepositPaid),
			StoreCreditUsed:    valueobject.NewDefault(req.StoreCreditApplied),
			ExchangeCreditUsed: valueobject.NewDefault(req.ExchangeCreditApplied),
			OriginalSaleID:     req.OriginalSaleID,
			TaxRatePct:         s.cfg.TaxRatePct,
		}); err != nil {
			return err
		}

		// Spend the exchange credit inside the same transaction that
		// records the sale. Records are claimed whole, in order, until
		// the applied amount is covered.
		remaining := sale.ExchangeCreditUsed
		for _, credit := range exchangeCredits {
			if !remaining.IsPositive() {
				break
			}
			if err := credit.ClaimExchangeCredit(sale.ID); err != nil {
				return err
			}
			if err := repos.ReturnRepo().Save(ctx, credit); err != nil {
				return err
			}
			remaining = remaining.Sub(credit.RefundValue)
		}

		return repos.SaleRepo().Save(ctx, sale)
	})
	if err != nil {
		s.releaseIdempotencyKey(ctx, idemKey)
		return nil, err
	}

	s.publishEvents(ctx, sale)

	// Phase 2: side effects. Failures are collected, never propagated;
	// the committed sale is the source of truth and an async sweep
	// settles whatever could not land now.
	var failures []string
	if err := s.deductStock(ctx, actor, sale); err != nil {
		failures = append(failures, "stock deduction failed: "+err.Error())
	}
	if sale.CustomerID != nil {
		if err := s.settleCustomer(ctx, actor, sale); err != nil {
			failures = append(failures, "customer balance update failed: "+err.Error())
		}
	}
	switch {
	case sale.PaymentMethod == sales.PaymentMethodCash && sale.TotalPaid.IsPositive():
		if err := s.recordCashEntry(ctx, actor, sale, sale.TotalPaid, cashsession.EntryTypeSale); err != nil {
			failures = append(failures, "cash drawer entry failed: "+err.Error())
		}
	case sale.IsCredit && sale.TotalPaid.IsPositive():
		// The deposit arrives over the counter like an installment.
		if err := s.recordCashEntry(ctx, actor, sale, sale.TotalPaid, cashsession.EntryTypeIn); err != nil {
			failures = append(failures, "deposit cash entry failed: "+err.Error())
		}
	}
	if len(failures) > 0 {
		s.flagReconciliation(ctx, sale, strings.Join(failures, "; "))
	}

	s.logger.Info("sale recorded",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("sale_id", sale.ID.String()),
		zap.String("receipt", sale.ReceiptNumber),
		zap.String("net_payable", sale.NetPayable.String()),
		zap.Bool("needs_reconciliation", sale.NeedsReconciliation))

	resp := ToSaleResponse(sale)
	return &resp, nil
}

// checkDuplicate consults the idempotency store. On a repeated key it
// returns the previously recorded sale when one can be found, otherwise
// a conflict. On a fresh key it returns the marked key so the caller can
// release it if the sale fails to record. Idempotency store outages log
// and fail open; refusing every sale at the till is worse than risking
// one duplicate.
func (s *SaleRecorder) checkDuplicate(ctx context.Context, actor shared.Actor, req RecordSaleRequest) (*SaleResponse, string, error) {
	if s.idempotency == nil || req.IdempotencyKey == "" || !s.idempotencyCfg.Enabled {
		return nil, "", nil
	}
	key := "sale:" + actor.TenantID.String() + ":" + req.IdempotencyKey
	fresh, err := s.idempotency.MarkProcessed(ctx, key, s.idempotencyCfg.TTL)
	if err != nil {
		s.logger.Warn("idempotency check failed, proceeding", zap.Error(err))
		return nil, "", nil
	}
	if fresh {
		return nil, key, nil
	}

	var existing *sales.Sale
	lookupErr := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.SaleRepo().FindByReceiptNumber(ctx, actor.TenantID, req.ReceiptNumber)
		if err != nil {
			return err
		}
		existing = found
		return nil
	})
	if lookupErr == nil && existing != nil {
		s.logger.Info("duplicate sale request, returning existing",
			zap.String("receipt", req.ReceiptNumber))
		resp := ToSaleResponse(existing)
		return &resp, "", nil
	}
	return nil, "", shared.NewConflictError("DUPLICATE_REQUEST", "Request was already processed")
}

// releaseIdempotencyKey frees a key reserved by checkDuplicate after the
// guarded transaction failed, so a corrected retry with the same key is
// not rejected as a duplicate.
func (s *SaleRecorder) releaseIdempotencyKey(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.logger.Warn("failed to release idempotency key", zap.Error(err))
	}
}

func (s *SaleRecorder) deductStock(ctx context.Context, actor shared.Actor, sale *sales.Sale) error {
	return withConflictRetry(s.logger, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			for idx := range sale.Items {
				item := &sale.Items[idx]
				cell, err := repos.CellRepo().GetOrCreate(ctx, sale.TenantID, item.VariantID, sale.StoreID)
				if err != nil {
					return err
				}
				entry, err := cell.Adjust(-item.Quantity, inventory.ReasonSale, actor.UserID, "receipt "+sale.ReceiptNumber, s.cfg.OversellPolicy)
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
		})
	})
}

func (s *SaleRecorder) settleCustomer(ctx context.Context, actor shared.Actor, sale *sales.Sale) error {
	ref := partner.BalanceRef{SaleID: &sale.ID}
	return withConflictRetry(s.logger, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			customer, err := repos.CustomerRepo().FindByIDForTenant(ctx, sale.TenantID, *sale.CustomerID)
			if err != nil {
				return err
			}

			var entries []*partner.BalanceEntry
			if sale.PointsUsed > 0 {
				entry, err := customer.DeductPoints(sale.PointsUsed, partner.BalanceReasonRedeem, ref, actor.UserID)
				if err != nil {
					return err
				}
				entries = append(entries, entry)
			}
			if sale.StoreCreditUsed.IsPositive() {
				entry, err := customer.DeductStoreCredit(valueobject.NewDefault(sale.StoreCreditUsed), partner.BalanceReasonCreditSpend, ref, actor.UserID)
				if err != nil {
					return err
				}
				entries = append(entries, entry)
			}
			if sale.PointsEarned > 0 {
				entry, err := customer.AddPoints(sale.PointsEarned, partner.BalanceReasonEarn, ref, actor.UserID)
				if err != nil {
					return err
				}
				entries = append(entries, entry)
			}
			if len(entries) == 0 {
				return nil
			}

			for _, entry := range entries {
				if err := repos.BalanceRepo().Append(ctx, entry); err != nil {
					return err
				}
			}
			if err := repos.CustomerRepo().SaveWithLock(ctx, customer); err != nil {
				return err
			}
			s.publishEvents(ctx, customer)
			return nil
		})
	})
}

func (s *SaleRecorder) recordCashEntry(ctx context.Context, actor shared.Actor, sale *sales.Sale, amount decimal.Decimal, entryType cashsession.EntryType) error {
	return withConflictRetry(s.logger, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			session, err := repos.SessionRepo().FindOpenByStore(ctx, sale.TenantID, sale.StoreID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return shared.NewDomainError("NO_OPEN_SESSION", "No open cash session for store")
				}
				return err
			}
			ref := cashsession.EntryRef{SaleID: &sale.ID}
			if _, err := session.RecordEntry(entryType, valueobject.NewDefault(amount), ref, actor.UserID, "receipt "+sale.ReceiptNumber); err != nil {
				return err
			}
			return repos.SessionRepo().SaveWithLock(ctx, session)
		})
	})
}

// flagReconciliation marks the persisted sale for async settlement. The
// flag write itself retries on conflict; if even that fails the event
// and log line are the remaining trail.
func (s *SaleRecorder) flagReconciliation(ctx context.Context, sale *sales.Sale, note string) {
	sale.FlagReconciliation(note)
	err := withConflictRetry(s.logger, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			return repos.SaleRepo().SaveWithLock(ctx, sale)
		})
	})
	if err != nil {
		s.logger.Error("failed to persist reconciliation flag",
			zap.String("sale_id", sale.ID.String()),
			zap.Error(err))
	}
	s.publishEvents(ctx, sale)
	s.logger.Warn("sale flagged for reconciliation",
		zap.String("sale_id", sale.ID.String()),
		zap.String("note", note))
}

// RecordInstallment registers a payment against a credit sale and drops
// the cash into the open drawer when it arrives as cash.
func (s *SaleRecorder) RecordInstallment(ctx context.Context, actor shared.Actor, req RecordInstallmentRequest) (*InstallmentResponse, error) {
	var sale *sales.Sale
	var installment *sales.Installment
	err := withConflictRetry(s.logger, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			found, err := repos.SaleRepo().FindByIDForTenant(ctx, actor.TenantID, req.SaleID)
			if err != nil {
				return err
			}
			installment, err = found.RecordInstallment(valueobject.NewDefault(req.Amount), actor.UserID, req.Note)
			if err != nil {
				return err
			}
			if err := repos.SaleRepo().SaveWithLock(ctx, found); err != nil {
				return err
			}
			sale = found
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, sale)

	if err := s.recordCashEntry(ctx, actor, sale, installment.Amount, cashsession.EntryTypeIn); err != nil {
		s.flagReconciliation(ctx, sale, "installment cash entry failed: "+err.Error())
	}

	s.logger.Info("installment recorded",
		zap.String("sale_id", sale.ID.String()),
		zap.String("amount", installment.Amount.String()),
		zap.String("total_paid", sale.TotalPaid.String()))

	return &InstallmentResponse{
		ID:         installment.ID,
		SaleID:     sale.ID,
		Amount:     installment.Amount,
		TotalPaid:  sale.TotalPaid,
		RecordedAt: installment.PaidAt,
	}, nil
}

// GetSale returns one sale by ID.
func (s *SaleRecorder) GetSale(ctx context.Context, actor shared.Actor, saleID uuid.UUID) (*SaleResponse, error) {
	var resp *SaleResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		sale, err := repos.SaleRepo().FindByIDForTenant(ctx, actor.TenantID, saleID)
		if err != nil {
			return err
		}
		r := ToSaleResponse(sale)
		resp = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ListNeedingReconciliation returns sales whose side effects did not
// fully land.
func (s *SaleRecorder) ListNeedingReconciliation(ctx context.Context, actor shared.Actor, filter shared.Filter) ([]SaleResponse, error) {
	var out []SaleResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.SaleRepo().FindNeedingReconciliation(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		out = make([]SaleResponse, 0, len(found))
		for idx := range found {
			out = append(out, ToSaleResponse(&found[idx]))
		}
		return nil
	})
	return out, err
}

// ResolveReconciliation clears the reconciliation flag after the pending
// side effects were settled out of band. Manager-only.
func (s *SaleRecorder) ResolveReconciliation(ctx context.Context, actor shared.Actor, saleID uuid.UUID) (*SaleResponse, error) {
	if !actor.Role.CanCorrectStock() {
		return nil, shared.NewForbiddenError("FORBIDDEN", "Resolving reconciliation requires manager authority")
	}
	var resp *SaleResponse
	err := withConflictRetry(s.logger, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			sale, err := repos.SaleRepo().FindByIDForTenant(ctx, actor.TenantID, saleID)
			if err != nil {
				return err
			}
			if !sale.NeedsReconciliation {
				return shared.NewDomainError("NOT_FLAGGED", "Sale is not flagged for reconciliation")
			}
			sale.ClearReconciliation()
			if err := repos.SaleRepo().SaveWithLock(ctx, sale); err != nil {
				return err
			}
			r := ToSaleResponse(sale)
			resp = &r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *SaleRecorder) publishEvents(ctx context.Context, aggregate shared.AggregateRoot) {
	if s.eventPublisher == nil {
		return
	}
	events := aggregate.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		// Log but don't fail; events are best-effort.
		s.logger.Warn("failed to publish domain events", zap.Error(err))
	}
	aggregate.ClearDomainEvents()
}
