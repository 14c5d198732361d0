package sales

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/domain/cashsession"
	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/inventory"
	"github.com/pos/backend/internal/domain/partner"
	salesdomain "github.com/pos/backend/internal/domain/sales"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/domain/shared/valueobject"
)

func defaultPricingConfig() PricingConfig {
	return PricingConfig{
		TaxRatePct:        decimal.NewFromInt(18),
		PointValue:        valueobject.NewDefaultFromInt(1),
		PointsPerUnit:     decimal.NewFromFloat(0.01),
		ApprovalThreshold: valueobject.NewDefaultFromInt(5000),
		OversellPolicy:    inventory.ClampToZero,
	}
}

type fixture struct {
	store      *fakeStore
	idem       *fakeIdempotency
	recorder   *SaleRecorder
	reconciler *ReturnReconciler
	quotes     *QuoteService
	actor      shared.Actor
	variantID  uuid.UUID
	customerID uuid.UUID
	sessionID  uuid.UUID
	receiptSeq int
}

// newFixture seeds a tenant with one variant at 1000 a unit, 10 on the
// shelf, a customer holding 100 points, and an open cash session.
func newFixture(t *testing.T, cfg PricingConfig) *fixture {
	t.Helper()
	store := newFakeStore()
	actor := shared.Actor{
		UserID:   uuid.New(),
		TenantID: uuid.New(),
		StoreID:  uuid.New(),
		Role:     shared.RoleCashier,
	}

	variant, err := catalog.NewProductVariant(actor.TenantID, "SKU-1", "Widget", "Blue",
		valueobject.NewDefaultFromInt(1000), valueobject.NewDefaultFromInt(600))
	require.NoError(t, err)
	variant.ClearDomainEvents()
	store.variants[variant.ID] = *variant

	customer, err := partner.NewCustomer(actor.TenantID, "CUST-1", "Dana Perez", "+1 555 0100", "dana@example.com")
	require.NoError(t, err)
	customer.ClearDomainEvents()
	customer.LoyaltyPoints = 100
	store.customers[customer.ID] = *customer

	cell, err := inventory.NewStockCell(actor.TenantID, variant.ID, actor.StoreID)
	require.NoError(t, err)
	cell.Quantity = 10
	store.cells[cellKey(actor.TenantID, variant.ID, actor.StoreID)] = *cell

	session, err := cashsession.OpenCashSession(actor.TenantID, actor.StoreID, actor.UserID, valueobject.NewDefaultFromInt(1000))
	require.NoError(t, err)
	session.ClearDomainEvents()
	store.sessions[session.ID] = *session

	scope := &fakeScope{store: store}
	idem := newFakeIdempotency()
	return &fixture{
		store:      store,
		idem:       idem,
		recorder:   NewSaleRecorder(scope, idem, cfg, zap.NewNop()),
		reconciler: NewReturnReconciler(scope, idem, cfg, zap.NewNop()),
		quotes:     NewQuoteService(scope, cfg, zap.NewNop()),
		actor:      actor,
		variantID:  variant.ID,
		customerID: customer.ID,
		sessionID:  session.ID,
	}
}

func (f *fixture) recordSale(t *testing.T, mutate func(*RecordSaleRequest)) *SaleResponse {
	t.Helper()
	f.receiptSeq++
	req := RecordSaleRequest{
		ReceiptNumber: fmt.Sprintf("R-%04d", f.receiptSeq),
		StoreID:       f.actor.StoreID,
		Items:         []QuoteItemRequest{{VariantID: f.variantID, Quantity: 5}},
		CustomerID:    &f.customerID,
		PaymentMethod: "CASH",
	}
	if mutate != nil {
		mutate(&req)
	}
	resp, err := f.recorder.RecordSale(context.Background(), f.actor, req)
	require.NoError(t, err)
	return resp
}

func (f *fixture) stockQuantity() int {
	return f.store.cells[cellKey(f.actor.TenantID, f.variantID, f.actor.StoreID)].Quantity
}

func (f *fixture) customerState() partner.Customer {
	return f.store.customers[f.customerID]
}

func (f *fixture) sessionEntries() []cashsession.CashEntry {
	return f.store.sessions[f.sessionID].Entries
}

func TestSaleRecorder_RecordSale(t *testing.T) {
	ctx := context.Background()

	t.Run("should price, commit, and settle a cash sale", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())

		resp := f.recordSale(t, func(req *RecordSaleRequest) {
			req.Items = []QuoteItemRequest{{VariantID: f.variantID, Quantity: 3}}
			req.ManualDiscountPct = decimal.NewFromInt(10)
		})

		assert.Equal(t, "COMMITTED", resp.Status)
		assert.Equal(t, "3000", resp.Subtotal.String())
		assert.Equal(t, "300", resp.Discount.String())
		assert.Equal(t, "486", resp.Tax.String())
		assert.Equal(t, "3186", resp.NetPayable.String())
		assert.Equal(t, 27, resp.PointsEarned)
		assert.False(t, resp.NeedsReconciliation)

		assert.Equal(t, 7, f.stockQuantity())
		require.Len(t, f.store.history, 1)
		assert.Equal(t, -3, f.store.history[0].Change)
		assert.Equal(t, inventory.ReasonSale, f.store.history[0].Reason)

		assert.Equal(t, 127, f.customerState().LoyaltyPoints)
		require.Len(t, f.store.balances, 1)
		assert.Equal(t, partner.BalanceReasonEarn, f.store.balances[0].Reason)

		entries := f.sessionEntries()
		require.Len(t, entries, 1)
		assert.Equal(t, cashsession.EntryTypeSale, entries[0].Type)
		assert.Equal(t, "3186", entries[0].Amount.String())
	})

	t.Run("should flag reconciliation when the drawer is closed", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())
		delete(f.store.sessions, f.sessionID)

		resp := f.recordSale(t, nil)

		assert.Equal(t, "COMMITTED", resp.Status)
		assert.True(t, resp.NeedsReconciliation)
		assert.Contains(t, resp.ReconciliationNote, "cash drawer entry failed")

		// the sale, the stock deduction, and the loyalty earn all stand
		stored := f.store.sales[resp.ID]
		assert.True(t, stored.NeedsReconciliation)
		assert.Equal(t, 5, f.stockQuantity())
		assert.Equal(t, 150, f.customerState().LoyaltyPoints)
	})

	t.Run("should flag reconciliation when stock cannot cover under the strict policy", func(t *testing.T) {
		cfg := defaultPricingConfig()
		cfg.OversellPolicy = inventory.RejectBelowZero
		f := newFixture(t, cfg)
		cell := f.store.cells[cellKey(f.actor.TenantID, f.variantID, f.actor.StoreID)]
		cell.Quantity = 1
		f.store.cells[cellKey(f.actor.TenantID, f.variantID, f.actor.StoreID)] = cell

		resp := f.recordSale(t, func(req *RecordSaleRequest) {
			req.Items = []QuoteItemRequest{{VariantID: f.variantID, Quantity: 3}}
		})

		assert.Equal(t, "COMMITTED", resp.Status)
		assert.True(t, resp.NeedsReconciliation)
		assert.Contains(t, resp.ReconciliationNote, "stock deduction failed")
		// the failed deduction left the shelf untouched
		assert.Equal(t, 1, f.stockQuantity())
		assert.Empty(t, f.store.history)
	})

	t.Run("should return the recorded sale for a repeated idempotency key", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())

		first := f.recordSale(t, func(req *RecordSaleRequest) {
			req.ReceiptNumber = "R-IDEM"
			req.IdempotencyKey = "key-1"
		})

		again, err := f.recorder.RecordSale(ctx, f.actor, RecordSaleRequest{
			ReceiptNumber:  "R-IDEM",
			StoreID:        f.actor.StoreID,
			Items:          []QuoteItemRequest{{VariantID: f.variantID, Quantity: 5}},
			CustomerID:     &f.customerID,
			PaymentMethod:  "CASH",
			IdempotencyKey: "key-1",
		})
		require.NoError(t, err)

		assert.Equal(t, first.ID, again.ID)
		assert.Len(t, f.store.sales, 1)
		// no double deduction
		assert.Equal(t, 5, f.stockQuantity())
	})

	t.Run("should accept a corrected retry after a failed attempt with the same key", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())

		_, err := f.recorder.RecordSale(ctx, f.actor, RecordSaleRequest{
			ReceiptNumber:  "R-RETRY",
			StoreID:        f.actor.StoreID,
			Items:          []QuoteItemRequest{{VariantID: uuid.New(), Quantity: 1}},
			PaymentMethod:  "CASH",
			IdempotencyKey: "key-retry",
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "VARIANT_NOT_FOUND", domainErr.Code)
		assert.Empty(t, f.store.sales)

		// the failed attempt must not hold the key hostage
		resp, err := f.recorder.RecordSale(ctx, f.actor, RecordSaleRequest{
			ReceiptNumber:  "R-RETRY",
			StoreID:        f.actor.StoreID,
			Items:          []QuoteItemRequest{{VariantID: f.variantID, Quantity: 1}},
			PaymentMethod:  "CASH",
			IdempotencyKey: "key-retry",
		})
		require.NoError(t, err)
		assert.Equal(t, "COMMITTED", resp.Status)
		assert.Len(t, f.store.sales, 1)
	})

	t.Run("should reject a reused receipt number", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())
		f.recordSale(t, func(req *RecordSaleRequest) { req.ReceiptNumber = "R-DUP" })

		_, err := f.recorder.RecordSale(ctx, f.actor, RecordSaleRequest{
			ReceiptNumber: "R-DUP",
			StoreID:       f.actor.StoreID,
			Items:         []QuoteItemRequest{{VariantID: f.variantID, Quantity: 1}},
			PaymentMethod: "CASH",
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "DUPLICATE_RECEIPT", domainErr.Code)
		assert.Len(t, f.store.sales, 1)
	})

	t.Run("should reject loyalty redemption without a customer", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())

		_, err := f.recorder.RecordSale(ctx, f.actor, RecordSaleRequest{
			ReceiptNumber:         "R-NOCUST",
			StoreID:               f.actor.StoreID,
			Items:                 []QuoteItemRequest{{VariantID: f.variantID, Quantity: 1}},
			LoyaltyPointsRedeemed: 50,
			PaymentMethod:         "CASH",
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CUSTOMER_REQUIRED", domainErr.Code)
		assert.Empty(t, f.store.sales)
	})

	t.Run("should cap redeemed points at the customer balance", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())

		resp := f.recordSale(t, func(req *RecordSaleRequest) {
			req.Items = []QuoteItemRequest{{VariantID: f.variantID, Quantity: 3}}
			req.LoyaltyPointsRedeemed = 500
		})

		assert.Equal(t, 100, resp.PointsUsed)
		assert.Equal(t, "100", resp.LoyaltyDiscount.String())
		// 100 redeemed, then floor(2900 * 0.01) earned back
		assert.Equal(t, 29, f.customerState().LoyaltyPoints)
		assert.Len(t, f.store.balances, 2)
	})

	t.Run("should record a credit sale with a deposit and no points", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())

		resp := f.recordSale(t, func(req *RecordSaleRequest) {
			req.PaymentMethod = "CREDIT"
			req.IsCredit = true
			req.DepositPaid = decimal.NewFromInt(1000)
		})

		assert.True(t, resp.IsCredit)
		assert.Equal(t, 0, resp.PointsEarned)
		assert.Equal(t, "1000", resp.TotalPaid.String())
		assert.False(t, resp.NeedsReconciliation)
		// the deposit lands in the drawer; the financed remainder does not
		entries := f.sessionEntries()
		require.Len(t, entries, 1)
		assert.Equal(t, cashsession.EntryTypeIn, entries[0].Type)
		assert.Equal(t, "1000", entries[0].Amount.String())
		assert.Equal(t, 100, f.customerState().LoyaltyPoints)
	})

	t.Run("should skip the drawer on a credit sale without a deposit", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())

		resp := f.recordSale(t, func(req *RecordSaleRequest) {
			req.PaymentMethod = "CREDIT"
			req.IsCredit = true
		})

		assert.Equal(t, "0", resp.TotalPaid.String())
		assert.Empty(t, f.sessionEntries())
	})
}

func TestSaleRecorder_RecordInstallment(t *testing.T) {
	ctx := context.Background()

	newCreditSale := func(t *testing.T) (*fixture, *SaleResponse) {
		f := newFixture(t, defaultPricingConfig())
		resp := f.recordSale(t, func(req *RecordSaleRequest) {
			req.PaymentMethod = "CREDIT"
			req.IsCredit = true
			req.DepositPaid = decimal.NewFromInt(1000)
		})
		return f, resp
	}

	t.Run("should grow total paid and drop the cash in the drawer", func(t *testing.T) {
		f, sale := newCreditSale(t)

		resp, err := f.recorder.RecordInstallment(ctx, f.actor, RecordInstallmentRequest{
			SaleID: sale.ID,
			Amount: decimal.NewFromInt(500),
			Note:   "weekly payment",
		})
		require.NoError(t, err)

		assert.Equal(t, "500", resp.Amount.String())
		assert.Equal(t, "1500", resp.TotalPaid.String())

		// the deposit entry from the sale, then the installment
		entries := f.sessionEntries()
		require.Len(t, entries, 2)
		assert.Equal(t, cashsession.EntryTypeIn, entries[1].Type)
		assert.Equal(t, "500", entries[1].Amount.String())
	})

	t.Run("should reject paying past the net payable", func(t *testing.T) {
		f, sale := newCreditSale(t)

		_, err := f.recorder.RecordInstallment(ctx, f.actor, RecordInstallmentRequest{
			SaleID: sale.ID,
			Amount: decimal.NewFromInt(99999),
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_PAYMENT", domainErr.Code)
	})
}

func TestSaleRecorder_ExchangeCredit(t *testing.T) {
	ctx := context.Background()

	// exchangeReturn records a plain 5-unit sale and processes a 2-unit
	// exchange return, leaving 2000 of unclaimed exchange credit on it.
	exchangeReturn := func(t *testing.T, f *fixture) (*SaleResponse, *ReturnResponse) {
		sale := f.recordSale(t, nil)
		ret, err := f.reconciler.Reconcile(ctx, f.actor, ReconcileReturnRequest{
			SaleID:       sale.ID,
			Lines:        []ReturnLineRequest{{SaleItemID: sale.Items[0].ID, Quantity: 2}},
			Reason:       "wrong size",
			RefundMethod: "EXCHANGE",
		})
		require.NoError(t, err)
		return sale, ret
	}

	t.Run("should reject credit with no backing exchange return", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())
		phantom := uuid.New()

		_, err := f.recorder.RecordSale(ctx, f.actor, RecordSaleRequest{
			ReceiptNumber:         "R-PHANTOM",
			StoreID:               f.actor.StoreID,
			Items:                 []QuoteItemRequest{{VariantID: f.variantID, Quantity: 1}},
			ExchangeCreditApplied: decimal.NewFromInt(999999),
			OriginalSaleID:        &phantom,
			PaymentMethod:         "CASH",
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INSUFFICIENT_EXCHANGE_CREDIT", domainErr.Code)
		assert.Empty(t, f.store.sales)
	})

	t.Run("should cap credit at the unclaimed refund value", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())
		sale, _ := exchangeReturn(t, f)

		_, err := f.recorder.RecordSale(ctx, f.actor, RecordSaleRequest{
			ReceiptNumber:         "R-OVER",
			StoreID:               f.actor.StoreID,
			Items:                 []QuoteItemRequest{{VariantID: f.variantID, Quantity: 5}},
			ExchangeCreditApplied: decimal.NewFromInt(2001),
			OriginalSaleID:        &sale.ID,
			PaymentMethod:         "CASH",
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INSUFFICIENT_EXCHANGE_CREDIT", domainErr.Code)
		assert.Len(t, f.store.sales, 1)
	})

	t.Run("should mark the credit claimed by the replacement sale", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())
		sale, ret := exchangeReturn(t, f)

		replacement := f.recordSale(t, func(req *RecordSaleRequest) {
			req.Items = []QuoteItemRequest{{VariantID: f.variantID, Quantity: 1}}
			req.ExchangeCreditApplied = decimal.NewFromInt(2000)
			req.OriginalSaleID = &sale.ID
		})

		// 1000 + 180 tax, fully covered by the carried credit
		assert.Equal(t, "0", replacement.NetPayable.String())
		claimed := f.store.returns[ret.ID]
		require.NotNil(t, claimed.ClaimedBySaleID)
		assert.Equal(t, replacement.ID, *claimed.ClaimedBySaleID)
	})

	t.Run("should refuse to spend the same credit twice", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())
		sale, _ := exchangeReturn(t, f)

		f.recordSale(t, func(req *RecordSaleRequest) {
			req.Items = []QuoteItemRequest{{VariantID: f.variantID, Quantity: 1}}
			req.ExchangeCreditApplied = decimal.NewFromInt(2000)
			req.OriginalSaleID = &sale.ID
		})

		_, err := f.recorder.RecordSale(ctx, f.actor, RecordSaleRequest{
			ReceiptNumber:         "R-DOUBLE",
			StoreID:               f.actor.StoreID,
			Items:                 []QuoteItemRequest{{VariantID: f.variantID, Quantity: 1}},
			ExchangeCreditApplied: decimal.NewFromInt(2000),
			OriginalSaleID:        &sale.ID,
			PaymentMethod:         "CASH",
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INSUFFICIENT_EXCHANGE_CREDIT", domainErr.Code)
		assert.Len(t, f.store.sales, 2)
	})
}

func TestSaleRecorder_ResolveReconciliation(t *testing.T) {
	ctx := context.Background()

	t.Run("should clear the flag for a manager", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())
		delete(f.store.sessions, f.sessionID)
		sale := f.recordSale(t, nil)
		require.True(t, sale.NeedsReconciliation)

		flagged, err := f.recorder.ListNeedingReconciliation(ctx, f.actor, shared.DefaultFilter())
		require.NoError(t, err)
		require.Len(t, flagged, 1)

		manager := f.actor
		manager.Role = shared.RoleManager
		resolved, err := f.recorder.ResolveReconciliation(ctx, manager, sale.ID)
		require.NoError(t, err)
		assert.False(t, resolved.NeedsReconciliation)
	})

	t.Run("should forbid cashiers", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())
		delete(f.store.sessions, f.sessionID)
		sale := f.recordSale(t, nil)

		_, err := f.recorder.ResolveReconciliation(ctx, f.actor, sale.ID)
		assert.Equal(t, shared.KindForbidden, shared.KindOf(err))
	})
}

func TestQuoteService_Quote(t *testing.T) {
	ctx := context.Background()

	t.Run("should price a cart without persisting anything", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())

		resp, err := f.quotes.Quote(ctx, f.actor, QuoteRequest{
			Items:             []QuoteItemRequest{{VariantID: f.variantID, Quantity: 3}},
			ManualDiscountPct: decimal.NewFromInt(10),
		})
		require.NoError(t, err)

		assert.Equal(t, "3000", resp.Subtotal.String())
		assert.Equal(t, "3186", resp.NetPayable.String())
		assert.Equal(t, 27, resp.PointsToEarn)
		assert.Empty(t, f.store.sales)
	})

	t.Run("should reject store credit beyond the customer balance", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())

		_, err := f.quotes.Quote(ctx, f.actor, QuoteRequest{
			Items:              []QuoteItemRequest{{VariantID: f.variantID, Quantity: 1}},
			CustomerID:         &f.customerID,
			StoreCreditApplied: decimal.NewFromInt(5000),
		})
		assert.ErrorIs(t, err, shared.ErrInsufficientCredit)
	})

	t.Run("should reject an unknown variant", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())

		_, err := f.quotes.Quote(ctx, f.actor, QuoteRequest{
			Items: []QuoteItemRequest{{VariantID: uuid.New(), Quantity: 1}},
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "VARIANT_NOT_FOUND", domainErr.Code)
	})

	t.Run("should require the originating sale for exchange credit", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())

		_, err := f.quotes.Quote(ctx, f.actor, QuoteRequest{
			Items:                 []QuoteItemRequest{{VariantID: f.variantID, Quantity: 1}},
			ExchangeCreditApplied: decimal.NewFromInt(500),
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_EXCHANGE", domainErr.Code)
	})

	t.Run("should reject exchange credit beyond the unclaimed refund value", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())
		phantom := uuid.New()

		_, err := f.quotes.Quote(ctx, f.actor, QuoteRequest{
			Items:                 []QuoteItemRequest{{VariantID: f.variantID, Quantity: 1}},
			ExchangeCreditApplied: decimal.NewFromInt(2000),
			OriginalSaleID:        &phantom,
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INSUFFICIENT_EXCHANGE_CREDIT", domainErr.Code)
	})
}

func TestReturnReconciler_Reconcile(t *testing.T) {
	ctx := context.Background()

	// committedSale records a plain 5-unit cash sale: subtotal 5000,
	// tax 900, 50 points earned, stock 10 -> 5, customer at 150 points.
	committedSale := func(t *testing.T, f *fixture) *SaleResponse {
		resp := f.recordSale(t, nil)
		require.Equal(t, "COMMITTED", resp.Status)
		require.Equal(t, 150, f.customerState().LoyaltyPoints)
		return resp
	}

	returnReq := func(sale *SaleResponse, qty int, method string) ReconcileReturnRequest {
		return ReconcileReturnRequest{
			SaleID:       sale.ID,
			Lines:        []ReturnLineRequest{{SaleItemID: sale.Items[0].ID, Quantity: qty}},
			Reason:       "damaged",
			RefundMethod: method,
		}
	}

	t.Run("should settle a cash return atomically", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())
		sale := committedSale(t, f)

		resp, err := f.reconciler.Reconcile(ctx, f.actor, returnReq(sale, 2, "CASH"))
		require.NoError(t, err)

		assert.Equal(t, "2000", resp.RefundValue.String())
		assert.Equal(t, 20, resp.LoyaltyClawback)
		assert.Equal(t, "PARTIALLY_RETURNED", resp.SaleStatus)

		// restock
		assert.Equal(t, 7, f.stockQuantity())
		// drawer paid the refund out
		entries := f.sessionEntries()
		require.Len(t, entries, 2)
		assert.Equal(t, cashsession.EntryTypeRefund, entries[1].Type)
		assert.Equal(t, "2000", entries[1].Amount.String())
		// clawback landed
		assert.Equal(t, 130, f.customerState().LoyaltyPoints)
		assert.Len(t, f.store.returns, 1)
	})

	t.Run("should reject the whole request when one line over-returns", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())
		sale := committedSale(t, f)

		_, err := f.reconciler.Reconcile(ctx, f.actor, returnReq(sale, 99, "CASH"))

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "OVER_RETURN", domainErr.Code)

		// nothing moved anywhere
		stored := f.store.sales[sale.ID]
		assert.Equal(t, salesdomain.SaleStatusCommitted, stored.Status)
		assert.Equal(t, 5, f.stockQuantity())
		assert.Len(t, f.sessionEntries(), 1)
		assert.Equal(t, 150, f.customerState().LoyaltyPoints)
		assert.Empty(t, f.store.returns)
	})

	t.Run("should require a customer for store credit refunds", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())
		sale := f.recordSale(t, func(req *RecordSaleRequest) { req.CustomerID = nil })

		_, err := f.reconciler.Reconcile(ctx, f.actor, returnReq(sale, 1, "STORE_CREDIT"))

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CUSTOMER_REQUIRED", domainErr.Code)
	})

	t.Run("should credit the customer for store credit refunds", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())
		sale := committedSale(t, f)

		resp, err := f.reconciler.Reconcile(ctx, f.actor, returnReq(sale, 2, "STORE_CREDIT"))
		require.NoError(t, err)

		assert.Equal(t, "2000", resp.RefundValue.String())
		assert.Equal(t, "2000", f.customerState().StoreCredit.String())
		// the drawer stays out of it
		assert.Len(t, f.sessionEntries(), 1)
	})

	t.Run("should gate large refunds behind override authority", func(t *testing.T) {
		cfg := defaultPricingConfig()
		cfg.ApprovalThreshold = valueobject.NewDefaultFromInt(1500)
		f := newFixture(t, cfg)
		sale := committedSale(t, f)

		_, err := f.reconciler.Reconcile(ctx, f.actor, returnReq(sale, 2, "CASH"))
		require.ErrorIs(t, err, shared.ErrApprovalRequired)

		// rejected before anything mutated
		assert.Equal(t, 5, f.stockQuantity())
		assert.Len(t, f.sessionEntries(), 1)
		assert.Empty(t, f.store.returns)

		manager := f.actor
		manager.Role = shared.RoleManager
		resp, err := f.reconciler.Reconcile(ctx, manager, returnReq(sale, 2, "CASH"))
		require.NoError(t, err)
		assert.Equal(t, "2000", resp.RefundValue.String())
	})

	t.Run("should clamp the clawback when the points were already spent", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())
		sale := committedSale(t, f)

		customer := f.store.customers[f.customerID]
		customer.LoyaltyPoints = 5
		f.store.customers[f.customerID] = customer

		resp, err := f.reconciler.Reconcile(ctx, f.actor, returnReq(sale, 2, "CASH"))
		require.NoError(t, err)

		assert.Equal(t, 20, resp.LoyaltyClawback)
		assert.Equal(t, 0, f.customerState().LoyaltyPoints)
	})

	t.Run("should reject a repeated idempotency key", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())
		sale := committedSale(t, f)

		req := returnReq(sale, 1, "CASH")
		req.IdempotencyKey = "ret-1"
		_, err := f.reconciler.Reconcile(ctx, f.actor, req)
		require.NoError(t, err)

		_, err = f.reconciler.Reconcile(ctx, f.actor, req)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "DUPLICATE_REQUEST", domainErr.Code)
		assert.Len(t, f.store.returns, 1)
	})

	t.Run("should accept a corrected retry after a failed attempt with the same key", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())
		sale := committedSale(t, f)

		req := returnReq(sale, 99, "CASH")
		req.IdempotencyKey = "ret-retry"
		_, err := f.reconciler.Reconcile(ctx, f.actor, req)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "OVER_RETURN", domainErr.Code)

		// the failed attempt must not hold the key hostage
		req.Lines[0].Quantity = 1
		resp, err := f.reconciler.Reconcile(ctx, f.actor, req)
		require.NoError(t, err)
		assert.Equal(t, "1000", resp.RefundValue.String())
		assert.Len(t, f.store.returns, 1)
	})

	t.Run("should tax surviving items at the rate frozen at commit", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())
		sale := committedSale(t, f)

		raised := defaultPricingConfig()
		raised.TaxRatePct = decimal.NewFromInt(40)
		reconciler := NewReturnReconciler(&fakeScope{store: f.store}, f.idem, raised, zap.NewNop())

		_, err := reconciler.Reconcile(ctx, f.actor, returnReq(sale, 2, "CASH"))
		require.NoError(t, err)

		// 3 units remain: 3000 + 18% tax, not the 40% now configured
		stored := f.store.sales[sale.ID]
		assert.Equal(t, "540", stored.Tax.String())
		assert.Equal(t, "3540", stored.Total.String())
	})

	t.Run("should carry exchange value into the replacement sale", func(t *testing.T) {
		f := newFixture(t, defaultPricingConfig())
		sale := committedSale(t, f)

		resp, err := f.reconciler.Reconcile(ctx, f.actor, returnReq(sale, 2, "EXCHANGE"))
		require.NoError(t, err)
		assert.Equal(t, "2000", resp.RefundValue.String())
		// exchange moves no cash and no store credit
		assert.Len(t, f.sessionEntries(), 1)
		assert.Equal(t, "0", f.customerState().StoreCredit.String())

		replacement := f.recordSale(t, func(req *RecordSaleRequest) {
			req.Items = []QuoteItemRequest{{VariantID: f.variantID, Quantity: 1}}
			req.ExchangeCreditApplied = decimal.NewFromInt(2000)
			req.OriginalSaleID = &sale.ID
		})

		// 1000 + 180 tax, fully covered by the carried credit
		assert.Equal(t, "0", replacement.NetPayable.String())
	})
}
