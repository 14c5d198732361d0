package sales

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/inventory"
	"github.com/pos/backend/internal/domain/partner"
	"github.com/pos/backend/internal/domain/pricing"
	"github.com/pos/backend/internal/domain/sales"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/domain/shared/valueobject"
)

// PricingConfig carries the tenant-level pricing knobs shared by the
// quote and sale paths.
type PricingConfig struct {
	TaxRatePct        decimal.Decimal
	PointValue        valueobject.Money // currency value of one loyalty point
	PointsPerUnit     decimal.Decimal   // points earned per currency unit of taxable base
	ApprovalThreshold valueobject.Money // refunds above this need override authority
	OversellPolicy    inventory.AdjustPolicy
}

// QuoteService prices carts without persisting anything. The same
// resolution and engine run again at record time, so a quote is always
// reproducible as a sale.
type QuoteService struct {
	txScope TransactionScope
	engine  *pricing.Engine
	cfg     PricingConfig
	logger  *zap.Logger
}

// NewQuoteService creates a quote service.
func NewQuoteService(txScope TransactionScope, cfg PricingConfig, logger *zap.Logger) *QuoteService {
	return &QuoteService{
		txScope: txScope,
		engine:  pricing.NewEngine(),
		cfg:     cfg,
		logger:  logger,
	}
}

// Quote prices a cart against current catalog prices and the customer's
// current balances.
func (s *QuoteService) Quote(ctx context.Context, actor shared.Actor, req QuoteRequest) (*QuoteResponse, error) {
	var resp *QuoteResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		quote, _, _, _, err := resolveCart(ctx, repos, actor.TenantID, cartInputs{
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

		r := toQuoteResponse(totals)
		resp = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// cartInputs is the quote-relevant subset shared by QuoteRequest and
// RecordSaleRequest.
type cartInputs struct {
	Items                 []QuoteItemRequest
	CustomerID            *uuid.UUID
	ManualDiscountPct     decimal.Decimal
	PromoDiscount         decimal.Decimal
	LoyaltyPointsRedeemed int
	StoreCreditApplied    decimal.Decimal
	ExchangeCreditApplied decimal.Decimal
	OriginalSaleID        *uuid.UUID
	IsCredit              bool
}

// resolveCart turns request lines into a priced quote input. Variants are
// priced at their current catalog price; the customer's live balances
// bound loyalty redemption and store credit, and exchange credit is
// bounded by the unclaimed exchange returns on the originating sale.
// The unclaimed records are returned so the sale path can claim them
// inside the same transaction.
func resolveCart(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID, in cartInputs, cfg PricingConfig) (pricing.Quote, map[uuid.UUID]catalog.ProductVariant, *partner.Customer, []*sales.ReturnRecord, error) {
	ids := make([]uuid.UUID, 0, len(in.Items))
	seen := make(map[uuid.UUID]bool, len(in.Items))
	for _, item := range in.Items {
		if !seen[item.VariantID] {
			seen[item.VariantID] = true
			ids = append(ids, item.VariantID)
		}
	}

	variants, err := repos.VariantRepo().FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return pricing.Quote{}, nil, nil, nil, err
	}
	byID := make(map[uuid.UUID]catalog.ProductVariant, len(variants))
	for idx := range variants {
		byID[variants[idx].ID] = variants[idx]
	}

	lines := make([]pricing.LineItem, 0, len(in.Items))
	for _, item := range in.Items {
		variant, ok := byID[item.VariantID]
		if !ok {
			return pricing.Quote{}, nil, nil, nil, shared.NewDomainError("VARIANT_NOT_FOUND", "Unknown product variant in cart")
		}
		if !variant.Active {
			return pricing.Quote{}, nil, nil, nil, shared.NewDomainError("VARIANT_INACTIVE", "Variant "+variant.SKU+" is no longer sold")
		}
		lines = append(lines, pricing.LineItem{
			VariantID: item.VariantID,
			UnitPrice: variant.GetUnitPriceMoney(),
			Quantity:  item.Quantity,
		})
	}

	var customer *partner.Customer
	availablePoints := 0
	if in.CustomerID != nil {
		customer, err = repos.CustomerRepo().FindByIDForTenant(ctx, tenantID, *in.CustomerID)
		if err != nil {
			return pricing.Quote{}, nil, nil, nil, err
		}
		if !customer.Active {
			return pricing.Quote{}, nil, nil, nil, shared.NewDomainError("CUSTOMER_INACTIVE", "Customer account is deactivated")
		}
		availablePoints = customer.LoyaltyPoints
		if in.StoreCreditApplied.IsPositive() && !customer.CanSpendCredit(valueobject.NewDefault(in.StoreCreditApplied)) {
			return pricing.Quote{}, nil, nil, nil, shared.ErrInsufficientCredit
		}
	} else if in.LoyaltyPointsRedeemed > 0 || in.StoreCreditApplied.IsPositive() {
		return pricing.Quote{}, nil, nil, nil, shared.NewDomainError("CUSTOMER_REQUIRED", "Loyalty redemption and store credit require a linked customer")
	}

	var exchangeCredits []*sales.ReturnRecord
	if in.ExchangeCreditApplied.IsPositive() {
		if in.OriginalSaleID == nil {
			return pricing.Quote{}, nil, nil, nil, shared.NewDomainError("INVALID_EXCHANGE", "Exchange credit requires the originating sale")
		}
		records, err := repos.ReturnRepo().FindBySale(ctx, tenantID, *in.OriginalSaleID)
		if err != nil {
			return pricing.Quote{}, nil, nil, nil, err
		}
		available := decimal.Zero
		for idx := range records {
			if records[idx].HasUnclaimedExchangeCredit() {
				available = available.Add(records[idx].RefundValue)
				exchangeCredits = append(exchangeCredits, &records[idx])
			}
		}
		if in.ExchangeCreditApplied.GreaterThan(available) {
			return pricing.Quote{}, nil, nil, nil, shared.NewDomainError("INSUFFICIENT_EXCHANGE_CREDIT", "Exchange credit exceeds the unclaimed refund value of the originating sale")
		}
	}

	quote := pricing.Quote{
		Items:                 lines,
		ManualDiscountPct:     in.ManualDiscountPct,
		PromoDiscount:         valueobject.NewDefault(in.PromoDiscount),
		LoyaltyPointsRedeemed: in.LoyaltyPointsRedeemed,
		LoyaltyPointValue:     cfg.PointValue,
		AvailablePoints:       availablePoints,
		StoreCreditApplied:    valueobject.NewDefault(in.StoreCreditApplied),
		ExchangeCreditApplied: valueobject.NewDefault(in.ExchangeCreditApplied),
		TaxRatePct:            cfg.TaxRatePct,
		PointsPerUnit:         cfg.PointsPerUnit,
		IsCredit:              in.IsCredit,
	}
	return quote, byID, customer, exchangeCredits, nil
}

func toQuoteResponse(t pricing.Totals) QuoteResponse {
	return QuoteResponse{
		Subtotal:        t.Subtotal.Amount(),
		Discount:        t.Discount.Amount(),
		LoyaltyDiscount: t.LoyaltyDiscount.Amount(),
		Tax:             t.Tax.Amount(),
		Total:           t.Total.Amount(),
		NetPayable:      t.NetPayable.Amount(),
		PointsToEarn:    t.PointsToEarn,
		PointsUsed:      t.PointsUsed,
		UnusedCredit:    t.UnusedCredit.Amount(),
	}
}
