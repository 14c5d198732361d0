package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/domain/shared/valueobject"
)

// LineItem is one cart line as the pricing engine sees it: a frozen unit
// price and the quantities that are still active. Returned units never
// contribute to a recomputed total.
type LineItem struct {
	VariantID        uuid.UUID
	UnitPrice        valueobject.Money
	Quantity         int
	ReturnedQuantity int
}

// ActiveQuantity returns the units that still count toward totals.
func (l LineItem) ActiveQuantity() int {
	return l.Quantity - l.ReturnedQuantity
}

// Quote is the input to a totals computation. Credits and loyalty values
// arrive already resolved (promo code lookup, customer balances); the
// engine is pure arithmetic over them.
type Quote struct {
	Items []LineItem

	// ManualDiscountPct and PromoDiscount never stack: the engine takes
	// whichever yields the larger amount, regardless of caller discipline.
	ManualDiscountPct decimal.Decimal
	PromoDiscount     valueobject.Money

	LoyaltyPointsRedeemed int
	LoyaltyPointValue     valueobject.Money // currency value of one point
	AvailablePoints       int

	StoreCreditApplied    valueobject.Money
	ExchangeCreditApplied valueobject.Money

	TaxRatePct    decimal.Decimal
	PointsPerUnit decimal.Decimal // points earned per currency unit of taxable base

	// IsCredit marks a sale on credit terms. Credit sales never earn
	// points; this is a business rule, not a rounding artifact.
	IsCredit bool
}

// Totals is the deterministic output of ComputeTotals.
//
// Total is the accounting figure used for invoicing and stays
// discount/tax-correct: Total = Subtotal - Discount - LoyaltyDiscount + Tax.
// NetPayable is what the cashier actually collects after store and
// exchange credit, never below zero.
type Totals struct {
	Subtotal        valueobject.Money
	Discount        valueobject.Money
	LoyaltyDiscount valueobject.Money
	Tax             valueobject.Money
	Total           valueobject.Money
	NetPayable      valueobject.Money
	PointsToEarn    int
	PointsUsed      int
	UnusedCredit    valueobject.Money
}

// Engine computes sale totals. It is stateless and safe for concurrent use.
type Engine struct{}

// NewEngine creates a pricing engine.
func NewEngine() *Engine {
	return &Engine{}
}

var hundred = decimal.NewFromInt(100)

// orZeroDefault treats a zero-value Money field as zero in the default
// currency so optional quote fields can be left unset.
func orZeroDefault(m valueobject.Money) valueobject.Money {
	if m.Currency() == "" {
		return valueobject.ZeroDefault()
	}
	return m
}

// ComputeTotals computes subtotal, discount, loyalty discount, tax, total,
// and net payable for a quote. All intermediate money math is decimal;
// tax and the persisted figures are rounded to the currency's smallest
// unit at the boundaries defined by the rounding rules, nowhere else.
func (e *Engine) ComputeTotals(q Quote) (Totals, error) {
	q.PromoDiscount = orZeroDefault(q.PromoDiscount)
	q.LoyaltyPointValue = orZeroDefault(q.LoyaltyPointValue)
	q.StoreCreditApplied = orZeroDefault(q.StoreCreditApplied)
	q.ExchangeCreditApplied = orZeroDefault(q.ExchangeCreditApplied)

	if err := e.validate(q); err != nil {
		return Totals{}, err
	}

	subtotal := valueobject.ZeroDefault()
	for _, item := range q.Items {
		line := orZeroDefault(item.UnitPrice).MultiplyByInt(int64(item.ActiveQuantity()))
		subtotal = subtotal.MustAdd(line)
	}

	// Manual percentage and promo code are mutually exclusive: the larger
	// of the two applies, the other is discarded.
	manualDiscount := subtotal.CalculatePercentage(q.ManualDiscountPct).RoundToUnit()
	discount := manualDiscount
	if promoLarger, _ := q.PromoDiscount.GreaterThan(manualDiscount); q.PromoDiscount.IsPositive() && promoLarger {
		discount = q.PromoDiscount.RoundToUnit()
	}
	if over, _ := discount.GreaterThan(subtotal); over {
		discount = subtotal
	}

	discounted := subtotal.MustSubtract(discount)

	// Loyalty redemption is bounded by the customer's points and by the
	// discounted subtotal; partial point usage is reported back so the
	// recorder deducts exactly what was consumed.
	pointsUsed := 0
	loyaltyDiscount := valueobject.ZeroDefault()
	if q.LoyaltyPointsRedeemed > 0 && q.LoyaltyPointValue.IsPositive() {
		pointsUsed = q.LoyaltyPointsRedeemed
		if pointsUsed > q.AvailablePoints {
			pointsUsed = q.AvailablePoints
		}
		maxByValue := discounted.Amount().Div(q.LoyaltyPointValue.Amount()).Floor()
		if maxByValue.LessThan(decimal.NewFromInt(int64(pointsUsed))) {
			pointsUsed = int(maxByValue.IntPart())
		}
		loyaltyDiscount = q.LoyaltyPointValue.MultiplyByInt(int64(pointsUsed)).RoundToUnit()
	}

	taxable := discounted.MustSubtract(loyaltyDiscount)
	tax := taxable.CalculatePercentage(q.TaxRatePct).RoundToUnit()
	total := taxable.MustAdd(tax)

	// Store and exchange credit reduce what is collected, not the
	// accounting total.
	creditApplied := q.StoreCreditApplied.MustAdd(q.ExchangeCreditApplied)
	netPayable := total.MustSubtract(creditApplied)
	unusedCredit := valueobject.ZeroDefault()
	if netPayable.IsNegative() {
		unusedCredit = netPayable.Negate()
		netPayable = valueobject.ZeroDefault()
	}

	pointsToEarn := 0
	if !q.IsCredit && q.PointsPerUnit.IsPositive() {
		pointsToEarn = int(taxable.Amount().Mul(q.PointsPerUnit).Floor().IntPart())
	}

	return Totals{
		Subtotal:        subtotal,
		Discount:        discount,
		LoyaltyDiscount: loyaltyDiscount,
		Tax:             tax,
		Total:           total,
		NetPayable:      netPayable,
		PointsToEarn:    pointsToEarn,
		PointsUsed:      pointsUsed,
		UnusedCredit:    unusedCredit,
	}, nil
}

func (e *Engine) validate(q Quote) error {
	if len(q.Items) == 0 {
		return shared.NewDomainError("EMPTY_CART", "Cannot price an empty cart")
	}
	for _, item := range q.Items {
		if item.Quantity <= 0 {
			return shared.NewDomainError("INVALID_QUANTITY", "Item quantity must be positive")
		}
		if item.ReturnedQuantity < 0 || item.ReturnedQuantity > item.Quantity {
			return shared.NewDomainError("INVALID_QUANTITY", "Returned quantity must be between zero and the purchased quantity")
		}
		if item.UnitPrice.IsNegative() {
			return shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
		}
	}
	if q.ManualDiscountPct.IsNegative() || q.ManualDiscountPct.GreaterThan(hundred) {
		return shared.NewDomainError("INVALID_DISCOUNT", "Manual discount must be between 0 and 100 percent")
	}
	if q.PromoDiscount.IsNegative() {
		return shared.NewDomainError("INVALID_DISCOUNT", "Promo discount cannot be negative")
	}
	if q.LoyaltyPointsRedeemed < 0 || q.AvailablePoints < 0 {
		return shared.NewDomainError("INVALID_POINTS", "Loyalty points cannot be negative")
	}
	if q.LoyaltyPointValue.IsNegative() {
		return shared.NewDomainError("INVALID_POINTS", "Loyalty point value cannot be negative")
	}
	if q.StoreCreditApplied.IsNegative() || q.ExchangeCreditApplied.IsNegative() {
		return shared.NewDomainError("INVALID_CREDIT", "Applied credit cannot be negative")
	}
	if q.TaxRatePct.IsNegative() {
		return shared.NewDomainError("INVALID_TAX_RATE", "Tax rate cannot be negative")
	}
	if q.PointsPerUnit.IsNegative() {
		return shared.NewDomainError("INVALID_POINTS", "Points accrual rate cannot be negative")
	}
	return nil
}
