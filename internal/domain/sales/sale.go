package sales

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/pricing"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/domain/shared/valueobject"
)

// SaleStatus represents the lifecycle state of a sale
type SaleStatus string

const (
	SaleStatusBuilding          SaleStatus = "BUILDING"
	SaleStatusPriced            SaleStatus = "PRICED"
	SaleStatusCommitted         SaleStatus = "COMMITTED"
	SaleStatusPartiallyReturned SaleStatus = "PARTIALLY_RETURNED"
	SaleStatusFullyReturned     SaleStatus = "FULLY_RETURNED"
)

// IsValid checks if the status is a valid SaleStatus
func (s SaleStatus) IsValid() bool {
	switch s {
	case SaleStatusBuilding, SaleStatusPriced, SaleStatusCommitted,
		SaleStatusPartiallyReturned, SaleStatusFullyReturned:
		return true
	}
	return false
}

// String returns the string representation of SaleStatus
func (s SaleStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// Committed is not terminal; return events move it forward.
func (s SaleStatus) CanTransitionTo(target SaleStatus) bool {
	switch s {
	case SaleStatusBuilding:
		return target == SaleStatusPriced
	case SaleStatusPriced:
		return target == SaleStatusBuilding || target == SaleStatusCommitted
	case SaleStatusCommitted:
		return target == SaleStatusPartiallyReturned || target == SaleStatusFullyReturned
	case SaleStatusPartiallyReturned:
		return target == SaleStatusFullyReturned
	case SaleStatusFullyReturned:
		return false
	}
	return false
}

// IsCommitted returns true once the sale has been settled and persisted,
// including the post-return states.
func (s SaleStatus) IsCommitted() bool {
	return s == SaleStatusCommitted || s == SaleStatusPartiallyReturned || s == SaleStatusFullyReturned
}

// PaymentMethod is how the net payable was settled
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
	PaymentMethodCredit   PaymentMethod = "CREDIT"
)

// IsValid checks if the payment method is known
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer, PaymentMethodCredit:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// SaleItem is one line of a sale. UnitPrice is frozen at the moment the
// item enters the cart and never follows later catalog price changes.
// ReturnedQuantity only ever grows.
type SaleItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	VariantID        uuid.UUID       `gorm:"type:uuid;not null"`
	SKU              string          `gorm:"size:64;not null"`
	ProductName      string          `gorm:"size:255;not null"`
	Quantity         int             `gorm:"not null"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineSubtotal     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReturnedQuantity int             `gorm:"not null;default:0"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName returns the table name for GORM
func (SaleItem) TableName() string {
	return "sale_items"
}

// NewSaleItem creates a sale line with a frozen unit price snapshot
func NewSaleItem(saleID, variantID uuid.UUID, sku, productName string, quantity int, unitPrice valueobject.Money) (*SaleItem, error) {
	if variantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VARIANT", "Variant ID cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	now := time.Now()
	return &SaleItem{
		ID:           uuid.New(),
		SaleID:       saleID,
		VariantID:    variantID,
		SKU:          sku,
		ProductName:  productName,
		Quantity:     quantity,
		UnitPrice:    unitPrice.Amount(),
		LineSubtotal: unitPrice.Amount().Mul(decimal.NewFromInt(int64(quantity))),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ReturnableQuantity returns the units still eligible for return
func (i *SaleItem) ReturnableQuantity() int {
	return i.Quantity - i.ReturnedQuantity
}

// GetUnitPriceMoney returns the frozen unit price as Money
func (i *SaleItem) GetUnitPriceMoney() valueobject.Money {
	return valueobject.NewDefault(i.UnitPrice)
}

// markReturned increases the returned quantity. Monotonic only.
func (i *SaleItem) markReturned(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Return quantity must be positive")
	}
	if quantity > i.ReturnableQuantity() {
		return shared.NewDomainError("OVER_RETURN", fmt.Sprintf("Cannot return %d units, only %d returnable", quantity, i.ReturnableQuantity()))
	}
	i.ReturnedQuantity += quantity
	i.UpdatedAt = time.Now()
	return nil
}

// Installment is one recorded payment against a credit sale
type Installment struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ActorID   uuid.UUID       `gorm:"type:uuid;not null"`
	PaidAt    time.Time       `gorm:"not null"`
	Note      string          `gorm:"size:500"`
	CreatedAt time.Time
}

// TableName returns the table name for GORM
func (Installment) TableName() string {
	return "sale_installments"
}

// Sale is the aggregate root for one transaction at the till.
//
// After commit the monetary fields are immutable except through the
// return path, which recomputes from the post-return item set.
// OriginalSubtotal is frozen at commit and is the only base used for
// loyalty clawback ratios; it never changes no matter how many returns
// follow.
type Sale struct {
	shared.TenantAggregateRoot
	ReceiptNumber string     `gorm:"size:50;not null;uniqueIndex:idx_sales_tenant_receipt,priority:2"`
	StoreID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	CashierID     uuid.UUID  `gorm:"type:uuid;not null"`
	CustomerID    *uuid.UUID `gorm:"type:uuid;index"`
	Items         []SaleItem `gorm:"foreignKey:SaleID"`
	Status        SaleStatus `gorm:"size:30;not null;default:'BUILDING'"`

	Subtotal        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Discount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LoyaltyDiscount decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Tax             decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Total           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	NetPayable      decimal.Decimal `gorm:"type:decimal(18,4);not null"`

	// OriginalSubtotal is the pre-discount subtotal frozen at commit,
	// used only as the clawback ratio denominator. The frozen discount
	// figures are the scaling base for post-return recomputation so that
	// successive returns never compound. TaxRatePct is frozen with them;
	// a tenant config change after commit never reshapes a committed
	// sale's totals.
	OriginalSubtotal        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OriginalDiscount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OriginalLoyaltyDiscount decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxRatePct              decimal.Decimal `gorm:"type:decimal(9,4);not null"`

	PaymentMethod PaymentMethod   `gorm:"size:20"`
	IsCredit      bool            `gorm:"not null;default:false"`
	TotalPaid     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Installments  []Installment   `gorm:"foreignKey:SaleID"`

	PointsEarned        int             `gorm:"not null;default:0"`
	PointsUsed          int             `gorm:"not null;default:0"`
	StoreCreditUsed     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ExchangeCreditUsed  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OriginalSaleID      *uuid.UUID      `gorm:"type:uuid;index"`
	NeedsReconciliation bool            `gorm:"not null;default:false"`
	ReconciliationNote  string          `gorm:"size:500"`
	CommittedAt         *time.Time
}

// TableName returns the table name for GORM
func (Sale) TableName() string {
	return "sales"
}

// NewSale starts a sale in BUILDING state. Store and cashier are explicit
// parameters on every sale; there is no ambient current-store context.
func NewSale(tenantID, storeID, cashierID uuid.UUID, receiptNumber string, customerID *uuid.UUID) (*Sale, error) {
	if receiptNumber == "" {
		return nil, shared.NewDomainError("INVALID_RECEIPT_NUMBER", "Receipt number cannot be empty")
	}
	if len(receiptNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_RECEIPT_NUMBER", "Receipt number cannot exceed 50 characters")
	}
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Store ID cannot be empty")
	}
	if cashierID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CASHIER", "Cashier ID cannot be empty")
	}
	if customerID != nil && *customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be the nil UUID")
	}

	sale := &Sale{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ReceiptNumber:       receiptNumber,
		StoreID:             storeID,
		CashierID:           cashierID,
		CustomerID:          customerID,
		Items:               make([]SaleItem, 0),
		Status:              SaleStatusBuilding,
		Subtotal:            decimal.Zero,
		Discount:            decimal.Zero,
		LoyaltyDiscount:     decimal.Zero,
		Tax:                 decimal.Zero,
		Total:               decimal.Zero,
		NetPayable:          decimal.Zero,
		OriginalSubtotal:    decimal.Zero,
		TaxRatePct:          decimal.Zero,
		TotalPaid:           decimal.Zero,
		StoreCreditUsed:     decimal.Zero,
		ExchangeCreditUsed:  decimal.Zero,
	}

	return sale, nil
}

// AddItem adds a line to the cart, freezing the variant's current price.
// Any cart mutation invalidates prior pricing.
func (s *Sale) AddItem(variantID uuid.UUID, sku, productName string, quantity int, unitPrice valueobject.Money) (*SaleItem, error) {
	if err := s.ensureModifiable(); err != nil {
		return nil, err
	}

	for _, item := range s.Items {
		if item.VariantID == variantID {
			return nil, shared.NewDomainError("DUPLICATE_VARIANT", "Variant already in cart, update quantity instead")
		}
	}

	item, err := NewSaleItem(s.ID, variantID, sku, productName, quantity, unitPrice)
	if err != nil {
		return nil, err
	}

	s.Items = append(s.Items, *item)
	s.invalidatePricing()

	return item, nil
}

// UpdateItemQuantity changes the quantity of a cart line
func (s *Sale) UpdateItemQuantity(itemID uuid.UUID, quantity int) error {
	if err := s.ensureModifiable(); err != nil {
		return err
	}
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	for idx := range s.Items {
		if s.Items[idx].ID == itemID {
			s.Items[idx].Quantity = quantity
			s.Items[idx].LineSubtotal = s.Items[idx].UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
			s.Items[idx].UpdatedAt = time.Now()
			s.invalidatePricing()
			return nil
		}
	}

	return shared.NewDomainError("ITEM_NOT_FOUND", "Sale item not found")
}

// RemoveItem removes a cart line
func (s *Sale) RemoveItem(itemID uuid.UUID) error {
	if err := s.ensureModifiable(); err != nil {
		return err
	}

	for idx, item := range s.Items {
		if item.ID == itemID {
			s.Items = append(s.Items[:idx], s.Items[idx+1:]...)
			s.invalidatePricing()
			return nil
		}
	}

	return shared.NewDomainError("ITEM_NOT_FOUND", "Sale item not found")
}

// ApplyPricing stores the engine's output on the sale and moves it to
// PRICED. The figures are frozen verbatim; the sale never recomputes them.
func (s *Sale) ApplyPricing(totals pricing.Totals, pointsToEarn, pointsUsed int) error {
	if s.Status != SaleStatusBuilding && s.Status != SaleStatusPriced {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot price sale in %s status", s.Status))
	}
	if len(s.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Cannot price a sale without items")
	}

	s.Subtotal = totals.Subtotal.Amount()
	s.Discount = totals.Discount.Amount()
	s.LoyaltyDiscount = totals.LoyaltyDiscount.Amount()
	s.Tax = totals.Tax.Amount()
	s.Total = totals.Total.Amount()
	s.NetPayable = totals.NetPayable.Amount()
	s.PointsEarned = pointsToEarn
	s.PointsUsed = pointsUsed
	s.Status = SaleStatusPriced
	s.IncrementVersion()
	s.UpdatedAt = time.Now()

	return nil
}

// CommitOptions carries the settlement inputs for Commit
type CommitOptions struct {
	PaymentMethod      PaymentMethod
	IsCredit           bool
	DepositPaid        valueobject.Money
	StoreCreditUsed    valueobject.Money
	ExchangeCreditUsed valueobject.Money
	OriginalSaleID     *uuid.UUID
	TaxRatePct         decimal.Decimal
}

// Commit settles the sale. It freezes OriginalSubtotal, records the
// payment terms, and emits the committed event. Stock, loyalty, and cash
// side effects are driven by the application service after this point.
func (s *Sale) Commit(opts CommitOptions) error {
	if !s.Status.CanTransitionTo(SaleStatusCommitted) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot commit sale in %s status", s.Status))
	}
	if !opts.PaymentMethod.IsValid() {
		return shared.NewDomainError("INVALID_PAYMENT_METHOD", "Unknown payment method")
	}
	if opts.IsCredit && opts.PaymentMethod != PaymentMethodCredit {
		return shared.NewDomainError("INVALID_PAYMENT_METHOD", "Credit sales must use the credit payment method")
	}
	if opts.IsCredit && s.CustomerID == nil {
		return shared.NewDomainError("CUSTOMER_REQUIRED", "Credit sales require a linked customer")
	}
	storeCredit := opts.StoreCreditUsed.Amount()
	exchangeCredit := opts.ExchangeCreditUsed.Amount()
	if (storeCredit.IsPositive() || s.PointsUsed > 0) && s.CustomerID == nil {
		return shared.NewDomainError("CUSTOMER_REQUIRED", "Store credit and loyalty redemption require a linked customer")
	}
	if exchangeCredit.IsPositive() && opts.OriginalSaleID == nil {
		return shared.NewDomainError("INVALID_EXCHANGE", "Exchange credit requires the originating sale")
	}
	if opts.IsCredit {
		if opts.DepositPaid.IsNegative() {
			return shared.NewDomainError("INVALID_PAYMENT", "Deposit cannot be negative")
		}
		if opts.DepositPaid.Amount().GreaterThan(s.NetPayable) {
			return shared.NewDomainError("INVALID_PAYMENT", "Deposit cannot exceed net payable")
		}
	}

	now := time.Now()
	s.Status = SaleStatusCommitted
	s.PaymentMethod = opts.PaymentMethod
	s.IsCredit = opts.IsCredit
	s.StoreCreditUsed = storeCredit
	s.ExchangeCreditUsed = exchangeCredit
	s.OriginalSaleID = opts.OriginalSaleID
	s.OriginalSubtotal = s.Subtotal
	s.OriginalDiscount = s.Discount
	s.OriginalLoyaltyDiscount = s.LoyaltyDiscount
	s.TaxRatePct = opts.TaxRatePct
	s.CommittedAt = &now
	s.UpdatedAt = now

	if s.IsCredit {
		// Points never accrue on unpaid balances.
		s.PointsEarned = 0
		s.TotalPaid = opts.DepositPaid.Amount()
	} else {
		s.TotalPaid = s.NetPayable
	}

	s.IncrementVersion()
	s.AddDomainEvent(NewSaleCommittedEvent(s))

	return nil
}

// RecordInstallment registers a payment against a credit sale
func (s *Sale) RecordInstallment(amount valueobject.Money, actorID uuid.UUID, note string) (*Installment, error) {
	if !s.Status.IsCommitted() {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot record payment on an uncommitted sale")
	}
	if !s.IsCredit {
		return nil, shared.NewDomainError("NOT_CREDIT_SALE", "Sale is not on credit terms")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_PAYMENT", "Payment amount must be positive")
	}
	outstanding := s.NetPayable.Sub(s.TotalPaid)
	if amount.Amount().GreaterThan(outstanding) {
		return nil, shared.NewDomainError("INVALID_PAYMENT", fmt.Sprintf("Payment exceeds outstanding balance of %s", outstanding))
	}

	now := time.Now()
	installment := &Installment{
		ID:        uuid.New(),
		SaleID:    s.ID,
		Amount:    amount.Amount(),
		ActorID:   actorID,
		PaidAt:    now,
		Note:      note,
		CreatedAt: now,
	}
	s.Installments = append(s.Installments, *installment)
	s.TotalPaid = s.TotalPaid.Add(amount.Amount())
	s.IncrementVersion()
	s.UpdatedAt = now

	s.AddDomainEvent(NewInstallmentRecordedEvent(s, installment))

	return installment, nil
}

// ApplyReturn marks returned quantities on the sale's items and
// recomputes the post-return monetary fields at the tax rate frozen at
// commit. Validation is all-or-nothing: one over-returning line rejects
// the whole request with no mutation.
func (s *Sale) ApplyReturn(lines map[uuid.UUID]int) error {
	if !s.Status.IsCommitted() {
		return shared.NewDomainError("INVALID_STATE", "Cannot return against an uncommitted sale")
	}
	if s.Status == SaleStatusFullyReturned {
		return shared.NewDomainError("INVALID_STATE", "Sale is already fully returned")
	}
	if len(lines) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Return request has no lines")
	}

	// First pass validates every line before anything mutates.
	for itemID, qty := range lines {
		item := s.GetItem(itemID)
		if item == nil {
			return shared.NewDomainError("ITEM_NOT_FOUND", "Sale item not found")
		}
		if qty <= 0 {
			return shared.NewDomainError("INVALID_QUANTITY", "Return quantity must be positive")
		}
		if qty > item.ReturnableQuantity() {
			return shared.NewDomainError("OVER_RETURN", fmt.Sprintf("Cannot return %d units of %s, only %d returnable", qty, item.SKU, item.ReturnableQuantity()))
		}
	}

	for itemID, qty := range lines {
		item := s.GetItem(itemID)
		if err := item.markReturned(qty); err != nil {
			return err
		}
	}

	s.recomputeAfterReturn()

	if s.fullyReturned() {
		s.Status = SaleStatusFullyReturned
	} else {
		s.Status = SaleStatusPartiallyReturned
	}
	s.IncrementVersion()
	s.UpdatedAt = time.Now()

	return nil
}

// LoyaltyClawback computes the points to claw back for a refund value,
// proportional to the frozen original subtotal and floored so the
// customer never owes fractional points.
func (s *Sale) LoyaltyClawback(refundValue valueobject.Money) int {
	if s.OriginalSubtotal.IsZero() || s.PointsEarned == 0 {
		return 0
	}
	earned := decimal.NewFromInt(int64(s.PointsEarned))
	ratio := refundValue.Amount().Div(s.OriginalSubtotal)
	return int(earned.Mul(ratio).Floor().IntPart())
}

// FlagReconciliation marks the sale as needing async reconciliation after
// a post-persist side effect failed. The sale itself stands.
func (s *Sale) FlagReconciliation(note string) {
	s.NeedsReconciliation = true
	s.ReconciliationNote = note
	s.IncrementVersion()
	s.UpdatedAt = time.Now()
	s.AddDomainEvent(NewSaleReconciliationNeededEvent(s, note))
}

// ClearReconciliation resets the flag once the pending side effects landed
func (s *Sale) ClearReconciliation() {
	s.NeedsReconciliation = false
	s.ReconciliationNote = ""
	s.IncrementVersion()
	s.UpdatedAt = time.Now()
}

// GetItem returns an item by its ID
func (s *Sale) GetItem(itemID uuid.UUID) *SaleItem {
	for idx := range s.Items {
		if s.Items[idx].ID == itemID {
			return &s.Items[idx]
		}
	}
	return nil
}

// GetItemByVariant returns an item by variant ID
func (s *Sale) GetItemByVariant(variantID uuid.UUID) *SaleItem {
	for idx := range s.Items {
		if s.Items[idx].VariantID == variantID {
			return &s.Items[idx]
		}
	}
	return nil
}

// GetTotalMoney returns the accounting total as Money
func (s *Sale) GetTotalMoney() valueobject.Money {
	return valueobject.NewDefault(s.Total)
}

// GetNetPayableMoney returns the collected amount as Money
func (s *Sale) GetNetPayableMoney() valueobject.Money {
	return valueobject.NewDefault(s.NetPayable)
}

// Outstanding returns the unpaid balance of a credit sale
func (s *Sale) Outstanding() valueobject.Money {
	return valueobject.NewDefault(s.NetPayable.Sub(s.TotalPaid))
}

// ItemCount returns the number of lines on the sale
func (s *Sale) ItemCount() int {
	return len(s.Items)
}

func (s *Sale) ensureModifiable() error {
	if s.Status != SaleStatusBuilding && s.Status != SaleStatusPriced {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot modify sale in %s status", s.Status))
	}
	return nil
}

// invalidatePricing drops a prior pricing result after a cart mutation
func (s *Sale) invalidatePricing() {
	s.Status = SaleStatusBuilding
	s.Subtotal = decimal.Zero
	s.Discount = decimal.Zero
	s.LoyaltyDiscount = decimal.Zero
	s.Tax = decimal.Zero
	s.Total = decimal.Zero
	s.NetPayable = decimal.Zero
	s.PointsEarned = 0
	s.PointsUsed = 0
	s.IncrementVersion()
	s.UpdatedAt = time.Now()
}

// recomputeAfterReturn refreshes the display totals from the active
// (non-returned) item set. OriginalSubtotal is untouched; discount and
// loyalty discount shrink proportionally to keep the invariant
// total = subtotal - discount - loyaltyDiscount + tax. Tax is computed
// at the rate frozen at commit, never the current tenant config.
func (s *Sale) recomputeAfterReturn() {
	subtotal := decimal.Zero
	for _, item := range s.Items {
		active := decimal.NewFromInt(int64(item.Quantity - item.ReturnedQuantity))
		subtotal = subtotal.Add(item.UnitPrice.Mul(active))
	}

	ratio := decimal.Zero
	if s.OriginalSubtotal.IsPositive() {
		ratio = subtotal.Div(s.OriginalSubtotal)
	}

	s.Subtotal = subtotal
	s.Discount = s.OriginalDiscount.Mul(ratio).Round(0)
	s.LoyaltyDiscount = s.OriginalLoyaltyDiscount.Mul(ratio).Round(0)
	taxable := subtotal.Sub(s.Discount).Sub(s.LoyaltyDiscount)
	s.Tax = taxable.Mul(s.TaxRatePct).Div(decimal.NewFromInt(100)).Round(0)
	s.Total = taxable.Add(s.Tax)
}

func (s *Sale) fullyReturned() bool {
	for _, item := range s.Items {
		if item.ReturnedQuantity < item.Quantity {
			return false
		}
	}
	return true
}
