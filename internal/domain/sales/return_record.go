package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/domain/shared/valueobject"
)

// RefundMethod is how a return's value goes back to the customer
type RefundMethod string

const (
	RefundMethodCash        RefundMethod = "CASH"
	RefundMethodStoreCredit RefundMethod = "STORE_CREDIT"
	RefundMethodExchange    RefundMethod = "EXCHANGE"
)

// IsValid checks if the refund method is known
func (m RefundMethod) IsValid() bool {
	switch m {
	case RefundMethodCash, RefundMethodStoreCredit, RefundMethodExchange:
		return true
	}
	return false
}

// String returns the string representation of RefundMethod
func (m RefundMethod) String() string {
	return string(m)
}

// RequiresCustomer returns true when the method needs a linked customer.
// Store credit and exchange have nowhere to land without one; falling
// back to cash silently is not allowed.
func (m RefundMethod) RequiresCustomer() bool {
	return m == RefundMethodStoreCredit || m == RefundMethodExchange
}

// ReturnLine is one returned line, priced at the sale item's frozen
// unit price.
type ReturnLine struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ReturnID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	SaleItemID   uuid.UUID       `gorm:"type:uuid;not null"`
	VariantID    uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity     int             `gorm:"not null"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	RefundAmount decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt    time.Time
}

// TableName returns the table name for GORM
func (ReturnLine) TableName() string {
	return "return_lines"
}

// ReturnRecord documents one processed return or exchange against a
// committed sale. Immutable once created, except that an exchange record
// is marked claimed when a replacement sale spends its credit.
type ReturnRecord struct {
	shared.TenantAggregateRoot
	SaleID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	StoreID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	ActorID         uuid.UUID       `gorm:"type:uuid;not null"`
	CustomerID      *uuid.UUID      `gorm:"type:uuid"`
	Reason          string          `gorm:"size:255;not null"`
	Notes           string          `gorm:"size:500"`
	RefundMethod    RefundMethod    `gorm:"size:20;not null"`
	Lines           []ReturnLine    `gorm:"foreignKey:ReturnID"`
	RefundValue     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LoyaltyClawback int             `gorm:"not null;default:0"`
	ClaimedBySaleID *uuid.UUID      `gorm:"type:uuid;index"`
	ProcessedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReturnRecord) TableName() string {
	return "return_records"
}

// ReturnRequestLine is one requested line before validation
type ReturnRequestLine struct {
	SaleItemID uuid.UUID
	Quantity   int
}

// NewReturnRecord builds the return document for an already-validated
// request. Lines are priced from the sale's frozen unit prices; the
// caller performs the returnable-quantity validation against the sale
// under the same transaction that mutates it.
func NewReturnRecord(sale *Sale, request []ReturnRequestLine, reason, notes string, method RefundMethod, actorID uuid.UUID) (*ReturnRecord, error) {
	if sale == nil {
		return nil, shared.NewDomainError("INVALID_SALE", "Sale cannot be nil")
	}
	if reason == "" {
		return nil, shared.NewDomainError("INVALID_REASON", "Return reason is required")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_REFUND_METHOD", "Unknown refund method")
	}
	if method.RequiresCustomer() && sale.CustomerID == nil {
		return nil, shared.NewDomainError("CUSTOMER_REQUIRED", "Store credit and exchange settlements require a linked customer")
	}
	if actorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Acting user is required")
	}
	if len(request) == 0 {
		return nil, shared.NewDomainError("NO_ITEMS", "Return request has no lines")
	}

	record := &ReturnRecord{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(sale.TenantID),
		SaleID:              sale.ID,
		StoreID:             sale.StoreID,
		ActorID:             actorID,
		CustomerID:          sale.CustomerID,
		Reason:              reason,
		Notes:               notes,
		RefundMethod:        method,
		Lines:               make([]ReturnLine, 0, len(request)),
		RefundValue:         decimal.Zero,
		ProcessedAt:         time.Now(),
	}

	for _, line := range request {
		item := sale.GetItem(line.SaleItemID)
		if item == nil {
			return nil, shared.NewDomainError("ITEM_NOT_FOUND", "Sale item not found")
		}
		if line.Quantity <= 0 {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Return quantity must be positive")
		}

		refund := item.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		record.Lines = append(record.Lines, ReturnLine{
			ID:           uuid.New(),
			ReturnID:     record.ID,
			SaleItemID:   item.ID,
			VariantID:    item.VariantID,
			Quantity:     line.Quantity,
			UnitPrice:    item.UnitPrice,
			RefundAmount: refund,
			CreatedAt:    record.ProcessedAt,
		})
		record.RefundValue = record.RefundValue.Add(refund)
	}

	record.LoyaltyClawback = sale.LoyaltyClawback(valueobject.NewDefault(record.RefundValue))

	return record, nil
}

// HasUnclaimedExchangeCredit reports whether the record still carries
// exchange credit that no replacement sale has spent.
func (r *ReturnRecord) HasUnclaimedExchangeCredit() bool {
	return r.RefundMethod == RefundMethodExchange && r.ClaimedBySaleID == nil
}

// ClaimExchangeCredit marks the exchange refund as consumed by a
// replacement sale. Each record funds at most one sale; a second claim
// is a conflict.
func (r *ReturnRecord) ClaimExchangeCredit(saleID uuid.UUID) error {
	if r.RefundMethod != RefundMethodExchange {
		return shared.NewDomainError("INVALID_EXCHANGE", "Only exchange returns carry credit")
	}
	if saleID == uuid.Nil {
		return shared.NewDomainError("INVALID_SALE", "Claiming sale ID cannot be empty")
	}
	if r.ClaimedBySaleID != nil {
		return shared.NewConflictError("EXCHANGE_CREDIT_CLAIMED", "Exchange credit was already spent")
	}
	r.ClaimedBySaleID = &saleID
	r.IncrementVersion()
	return nil
}

// GetRefundValueMoney returns the total refund as Money
func (r *ReturnRecord) GetRefundValueMoney() valueobject.Money {
	return valueobject.NewDefault(r.RefundValue)
}

// TotalReturnedQuantity returns the unit count across all lines
func (r *ReturnRecord) TotalReturnedQuantity() int {
	total := 0
	for _, line := range r.Lines {
		total += line.Quantity
	}
	return total
}
