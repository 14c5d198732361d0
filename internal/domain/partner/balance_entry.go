package partner

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/shared"
)

// BalanceKind distinguishes the two customer balances
type BalanceKind string

const (
	BalanceKindPoints      BalanceKind = "POINTS"
	BalanceKindStoreCredit BalanceKind = "STORE_CREDIT"
)

// IsValid checks if the kind is known
func (k BalanceKind) IsValid() bool {
	return k == BalanceKindPoints || k == BalanceKindStoreCredit
}

// BalanceReason records why a balance moved
type BalanceReason string

const (
	BalanceReasonEarn        BalanceReason = "EARN"
	BalanceReasonRedeem      BalanceReason = "REDEEM"
	BalanceReasonClawback    BalanceReason = "CLAWBACK"
	BalanceReasonRefund      BalanceReason = "REFUND"
	BalanceReasonCreditSpend BalanceReason = "CREDIT_SPEND"
	BalanceReasonManual      BalanceReason = "MANUAL"
)

// IsValid checks if the reason is known
func (r BalanceReason) IsValid() bool {
	switch r {
	case BalanceReasonEarn, BalanceReasonRedeem, BalanceReasonClawback,
		BalanceReasonRefund, BalanceReasonCreditSpend, BalanceReasonManual:
		return true
	}
	return false
}

// String returns the string representation of BalanceReason
func (r BalanceReason) String() string {
	return string(r)
}

// BalanceRef links a balance movement to its originating document
type BalanceRef struct {
	SaleID   *uuid.UUID
	ReturnID *uuid.UUID
}

// BalanceEntry is one immutable movement on a customer balance. The
// trail is append-only; corrections are new entries.
type BalanceEntry struct {
	shared.BaseEntity
	TenantID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	CustomerID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Kind       BalanceKind     `gorm:"size:20;not null"`
	Change     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Resulting  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Reason     BalanceReason   `gorm:"size:30;not null"`
	SaleID     *uuid.UUID      `gorm:"type:uuid;index"`
	ReturnID   *uuid.UUID      `gorm:"type:uuid"`
	ActorID    uuid.UUID       `gorm:"type:uuid;not null"`
	Note       string          `gorm:"size:500"`
	RecordedAt time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (BalanceEntry) TableName() string {
	return "customer_balance_entries"
}

// NewBalanceEntry records a balance movement against the customer's
// already-mutated state. Resulting captures the post-change balance.
func NewBalanceEntry(c *Customer, kind BalanceKind, change decimal.Decimal, reason BalanceReason, ref BalanceRef, actorID uuid.UUID, note string) (*BalanceEntry, error) {
	if c == nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer cannot be nil")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_BALANCE_KIND", "Unknown balance kind")
	}
	if !reason.IsValid() {
		return nil, shared.NewDomainError("INVALID_BALANCE_REASON", "Unknown balance reason")
	}
	if change.IsZero() {
		return nil, shared.NewDomainError("INVALID_CHANGE", "Balance change cannot be zero")
	}
	if actorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Acting user is required")
	}

	resulting := decimal.NewFromInt(int64(c.LoyaltyPoints))
	if kind == BalanceKindStoreCredit {
		resulting = c.StoreCredit
	}
	if resulting.IsNegative() {
		return nil, shared.NewDomainError("INVALID_BALANCE", "Resulting balance cannot be negative")
	}

	return &BalanceEntry{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   c.TenantID,
		CustomerID: c.ID,
		Kind:       kind,
		Change:     change,
		Resulting:  resulting,
		Reason:     reason,
		SaleID:     ref.SaleID,
		ReturnID:   ref.ReturnID,
		ActorID:    actorID,
		Note:       note,
		RecordedAt: time.Now(),
	}, nil
}
