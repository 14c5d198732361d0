package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/pos/backend/internal/domain/shared"
)

// HistoryReason classifies why a stock quantity changed.
type HistoryReason string

const (
	ReasonSale             HistoryReason = "SALE"
	ReasonReturn           HistoryReason = "RETURN"
	ReasonRestock          HistoryReason = "RESTOCK"
	ReasonTransfer         HistoryReason = "TRANSFER"
	ReasonManualCorrection HistoryReason = "MANUAL_CORRECTION"
)

// String returns the string representation of HistoryReason.
func (r HistoryReason) String() string {
	return string(r)
}

// IsValid returns true if the reason is a known HistoryReason.
func (r HistoryReason) IsValid() bool {
	switch r {
	case ReasonSale, ReasonReturn, ReasonRestock, ReasonTransfer, ReasonManualCorrection:
		return true
	}
	return false
}

// StockHistoryEntry is one immutable line of the append-only stock ledger.
// Once created, entries are never edited or deleted; corrections are new
// entries with ReasonManualCorrection. Every entry is written in the same
// transaction as the stock mutation it records, so no entry exists without
// a matching quantity change and vice versa.
type StockHistoryEntry struct {
	shared.BaseEntity
	TenantID    uuid.UUID     `gorm:"type:uuid;not null;index:idx_stock_history_tenant_time,priority:1"`
	StockCellID uuid.UUID     `gorm:"type:uuid;not null;index:idx_stock_history_cell"`
	VariantID   uuid.UUID     `gorm:"type:uuid;not null;index:idx_stock_history_variant"`
	StoreID     uuid.UUID     `gorm:"type:uuid;not null;index:idx_stock_history_store"`
	Change      int           `gorm:"not null"` // signed delta actually applied
	Resulting   int           `gorm:"not null"` // absolute stock after the change
	Reason      HistoryReason `gorm:"type:varchar(30);not null;index"`
	ActorID     uuid.UUID     `gorm:"type:uuid;not null"`
	Note        string        `gorm:"type:varchar(255)"`
	RecordedAt  time.Time     `gorm:"type:timestamptz;not null;index:idx_stock_history_tenant_time,priority:2"`
}

// TableName returns the table name for GORM.
func (StockHistoryEntry) TableName() string {
	return "stock_history_entries"
}

// NewStockHistoryEntry creates a new history entry. Change may be zero
// when a negative adjustment was fully clamped; the note must say so.
func NewStockHistoryEntry(
	tenantID, cellID, variantID, storeID uuid.UUID,
	change, resulting int,
	reason HistoryReason,
	actorID uuid.UUID,
	note string,
) (*StockHistoryEntry, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if cellID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CELL", "Stock cell ID cannot be empty")
	}
	if !reason.IsValid() {
		return nil, shared.NewDomainError("INVALID_REASON", "Invalid stock history reason")
	}
	if actorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Acting user ID cannot be empty")
	}
	if resulting < 0 {
		return nil, shared.NewDomainError("INVALID_RESULT", "Resulting stock cannot be negative")
	}

	return &StockHistoryEntry{
		BaseEntity:  shared.NewBaseEntity(),
		TenantID:    tenantID,
		StockCellID: cellID,
		VariantID:   variantID,
		StoreID:     storeID,
		Change:      change,
		Resulting:   resulting,
		Reason:      reason,
		ActorID:     actorID,
		Note:        note,
		RecordedAt:  time.Now(),
	}, nil
}
