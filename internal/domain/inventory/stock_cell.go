package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pos/backend/internal/domain/shared"
)

// StockCell tracks the quantity of one product variant at one store. It
// is the aggregate root of the stock ledger; the composite identifier is
// VariantID + StoreID. All mutations go through Adjust, SetAbsolute, or
// the transfer pair, each of which produces exactly one history entry
// that must be persisted in the same transaction as the cell.
//
// Concurrent writers are serialized through the Version column: a save
// whose expected version no longer matches fails with a conflict and the
// caller re-fetches and retries. Two concurrent sales of the last unit
// therefore cannot both commit; the loser observes the depleted state.
type StockCell struct {
	shared.TenantAggregateRoot
	VariantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_cell_variant_store,priority:2"`
	StoreID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_cell_variant_store,priority:3"`
	Quantity  int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM.
func (StockCell) TableName() string {
	return "stock_cells"
}

// NewStockCell creates an empty stock cell for a variant-store pair.
func NewStockCell(tenantID, variantID, storeID uuid.UUID) (*StockCell, error) {
	if variantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VARIANT", "Variant ID cannot be empty")
	}
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Store ID cannot be empty")
	}

	return &StockCell{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		VariantID:           variantID,
		StoreID:             storeID,
		Quantity:            0,
	}, nil
}

// AdjustPolicy controls how a negative delta that would drive stock below
// zero is handled.
type AdjustPolicy int

const (
	// ClampToZero applies as much of the delta as stock allows and floors
	// the cell at zero. The history entry records the clamped change and
	// notes the shortfall. This keeps a sale from hard-failing on a minor
	// race; it is a documented policy, not a silent fallback.
	ClampToZero AdjustPolicy = iota
	// RejectBelowZero refuses the whole delta and mutates nothing.
	RejectBelowZero
)

// Adjust applies a signed quantity delta and returns the history entry
// recording it. With ClampToZero, an over-deduction floors the cell at
// zero and the entry's note calls out the clamp so the audit trail shows
// the forced oversell. Zero deltas are rejected.
func (c *StockCell) Adjust(delta int, reason HistoryReason, actorID uuid.UUID, note string, policy AdjustPolicy) (*StockHistoryEntry, error) {
	if delta == 0 {
		return nil, shared.NewDomainError("INVALID_DELTA", "Adjustment delta cannot be zero")
	}
	if !reason.IsValid() {
		return nil, shared.NewDomainError("INVALID_REASON", "Invalid stock history reason")
	}

	applied := delta
	if newQty := c.Quantity + delta; newQty < 0 {
		if policy == RejectBelowZero {
			return nil, shared.ErrInsufficientStock
		}
		applied = -c.Quantity
		shortfall := -delta - c.Quantity
		clampNote := fmt.Sprintf("clamped at zero, short by %d", shortfall)
		if note != "" {
			note = note + "; " + clampNote
		} else {
			note = clampNote
		}
	}

	c.Quantity += applied
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	entry, err := NewStockHistoryEntry(c.TenantID, c.ID, c.VariantID, c.StoreID, applied, c.Quantity, reason, actorID, note)
	if err != nil {
		return nil, err
	}

	c.AddDomainEvent(NewStockAdjustedEvent(c, applied, reason, actorID))

	return entry, nil
}

// SetAbsolute sets the cell to an exact counted quantity (stock taking,
// manual correction) and returns the history entry plus the signed delta
// that was applied.
func (c *StockCell) SetAbsolute(newTotal int, reason HistoryReason, actorID uuid.UUID, note string) (*StockHistoryEntry, int, error) {
	if newTotal < 0 {
		return nil, 0, shared.NewDomainError("INVALID_QUANTITY", "Absolute stock cannot be negative")
	}
	if !reason.IsValid() {
		return nil, 0, shared.NewDomainError("INVALID_REASON", "Invalid stock history reason")
	}

	delta := newTotal - c.Quantity
	c.Quantity = newTotal
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	entry, err := NewStockHistoryEntry(c.TenantID, c.ID, c.VariantID, c.StoreID, delta, c.Quantity, reason, actorID, note)
	if err != nil {
		return nil, 0, err
	}

	c.AddDomainEvent(NewStockAdjustedEvent(c, delta, reason, actorID))

	return entry, delta, nil
}

// TransferOut removes qty for an inter-store transfer. Unlike Adjust it
// never clamps: a transfer that cannot be covered fails without mutation,
// and the paired TransferIn on the destination must not be applied.
func (c *StockCell) TransferOut(qty int, actorID uuid.UUID, destStoreID uuid.UUID) (*StockHistoryEntry, error) {
	if qty <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Transfer quantity must be positive")
	}
	if c.Quantity < qty {
		return nil, shared.ErrInsufficientStock
	}

	c.Quantity -= qty
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	note := fmt.Sprintf("transfer to store %s", destStoreID)
	entry, err := NewStockHistoryEntry(c.TenantID, c.ID, c.VariantID, c.StoreID, -qty, c.Quantity, ReasonTransfer, actorID, note)
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// TransferIn adds qty arriving from an inter-store transfer.
func (c *StockCell) TransferIn(qty int, actorID uuid.UUID, sourceStoreID uuid.UUID) (*StockHistoryEntry, error) {
	if qty <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Transfer quantity must be positive")
	}

	c.Quantity += qty
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	note := fmt.Sprintf("transfer from store %s", sourceStoreID)
	entry, err := NewStockHistoryEntry(c.TenantID, c.ID, c.VariantID, c.StoreID, qty, c.Quantity, ReasonTransfer, actorID, note)
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// IsDepleted returns true if no stock remains.
func (c *StockCell) IsDepleted() bool {
	return c.Quantity == 0
}

// CanCover returns true if the cell holds at least qty units.
func (c *StockCell) CanCover(qty int) bool {
	return c.Quantity >= qty
}
