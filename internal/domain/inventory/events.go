package inventory

import (
	"github.com/google/uuid"

	"github.com/pos/backend/internal/domain/shared"
)

// Event types for the inventory context.
const (
	EventTypeStockAdjusted    = "inventory.stock.adjusted"
	EventTypeStockTransferred = "inventory.stock.transferred"
	EventTypeStockDepleted    = "inventory.stock.depleted"
)

// StockAdjustedEvent is emitted for every committed stock mutation. The
// applied delta may differ from the requested one when the clamp policy
// floored the cell at zero.
type StockAdjustedEvent struct {
	shared.BaseDomainEvent
	VariantID uuid.UUID     `json:"variant_id"`
	StoreID   uuid.UUID     `json:"store_id"`
	Applied   int           `json:"applied"`
	Resulting int           `json:"resulting"`
	Reason    HistoryReason `json:"reason"`
	ActorID   uuid.UUID     `json:"actor_id"`
}

// NewStockAdjustedEvent creates a new StockAdjustedEvent.
func NewStockAdjustedEvent(c *StockCell, applied int, reason HistoryReason, actorID uuid.UUID) *StockAdjustedEvent {
	return &StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAdjusted, "StockCell", c.ID, c.TenantID),
		VariantID:       c.VariantID,
		StoreID:         c.StoreID,
		Applied:         applied,
		Resulting:       c.Quantity,
		Reason:          reason,
		ActorID:         actorID,
	}
}

// StockTransferredEvent is emitted once per completed inter-store
// transfer, after both cells committed.
type StockTransferredEvent struct {
	shared.BaseDomainEvent
	VariantID     uuid.UUID `json:"variant_id"`
	SourceStoreID uuid.UUID `json:"source_store_id"`
	DestStoreID   uuid.UUID `json:"dest_store_id"`
	Quantity      int       `json:"quantity"`
	ActorID       uuid.UUID `json:"actor_id"`
}

// NewStockTransferredEvent creates a new StockTransferredEvent.
func NewStockTransferredEvent(tenantID, variantID, sourceStoreID, destStoreID uuid.UUID, qty int, actorID uuid.UUID) *StockTransferredEvent {
	return &StockTransferredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockTransferred, "StockCell", variantID, tenantID),
		VariantID:       variantID,
		SourceStoreID:   sourceStoreID,
		DestStoreID:     destStoreID,
		Quantity:        qty,
		ActorID:         actorID,
	}
}

// StockDepletedEvent is emitted when a mutation leaves a cell at zero.
type StockDepletedEvent struct {
	shared.BaseDomainEvent
	VariantID uuid.UUID `json:"variant_id"`
	StoreID   uuid.UUID `json:"store_id"`
}

// NewStockDepletedEvent creates a new StockDepletedEvent.
func NewStockDepletedEvent(c *StockCell) *StockDepletedEvent {
	return &StockDepletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockDepleted, "StockCell", c.ID, c.TenantID),
		VariantID:       c.VariantID,
		StoreID:         c.StoreID,
	}
}
