package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/shared"
)

// Event types for the catalog context.
const (
	EventTypeVariantCreated      = "catalog.variant.created"
	EventTypeVariantPriceChanged = "catalog.variant.price_changed"
)

// VariantCreatedEvent is emitted when a new variant enters the catalog.
type VariantCreatedEvent struct {
	shared.BaseDomainEvent
	SKU         string `json:"sku"`
	ProductName string `json:"product_name"`
}

// NewVariantCreatedEvent creates a new VariantCreatedEvent.
func NewVariantCreatedEvent(v *ProductVariant) *VariantCreatedEvent {
	return &VariantCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVariantCreated, "ProductVariant", v.ID, v.TenantID),
		SKU:             v.SKU,
		ProductName:     v.ProductName,
	}
}

// VariantPriceChangedEvent is emitted when a variant's list price changes.
// Existing sales are unaffected; this is audit trail only.
type VariantPriceChangedEvent struct {
	shared.BaseDomainEvent
	SKU      string          `json:"sku"`
	OldPrice decimal.Decimal `json:"old_price"`
	NewPrice decimal.Decimal `json:"new_price"`
}

// NewVariantPriceChangedEvent creates a new VariantPriceChangedEvent.
func NewVariantPriceChangedEvent(v *ProductVariant, oldPrice, newPrice decimal.Decimal) *VariantPriceChangedEvent {
	return &VariantPriceChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVariantPriceChanged, "ProductVariant", v.ID, v.TenantID),
		SKU:             v.SKU,
		OldPrice:        oldPrice,
		NewPrice:        newPrice,
	}
}
