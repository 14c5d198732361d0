package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/catalog"
)

// CreateVariantRequest registers a sellable variant
type CreateVariantRequest struct {
	SKU         string          `json:"sku" binding:"required,max=64"`
	ProductName string          `json:"product_name" binding:"required,max=200"`
	VariantName string          `json:"variant_name,omitempty" binding:"max=200"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
}

// ChangePriceRequest updates a variant's selling price
type ChangePriceRequest struct {
	UnitPrice decimal.Decimal `json:"unit_price" binding:"required"`
}

// VariantResponse is the read model for a product variant
type VariantResponse struct {
	ID          uuid.UUID       `json:"id"`
	SKU         string          `json:"sku"`
	ProductName string          `json:"product_name"`
	VariantName string          `json:"variant_name,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ToVariantResponse converts a variant aggregate to its response DTO
func ToVariantResponse(v *catalog.ProductVariant) VariantResponse {
	return VariantResponse{
		ID:          v.ID,
		SKU:         v.SKU,
		ProductName: v.ProductName,
		VariantName: v.VariantName,
		UnitPrice:   v.UnitPrice,
		UnitCost:    v.UnitCost,
		Active:      v.Active,
		CreatedAt:   v.CreatedAt,
	}
}
