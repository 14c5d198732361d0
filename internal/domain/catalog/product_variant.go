package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/domain/shared/valueobject"
)

// ProductVariant is a purchasable SKU-level unit of a product, e.g. one
// size/colour combination. It is the aggregate root of the catalog
// context. Per-store stock is NOT held here: the stock ledger owns one
// StockCell per (variant, store) pair and is the single authoritative
// read path for quantities.
type ProductVariant struct {
	shared.TenantAggregateRoot
	SKU         string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_variant_tenant_sku,priority:2"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	VariantName string          `gorm:"type:varchar(200)"` // e.g. "Red / XL"
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Active      bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM.
func (ProductVariant) TableName() string {
	return "product_variants"
}

// NewProductVariant creates a new product variant.
func NewProductVariant(tenantID uuid.UUID, sku, productName, variantName string, unitPrice, unitCost valueobject.Money) (*ProductVariant, error) {
	if err := validateSKU(sku); err != nil {
		return nil, err
	}
	if productName == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(productName) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}

	v := &ProductVariant{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SKU:                 strings.ToUpper(sku),
		ProductName:         productName,
		VariantName:         variantName,
		UnitPrice:           unitPrice.Amount(),
		UnitCost:            unitCost.Amount(),
		Active:              true,
	}

	v.AddDomainEvent(NewVariantCreatedEvent(v))

	return v, nil
}

// ChangePrice updates the list price. Committed sales are unaffected:
// every SaleItem freezes its own unit price snapshot at sale time.
func (v *ProductVariant) ChangePrice(price valueobject.Money) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	oldPrice := v.UnitPrice
	v.UnitPrice = price.Amount()
	v.UpdatedAt = time.Now()
	v.IncrementVersion()

	v.AddDomainEvent(NewVariantPriceChangedEvent(v, oldPrice, v.UnitPrice))

	return nil
}

// ChangeCost updates the unit cost used for margin reporting.
func (v *ProductVariant) ChangeCost(cost valueobject.Money) error {
	if cost.IsNegative() {
		return shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}

	v.UnitCost = cost.Amount()
	v.UpdatedAt = time.Now()
	v.IncrementVersion()

	return nil
}

// Deactivate removes the variant from sale without deleting it; stock
// cells and history for the variant remain intact.
func (v *ProductVariant) Deactivate() error {
	if !v.Active {
		return shared.NewDomainError("ALREADY_INACTIVE", "Variant is already inactive")
	}

	v.Active = false
	v.UpdatedAt = time.Now()
	v.IncrementVersion()

	return nil
}

// Activate puts the variant back on sale.
func (v *ProductVariant) Activate() error {
	if v.Active {
		return shared.NewDomainError("ALREADY_ACTIVE", "Variant is already active")
	}

	v.Active = true
	v.UpdatedAt = time.Now()
	v.IncrementVersion()

	return nil
}

// GetUnitPriceMoney returns the list price as Money.
func (v *ProductVariant) GetUnitPriceMoney() valueobject.Money {
	return valueobject.NewDefault(v.UnitPrice)
}

// GetUnitCostMoney returns the unit cost as Money.
func (v *ProductVariant) GetUnitCostMoney() valueobject.Money {
	return valueobject.NewDefault(v.UnitCost)
}

func validateSKU(sku string) error {
	if sku == "" {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if len(sku) > 64 {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot exceed 64 characters")
	}
	for _, r := range sku {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_SKU", "SKU can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}
