package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/pos/backend/internal/domain/shared"
)

// ProductVariantRepository defines persistence operations for product variants.
type ProductVariantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ProductVariant, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ProductVariant, error)
	FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*ProductVariant, error)
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]ProductVariant, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]ProductVariant, error)
	Save(ctx context.Context, variant *ProductVariant) error
	SaveWithLock(ctx context.Context, variant *ProductVariant) error
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
}
