package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/domain/shared/valueobject"
)

const maxConflictRetries = 3

// VariantService manages the sellable catalog. Stock is deliberately
// absent here; quantities live in the stock ledger.
type VariantService struct {
	variantRepo    catalog.ProductVariantRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewVariantService creates a variant service.
func NewVariantService(variantRepo catalog.ProductVariantRepository, logger *zap.Logger) *VariantService {
	return &VariantService{
		variantRepo: variantRepo,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for domain events.
func (s *VariantService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create registers a new variant.
func (s *VariantService) Create(ctx context.Context, actor shared.Actor, req CreateVariantRequest) (*VariantResponse, error) {
	if existing, err := s.variantRepo.FindBySKU(ctx, actor.TenantID, req.SKU); err == nil && existing != nil {
		return nil, shared.NewConflictError("ALREADY_EXISTS", "Variant with this SKU already exists")
	} else if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	variant, err := catalog.NewProductVariant(actor.TenantID, req.SKU, req.ProductName, req.VariantName,
		valueobject.NewDefault(req.UnitPrice), valueobject.NewDefault(req.UnitCost))
	if err != nil {
		return nil, err
	}
	if err := s.variantRepo.Save(ctx, variant); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, variant)

	s.logger.Info("variant created",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("variant_id", variant.ID.String()),
		zap.String("sku", variant.SKU))

	resp := ToVariantResponse(variant)
	return &resp, nil
}

// Get returns one variant by ID.
func (s *VariantService) Get(ctx context.Context, actor shared.Actor, variantID uuid.UUID) (*VariantResponse, error) {
	variant, err := s.variantRepo.FindByIDForTenant(ctx, actor.TenantID, variantID)
	if err != nil {
		return nil, err
	}
	resp := ToVariantResponse(variant)
	return &resp, nil
}

// GetBySKU returns one variant by SKU.
func (s *VariantService) GetBySKU(ctx context.Context, actor shared.Actor, sku string) (*VariantResponse, error) {
	variant, err := s.variantRepo.FindBySKU(ctx, actor.TenantID, sku)
	if err != nil {
		return nil, err
	}
	resp := ToVariantResponse(variant)
	return &resp, nil
}

// List returns the tenant's variants.
func (s *VariantService) List(ctx context.Context, actor shared.Actor, filter shared.Filter) ([]VariantResponse, error) {
	variants, err := s.variantRepo.FindAllForTenant(ctx, actor.TenantID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]VariantResponse, 0, len(variants))
	for idx := range variants {
		out = append(out, ToVariantResponse(&variants[idx]))
	}
	return out, nil
}

// ChangePrice updates a variant's selling price. Committed sales keep
// the price they froze at sale time.
func (s *VariantService) ChangePrice(ctx context.Context, actor shared.Actor, variantID uuid.UUID, req ChangePriceRequest) (*VariantResponse, error) {
	var resp *VariantResponse
	err := s.withConflictRetry(func() error {
		variant, err := s.variantRepo.FindByIDForTenant(ctx, actor.TenantID, variantID)
		if err != nil {
			return err
		}
		if err := variant.ChangePrice(valueobject.NewDefault(req.UnitPrice)); err != nil {
			return err
		}
		if err := s.variantRepo.SaveWithLock(ctx, variant); err != nil {
			return err
		}
		s.publishEvents(ctx, variant)
		r := ToVariantResponse(variant)
		resp = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Deactivate removes the variant from sale. Existing stock and history
// stay intact.
func (s *VariantService) Deactivate(ctx context.Context, actor shared.Actor, variantID uuid.UUID) error {
	return s.withConflictRetry(func() error {
		variant, err := s.variantRepo.FindByIDForTenant(ctx, actor.TenantID, variantID)
		if err != nil {
			return err
		}
		if err := variant.Deactivate(); err != nil {
			return err
		}
		return s.variantRepo.SaveWithLock(ctx, variant)
	})
}

// Activate puts the variant back on sale.
func (s *VariantService) Activate(ctx context.Context, actor shared.Actor, variantID uuid.UUID) error {
	return s.withConflictRetry(func() error {
		variant, err := s.variantRepo.FindByIDForTenant(ctx, actor.TenantID, variantID)
		if err != nil {
			return err
		}
		if err := variant.Activate(); err != nil {
			return err
		}
		return s.variantRepo.SaveWithLock(ctx, variant)
	})
}

func (s *VariantService) withConflictRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = fn()
		if err == nil || !shared.IsConflict(err) {
			return err
		}
		s.logger.Debug("retrying after conflict", zap.Int("attempt", attempt+1))
	}
	return err
}

func (s *VariantService) publishEvents(ctx context.Context, aggregate shared.AggregateRoot) {
	if s.eventPublisher == nil {
		return
	}
	events := aggregate.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish domain events", zap.Error(err))
	}
	aggregate.ClearDomainEvents()
}
