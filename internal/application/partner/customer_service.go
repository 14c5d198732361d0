package partner

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/domain/partner"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/domain/shared/valueobject"
)

const maxConflictRetries = 3

// CustomerService handles customer registration, contact upkeep, and
// manual balance corrections. Sale and return flows mutate balances
// through their own transactions, not through this service.
type CustomerService struct {
	customerRepo   partner.CustomerRepository
	balanceRepo    partner.BalanceEntryRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewCustomerService creates a customer service.
func NewCustomerService(customerRepo partner.CustomerRepository, balanceRepo partner.BalanceEntryRepository, logger *zap.Logger) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		balanceRepo:  balanceRepo,
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher for domain events.
func (s *CustomerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create registers a new customer.
func (s *CustomerService) Create(ctx context.Context, actor shared.Actor, req CreateCustomerRequest) (*CustomerResponse, error) {
	if existing, err := s.customerRepo.FindByCode(ctx, actor.TenantID, req.Code); err == nil && existing != nil {
		return nil, shared.NewConflictError("ALREADY_EXISTS", "Customer with this code already exists")
	} else if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	customer, err := partner.NewCustomer(actor.TenantID, req.Code, req.Name, req.Phone, req.Email)
	if err != nil {
		return nil, err
	}
	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, customer)

	s.logger.Info("customer created",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("customer_id", customer.ID.String()),
		zap.String("code", customer.Code))

	resp := ToCustomerResponse(customer)
	return &resp, nil
}

// Get returns one customer by ID.
func (s *CustomerService) Get(ctx context.Context, actor shared.Actor, customerID uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByIDForTenant(ctx, actor.TenantID, customerID)
	if err != nil {
		return nil, err
	}
	resp := ToCustomerResponse(customer)
	return &resp, nil
}

// GetByCode returns one customer by code.
func (s *CustomerService) GetByCode(ctx context.Context, actor shared.Actor, code string) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByCode(ctx, actor.TenantID, code)
	if err != nil {
		return nil, err
	}
	resp := ToCustomerResponse(customer)
	return &resp, nil
}

// List returns the tenant's customers.
func (s *CustomerService) List(ctx context.Context, actor shared.Actor, filter shared.Filter) ([]CustomerResponse, error) {
	customers, err := s.customerRepo.FindAllForTenant(ctx, actor.TenantID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]CustomerResponse, 0, len(customers))
	for idx := range customers {
		out = append(out, ToCustomerResponse(&customers[idx]))
	}
	return out, nil
}

// UpdateContact updates a customer's contact details.
func (s *CustomerService) UpdateContact(ctx context.Context, actor shared.Actor, customerID uuid.UUID, req UpdateCustomerRequest) (*CustomerResponse, error) {
	var resp *CustomerResponse
	err := s.withConflictRetry(func() error {
		customer, err := s.customerRepo.FindByIDForTenant(ctx, actor.TenantID, customerID)
		if err != nil {
			return err
		}
		if err := customer.UpdateContact(req.Name, req.Phone, req.Email); err != nil {
			return err
		}
		if err := s.customerRepo.SaveWithLock(ctx, customer); err != nil {
			return err
		}
		r := ToCustomerResponse(customer)
		resp = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// AdjustBalance posts a manual points or store credit correction.
// Manager-only; every correction leaves a signed balance entry.
func (s *CustomerService) AdjustBalance(ctx context.Context, actor shared.Actor, customerID uuid.UUID, req AdjustBalanceRequest) (*CustomerResponse, error) {
	if !actor.Role.CanCorrectStock() {
		return nil, shared.NewForbiddenError("FORBIDDEN", "Balance corrections require manager authority")
	}

	var resp *CustomerResponse
	err := s.withConflictRetry(func() error {
		customer, err := s.customerRepo.FindByIDForTenant(ctx, actor.TenantID, customerID)
		if err != nil {
			return err
		}

		var entry *partner.BalanceEntry
		switch partner.BalanceKind(req.Kind) {
		case partner.BalanceKindPoints:
			if req.Points == 0 {
				return shared.NewDomainError("INVALID_ADJUSTMENT", "Points adjustment cannot be zero")
			}
			if req.Points > 0 {
				entry, err = customer.AddPoints(req.Points, partner.BalanceReasonManual, partner.BalanceRef{}, actor.UserID)
			} else {
				entry, err = customer.DeductPoints(-req.Points, partner.BalanceReasonManual, partner.BalanceRef{}, actor.UserID)
			}
		case partner.BalanceKindStoreCredit:
			if req.Amount.IsZero() {
				return shared.NewDomainError("INVALID_ADJUSTMENT", "Credit adjustment cannot be zero")
			}
			if req.Amount.IsPositive() {
				entry, err = customer.AddStoreCredit(valueobject.NewDefault(req.Amount), partner.BalanceReasonManual, partner.BalanceRef{}, actor.UserID)
			} else {
				entry, err = customer.DeductStoreCredit(valueobject.NewDefault(req.Amount.Neg()), partner.BalanceReasonManual, partner.BalanceRef{}, actor.UserID)
			}
		default:
			return shared.NewDomainError("INVALID_KIND", "Unknown balance kind")
		}
		if err != nil {
			return err
		}
		entry.Note = req.Note

		if err := s.balanceRepo.Append(ctx, entry); err != nil {
			return err
		}
		if err := s.customerRepo.SaveWithLock(ctx, customer); err != nil {
			return err
		}
		s.publishEvents(ctx, customer)

		r := ToCustomerResponse(customer)
		resp = &r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("customer balance adjusted",
		zap.String("customer_id", customerID.String()),
		zap.String("kind", req.Kind),
		zap.String("actor_id", actor.UserID.String()))

	return resp, nil
}

// GetBalanceHistory returns a customer's balance movements.
func (s *CustomerService) GetBalanceHistory(ctx context.Context, actor shared.Actor, customerID uuid.UUID, filter shared.Filter) ([]BalanceEntryResponse, error) {
	if _, err := s.customerRepo.FindByIDForTenant(ctx, actor.TenantID, customerID); err != nil {
		return nil, err
	}
	entries, err := s.balanceRepo.FindByCustomer(ctx, actor.TenantID, customerID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]BalanceEntryResponse, 0, len(entries))
	for idx := range entries {
		out = append(out, ToBalanceEntryResponse(&entries[idx]))
	}
	return out, nil
}

// Deactivate blocks further sales against the customer account.
func (s *CustomerService) Deactivate(ctx context.Context, actor shared.Actor, customerID uuid.UUID) error {
	return s.withConflictRetry(func() error {
		customer, err := s.customerRepo.FindByIDForTenant(ctx, actor.TenantID, customerID)
		if err != nil {
			return err
		}
		customer.Deactivate()
		return s.customerRepo.SaveWithLock(ctx, customer)
	})
}

// Activate re-enables a deactivated customer account.
func (s *CustomerService) Activate(ctx context.Context, actor shared.Actor, customerID uuid.UUID) error {
	return s.withConflictRetry(func() error {
		customer, err := s.customerRepo.FindByIDForTenant(ctx, actor.TenantID, customerID)
		if err != nil {
			return err
		}
		customer.Activate()
		return s.customerRepo.SaveWithLock(ctx, customer)
	})
}

func (s *CustomerService) withConflictRetry(fn func() error) error {
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

func (s *CustomerService) publishEvents(ctx context.Context, aggregate shared.AggregateRoot) {
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
