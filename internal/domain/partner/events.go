package partner

import (
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/shared"
)

// Event types for the partner context.
const (
	EventTypeCustomerCreated        = "partner.customer.created"
	EventTypeCustomerBalanceChanged = "partner.customer.balance_changed"
)

// CustomerCreatedEvent is emitted when a customer is registered.
type CustomerCreatedEvent struct {
	shared.BaseDomainEvent
	Code string `json:"code"`
	Name string `json:"name"`
}

// NewCustomerCreatedEvent creates a new CustomerCreatedEvent.
func NewCustomerCreatedEvent(c *Customer) *CustomerCreatedEvent {
	return &CustomerCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerCreated, "Customer", c.ID, c.TenantID),
		Code:            c.Code,
		Name:            c.Name,
	}
}

// CustomerBalanceChangedEvent is emitted for loyalty or credit movements.
type CustomerBalanceChangedEvent struct {
	shared.BaseDomainEvent
	Kind      BalanceKind     `json:"kind"`
	Change    decimal.Decimal `json:"change"`
	Resulting decimal.Decimal `json:"resulting"`
	Reason    BalanceReason   `json:"reason"`
}

// NewCustomerBalanceChangedEvent creates a new CustomerBalanceChangedEvent.
func NewCustomerBalanceChangedEvent(c *Customer, entry *BalanceEntry) *CustomerBalanceChangedEvent {
	return &CustomerBalanceChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerBalanceChanged, "Customer", c.ID, c.TenantID),
		Kind:            entry.Kind,
		Change:          entry.Change,
		Resulting:       entry.Resulting,
		Reason:          entry.Reason,
	}
}
