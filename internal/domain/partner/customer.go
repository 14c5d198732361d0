package partner

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/domain/shared/valueobject"
)

var phoneRegex = regexp.MustCompile(`^[\d\s\-+()]{6,20}$`)

// Customer holds the loyalty and credit balances for one shopper.
//
// LoyaltyPoints and StoreCredit are never negative. Both balances are
// mutated only through the sale and return paths; every mutation appends
// a BalanceEntry so the balance history is reconstructible.
type Customer struct {
	shared.TenantAggregateRoot
	Code          string          `gorm:"size:50;not null;uniqueIndex:idx_customers_tenant_code,priority:2"`
	Name          string          `gorm:"size:255;not null"`
	Phone         string          `gorm:"size:20"`
	Email         string          `gorm:"size:255"`
	LoyaltyPoints int             `gorm:"not null;default:0"`
	StoreCredit   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Active        bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Customer) TableName() string {
	return "customers"
}

// NewCustomer creates a customer with zero balances
func NewCustomer(tenantID uuid.UUID, code, name, phone, email string) (*Customer, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Customer code cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Customer name cannot be empty")
	}
	if phone != "" && !phoneRegex.MatchString(phone) {
		return nil, shared.NewDomainError("INVALID_PHONE", "Phone number format is invalid")
	}

	customer := &Customer{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                name,
		Phone:               phone,
		Email:               email,
		LoyaltyPoints:       0,
		StoreCredit:         decimal.Zero,
		Active:              true,
	}

	customer.AddDomainEvent(NewCustomerCreatedEvent(customer))

	return customer, nil
}

// AddPoints credits loyalty points earned on a sale
func (c *Customer) AddPoints(points int, reason BalanceReason, ref BalanceRef, actorID uuid.UUID) (*BalanceEntry, error) {
	if points <= 0 {
		return nil, shared.NewDomainError("INVALID_POINTS", "Points to add must be positive")
	}

	c.LoyaltyPoints += points
	c.IncrementVersion()
	c.UpdatedAt = time.Now()

	entry, err := NewBalanceEntry(c, BalanceKindPoints, decimal.NewFromInt(int64(points)), reason, ref, actorID, "")
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// DeductPoints debits redeemed points. The balance never goes negative;
// redeeming more than available is a validation failure, not a clamp.
func (c *Customer) DeductPoints(points int, reason BalanceReason, ref BalanceRef, actorID uuid.UUID) (*BalanceEntry, error) {
	if points <= 0 {
		return nil, shared.NewDomainError("INVALID_POINTS", "Points to deduct must be positive")
	}
	if points > c.LoyaltyPoints {
		return nil, shared.NewDomainError("INSUFFICIENT_POINTS", fmt.Sprintf("Customer has %d points, cannot deduct %d", c.LoyaltyPoints, points))
	}

	c.LoyaltyPoints -= points
	c.IncrementVersion()
	c.UpdatedAt = time.Now()

	return NewBalanceEntry(c, BalanceKindPoints, decimal.NewFromInt(int64(-points)), reason, ref, actorID, "")
}

// ClawbackPoints subtracts points after a return. Unlike DeductPoints it
// clamps at zero: the customer may already have spent the earned points,
// and a return must still settle. Returns the points actually clawed back.
func (c *Customer) ClawbackPoints(points int, ref BalanceRef, actorID uuid.UUID) (*BalanceEntry, int, error) {
	if points <= 0 {
		return nil, 0, shared.NewDomainError("INVALID_POINTS", "Clawback must be positive")
	}

	applied := points
	note := ""
	if applied > c.LoyaltyPoints {
		note = fmt.Sprintf("clawback clamped, %d points short", applied-c.LoyaltyPoints)
		applied = c.LoyaltyPoints
	}
	if applied == 0 {
		return nil, 0, nil
	}

	c.LoyaltyPoints -= applied
	c.IncrementVersion()
	c.UpdatedAt = time.Now()

	entry, err := NewBalanceEntry(c, BalanceKindPoints, decimal.NewFromInt(int64(-applied)), BalanceReasonClawback, ref, actorID, note)
	if err != nil {
		return nil, 0, err
	}
	return entry, applied, nil
}

// AddStoreCredit credits a refund onto the customer's balance
func (c *Customer) AddStoreCredit(amount valueobject.Money, reason BalanceReason, ref BalanceRef, actorID uuid.UUID) (*BalanceEntry, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_CREDIT", "Credit amount must be positive")
	}

	c.StoreCredit = c.StoreCredit.Add(amount.Amount())
	c.IncrementVersion()
	c.UpdatedAt = time.Now()

	return NewBalanceEntry(c, BalanceKindStoreCredit, amount.Amount(), reason, ref, actorID, "")
}

// DeductStoreCredit debits credit spent on a sale. Never goes negative.
func (c *Customer) DeductStoreCredit(amount valueobject.Money, reason BalanceReason, ref BalanceRef, actorID uuid.UUID) (*BalanceEntry, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_CREDIT", "Credit amount must be positive")
	}
	if amount.Amount().GreaterThan(c.StoreCredit) {
		return nil, shared.NewDomainError("INSUFFICIENT_CREDIT", fmt.Sprintf("Customer has %s store credit, cannot deduct %s", c.StoreCredit, amount.Amount()))
	}

	c.StoreCredit = c.StoreCredit.Sub(amount.Amount())
	c.IncrementVersion()
	c.UpdatedAt = time.Now()

	return NewBalanceEntry(c, BalanceKindStoreCredit, amount.Amount().Neg(), reason, ref, actorID, "")
}

// GetStoreCreditMoney returns the credit balance as Money
func (c *Customer) GetStoreCreditMoney() valueobject.Money {
	return valueobject.NewDefault(c.StoreCredit)
}

// CanRedeem returns true if the customer holds at least the given points
func (c *Customer) CanRedeem(points int) bool {
	return points > 0 && c.LoyaltyPoints >= points
}

// CanSpendCredit returns true if the balance covers the amount
func (c *Customer) CanSpendCredit(amount valueobject.Money) bool {
	return amount.IsPositive() && !amount.Amount().GreaterThan(c.StoreCredit)
}

// UpdateContact changes the customer's contact details
func (c *Customer) UpdateContact(name, phone, email string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Customer name cannot be empty")
	}
	if phone != "" && !phoneRegex.MatchString(phone) {
		return shared.NewDomainError("INVALID_PHONE", "Phone number format is invalid")
	}

	c.Name = name
	c.Phone = phone
	c.Email = email
	c.IncrementVersion()
	c.UpdatedAt = time.Now()

	return nil
}

// Deactivate disables the customer for new sales
func (c *Customer) Deactivate() {
	c.Active = false
	c.IncrementVersion()
	c.UpdatedAt = time.Now()
}

// Activate re-enables the customer
func (c *Customer) Activate() {
	c.Active = true
	c.IncrementVersion()
	c.UpdatedAt = time.Now()
}
