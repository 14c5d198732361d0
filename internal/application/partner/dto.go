package partner

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/partner"
)

// CreateCustomerRequest registers a new customer
type CreateCustomerRequest struct {
	Code  string `json:"code" binding:"required,max=64"`
	Name  string `json:"name" binding:"required,max=200"`
	Phone string `json:"phone,omitempty" binding:"max=20"`
	Email string `json:"email,omitempty" binding:"omitempty,email"`
}

// UpdateCustomerRequest updates a customer's contact details
type UpdateCustomerRequest struct {
	Name  string `json:"name" binding:"required,max=200"`
	Phone string `json:"phone,omitempty" binding:"max=20"`
	Email string `json:"email,omitempty" binding:"omitempty,email"`
}

// AdjustBalanceRequest posts a manual balance correction. Points and
// credit use separate requests; mixing both in one call is not allowed.
type AdjustBalanceRequest struct {
	Kind   string          `json:"kind" binding:"required,oneof=POINTS STORE_CREDIT"`
	Points int             `json:"points,omitempty"`
	Amount decimal.Decimal `json:"amount,omitempty"`
	Note   string          `json:"note" binding:"required,max=500"`
}

// CustomerResponse is the read model for a customer
type CustomerResponse struct {
	ID            uuid.UUID       `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone,omitempty"`
	Email         string          `json:"email,omitempty"`
	LoyaltyPoints int             `json:"loyalty_points"`
	StoreCredit   decimal.Decimal `json:"store_credit"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ToCustomerResponse converts a customer aggregate to its response DTO
func ToCustomerResponse(c *partner.Customer) CustomerResponse {
	return CustomerResponse{
		ID:            c.ID,
		Code:          c.Code,
		Name:          c.Name,
		Phone:         c.Phone,
		Email:         c.Email,
		LoyaltyPoints: c.LoyaltyPoints,
		StoreCredit:   c.StoreCredit,
		Active:        c.Active,
		CreatedAt:     c.CreatedAt,
	}
}

// BalanceEntryResponse is the read model for one balance movement
type BalanceEntryResponse struct {
	ID         uuid.UUID       `json:"id"`
	Kind       string          `json:"kind"`
	Change     decimal.Decimal `json:"change"`
	Resulting  decimal.Decimal `json:"resulting"`
	Reason     string          `json:"reason"`
	SaleID     *uuid.UUID      `json:"sale_id,omitempty"`
	ReturnID   *uuid.UUID      `json:"return_id,omitempty"`
	Note       string          `json:"note,omitempty"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// ToBalanceEntryResponse converts a balance entry to its response DTO
func ToBalanceEntryResponse(e *partner.BalanceEntry) BalanceEntryResponse {
	return BalanceEntryResponse{
		ID:         e.ID,
		Kind:       string(e.Kind),
		Change:     e.Change,
		Resulting:  e.Resulting,
		Reason:     e.Reason.String(),
		SaleID:     e.SaleID,
		ReturnID:   e.ReturnID,
		Note:       e.Note,
		RecordedAt: e.RecordedAt,
	}
}
