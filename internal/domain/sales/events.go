package sales

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/shared"
)

// Event types for the sales context.
const (
	EventTypeSaleCommitted          = "sales.sale.committed"
	EventTypeInstallmentRecorded    = "sales.sale.installment_recorded"
	EventTypeReconciliationNeeded   = "sales.sale.reconciliation_needed"
	EventTypeReturnProcessed        = "sales.return.processed"
	EventTypeReturnApprovalRequired = "sales.return.approval_required"
)

// SaleCommittedEvent is emitted when a sale settles at the till.
type SaleCommittedEvent struct {
	shared.BaseDomainEvent
	ReceiptNumber string          `json:"receipt_number"`
	StoreID       uuid.UUID       `json:"store_id"`
	CashierID     uuid.UUID       `json:"cashier_id"`
	CustomerID    *uuid.UUID      `json:"customer_id,omitempty"`
	Total         decimal.Decimal `json:"total"`
	NetPayable    decimal.Decimal `json:"net_payable"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	IsCredit      bool            `json:"is_credit"`
	PointsEarned  int             `json:"points_earned"`
	PointsUsed    int             `json:"points_used"`
	ItemCount     int             `json:"item_count"`
}

// NewSaleCommittedEvent creates a new SaleCommittedEvent.
func NewSaleCommittedEvent(s *Sale) *SaleCommittedEvent {
	return &SaleCommittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleCommitted, "Sale", s.ID, s.TenantID),
		ReceiptNumber:   s.ReceiptNumber,
		StoreID:         s.StoreID,
		CashierID:       s.CashierID,
		CustomerID:      s.CustomerID,
		Total:           s.Total,
		NetPayable:      s.NetPayable,
		PaymentMethod:   s.PaymentMethod,
		IsCredit:        s.IsCredit,
		PointsEarned:    s.PointsEarned,
		PointsUsed:      s.PointsUsed,
		ItemCount:       len(s.Items),
	}
}

// InstallmentRecordedEvent is emitted when a payment lands on a credit sale.
type InstallmentRecordedEvent struct {
	shared.BaseDomainEvent
	ReceiptNumber string          `json:"receipt_number"`
	Amount        decimal.Decimal `json:"amount"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	Outstanding   decimal.Decimal `json:"outstanding"`
}

// NewInstallmentRecordedEvent creates a new InstallmentRecordedEvent.
func NewInstallmentRecordedEvent(s *Sale, installment *Installment) *InstallmentRecordedEvent {
	return &InstallmentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInstallmentRecorded, "Sale", s.ID, s.TenantID),
		ReceiptNumber:   s.ReceiptNumber,
		Amount:          installment.Amount,
		TotalPaid:       s.TotalPaid,
		Outstanding:     s.NetPayable.Sub(s.TotalPaid),
	}
}

// SaleReconciliationNeededEvent is emitted when a sale persisted but a
// downstream side effect failed. Operators act on this; the cashier
// never sees a failed sale.
type SaleReconciliationNeededEvent struct {
	shared.BaseDomainEvent
	ReceiptNumber string `json:"receipt_number"`
	Note          string `json:"note"`
}

// NewSaleReconciliationNeededEvent creates a new SaleReconciliationNeededEvent.
func NewSaleReconciliationNeededEvent(s *Sale, note string) *SaleReconciliationNeededEvent {
	return &SaleReconciliationNeededEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReconciliationNeeded, "Sale", s.ID, s.TenantID),
		ReceiptNumber:   s.ReceiptNumber,
		Note:            note,
	}
}

// ReturnProcessedEvent is emitted after a return settles.
type ReturnProcessedEvent struct {
	shared.BaseDomainEvent
	SaleID          uuid.UUID       `json:"sale_id"`
	StoreID         uuid.UUID       `json:"store_id"`
	RefundMethod    RefundMethod    `json:"refund_method"`
	RefundValue     decimal.Decimal `json:"refund_value"`
	LoyaltyClawback int             `json:"loyalty_clawback"`
	LineCount       int             `json:"line_count"`
}

// NewReturnProcessedEvent creates a new ReturnProcessedEvent.
func NewReturnProcessedEvent(r *ReturnRecord) *ReturnProcessedEvent {
	return &ReturnProcessedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnProcessed, "ReturnRecord", r.ID, r.TenantID),
		SaleID:          r.SaleID,
		StoreID:         r.StoreID,
		RefundMethod:    r.RefundMethod,
		RefundValue:     r.RefundValue,
		LoyaltyClawback: r.LoyaltyClawback,
		LineCount:       len(r.Lines),
	}
}

// ReturnApprovalRequiredEvent is emitted when a return exceeds the
// refund threshold and the acting user lacks override authority.
type ReturnApprovalRequiredEvent struct {
	shared.BaseDomainEvent
	SaleID      uuid.UUID       `json:"sale_id"`
	ActorID     uuid.UUID       `json:"actor_id"`
	RefundValue decimal.Decimal `json:"refund_value"`
	Threshold   decimal.Decimal `json:"threshold"`
}

// NewReturnApprovalRequiredEvent creates a new ReturnApprovalRequiredEvent.
func NewReturnApprovalRequiredEvent(tenantID, saleID, actorID uuid.UUID, refundValue, threshold decimal.Decimal) *ReturnApprovalRequiredEvent {
	return &ReturnApprovalRequiredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnApprovalRequired, "Sale", saleID, tenantID),
		SaleID:          saleID,
		ActorID:         actorID,
		RefundValue:     refundValue,
		Threshold:       threshold,
	}
}
