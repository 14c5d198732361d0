package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/sales"
)

// QuoteItemRequest is one cart line in a quote or sale request
type QuoteItemRequest struct {
	VariantID uuid.UUID `json:"variant_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

// QuoteRequest asks for a priced preview of a cart. Nothing is persisted.
type QuoteRequest struct {
	Items                 []QuoteItemRequest `json:"items" binding:"required,min=1,dive"`
	CustomerID            *uuid.UUID         `json:"customer_id,omitempty"`
	ManualDiscountPct     decimal.Decimal    `json:"manual_discount_pct" binding:"gte=0,lte=100"`
	PromoDiscount         decimal.Decimal    `json:"promo_discount" binding:"gte=0"`
	LoyaltyPointsRedeemed int                `json:"loyalty_points_redeemed" binding:"min=0"`
	StoreCreditApplied    decimal.Decimal    `json:"store_credit_applied" binding:"gte=0"`
	ExchangeCreditApplied decimal.Decimal    `json:"exchange_credit_applied" binding:"gte=0"`
	OriginalSaleID        *uuid.UUID         `json:"original_sale_id,omitempty"`
	IsCredit              bool               `json:"is_credit"`
}

// QuoteResponse is the priced preview of a cart
type QuoteResponse struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	Discount        decimal.Decimal `json:"discount"`
	LoyaltyDiscount decimal.Decimal `json:"loyalty_discount"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	NetPayable      decimal.Decimal `json:"net_payable"`
	PointsToEarn    int             `json:"points_to_earn"`
	PointsUsed      int             `json:"points_used"`
	UnusedCredit    decimal.Decimal `json:"unused_credit"`
}

// RecordSaleRequest commits a priced cart as a sale
type RecordSaleRequest struct {
	ReceiptNumber         string             `json:"receipt_number" binding:"required,max=50"`
	StoreID               uuid.UUID          `json:"store_id" binding:"required"`
	Items                 []QuoteItemRequest `json:"items" binding:"required,min=1,dive"`
	CustomerID            *uuid.UUID         `json:"customer_id,omitempty"`
	ManualDiscountPct     decimal.Decimal    `json:"manual_discount_pct" binding:"gte=0,lte=100"`
	PromoDiscount         decimal.Decimal    `json:"promo_discount" binding:"gte=0"`
	LoyaltyPointsRedeemed int                `json:"loyalty_points_redeemed" binding:"min=0"`
	StoreCreditApplied    decimal.Decimal    `json:"store_credit_applied" binding:"gte=0"`
	ExchangeCreditApplied decimal.Decimal    `json:"exchange_credit_applied" binding:"gte=0"`
	PaymentMethod         string             `json:"payment_method" binding:"required"`
	IsCredit              bool               `json:"is_credit"`
	DepositPaid           decimal.Decimal    `json:"deposit_paid" binding:"gte=0"`
	OriginalSaleID        *uuid.UUID         `json:"original_sale_id,omitempty"`
	IdempotencyKey        string             `json:"idempotency_key,omitempty" binding:"max=128"`
}

// RecordInstallmentRequest registers a payment against a credit sale
type RecordInstallmentRequest struct {
	SaleID uuid.UUID       `json:"sale_id" binding:"required"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Note   string          `json:"note,omitempty" binding:"max=255"`
}

// ReturnLineRequest is one line of a return request
type ReturnLineRequest struct {
	SaleItemID uuid.UUID `json:"sale_item_id" binding:"required"`
	Quantity   int       `json:"quantity" binding:"required,min=1"`
}

// ReconcileReturnRequest processes a return or exchange against a
// committed sale
type ReconcileReturnRequest struct {
	SaleID         uuid.UUID           `json:"sale_id" binding:"required"`
	Lines          []ReturnLineRequest `json:"lines" binding:"required,min=1,dive"`
	Reason         string              `json:"reason" binding:"required,max=255"`
	Notes          string              `json:"notes,omitempty" binding:"max=500"`
	RefundMethod   string              `json:"refund_method" binding:"required"`
	IdempotencyKey string              `json:"idempotency_key,omitempty" binding:"max=128"`
}

// SaleItemResponse is the read model for one sale line
type SaleItemResponse struct {
	ID               uuid.UUID       `json:"id"`
	VariantID        uuid.UUID       `json:"variant_id"`
	SKU              string          `json:"sku"`
	ProductName      string          `json:"product_name"`
	Quantity         int             `json:"quantity"`
	ReturnedQuantity int             `json:"returned_quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
}

// SaleResponse is the read model for a sale
type SaleResponse struct {
	ID                  uuid.UUID          `json:"id"`
	ReceiptNumber       string             `json:"receipt_number"`
	StoreID             uuid.UUID          `json:"store_id"`
	CashierID           uuid.UUID          `json:"cashier_id"`
	CustomerID          *uuid.UUID         `json:"customer_id,omitempty"`
	Status              string             `json:"status"`
	Items               []SaleItemResponse `json:"items"`
	Subtotal            decimal.Decimal    `json:"subtotal"`
	Discount            decimal.Decimal    `json:"discount"`
	LoyaltyDiscount     decimal.Decimal    `json:"loyalty_discount"`
	Tax                 decimal.Decimal    `json:"tax"`
	Total               decimal.Decimal    `json:"total"`
	NetPayable          decimal.Decimal    `json:"net_payable"`
	PaymentMethod       string             `json:"payment_method"`
	IsCredit            bool               `json:"is_credit"`
	TotalPaid           decimal.Decimal    `json:"total_paid"`
	PointsEarned        int                `json:"points_earned"`
	PointsUsed          int                `json:"points_used"`
	StoreCreditUsed     decimal.Decimal    `json:"store_credit_used"`
	NeedsReconciliation bool               `json:"needs_reconciliation"`
	ReconciliationNote  string             `json:"reconciliation_note,omitempty"`
	CommittedAt         *time.Time         `json:"committed_at,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
}

// ToSaleResponse converts a sale aggregate to its response DTO
func ToSaleResponse(s *sales.Sale) SaleResponse {
	items := make([]SaleItemResponse, 0, len(s.Items))
	for idx := range s.Items {
		item := &s.Items[idx]
		items = append(items, SaleItemResponse{
			ID:               item.ID,
			VariantID:        item.VariantID,
			SKU:              item.SKU,
			ProductName:      item.ProductName,
			Quantity:         item.Quantity,
			ReturnedQuantity: item.ReturnedQuantity,
			UnitPrice:        item.UnitPrice,
		})
	}
	return SaleResponse{
		ID:                  s.ID,
		ReceiptNumber:       s.ReceiptNumber,
		StoreID:             s.StoreID,
		CashierID:           s.CashierID,
		CustomerID:          s.CustomerID,
		Status:              s.Status.String(),
		Items:               items,
		Subtotal:            s.Subtotal,
		Discount:            s.Discount,
		LoyaltyDiscount:     s.LoyaltyDiscount,
		Tax:                 s.Tax,
		Total:               s.Total,
		NetPayable:          s.NetPayable,
		PaymentMethod:       s.PaymentMethod.String(),
		IsCredit:            s.IsCredit,
		TotalPaid:           s.TotalPaid,
		PointsEarned:        s.PointsEarned,
		PointsUsed:          s.PointsUsed,
		StoreCreditUsed:     s.StoreCreditUsed,
		NeedsReconciliation: s.NeedsReconciliation,
		ReconciliationNote:  s.ReconciliationNote,
		CommittedAt:         s.CommittedAt,
		CreatedAt:           s.CreatedAt,
	}
}

// ReturnLineResponse is the read model for one returned line
type ReturnLineResponse struct {
	SaleItemID   uuid.UUID       `json:"sale_item_id"`
	VariantID    uuid.UUID       `json:"variant_id"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
}

// ReturnResponse is the read model for a processed return
type ReturnResponse struct {
	ID              uuid.UUID            `json:"id"`
	SaleID          uuid.UUID            `json:"sale_id"`
	StoreID         uuid.UUID            `json:"store_id"`
	RefundMethod    string               `json:"refund_method"`
	RefundValue     decimal.Decimal      `json:"refund_value"`
	LoyaltyClawback int                  `json:"loyalty_clawback"`
	ClaimedBySaleID *uuid.UUID           `json:"claimed_by_sale_id,omitempty"`
	Lines           []ReturnLineResponse `json:"lines"`
	SaleStatus      string               `json:"sale_status"`
	ProcessedAt     time.Time            `json:"processed_at"`
}

// ToReturnResponse converts a return record to its response DTO
func ToReturnResponse(r *sales.ReturnRecord, saleStatus sales.SaleStatus) ReturnResponse {
	lines := make([]ReturnLineResponse, 0, len(r.Lines))
	for idx := range r.Lines {
		line := &r.Lines[idx]
		lines = append(lines, ReturnLineResponse{
			SaleItemID:   line.SaleItemID,
			VariantID:    line.VariantID,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			RefundAmount: line.RefundAmount,
		})
	}
	return ReturnResponse{
		ID:              r.ID,
		SaleID:          r.SaleID,
		StoreID:         r.StoreID,
		RefundMethod:    string(r.RefundMethod),
		RefundValue:     r.RefundValue,
		LoyaltyClawback: r.LoyaltyClawback,
		ClaimedBySaleID: r.ClaimedBySaleID,
		Lines:           lines,
		SaleStatus:      saleStatus.String(),
		ProcessedAt:     r.ProcessedAt,
	}
}

// InstallmentResponse is the read model for one installment payment
type InstallmentResponse struct {
	ID         uuid.UUID       `json:"id"`
	SaleID     uuid.UUID       `json:"sale_id"`
	Amount     decimal.Decimal `json:"amount"`
	TotalPaid  decimal.Decimal `json:"total_paid"`
	RecordedAt time.Time       `json:"recorded_at"`
}
