package cashsession

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/cashsession"
)

// OpenSessionRequest opens the till for a store
type OpenSessionRequest struct {
	StoreID      uuid.UUID       `json:"store_id" binding:"required"`
	OpeningFloat decimal.Decimal `json:"opening_float" binding:"gte=0"`
}

// RecordMovementRequest drops cash in or takes cash out of an open session
type RecordMovementRequest struct {
	StoreID uuid.UUID       `json:"store_id" binding:"required"`
	Type    string          `json:"type" binding:"required,oneof=IN OUT"`
	Amount  decimal.Decimal `json:"amount" binding:"required"`
	Note    string          `json:"note,omitempty" binding:"max=500"`
}

// CloseSessionRequest counts the drawer and closes the session
type CloseSessionRequest struct {
	StoreID     uuid.UUID       `json:"store_id" binding:"required"`
	CountedCash decimal.Decimal `json:"counted_cash" binding:"gte=0"`
}

// CashEntryResponse is the read model for one cash movement
type CashEntryResponse struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	SaleID     *uuid.UUID      `json:"sale_id,omitempty"`
	ReturnID   *uuid.UUID      `json:"return_id,omitempty"`
	Note       string          `json:"note,omitempty"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// SessionResponse is the read model for a cash session
type SessionResponse struct {
	ID           uuid.UUID           `json:"id"`
	StoreID      uuid.UUID           `json:"store_id"`
	Status       string              `json:"status"`
	OpeningFloat decimal.Decimal     `json:"opening_float"`
	ExpectedCash decimal.Decimal     `json:"expected_cash"`
	CountedCash  decimal.Decimal     `json:"counted_cash"`
	Variance     decimal.Decimal     `json:"variance"`
	Entries      []CashEntryResponse `json:"entries,omitempty"`
	OpenedAt     time.Time           `json:"opened_at"`
	ClosedAt     *time.Time          `json:"closed_at,omitempty"`
}

// ToSessionResponse converts a session aggregate to its response DTO.
// For an open session the expected figure is computed live; a closed
// session reports its frozen close figures.
func ToSessionResponse(s *cashsession.CashSession, includeEntries bool) SessionResponse {
	expected := s.ExpectedCash
	if s.IsOpen() {
		expected = s.ComputeExpected()
	}
	resp := SessionResponse{
		ID:           s.ID,
		StoreID:      s.StoreID,
		Status:       s.Status.String(),
		OpeningFloat: s.OpeningFloat,
		ExpectedCash: expected,
		CountedCash:  s.CountedCash,
		Variance:     s.Variance,
		OpenedAt:     s.OpenedAt,
		ClosedAt:     s.ClosedAt,
	}
	if includeEntries {
		resp.Entries = make([]CashEntryResponse, 0, len(s.Entries))
		for idx := range s.Entries {
			entry := &s.Entries[idx]
			resp.Entries = append(resp.Entries, CashEntryResponse{
				ID:         entry.ID,
				Type:       entry.Type.String(),
				Amount:     entry.Amount,
				SaleID:     entry.SaleID,
				ReturnID:   entry.ReturnID,
				Note:       entry.Note,
				RecordedAt: entry.RecordedAt,
			})
		}
	}
	return resp
}
