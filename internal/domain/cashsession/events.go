package cashsession

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/shared"
)

// Event types for the cash session context.
const (
	EventTypeSessionOpened = "cashsession.session.opened"
	EventTypeSessionClosed = "cashsession.session.closed"
)

// SessionOpenedEvent is emitted when a till opens.
type SessionOpenedEvent struct {
	shared.BaseDomainEvent
	StoreID      uuid.UUID       `json:"store_id"`
	OpenedBy     uuid.UUID       `json:"opened_by"`
	OpeningFloat decimal.Decimal `json:"opening_float"`
}

// NewSessionOpenedEvent creates a new SessionOpenedEvent.
func NewSessionOpenedEvent(s *CashSession) *SessionOpenedEvent {
	return &SessionOpenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSessionOpened, "CashSession", s.ID, s.TenantID),
		StoreID:         s.StoreID,
		OpenedBy:        s.OpenedBy,
		OpeningFloat:    s.OpeningFloat,
	}
}

// SessionClosedEvent is emitted when a till closes, carrying the
// reconciliation figures.
type SessionClosedEvent struct {
	shared.BaseDomainEvent
	StoreID      uuid.UUID       `json:"store_id"`
	ExpectedCash decimal.Decimal `json:"expected_cash"`
	CountedCash  decimal.Decimal `json:"counted_cash"`
	Variance     decimal.Decimal `json:"variance"`
	EntryCount   int             `json:"entry_count"`
}

// NewSessionClosedEvent creates a new SessionClosedEvent.
func NewSessionClosedEvent(s *CashSession) *SessionClosedEvent {
	return &SessionClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSessionClosed, "CashSession", s.ID, s.TenantID),
		StoreID:         s.StoreID,
		ExpectedCash:    s.ExpectedCash,
		CountedCash:     s.CountedCash,
		Variance:        s.Variance,
		EntryCount:      len(s.Entries),
	}
}
