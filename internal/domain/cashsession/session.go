package cashsession

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/domain/shared/valueobject"
)

// SessionStatus is the lifecycle state of a cash session
type SessionStatus string

const (
	SessionStatusOpen   SessionStatus = "OPEN"
	SessionStatusClosed SessionStatus = "CLOSED"
)

// IsValid checks if the status is known
func (s SessionStatus) IsValid() bool {
	return s == SessionStatusOpen || s == SessionStatusClosed
}

// String returns the string representation of SessionStatus
func (s SessionStatus) String() string {
	return string(s)
}

// EntryType classifies a cash movement within a session
type EntryType string

const (
	EntryTypeIn     EntryType = "IN"
	EntryTypeOut    EntryType = "OUT"
	EntryTypeSale   EntryType = "SALE"
	EntryTypeRefund EntryType = "REFUND"
)

// IsValid checks if the entry type is known
func (t EntryType) IsValid() bool {
	switch t {
	case EntryTypeIn, EntryTypeOut, EntryTypeSale, EntryTypeRefund:
		return true
	}
	return false
}

// String returns the string representation of EntryType
func (t EntryType) String() string {
	return string(t)
}

// adds reports whether the movement increases the till
func (t EntryType) adds() bool {
	return t == EntryTypeIn || t == EntryTypeSale
}

// CashEntry is one immutable movement in the session's transaction log.
// Amount is always positive; the type carries the direction.
type CashEntry struct {
	shared.BaseEntity
	SessionID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type       EntryType       `gorm:"size:10;not null"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SaleID     *uuid.UUID      `gorm:"type:uuid;index"`
	ReturnID   *uuid.UUID      `gorm:"type:uuid"`
	ActorID    uuid.UUID       `gorm:"type:uuid;not null"`
	Note       string          `gorm:"size:500"`
	RecordedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CashEntry) TableName() string {
	return "cash_entries"
}

// CashSession tracks the till for one store between open and close.
//
// At most one session per store is open at a time; the repository
// enforces this alongside the application service. Once closed the
// session is terminal and its figures never change.
type CashSession struct {
	shared.TenantAggregateRoot
	StoreID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Status       SessionStatus   `gorm:"size:10;not null;default:'OPEN'"`
	OpeningFloat decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Entries      []CashEntry     `gorm:"foreignKey:SessionID"`
	OpenedBy     uuid.UUID       `gorm:"type:uuid;not null"`
	ClosedBy     *uuid.UUID      `gorm:"type:uuid"`
	CountedCash  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ExpectedCash decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Variance     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	OpenedAt     time.Time       `gorm:"not null"`
	ClosedAt     *time.Time
}

// TableName returns the table name for GORM
func (CashSession) TableName() string {
	return "cash_sessions"
}

// OpenCashSession opens a session with the counted opening float
func OpenCashSession(tenantID, storeID, actorID uuid.UUID, openingFloat valueobject.Money) (*CashSession, error) {
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Store ID cannot be empty")
	}
	if actorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Acting user is required")
	}
	if openingFloat.IsNegative() {
		return nil, shared.NewDomainError("INVALID_FLOAT", "Opening float cannot be negative")
	}

	session := &CashSession{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		StoreID:             storeID,
		Status:              SessionStatusOpen,
		OpeningFloat:        openingFloat.Amount(),
		Entries:             make([]CashEntry, 0),
		OpenedBy:            actorID,
		CountedCash:         decimal.Zero,
		ExpectedCash:        decimal.Zero,
		Variance:            decimal.Zero,
		OpenedAt:            time.Now(),
	}

	session.AddDomainEvent(NewSessionOpenedEvent(session))

	return session, nil
}

// EntryRef links a cash movement to its originating document
type EntryRef struct {
	SaleID   *uuid.UUID
	ReturnID *uuid.UUID
}

// RecordEntry appends a movement to the session log. Only while open.
func (s *CashSession) RecordEntry(entryType EntryType, amount valueobject.Money, ref EntryRef, actorID uuid.UUID, note string) (*CashEntry, error) {
	if s.Status != SessionStatusOpen {
		return nil, shared.NewDomainError("SESSION_CLOSED", "Cannot record cash movement on a closed session")
	}
	if !entryType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ENTRY_TYPE", "Unknown cash entry type")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Cash movement amount must be positive")
	}
	if actorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Acting user is required")
	}

	entry := CashEntry{
		BaseEntity: shared.NewBaseEntity(),
		SessionID:  s.ID,
		Type:       entryType,
		Amount:     amount.Amount(),
		SaleID:     ref.SaleID,
		ReturnID:   ref.ReturnID,
		ActorID:    actorID,
		Note:       note,
		RecordedAt: time.Now(),
	}

	s.Entries = append(s.Entries, entry)
	s.IncrementVersion()
	s.UpdatedAt = entry.RecordedAt

	return &s.Entries[len(s.Entries)-1], nil
}

// ComputeExpected returns opening float plus ins and sales minus outs
// and refunds over the current log.
func (s *CashSession) ComputeExpected() decimal.Decimal {
	expected := s.OpeningFloat
	for _, entry := range s.Entries {
		if entry.Type.adds() {
			expected = expected.Add(entry.Amount)
		} else {
			expected = expected.Sub(entry.Amount)
		}
	}
	return expected
}

// Close finalizes the session with the manually counted cash. Variance
// is counted minus expected. Terminal; closing twice is rejected.
func (s *CashSession) Close(countedCash valueobject.Money, actorID uuid.UUID) error {
	if s.Status == SessionStatusClosed {
		return shared.NewDomainError("SESSION_CLOSED", "Session is already closed")
	}
	if countedCash.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Counted cash cannot be negative")
	}
	if actorID == uuid.Nil {
		return shared.NewDomainError("INVALID_ACTOR", "Acting user is required")
	}

	now := time.Now()
	s.Status = SessionStatusClosed
	s.CountedCash = countedCash.Amount()
	s.ExpectedCash = s.ComputeExpected()
	s.Variance = s.CountedCash.Sub(s.ExpectedCash)
	s.ClosedBy = &actorID
	s.ClosedAt = &now
	s.IncrementVersion()
	s.UpdatedAt = now

	s.AddDomainEvent(NewSessionClosedEvent(s))

	return nil
}

// IsOpen returns true while the session accepts movements
func (s *CashSession) IsOpen() bool {
	return s.Status == SessionStatusOpen
}

// GetVarianceMoney returns the close variance as Money
func (s *CashSession) GetVarianceMoney() valueobject.Money {
	return valueobject.NewDefault(s.Variance)
}

// EntryCount returns the number of logged movements
func (s *CashSession) EntryCount() int {
	return len(s.Entries)
}

// Describe returns a short human-readable summary for logs
func (s *CashSession) Describe() string {
	return fmt.Sprintf("session %s store %s status %s entries %d", s.ID, s.StoreID, s.Status, len(s.Entries))
}
