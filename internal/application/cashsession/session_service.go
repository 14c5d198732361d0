package cashsession

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/domain/cashsession"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/domain/shared/valueobject"
)

const maxConflictRetries = 3

// SessionService manages the lifecycle of cash sessions: one open
// session per store, typed movements while open, terminal close with a
// variance figure.
type SessionService struct {
	sessionRepo    cashsession.CashSessionRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewSessionService creates a session service.
func NewSessionService(sessionRepo cashsession.CashSessionRepository, logger *zap.Logger) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for domain events.
func (s *SessionService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Open starts a session for a store. At most one session per store may
// be open; the unique partial index on the sessions table backstops
// this check under concurrency.
func (s *SessionService) Open(ctx context.Context, actor shared.Actor, req OpenSessionRequest) (*SessionResponse, error) {
	if _, err := s.sessionRepo.FindOpenByStore(ctx, actor.TenantID, req.StoreID); err == nil {
		return nil, shared.NewConflictError("SESSION_ALREADY_OPEN", "Store already has an open cash session")
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	session, err := cashsession.OpenCashSession(actor.TenantID, req.StoreID, actor.UserID, valueobject.NewDefault(req.OpeningFloat))
	if err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Save(ctx, session); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, session)

	s.logger.Info("cash session opened",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("store_id", req.StoreID.String()),
		zap.String("session_id", session.ID.String()),
		zap.String("opening_float", session.OpeningFloat.String()))

	resp := ToSessionResponse(session, false)
	return &resp, nil
}

// RecordMovement adds a manual cash movement (float top-up, cash drop)
// to the store's open session. Sale and refund entries come from the
// sale and return flows, never through here.
func (s *SessionService) RecordMovement(ctx context.Context, actor shared.Actor, req RecordMovementRequest) (*SessionResponse, error) {
	entryType := cashsession.EntryType(req.Type)
	if entryType != cashsession.EntryTypeIn && entryType != cashsession.EntryTypeOut {
		return nil, shared.NewDomainError("INVALID_ENTRY_TYPE", "Manual movements must be IN or OUT")
	}

	var resp *SessionResponse
	err := s.withConflictRetry(func() error {
		session, err := s.sessionRepo.FindOpenByStore(ctx, actor.TenantID, req.StoreID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError("NO_OPEN_SESSION", "No open cash session for store")
			}
			return err
		}
		if _, err := session.RecordEntry(entryType, valueobject.NewDefault(req.Amount), cashsession.EntryRef{}, actor.UserID, req.Note); err != nil {
			return err
		}
		if err := s.sessionRepo.SaveWithLock(ctx, session); err != nil {
			return err
		}
		r := ToSessionResponse(session, false)
		resp = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Close counts the drawer and closes the store's open session. Closing
// is terminal; the expected, counted, and variance figures freeze.
func (s *SessionService) Close(ctx context.Context, actor shared.Actor, req CloseSessionRequest) (*SessionResponse, error) {
	var session *cashsession.CashSession
	err := s.withConflictRetry(func() error {
		found, err := s.sessionRepo.FindOpenByStore(ctx, actor.TenantID, req.StoreID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError("NO_OPEN_SESSION", "No open cash session for store")
			}
			return err
		}
		if err := found.Close(valueobject.NewDefault(req.CountedCash), actor.UserID); err != nil {
			return err
		}
		if err := s.sessionRepo.SaveWithLock(ctx, found); err != nil {
			return err
		}
		session = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishEvents(ctx, session)

	s.logger.Info("cash session closed",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("session_id", session.ID.String()),
		zap.String("expected", session.ExpectedCash.String()),
		zap.String("counted", session.CountedCash.String()),
		zap.String("variance", session.Variance.String()))

	resp := ToSessionResponse(session, true)
	return &resp, nil
}

// GetSession returns one session with its full entry log.
func (s *SessionService) GetSession(ctx context.Context, actor shared.Actor, sessionID uuid.UUID) (*SessionResponse, error) {
	session, err := s.sessionRepo.FindByIDForTenant(ctx, actor.TenantID, sessionID)
	if err != nil {
		return nil, err
	}
	resp := ToSessionResponse(session, true)
	return &resp, nil
}

// GetOpen returns the store's open session, if any.
func (s *SessionService) GetOpen(ctx context.Context, actor shared.Actor, storeID uuid.UUID) (*SessionResponse, error) {
	session, err := s.sessionRepo.FindOpenByStore(ctx, actor.TenantID, storeID)
	if err != nil {
		return nil, err
	}
	resp := ToSessionResponse(session, true)
	return &resp, nil
}

// ListByStore returns a store's sessions, newest first.
func (s *SessionService) ListByStore(ctx context.Context, actor shared.Actor, storeID uuid.UUID, filter shared.Filter) ([]SessionResponse, error) {
	sessions, err := s.sessionRepo.FindByStore(ctx, actor.TenantID, storeID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]SessionResponse, 0, len(sessions))
	for idx := range sessions {
		out = append(out, ToSessionResponse(&sessions[idx], false))
	}
	return out, nil
}

func (s *SessionService) withConflictRetry(fn func() error) error {
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

func (s *SessionService) publishEvents(ctx context.Context, aggregate shared.AggregateRoot) {
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
