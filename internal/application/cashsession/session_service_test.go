package cashsession

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/domain/cashsession"
	"github.com/pos/backend/internal/domain/shared"
)

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]cashsession.CashSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]cashsession.CashSession)}
}

func clone(s cashsession.CashSession) cashsession.CashSession {
	s.Entries = append([]cashsession.CashEntry(nil), s.Entries...)
	return s
}

func (r *fakeSessionRepo) FindByID(_ context.Context, id uuid.UUID) (*cashsession.CashSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		c := clone(s)
		return &c, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeSessionRepo) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*cashsession.CashSession, error) {
	s, err := r.FindByID(ctx, id)
	if err != nil || s.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return s, nil
}

func (r *fakeSessionRepo) FindOpenByStore(_ context.Context, tenantID, storeID uuid.UUID) (*cashsession.CashSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.TenantID == tenantID && s.StoreID == storeID && s.IsOpen() {
			c := clone(s)
			return &c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeSessionRepo) FindByStore(_ context.Context, tenantID, storeID uuid.UUID, _ shared.Filter) ([]cashsession.CashSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []cashsession.CashSession
	for _, s := range r.sessions {
		if s.TenantID == tenantID && s.StoreID == storeID {
			out = append(out, clone(s))
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) Save(_ context.Context, session *cashsession.CashSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = clone(*session)
	return nil
}

func (r *fakeSessionRepo) SaveWithLock(_ context.Context, session *cashsession.CashSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[session.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if session.GetVersion() <= stored.Version {
		return shared.ErrConcurrencyConflict
	}
	r.sessions[session.ID] = clone(*session)
	return nil
}

func newServiceFixture() (*SessionService, *fakeSessionRepo, shared.Actor) {
	repo := newFakeSessionRepo()
	service := NewSessionService(repo, zap.NewNop())
	actor := shared.Actor{
		UserID:   uuid.New(),
		TenantID: uuid.New(),
		StoreID:  uuid.New(),
		Role:     shared.RoleCashier,
	}
	return service, repo, actor
}

func TestSessionService(t *testing.T) {
	ctx := context.Background()

	t.Run("should open, move cash, and close with a variance", func(t *testing.T) {
		service, _, actor := newServiceFixture()

		opened, err := service.Open(ctx, actor, OpenSessionRequest{
			StoreID:      actor.StoreID,
			OpeningFloat: decimal.NewFromInt(1000),
		})
		require.NoError(t, err)
		assert.Equal(t, "OPEN", opened.Status)

		_, err = service.RecordMovement(ctx, actor, RecordMovementRequest{
			StoreID: actor.StoreID,
			Type:    "IN",
			Amount:  decimal.NewFromInt(500),
			Note:    "float top-up",
		})
		require.NoError(t, err)

		_, err = service.RecordMovement(ctx, actor, RecordMovementRequest{
			StoreID: actor.StoreID,
			Type:    "OUT",
			Amount:  decimal.NewFromInt(200),
			Note:    "supplies run",
		})
		require.NoError(t, err)

		closed, err := service.Close(ctx, actor, CloseSessionRequest{
			StoreID:     actor.StoreID,
			CountedCash: decimal.NewFromInt(1250),
		})
		require.NoError(t, err)

		assert.Equal(t, "CLOSED", closed.Status)
		assert.Equal(t, "1300", closed.ExpectedCash.String())
		assert.Equal(t, "-50", closed.Variance.String())
		assert.Len(t, closed.Entries, 2)
	})

	t.Run("should refuse a second open session per store", func(t *testing.T) {
		service, _, actor := newServiceFixture()

		_, err := service.Open(ctx, actor, OpenSessionRequest{StoreID: actor.StoreID, OpeningFloat: decimal.NewFromInt(100)})
		require.NoError(t, err)

		_, err = service.Open(ctx, actor, OpenSessionRequest{StoreID: actor.StoreID, OpeningFloat: decimal.NewFromInt(100)})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "SESSION_ALREADY_OPEN", domainErr.Code)
	})

	t.Run("should allow reopening after close", func(t *testing.T) {
		service, _, actor := newServiceFixture()

		_, err := service.Open(ctx, actor, OpenSessionRequest{StoreID: actor.StoreID, OpeningFloat: decimal.NewFromInt(100)})
		require.NoError(t, err)
		_, err = service.Close(ctx, actor, CloseSessionRequest{StoreID: actor.StoreID, CountedCash: decimal.NewFromInt(100)})
		require.NoError(t, err)

		_, err = service.Open(ctx, actor, OpenSessionRequest{StoreID: actor.StoreID, OpeningFloat: decimal.NewFromInt(200)})
		require.NoError(t, err)
	})

	t.Run("should reject movements with no open session", func(t *testing.T) {
		service, _, actor := newServiceFixture()

		_, err := service.RecordMovement(ctx, actor, RecordMovementRequest{
			StoreID: actor.StoreID,
			Type:    "IN",
			Amount:  decimal.NewFromInt(100),
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NO_OPEN_SESSION", domainErr.Code)
	})

	t.Run("should reject sale-typed manual movements", func(t *testing.T) {
		service, _, actor := newServiceFixture()
		_, err := service.Open(ctx, actor, OpenSessionRequest{StoreID: actor.StoreID, OpeningFloat: decimal.NewFromInt(100)})
		require.NoError(t, err)

		_, err = service.RecordMovement(ctx, actor, RecordMovementRequest{
			StoreID: actor.StoreID,
			Type:    "SALE",
			Amount:  decimal.NewFromInt(100),
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_ENTRY_TYPE", domainErr.Code)
	})

	t.Run("should report the open session with live expected cash", func(t *testing.T) {
		service, _, actor := newServiceFixture()
		_, err := service.Open(ctx, actor, OpenSessionRequest{StoreID: actor.StoreID, OpeningFloat: decimal.NewFromInt(1000)})
		require.NoError(t, err)
		_, err = service.RecordMovement(ctx, actor, RecordMovementRequest{
			StoreID: actor.StoreID, Type: "IN", Amount: decimal.NewFromInt(250),
		})
		require.NoError(t, err)

		open, err := service.GetOpen(ctx, actor, actor.StoreID)
		require.NoError(t, err)
		assert.Equal(t, "1250", open.ExpectedCash.String())
	})
}
