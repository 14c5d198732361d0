package cashsession

import (
	"context"

	"github.com/google/uuid"

	"github.com/pos/backend/internal/domain/shared"
)

// CashSessionRepository defines persistence operations for cash sessions.
// FindOpenByStore returns shared.ErrNotFound when no session is open;
// the open-session uniqueness per store is enforced here and re-checked
// in the application service's transaction.
type CashSessionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*CashSession, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*CashSession, error)
	FindOpenByStore(ctx context.Context, tenantID, storeID uuid.UUID) (*CashSession, error)
	FindByStore(ctx context.Context, tenantID, storeID uuid.UUID, filter shared.Filter) ([]CashSession, error)
	Save(ctx context.Context, session *CashSession) error
	SaveWithLock(ctx context.Context, session *CashSession) error
}
