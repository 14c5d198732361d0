package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pos/backend/internal/domain/cashsession"
	"github.com/pos/backend/internal/domain/shared"
)

// GormCashSessionRepository implements CashSessionRepository using GORM
type GormCashSessionRepository struct {
	db *gorm.DB
}

// NewGormCashSessionRepository creates a new GormCashSessionRepository
func NewGormCashSessionRepository(db *gorm.DB) *GormCashSessionRepository {
	return &GormCashSessionRepository{db: db}
}

// FindByID finds a session by its ID, with entries loaded
func (r *GormCashSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*cashsession.CashSession, error) {
	var session cashsession.CashSession
	if err := r.db.WithContext(ctx).
		Preload("Entries").
		First(&session, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &session, nil
}

// FindByIDForTenant finds a session by ID within a tenant
func (r *GormCashSessionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*cashsession.CashSession, error) {
	var session cashsession.CashSession
	if err := r.db.WithContext(ctx).
		Preload("Entries").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&session).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &session, nil
}

// FindOpenByStore finds the open session for a store. Returns
// shared.ErrNotFound when no session is open.
func (r *GormCashSessionRepository) FindOpenByStore(ctx context.Context, tenantID, storeID uuid.UUID) (*cashsession.CashSession, error) {
	var session cashsession.CashSession
	if err := r.db.WithContext(ctx).
		Preload("Entries").
		Where("tenant_id = ? AND store_id = ? AND status = ?", tenantID, storeID, cashsession.SessionStatusOpen).
		First(&session).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &session, nil
}

// FindByStore finds sessions for a store, newest first
func (r *GormCashSessionRepository) FindByStore(ctx context.Context, tenantID, storeID uuid.UUID, filter shared.Filter) ([]cashsession.CashSession, error) {
	var sessions []cashsession.CashSession
	query := r.db.WithContext(ctx).Model(&cashsession.CashSession{}).
		Where("tenant_id = ? AND store_id = ?", tenantID, storeID)
	query = applyPagination(query, filter, "opened_at DESC")

	if err := query.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// Save creates or updates a session together with its entries
func (r *GormCashSessionRepository) Save(ctx context.Context, session *cashsession.CashSession) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(session).Error
}

// SaveWithLock saves a session with an optimistic lock on the version
// column, then upserts entries. Entries are append-only; existing rows
// are rewritten unchanged.
func (r *GormCashSessionRepository) SaveWithLock(ctx context.Context, session *cashsession.CashSession) error {
	result := r.db.WithContext(ctx).
		Model(&cashsession.CashSession{}).
		Where("id = ? AND version < ?", session.ID, session.Version).
		Select("*").Omit("id", "created_at", "Entries").
		Updates(session)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}

	if len(session.Entries) > 0 {
		if err := r.db.WithContext(ctx).Save(&session.Entries).Error; err != nil {
			return err
		}
	}
	return nil
}

var _ cashsession.CashSessionRepository = (*GormCashSessionRepository)(nil)
