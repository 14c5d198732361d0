package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/infrastructure/config"
)

// NewIdempotencyStore builds the store named by the idempotency backend
// setting. The redis backend falls back to the in-memory store with a
// warning when Redis is unreachable: a degraded duplicate window is
// preferable to refusing sales at the till.
func NewIdempotencyStore(cfg *config.Config, logger *zap.Logger) (shared.IdempotencyStore, error) {
	switch cfg.Idempotency.Backend {
	case "memory":
		return NewInMemoryIdempotencyStore(), nil
	case "redis":
		store, err := NewRedisIdempotencyStore(cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, falling back to in-memory idempotency store. "+
				"Duplicate requests hitting another instance will not be detected.",
				zap.Error(err),
			)
			return NewInMemoryIdempotencyStore(), nil
		}
		logger.Info("using Redis idempotency store")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", cfg.Idempotency.Backend)
	}
}
