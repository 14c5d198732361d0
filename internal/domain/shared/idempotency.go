package shared

import (
	"context"
	"time"
)

// IdempotencyStore records processed operation keys so that retried
// requests (a resubmitted sale, a double-clicked return) are detected
// before they mutate anything. Keys are client-supplied and stable across
// retries; they are never derived from wall-clock time.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if it was already
	// processed within the TTL window.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks whether a key has already been processed.
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release removes a key so the request can be retried. Called when
	// the operation guarded by the key failed after the key was marked.
	Release(ctx context.Context, key string) error

	// Close releases the store's resources.
	Close() error
}

// IdempotencyConfig holds idempotency handling configuration.
type IdempotencyConfig struct {
	// TTL is the window within which a repeated key is treated as a
	// duplicate. Default: 24 hours.
	TTL time.Duration

	// Enabled toggles idempotency checking. Default: true.
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration.
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
