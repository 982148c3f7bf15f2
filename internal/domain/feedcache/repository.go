package feedcache

import (
	"context"
	"time"
)

// Repository is a keyed byte store with per-entry expiry. Implementations
// must treat an expired entry as absent.
type Repository interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Purger is implemented by backends that do not expire entries on their own.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}
