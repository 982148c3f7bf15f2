package memory

import (
	"context"
	"time"

	basecache "github.com/riskibarqy/contest-feed/internal/platform/cache"
)

// FeedCacheRepository keeps feed payloads in process memory. Entries are
// lost on restart and are not shared between replicas.
type FeedCacheRepository struct {
	store *basecache.Store
}

func NewFeedCacheRepository(store *basecache.Store) *FeedCacheRepository {
	if store == nil {
		store = basecache.NewStore(0)
	}
	return &FeedCacheRepository{store: store}
}

func (r *FeedCacheRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok := r.store.Get(ctx, key)
	return value, ok, nil
}

func (r *FeedCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	r.store.Set(ctx, key, value, ttl)
	return nil
}

func (r *FeedCacheRepository) PurgeExpired(_ context.Context) (int64, error) {
	return int64(r.store.PurgeExpired()), nil
}
