package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/contest-feed/internal/domain/feedcache"
	"github.com/riskibarqy/contest-feed/internal/platform/logging"
	"github.com/riskibarqy/contest-feed/internal/platform/resilience"
)

const DefaultFeedCacheTTL = time.Hour

// FeedCache stores serialized feed payloads. Backend failures are logged and
// treated as misses so a broken cache never fails a request.
type FeedCache struct {
	repo    feedcache.Repository
	ttl     time.Duration
	logger  *logging.Logger
	metrics FeedMetrics
	flight  resilience.SingleFlight[[]byte]
}

func NewFeedCache(repo feedcache.Repository, ttl time.Duration, logger *logging.Logger, metrics FeedMetrics) *FeedCache {
	if ttl <= 0 {
		ttl = DefaultFeedCacheTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	if metrics == nil {
		metrics = nopFeedMetrics{}
	}
	return &FeedCache{
		repo:    repo,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

func (c *FeedCache) TTL() time.Duration {
	return c.ttl
}

// GetOrFetch returns the cached payload for key, or computes and stores it.
// refresh skips the lookup but still writes the fresh payload through. A
// caller whose ctx ends during the compute gets ctx's error.
func (c *FeedCache) GetOrFetch(ctx context.Context, key string, refresh bool, compute func(ctx context.Context) ([]byte, error)) ([]byte, bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FeedCache.GetOrFetch")
	defer span.End()

	if !refresh && c.repo != nil {
		value, found, err := c.repo.Get(ctx, key)
		switch {
		case err != nil:
			c.metrics.ObserveCache(CacheResultError)
			c.logger.WarnContext(ctx, "contest cache read failed", "key", key, "error", err)
		case found:
			c.metrics.ObserveCache(CacheResultHit)
			return value, true, nil
		default:
			c.metrics.ObserveCache(CacheResultMiss)
		}
	} else if refresh {
		c.metrics.ObserveCache(CacheResultBypass)
	}

	flightKey := key
	if refresh {
		flightKey = "refresh:" + key
	}
	// The payload outlives this caller. Only source timeouts bound it.
	detached := context.WithoutCancel(ctx)
	value, err, _ := c.flight.Do(flightKey, func() ([]byte, error) {
		payload, err := compute(detached)
		if err != nil {
			return nil, err
		}
		c.store(detached, key, payload)
		return payload, nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("compute contest feed %s: %w", key, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, false, fmt.Errorf("compute contest feed %s: %w", key, err)
	}
	return value, false, nil
}

func (c *FeedCache) store(ctx context.Context, key string, payload []byte) {
	if c.repo == nil {
		return
	}
	if err := c.repo.Set(ctx, key, payload, c.ttl); err != nil {
		c.metrics.ObserveCache(CacheResultError)
		c.logger.WarnContext(ctx, "contest cache write failed", "key", key, "error", err)
	}
}
