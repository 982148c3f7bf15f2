package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	qb "github.com/riskibarqy/contest-feed/internal/platform/querybuilder"
)

const feedCacheTable = "contest_feed_cache"

// FeedCacheRepository persists feed payloads in Postgres so replicas share
// one cache. Expired rows are ignored on read and removed by PurgeExpired.
type FeedCacheRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewFeedCacheRepository(db *sqlx.DB) *FeedCacheRepository {
	return &FeedCacheRepository{db: db, now: time.Now}
}

func (r *FeedCacheRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query, args, err := buildFeedCacheGetQuery(key, r.now().UTC())
	if err != nil {
		return nil, false, fmt.Errorf("build get feed cache query: %w", err)
	}

	var payload []byte
	if err := r.db.GetContext(ctx, &payload, query, args...); err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get feed cache key=%s: %w", key, err)
	}
	return payload, true, nil
}

func (r *FeedCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := r.now().UTC()
	query, args, err := buildFeedCacheUpsertQuery(feedCacheInsertModel{
		CacheKey:  key,
		Payload:   value,
		ExpiresAt: expiryFor(now, ttl),
		UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("build upsert feed cache query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert feed cache key=%s: %w", key, err)
	}
	return nil
}

func (r *FeedCacheRepository) PurgeExpired(ctx context.Context) (int64, error) {
	query, args, err := qb.DeleteFrom(feedCacheTable).
		Where(qb.Lte("expires_at", r.now().UTC())).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build purge feed cache query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge expired feed cache: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired feed cache rows affected: %w", err)
	}
	return affected, nil
}

type feedCacheInsertModel struct {
	CacheKey  string    `db:"cache_key"`
	Payload   []byte    `db:"payload"`
	ExpiresAt time.Time `db:"expires_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func buildFeedCacheGetQuery(key string, now time.Time) (string, []any, error) {
	return qb.Select("payload").
		From(feedCacheTable).
		Where(qb.Eq("cache_key", key), qb.Gt("expires_at", now)).
		Limit(1).
		ToSQL()
}

func buildFeedCacheUpsertQuery(model feedCacheInsertModel) (string, []any, error) {
	return qb.UpsertModel(feedCacheTable, model, "cache_key")
}

// expiryFor maps a non-positive ttl to a far-future expiry.
func expiryFor(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return now.AddDate(100, 0, 0)
	}
	return now.Add(ttl)
}
