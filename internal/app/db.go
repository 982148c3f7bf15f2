package app

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/contest-feed/internal/config"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
)

const (
	maxTracedQueryLength = 512
	dbPingTimeout        = 5 * time.Second
	dbMaxOpenConns       = 8
	dbMaxIdleConns       = 4
)

// openCacheDB opens the traced Postgres pool backing the feed cache.
func openCacheDB(cfg config.Config) (*sqlx.DB, error) {
	dsn := cfg.CacheDSN()
	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromDSN(dsn)),
		otelsql.WithQueryFormatter(formatQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres cache: %w", err)
	}
	db.SetMaxOpenConns(dbMaxOpenConns)
	db.SetMaxIdleConns(dbMaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres cache %s: %w", dbNameFromDSN(dsn), err)
	}
	return db, nil
}

// dbNameFromDSN understands URL and key=value connection strings.
func dbNameFromDSN(dsn string) string {
	if parsed, err := url.Parse(dsn); err == nil && parsed.Scheme != "" {
		return strings.TrimPrefix(parsed.Path, "/")
	}
	for _, token := range strings.Fields(dsn) {
		if name, ok := strings.CutPrefix(token, "dbname="); ok {
			return strings.Trim(name, `"'`)
		}
	}
	return ""
}

func formatQueryForTrace(query string) string {
	normalized := strings.Join(strings.Fields(query), " ")
	if len(normalized) <= maxTracedQueryLength {
		return normalized
	}
	return normalized[:maxTracedQueryLength] + "..."
}
