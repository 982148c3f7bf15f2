package usecase

import (
	"context"

	"github.com/riskibarqy/contest-feed/internal/domain/contest"
)

// ContestSource is one platform adapter. Fetch must fold every failure into
// the returned result.
type ContestSource interface {
	Name() string
	Fetch(ctx context.Context) contest.FetchResult
}

// FeedMetrics receives fetch and cache observations.
type FeedMetrics interface {
	ObserveFetch(source string, outcome contest.FetchOutcome)
	ObserveCache(result string)
}

const (
	CacheResultHit    = "hit"
	CacheResultMiss   = "miss"
	CacheResultBypass = "bypass"
	CacheResultError  = "error"
)

type nopFeedMetrics struct{}

func (nopFeedMetrics) ObserveFetch(string, contest.FetchOutcome) {}
func (nopFeedMetrics) ObserveCache(string)                       {}
