package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/contest-feed/internal/domain/contest"
	"github.com/riskibarqy/contest-feed/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultUpcomingDays = 7
	DefaultRecentDays   = 7
	MaxUpcomingDays     = 365
	MaxRecentDays       = 30

	feedStatusSuccess = "success"
	cacheKeyPrefix    = "contest_cache"
	allSourcesLabel   = "all"
)

// FeedQuery selects the aggregate feed. Sources empty means the default set.
type FeedQuery struct {
	Days           int
	IncludeRunning bool
	IncludeRecent  bool
	RecentDays     int
	Sources        []string
	Refresh        bool
}

type SourceFeedQuery struct {
	Source         string
	Days           int
	IncludeRunning bool
	Refresh        bool
}

type Feed struct {
	Status    string            `json:"status"`
	Running   []contest.Contest `json:"running"`
	Upcoming  []contest.Contest `json:"upcoming"`
	Recent    []contest.Contest `json:"recent"`
	FetchedAt time.Time         `json:"fetched_at"`
	Counts    map[string]int    `json:"counts"`
	Total     int               `json:"total"`
	Cached    bool              `json:"cached"`
}

type SourceFeed struct {
	Status    string            `json:"status"`
	Source    string            `json:"source"`
	Running   []contest.Contest `json:"running"`
	Upcoming  []contest.Contest `json:"upcoming"`
	FetchedAt time.Time         `json:"fetched_at"`
	Count     int               `json:"count"`
	Cached    bool              `json:"cached"`
}

type ContestServiceConfig struct {
	// DefaultSources is the ordered aggregate set used when a query names none.
	DefaultSources []string
	Logger         *logging.Logger
	Now            func() time.Time
}

type ContestService struct {
	aggregator     *Aggregator
	cache          *FeedCache
	defaultSources []string
	logger         *logging.Logger
	now            func() time.Time
}

func NewContestService(aggregator *Aggregator, cache *FeedCache, cfg ContestServiceConfig) *ContestService {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	defaults := make([]string, 0, len(cfg.DefaultSources))
	for _, name := range cfg.DefaultSources {
		name = strings.ToLower(strings.TrimSpace(name))
		if aggregator.HasSource(name) {
			defaults = append(defaults, name)
		}
	}
	if len(defaults) == 0 {
		defaults = aggregator.SourceNames()
	}

	return &ContestService{
		aggregator:     aggregator,
		cache:          cache,
		defaultSources: defaults,
		logger:         cfg.Logger,
		now:            cfg.Now,
	}
}

// Sources lists every registered source in merge order.
func (s *ContestService) Sources() []string {
	return s.aggregator.SourceNames()
}

func (s *ContestService) DefaultSources() []string {
	return append([]string(nil), s.defaultSources...)
}

// FetchStats returns the latest outcome per source.
func (s *ContestService) FetchStats() map[string]contest.FetchOutcome {
	return s.aggregator.Stats().Snapshot()
}

func (s *ContestService) Feed(ctx context.Context, query FeedQuery) (Feed, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ContestService.Feed")
	defer span.End()

	if err := validateWindow(query.Days, query.RecentDays); err != nil {
		return Feed{}, err
	}
	sources, label, err := s.resolveSources(query.Sources)
	if err != nil {
		return Feed{}, err
	}

	key := AggregateCacheKey(label, query.Days, query.IncludeRunning, query.IncludeRecent, query.RecentDays)
	span.SetAttributes(attribute.String("contest.cache_key", key), attribute.Bool("contest.refresh", query.Refresh))

	payload, cached, err := s.cache.GetOrFetch(ctx, key, query.Refresh, func(ctx context.Context) ([]byte, error) {
		return s.buildFeed(ctx, sources, query)
	})
	if err != nil {
		return Feed{}, err
	}

	var out Feed
	if err := sonic.Unmarshal(payload, &out); err != nil {
		// A corrupt entry must not fail the request.
		s.logger.WarnContext(ctx, "discarding unreadable cached feed", "key", key, "error", err)
		payload, err = s.buildFeed(ctx, sources, query)
		if err != nil {
			return Feed{}, err
		}
		if err := sonic.Unmarshal(payload, &out); err != nil {
			return Feed{}, fmt.Errorf("decode contest feed: %w", err)
		}
		cached = false
	}
	out.Cached = cached
	return out, nil
}

func (s *ContestService) SourceFeed(ctx context.Context, query SourceFeedQuery) (SourceFeed, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ContestService.SourceFeed")
	defer span.End()

	source := strings.ToLower(strings.TrimSpace(query.Source))
	if !s.aggregator.HasSource(source) {
		return SourceFeed{}, fmt.Errorf("%w: invalid source %q, valid sources are: %s",
			ErrInvalidInput, query.Source, strings.Join(s.aggregator.SourceNames(), ", "))
	}
	if err := validateWindow(query.Days, DefaultRecentDays); err != nil {
		return SourceFeed{}, err
	}

	key := SourceCacheKey(source, query.Days, query.IncludeRunning)
	span.SetAttributes(attribute.String("contest.cache_key", key), attribute.Bool("contest.refresh", query.Refresh))

	payload, cached, err := s.cache.GetOrFetch(ctx, key, query.Refresh, func(ctx context.Context) ([]byte, error) {
		return s.buildSourceFeed(ctx, source, query)
	})
	if err != nil {
		return SourceFeed{}, err
	}

	var out SourceFeed
	if err := sonic.Unmarshal(payload, &out); err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable cached source feed", "key", key, "error", err)
		payload, err = s.buildSourceFeed(ctx, source, query)
		if err != nil {
			return SourceFeed{}, err
		}
		if err := sonic.Unmarshal(payload, &out); err != nil {
			return SourceFeed{}, fmt.Errorf("decode source feed: %w", err)
		}
		cached = false
	}
	out.Cached = cached
	return out, nil
}

func (s *ContestService) buildFeed(ctx context.Context, sources []string, query FeedQuery) ([]byte, error) {
	result := s.aggregator.Aggregate(ctx, sources)
	now := s.now().UTC()
	buckets := contest.Classify(result.Contests, now, contest.Window{
		UpcomingDays:   query.Days,
		RecentDays:     query.RecentDays,
		IncludeRunning: query.IncludeRunning,
		IncludeRecent:  query.IncludeRecent,
	})

	feed := Feed{
		Status:    feedStatusSuccess,
		Running:   buckets.Running,
		Upcoming:  buckets.Upcoming,
		Recent:    buckets.Recent,
		FetchedAt: now,
		Counts:    result.Counts,
		Total:     len(result.Contests),
	}
	payload, err := sonic.Marshal(feed)
	if err != nil {
		return nil, fmt.Errorf("encode contest feed: %w", err)
	}
	return payload, nil
}

func (s *ContestService) buildSourceFeed(ctx context.Context, source string, query SourceFeedQuery) ([]byte, error) {
	result := s.aggregator.Aggregate(ctx, []string{source})
	now := s.now().UTC()
	buckets := contest.Classify(result.Contests, now, contest.Window{
		UpcomingDays:   query.Days,
		IncludeRunning: query.IncludeRunning,
	})

	feed := SourceFeed{
		Status:    feedStatusSuccess,
		Source:    source,
		Running:   buckets.Running,
		Upcoming:  buckets.Upcoming,
		FetchedAt: now,
		Count:     result.Counts[source],
	}
	payload, err := sonic.Marshal(feed)
	if err != nil {
		return nil, fmt.Errorf("encode source feed: %w", err)
	}
	return payload, nil
}

// resolveSources validates requested names and returns them in registration
// order plus the label used in the cache key.
func (s *ContestService) resolveSources(requested []string) ([]string, string, error) {
	if len(requested) == 0 {
		return s.defaultSources, allSourcesLabel, nil
	}

	wanted := make(map[string]struct{}, len(requested))
	for _, name := range requested {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if !s.aggregator.HasSource(name) {
			return nil, "", fmt.Errorf("%w: invalid source %q, valid sources are: %s",
				ErrInvalidInput, name, strings.Join(s.aggregator.SourceNames(), ", "))
		}
		wanted[name] = struct{}{}
	}
	if len(wanted) == 0 {
		return s.defaultSources, allSourcesLabel, nil
	}

	ordered := make([]string, 0, len(wanted))
	for _, name := range s.aggregator.SourceNames() {
		if _, ok := wanted[name]; ok {
			ordered = append(ordered, name)
		}
	}
	if sameSources(ordered, s.defaultSources) {
		return s.defaultSources, allSourcesLabel, nil
	}
	return ordered, strings.Join(ordered, "+"), nil
}

func sameSources(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func validateWindow(days, recentDays int) error {
	if days < 0 || days > MaxUpcomingDays {
		return fmt.Errorf("%w: days must be between 0 and %d", ErrInvalidInput, MaxUpcomingDays)
	}
	if recentDays < 1 || recentDays > MaxRecentDays {
		return fmt.Errorf("%w: recent_days must be between 1 and %d", ErrInvalidInput, MaxRecentDays)
	}
	return nil
}

// AggregateCacheKey derives the cache key from every parameter that shapes
// an aggregate feed.
func AggregateCacheKey(sources string, days int, includeRunning, includeRecent bool, recentDays int) string {
	return strings.Join([]string{
		cacheKeyPrefix,
		sources,
		strconv.Itoa(days),
		strconv.FormatBool(includeRunning),
		strconv.FormatBool(includeRecent),
		strconv.Itoa(recentDays),
	}, ":")
}

func SourceCacheKey(source string, days int, includeRunning bool) string {
	return strings.Join([]string{
		cacheKeyPrefix,
		source,
		strconv.Itoa(days),
		strconv.FormatBool(includeRunning),
	}, ":")
}
