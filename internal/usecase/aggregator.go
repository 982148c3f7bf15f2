package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/contest-feed/internal/domain/contest"
	"github.com/riskibarqy/contest-feed/internal/platform/id"
	"github.com/riskibarqy/contest-feed/internal/platform/logging"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel/attribute"
)

const defaultSourceTimeout = 30 * time.Second

type AggregatorConfig struct {
	// SourceTimeout bounds one source end to end, across all its strategies.
	SourceTimeout time.Duration
	Logger        *logging.Logger
	Metrics       FeedMetrics
	IDGenerator   id.Generator
	Now           func() time.Time
}

// Aggregator fans out to sources concurrently and merges their records in
// registration order.
type Aggregator struct {
	sources       []ContestSource
	byName        map[string]ContestSource
	stats         *FetchStatsRegistry
	sourceTimeout time.Duration
	logger        *logging.Logger
	metrics       FeedMetrics
	ids           id.Generator
	now           func() time.Time
}

type AggregateResult struct {
	RunID    string
	Contests []contest.Contest
	// Counts holds per-source record counts before de-duplication.
	Counts   map[string]int
	Outcomes map[string]contest.FetchOutcome
}

func NewAggregator(sources []ContestSource, stats *FetchStatsRegistry, cfg AggregatorConfig) *Aggregator {
	if stats == nil {
		stats = NewFetchStatsRegistry()
	}
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = defaultSourceTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopFeedMetrics{}
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = id.NewTimeOrderedGenerator()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	ordered := make([]ContestSource, 0, len(sources))
	byName := make(map[string]ContestSource, len(sources))
	for _, source := range sources {
		if source == nil {
			continue
		}
		name := source.Name()
		if _, exists := byName[name]; exists {
			continue
		}
		byName[name] = source
		ordered = append(ordered, source)
	}

	return &Aggregator{
		sources:       ordered,
		byName:        byName,
		stats:         stats,
		sourceTimeout: cfg.SourceTimeout,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		ids:           cfg.IDGenerator,
		now:           cfg.Now,
	}
}

// SourceNames lists registered sources in merge order.
func (a *Aggregator) SourceNames() []string {
	out := make([]string, 0, len(a.sources))
	for _, source := range a.sources {
		out = append(out, source.Name())
	}
	return out
}

func (a *Aggregator) HasSource(name string) bool {
	_, ok := a.byName[name]
	return ok
}

func (a *Aggregator) Stats() *FetchStatsRegistry {
	return a.stats
}

// Aggregate fetches the named sources, or all when names is empty. Unknown
// names are ignored; callers validate beforehand.
func (a *Aggregator) Aggregate(ctx context.Context, names []string) AggregateResult {
	ctx, span := startUsecaseSpan(ctx, "usecase.Aggregator.Aggregate")
	defer span.End()

	selected := a.selectSources(names)
	runID, err := a.ids.NewID()
	if err != nil {
		runID = fmt.Sprintf("run-%d", a.now().UnixNano())
	}
	span.SetAttributes(
		attribute.String("aggregate.run_id", runID),
		attribute.Int("aggregate.sources", len(selected)),
	)

	results := make([]contest.FetchResult, len(selected))
	var wg conc.WaitGroup
	for i, source := range selected {
		i, source := i, source
		wg.Go(func() {
			results[i] = a.runSource(ctx, source)
		})
	}
	wg.Wait()

	out := AggregateResult{
		RunID:    runID,
		Counts:   make(map[string]int, len(selected)),
		Outcomes: make(map[string]contest.FetchOutcome, len(selected)),
	}
	merged := make([]contest.Contest, 0, 64)
	failed := make([]string, 0)
	for _, result := range results {
		a.stats.Record(result.Source, result.Outcome)
		a.metrics.ObserveFetch(result.Source, result.Outcome)
		out.Outcomes[result.Source] = result.Outcome
		out.Counts[result.Source] = len(result.Contests)
		merged = append(merged, result.Contests...)
		if !result.Outcome.OK {
			failed = append(failed, result.Source)
		}
	}
	out.Contests = contest.Dedupe(merged)

	a.logger.InfoContext(ctx, "contest aggregation finished",
		"run_id", runID,
		"sources", len(selected),
		"failed_sources", strings.Join(failed, ","),
		"records", len(merged),
		"unique", len(out.Contests),
	)
	return out
}

func (a *Aggregator) selectSources(names []string) []ContestSource {
	if len(names) == 0 {
		return a.sources
	}
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name] = struct{}{}
	}
	out := make([]ContestSource, 0, len(names))
	for _, source := range a.sources {
		if _, ok := wanted[source.Name()]; ok {
			out = append(out, source)
		}
	}
	return out
}

// runSource turns a panic or timeout in one adapter into a failed outcome for
// that source only.
func (a *Aggregator) runSource(ctx context.Context, source ContestSource) contest.FetchResult {
	name := source.Name()
	startedAt := a.now()
	ctx, cancel := context.WithTimeout(ctx, a.sourceTimeout)
	defer cancel()

	done := make(chan contest.FetchResult, 1)
	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				a.logger.ErrorContext(ctx, "contest source panicked", "source", name, "panic", fmt.Sprint(recovered))
				done <- failedResult(name, startedAt, a.now(), fmt.Sprintf("panic: %v", recovered))
			}
		}()
		done <- source.Fetch(ctx)
	}()

	var result contest.FetchResult
	select {
	case result = <-done:
	case <-ctx.Done():
		result = failedResult(name, startedAt, a.now(), "timeout: "+ctx.Err().Error())
	}

	result.Source = name
	if result.Contests == nil {
		result.Contests = []contest.Contest{}
	}
	if result.Outcome.AttemptedAt.IsZero() {
		result.Outcome.AttemptedAt = startedAt
	}
	if result.Err != nil {
		a.logger.WarnContext(ctx, "contest source unavailable", "source", name, "strategy", result.Outcome.SourceStrategy, "error", result.Err)
	}
	return result
}

func failedResult(source string, startedAt, finishedAt time.Time, message string) contest.FetchResult {
	return contest.FetchResult{
		Source:   source,
		Contests: []contest.Contest{},
		Outcome: contest.FetchOutcome{
			OK:          false,
			Error:       message,
			AttemptedAt: startedAt,
			DurationMS:  finishedAt.Sub(startedAt).Milliseconds(),
		},
		Err: fmt.Errorf("%w: %s", ErrDependencyUnavailable, message),
	}
}
