package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/contest-feed/internal/domain/contest"
	usecasemock "github.com/riskibarqy/contest-feed/internal/mocks/usecase"
	"github.com/riskibarqy/contest-feed/internal/platform/logging"
	"github.com/stretchr/testify/mock"
)

func newTestAggregator(sources []ContestSource, metrics FeedMetrics, timeout time.Duration) *Aggregator {
	return NewAggregator(sources, NewFetchStatsRegistry(), AggregatorConfig{
		SourceTimeout: timeout,
		Logger:        logging.NewNop(),
		Metrics:       metrics,
		Now:           fixedClock,
	})
}

func TestAggregator_Aggregate_DedupesInRegistrationOrder(t *testing.T) {
	t.Parallel()

	first := usecasemock.NewContestSource(t)
	second := usecasemock.NewContestSource(t)
	first.On("Name").Return("alpha").Maybe()
	second.On("Name").Return("beta").Maybe()

	shared := sampleContest("alpha", "https://example.com/shared", testNow.Add(time.Hour), time.Hour)
	duplicate := shared
	duplicate.Site = "beta"
	duplicate.Name = "beta copy"

	first.On("Fetch", mock.Anything).Return(okResult("alpha",
		shared,
		sampleContest("alpha", "https://example.com/a2", testNow.Add(2*time.Hour), time.Hour),
	)).Once()
	second.On("Fetch", mock.Anything).Return(okResult("beta",
		duplicate,
		sampleContest("beta", "https://example.com/b2", testNow.Add(3*time.Hour), time.Hour),
	)).Once()

	metrics := newRecordingMetrics()
	agg := newTestAggregator([]ContestSource{first, second}, metrics, time.Second)

	got := agg.Aggregate(context.Background(), nil)
	if len(got.Contests) != 3 {
		t.Fatalf("unexpected unique contests: got=%d want=3", len(got.Contests))
	}
	if got.Contests[0].Site != "alpha" || got.Contests[0].Name != shared.Name {
		t.Fatalf("first registered source must win duplicates, got %+v", got.Contests[0])
	}
	if got.Contests[2].URL != "https://example.com/b2" {
		t.Fatalf("unexpected merge order: %+v", got.Contests)
	}
	if got.Counts["alpha"] != 2 || got.Counts["beta"] != 2 {
		t.Fatalf("counts must be pre-dedup: %+v", got.Counts)
	}
	if got.RunID == "" {
		t.Fatalf("expected run id")
	}

	stats := agg.Stats().Snapshot()
	if len(stats) != 2 || !stats["alpha"].OK || !stats["beta"].OK {
		t.Fatalf("unexpected registry snapshot: %+v", stats)
	}
	if _, ok := metrics.fetches["beta"]; !ok {
		t.Fatalf("expected metrics observation for beta")
	}
}

func TestAggregator_Aggregate_IsolatesPanickingSource(t *testing.T) {
	t.Parallel()

	healthy := funcSource{name: "healthy", fetch: func(context.Context) contest.FetchResult {
		return okResult("healthy", sampleContest("healthy", "https://example.com/h1", testNow.Add(time.Hour), time.Hour))
	}}
	broken := funcSource{name: "broken", fetch: func(context.Context) contest.FetchResult {
		panic("parser exploded")
	}}

	agg := newTestAggregator([]ContestSource{broken, healthy}, nil, time.Second)
	got := agg.Aggregate(context.Background(), nil)

	if len(got.Contests) != 1 || got.Contests[0].Site != "healthy" {
		t.Fatalf("healthy source records must survive, got %+v", got.Contests)
	}
	outcome := got.Outcomes["broken"]
	if outcome.OK {
		t.Fatalf("panicking source must be marked failed")
	}
	if !strings.Contains(outcome.Error, "parser exploded") {
		t.Fatalf("unexpected error text: %q", outcome.Error)
	}
	if got.Counts["broken"] != 0 {
		t.Fatalf("unexpected count for broken source: %d", got.Counts["broken"])
	}
}

func TestAggregator_Aggregate_TimesOutSlowSource(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)

	slow := funcSource{name: "slow", fetch: func(context.Context) contest.FetchResult {
		<-release
		return okResult("slow", sampleContest("slow", "https://example.com/late", testNow, time.Hour))
	}}
	fast := funcSource{name: "fast", fetch: func(context.Context) contest.FetchResult {
		return okResult("fast", sampleContest("fast", "https://example.com/f1", testNow.Add(time.Hour), time.Hour))
	}}

	agg := newTestAggregator([]ContestSource{slow, fast}, nil, 20*time.Millisecond)
	got := agg.Aggregate(context.Background(), nil)

	if got.Outcomes["slow"].OK {
		t.Fatalf("slow source must time out")
	}
	if !strings.HasPrefix(got.Outcomes["slow"].Error, "timeout") {
		t.Fatalf("unexpected timeout error: %q", got.Outcomes["slow"].Error)
	}
	if len(got.Contests) != 1 || got.Contests[0].Site != "fast" {
		t.Fatalf("unexpected contests: %+v", got.Contests)
	}
}

func TestAggregator_Aggregate_SelectsNamedSources(t *testing.T) {
	t.Parallel()

	skipped := usecasemock.NewContestSource(t)
	selected := usecasemock.NewContestSource(t)
	skipped.On("Name").Return("skipped").Maybe()
	selected.On("Name").Return("selected").Maybe()
	selected.On("Fetch", mock.Anything).Return(contest.FetchResult{
		Outcome: contest.FetchOutcome{OK: false, Error: "boom"},
		Err:     errors.New("boom"),
	}).Once()

	agg := newTestAggregator([]ContestSource{skipped, selected}, nil, time.Second)
	got := agg.Aggregate(context.Background(), []string{"selected"})

	if _, ok := got.Outcomes["skipped"]; ok {
		t.Fatalf("unselected source must not be fetched")
	}
	if got.Outcomes["selected"].OK {
		t.Fatalf("expected failed outcome for selected source")
	}
	if got.Contests == nil || len(got.Contests) != 0 {
		t.Fatalf("expected empty non-nil contests, got %+v", got.Contests)
	}
	if got.Outcomes["selected"].AttemptedAt.IsZero() {
		t.Fatalf("attempted_at must be filled in")
	}
}

func TestNewAggregator_IgnoresDuplicateNames(t *testing.T) {
	t.Parallel()

	a := funcSource{name: "same", fetch: func(context.Context) contest.FetchResult { return okResult("same") }}
	b := funcSource{name: "same", fetch: func(context.Context) contest.FetchResult { return okResult("same") }}

	agg := newTestAggregator([]ContestSource{a, nil, b}, nil, time.Second)
	names := agg.SourceNames()
	if len(names) != 1 || names[0] != "same" {
		t.Fatalf("unexpected source names: %v", names)
	}
	if !agg.HasSource("same") || agg.HasSource("other") {
		t.Fatalf("unexpected HasSource results")
	}
}
