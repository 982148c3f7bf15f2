package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/contest-feed/internal/domain/contest"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type memoryFeedRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
}

func newMemoryFeedRepo() *memoryFeedRepo {
	return &memoryFeedRepo{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (r *memoryFeedRepo) Get(_ context.Context, key string) ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.entries[key]
	return v, ok, nil
}

func (r *memoryFeedRepo) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = append([]byte(nil), value...)
	r.ttls[key] = ttl
	return nil
}

func (r *memoryFeedRepo) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for k := range r.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type funcSource struct {
	name  string
	fetch func(ctx context.Context) contest.FetchResult
}

func (s funcSource) Name() string { return s.name }

func (s funcSource) Fetch(ctx context.Context) contest.FetchResult { return s.fetch(ctx) }

type recordingMetrics struct {
	mu      sync.Mutex
	fetches map[string]contest.FetchOutcome
	cache   map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{fetches: map[string]contest.FetchOutcome{}, cache: map[string]int{}}
}

func (m *recordingMetrics) ObserveFetch(source string, outcome contest.FetchOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches[source] = outcome
}

func (m *recordingMetrics) ObserveCache(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[result]++
}

func (m *recordingMetrics) cacheCount(result string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache[result]
}

func sampleContest(site, url string, start time.Time, duration time.Duration) contest.Contest {
	return contest.Contest{
		Site:            site,
		Name:            site + " " + url,
		URL:             url,
		StartTime:       start,
		DurationSeconds: int64(duration / time.Second),
	}
}

func okResult(source string, items ...contest.Contest) contest.FetchResult {
	return contest.FetchResult{
		Source:   source,
		Contests: items,
		Outcome: contest.FetchOutcome{
			OK:             true,
			Count:          len(items),
			SourceStrategy: contest.StrategyPrimary,
			AttemptedAt:    testNow,
		},
	}
}
