package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/contest-feed/internal/domain/contest"
	"github.com/riskibarqy/contest-feed/internal/platform/logging"
)

func TestContestWarmer_WarmOnce_RefreshesEveryDefaultKey(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	source := func(name string) ContestSource {
		return funcSource{name: name, fetch: func(context.Context) contest.FetchResult {
			calls.Add(1)
			return okResult(name, sampleContest(name, "https://example.com/"+name, testNow.Add(time.Hour), time.Hour))
		}}
	}

	repo := newMemoryFeedRepo()
	svc := newTestContestService([]ContestSource{source("alpha"), source("beta")}, repo)
	warmer := NewContestWarmer(svc, 2, logging.NewNop())

	got, err := warmer.WarmOnce(context.Background())
	if err != nil {
		t.Fatalf("warm once: %v", err)
	}
	if got.TaskCount != 3 || got.SuccessCount != 3 || got.FailedCount != 0 {
		t.Fatalf("unexpected warm result: %+v", got)
	}
	if got.WorkerCount != 2 {
		t.Fatalf("unexpected worker count: got=%d want=2", got.WorkerCount)
	}
	if got.Tasks[0].Target != "all" || got.Tasks[0].Contests != 2 {
		t.Fatalf("unexpected aggregate task row: %+v", got.Tasks[0])
	}
	if calls.Load() != 4 {
		t.Fatalf("unexpected fetch calls: got=%d want=4", calls.Load())
	}

	want := []string{
		"contest_cache:all:7:true:true:7",
		"contest_cache:alpha:7:true",
		"contest_cache:beta:7:true",
	}
	keys := repo.keys()
	if len(keys) != len(want) {
		t.Fatalf("unexpected cache keys: %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("unexpected cache key: got=%s want=%s", keys[i], want[i])
		}
	}
}

func TestContestWarmer_WarmOnce_RejectsOverlap(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	var once atomic.Bool
	slow := funcSource{name: "slow", fetch: func(context.Context) contest.FetchResult {
		if once.CompareAndSwap(false, true) {
			close(started)
		}
		<-release
		return okResult("slow")
	}}

	svc := newTestContestService([]ContestSource{slow}, newMemoryFeedRepo())
	warmer := NewContestWarmer(svc, 1, logging.NewNop())

	done := make(chan error, 1)
	go func() {
		_, err := warmer.WarmOnce(context.Background())
		done <- err
	}()

	<-started
	if _, err := warmer.WarmOnce(context.Background()); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for overlapping run, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
}

func TestContestWarmer_WarmOnce_CancelledRunKeepsEntriesPopulated(t *testing.T) {
	t.Parallel()

	var blocking atomic.Bool
	started := make(chan struct{})
	release := make(chan struct{})
	var once atomic.Bool
	source := funcSource{name: "alpha", fetch: func(ctx context.Context) contest.FetchResult {
		if blocking.Load() {
			if once.CompareAndSwap(false, true) {
				close(started)
			}
			select {
			case <-release:
			case <-ctx.Done():
				return contest.FetchResult{Source: "alpha", Outcome: contest.FetchOutcome{Error: ctx.Err().Error()}}
			}
		}
		return okResult("alpha", sampleContest("alpha", "https://example.com/alpha", testNow.Add(time.Hour), time.Hour))
	}}

	repo := newMemoryFeedRepo()
	svc := newTestContestService([]ContestSource{source}, repo)
	warmer := NewContestWarmer(svc, 2, logging.NewNop())
	if _, err := warmer.WarmOnce(context.Background()); err != nil {
		t.Fatalf("first warm once: %v", err)
	}

	blocking.Store(true)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan WarmResult, 1)
	go func() {
		got, _ := warmer.WarmOnce(ctx)
		done <- got
	}()

	<-started
	cancel()
	close(release)
	got := <-done
	if got.FailedCount != got.TaskCount {
		t.Fatalf("cancelled run must report its tasks as failed: %+v", got)
	}

	feed, err := svc.Feed(context.Background(), defaultFeedQuery())
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if !feed.Cached || len(feed.Upcoming) != 1 {
		t.Fatalf("unexpected cached aggregate: cached=%v upcoming=%d", feed.Cached, len(feed.Upcoming))
	}
	single, err := svc.SourceFeed(context.Background(), SourceFeedQuery{Source: "alpha", Days: DefaultUpcomingDays, IncludeRunning: true})
	if err != nil {
		t.Fatalf("source feed: %v", err)
	}
	if !single.Cached || len(single.Upcoming) != 1 {
		t.Fatalf("unexpected cached source feed: cached=%v upcoming=%d", single.Cached, len(single.Upcoming))
	}
}

type countingPurger struct {
	calls atomic.Int32
}

func (p *countingPurger) PurgeExpired(context.Context) (int64, error) {
	p.calls.Add(1)
	return 2, nil
}

func TestContestWarmer_WarmOnce_PurgesExpiredEntries(t *testing.T) {
	t.Parallel()

	source := funcSource{name: "alpha", fetch: func(context.Context) contest.FetchResult { return okResult("alpha") }}
	svc := newTestContestService([]ContestSource{source}, newMemoryFeedRepo())
	purger := &countingPurger{}
	warmer := NewContestWarmer(svc, 0, logging.NewNop()).WithPurger(purger)

	if _, err := warmer.WarmOnce(context.Background()); err != nil {
		t.Fatalf("warm once: %v", err)
	}
	if purger.calls.Load() != 1 {
		t.Fatalf("unexpected purge calls: got=%d want=1", purger.calls.Load())
	}
}
