package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/contest-feed/internal/domain/feedcache"
	"github.com/riskibarqy/contest-feed/internal/platform/logging"
)

const (
	defaultWarmWorkers = 4

	warmStatusSuccess = "success"
	warmStatusFailed  = "failed"
	warmTargetAll     = "all"
)

type WarmTaskResult struct {
	Target     string `json:"target"`
	CacheKey   string `json:"cache_key"`
	Status     string `json:"status"`
	Contests   int    `json:"contests"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

type WarmResult struct {
	TaskCount    int              `json:"task_count"`
	WorkerCount  int              `json:"worker_count"`
	SuccessCount int              `json:"success_count"`
	FailedCount  int              `json:"failed_count"`
	Tasks        []WarmTaskResult `json:"tasks"`
}

// ContestWarmer refreshes the default aggregate feed and every per-source
// feed so user requests are served from cache.
type ContestWarmer struct {
	service *ContestService
	workers int
	logger  *logging.Logger
	purger  feedcache.Purger
	running atomic.Bool
}

func NewContestWarmer(service *ContestService, workers int, logger *logging.Logger) *ContestWarmer {
	if workers <= 0 {
		workers = defaultWarmWorkers
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ContestWarmer{service: service, workers: workers, logger: logger}
}

// WithPurger removes expired entries after each run, for backends that keep
// them around.
func (w *ContestWarmer) WithPurger(purger feedcache.Purger) *ContestWarmer {
	w.purger = purger
	return w
}

type warmTask struct {
	target string
	run    func(ctx context.Context) (string, int, error)
}

// WarmOnce refreshes all default cache entries. Overlapping calls are
// rejected rather than queued.
func (w *ContestWarmer) WarmOnce(ctx context.Context) (WarmResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ContestWarmer.WarmOnce")
	defer span.End()

	if !w.running.CompareAndSwap(false, true) {
		return WarmResult{}, fmt.Errorf("%w: contest warm-up already running", ErrConflict)
	}
	defer w.running.Store(false)

	tasks := w.buildTasks()
	workerCount := w.workers
	if workerCount > len(tasks) {
		workerCount = len(tasks)
	}
	result := WarmResult{
		TaskCount:   len(tasks),
		WorkerCount: workerCount,
		Tasks:       make([]WarmTaskResult, 0, len(tasks)),
	}
	if len(tasks) == 0 {
		return result, nil
	}

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return WarmResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	results := make(chan WarmTaskResult, len(tasks))
	var successCount atomic.Int32
	var failedCount atomic.Int32

	var workers sync.WaitGroup
	for _, task := range tasks {
		task := task
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			start := time.Now()
			row := WarmTaskResult{Target: task.target, Status: warmStatusSuccess}
			key, count, err := task.run(ctx)
			row.CacheKey = key
			row.Contests = count
			if err != nil {
				row.Status = warmStatusFailed
				row.Message = err.Error()
				failedCount.Add(1)
			} else {
				successCount.Add(1)
			}
			row.DurationMs = time.Since(start).Milliseconds()
			results <- row
		}); err != nil {
			workers.Done()
			return WarmResult{}, fmt.Errorf("submit task to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(results)

	for row := range results {
		result.Tasks = append(result.Tasks, row)
	}
	sort.SliceStable(result.Tasks, func(i, j int) bool {
		return result.Tasks[i].Target < result.Tasks[j].Target
	})

	result.SuccessCount = int(successCount.Load())
	result.FailedCount = int(failedCount.Load())
	w.purgeExpired(ctx)
	w.logger.InfoContext(ctx, "contest cache warm-up finished",
		"tasks", result.TaskCount,
		"success", result.SuccessCount,
		"failed", result.FailedCount,
	)
	return result, nil
}

func (w *ContestWarmer) purgeExpired(ctx context.Context) {
	if w.purger == nil {
		return
	}
	purged, err := w.purger.PurgeExpired(ctx)
	if err != nil {
		w.logger.WarnContext(ctx, "purge expired contest cache failed", "error", err)
		return
	}
	if purged > 0 {
		w.logger.InfoContext(ctx, "purged expired contest cache entries", "count", purged)
	}
}

func (w *ContestWarmer) buildTasks() []warmTask {
	sources := w.service.Sources()
	tasks := make([]warmTask, 0, len(sources)+1)

	tasks = append(tasks, warmTask{
		target: warmTargetAll,
		run: func(ctx context.Context) (string, int, error) {
			query := FeedQuery{
				Days:           DefaultUpcomingDays,
				IncludeRunning: true,
				IncludeRecent:  true,
				RecentDays:     DefaultRecentDays,
				Refresh:        true,
			}
			key := AggregateCacheKey(allSourcesLabel, query.Days, query.IncludeRunning, query.IncludeRecent, query.RecentDays)
			feed, err := w.service.Feed(ctx, query)
			if err != nil {
				return key, 0, err
			}
			return key, feed.Total, nil
		},
	})

	for _, source := range sources {
		source := source
		tasks = append(tasks, warmTask{
			target: source,
			run: func(ctx context.Context) (string, int, error) {
				query := SourceFeedQuery{
					Source:         source,
					Days:           DefaultUpcomingDays,
					IncludeRunning: true,
					Refresh:        true,
				}
				key := SourceCacheKey(source, query.Days, query.IncludeRunning)
				feed, err := w.service.SourceFeed(ctx, query)
				if err != nil {
					return key, 0, err
				}
				return key, feed.Count, nil
			},
		})
	}
	return tasks
}

// Run warms immediately and then on every tick until ctx is done.
func (w *ContestWarmer) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := w.WarmOnce(ctx); err != nil {
			w.logger.WarnContext(ctx, "contest cache warm-up skipped", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
