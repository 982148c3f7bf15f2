package upstream

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/contest-feed/internal/domain/contest"
	"github.com/riskibarqy/contest-feed/internal/platform/logging"
)

// Strategy is one way of reading a source.
type Strategy struct {
	Name    string
	Timeout time.Duration
	Fetch   func(ctx context.Context) ([]contest.Contest, error)
}

// Chain tries strategies in order and stops at the first that yields at
// least one record. Records from different strategies are never merged.
type Chain struct {
	Source     string
	Strategies []Strategy
	// Keep filters records before counting; nil keeps all.
	Keep   func(contest.Contest) bool
	Logger *logging.Logger
	Now    func() time.Time
}

// Run never panics and never returns a partial error: failures end up in
// the result's outcome.
func (c Chain) Run(ctx context.Context) contest.FetchResult {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	logger := c.Logger
	if logger == nil {
		logger = logging.Default()
	}

	startedAt := now()
	result := contest.FetchResult{
		Source:   c.Source,
		Contests: []contest.Contest{},
	}

	var errs []error
	lastName := ""
	var lastErr error
	for _, strategy := range c.Strategies {
		lastName = strategy.Name
		items, err := c.runStrategy(ctx, strategy)
		lastErr = err
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", strategy.Name, err))
			logger.WarnContext(ctx, "contest source strategy failed", "source", c.Source, "strategy", strategy.Name, "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		kept := c.filter(items)
		if len(kept) == 0 {
			logger.DebugContext(ctx, "contest source strategy returned no records", "source", c.Source, "strategy", strategy.Name)
			continue
		}

		result.Contests = kept
		result.Outcome = contest.FetchOutcome{
			OK:             true,
			Count:          len(kept),
			SourceStrategy: strategy.Name,
			Error:          joinErrorText(errs),
			AttemptedAt:    startedAt,
			DurationMS:     now().Sub(startedAt).Milliseconds(),
		}
		return result
	}

	result.Outcome = contest.FetchOutcome{
		OK:             lastErr == nil,
		Count:          0,
		SourceStrategy: lastName,
		Error:          joinErrorText(errs),
		AttemptedAt:    startedAt,
		DurationMS:     now().Sub(startedAt).Milliseconds(),
	}
	if lastErr != nil {
		result.Err = stderrors.Join(errs...)
	}
	if len(c.Strategies) == 0 {
		result.Outcome.OK = false
		result.Outcome.Error = "no strategies configured"
		result.Err = crerr.Newf("%s: no strategies configured", c.Source)
	}
	return result
}

func (c Chain) runStrategy(ctx context.Context, strategy Strategy) (items []contest.Contest, err error) {
	if strategy.Fetch == nil {
		return nil, crerr.New("strategy has no fetch func")
	}
	if strategy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, strategy.Timeout)
		defer cancel()
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			items = nil
			err = crerr.Newf("panic: %v", recovered)
		}
	}()
	return strategy.Fetch(ctx)
}

func (c Chain) filter(items []contest.Contest) []contest.Contest {
	out := make([]contest.Contest, 0, len(items))
	for _, item := range items {
		if !item.Valid() {
			continue
		}
		item.StartTime = item.StartTime.UTC()
		if c.Keep != nil && !c.Keep(item) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func joinErrorText(errs []error) string {
	parts := make([]string, 0, len(errs))
	for _, err := range errs {
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, "; ")
}

// EndedAfter keeps contests still running, upcoming, or finished no earlier
// than lookback before now.
func EndedAfter(now func() time.Time, lookback time.Duration) func(contest.Contest) bool {
	return func(item contest.Contest) bool {
		return !item.End().Before(now().Add(-lookback))
	}
}
