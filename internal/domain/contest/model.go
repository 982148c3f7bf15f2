package contest

import (
	"strings"
	"time"
)

// Strategy names the upstream access path that produced a source's records.
const (
	StrategyPrimary          = "primary"
	StrategySecondaryDataset = "secondary-dataset"
	StrategyHTML             = "html"
	StrategyEmbeddedJSON     = "embedded-json"
)

// DefaultDuration is used when an upstream gives neither a duration nor an end.
const DefaultDuration = 2 * time.Hour

// MaxDurationSeconds bounds a plausible contest length to ten years.
const MaxDurationSeconds int64 = 10 * 366 * 24 * 60 * 60

// Contest is the canonical, site-agnostic contest record. URL identifies it.
type Contest struct {
	Site            string    `json:"site"`
	Name            string    `json:"name"`
	URL             string    `json:"url"`
	StartTime       time.Time `json:"start_time"`
	DurationSeconds int64     `json:"duration"`
}

// Duration is capped at MaxDurationSeconds so End never overflows.
func (c Contest) Duration() time.Duration {
	return time.Duration(min(c.DurationSeconds, MaxDurationSeconds)) * time.Second
}

// End is StartTime + duration. A zero duration yields End == StartTime.
func (c Contest) End() time.Time {
	return c.StartTime.Add(c.Duration())
}

func (c Contest) Valid() bool {
	return strings.TrimSpace(c.Name) != "" &&
		strings.TrimSpace(c.URL) != "" &&
		!c.StartTime.IsZero() &&
		c.DurationSeconds >= 0 &&
		c.DurationSeconds <= MaxDurationSeconds
}

// FetchOutcome is the latest attempt summary for one source. It is replaced
// wholesale on every attempt.
type FetchOutcome struct {
	OK             bool      `json:"ok"`
	Count          int       `json:"count"`
	SourceStrategy string    `json:"source_strategy,omitempty"`
	Error          string    `json:"error,omitempty"`
	AttemptedAt    time.Time `json:"attempted_at"`
	DurationMS     int64     `json:"duration_ms"`
}

// FetchResult is what an adapter hands back. Err is set only when the source
// produced nothing and its last strategy failed; Contests may still be empty
// with a nil Err.
type FetchResult struct {
	Source   string
	Contests []Contest
	Outcome  FetchOutcome
	Err      error
}

// Dedupe keeps the first record seen for each URL, preserving input order.
func Dedupe(contests []Contest) []Contest {
	seen := make(map[string]struct{}, len(contests))
	out := make([]Contest, 0, len(contests))
	for _, item := range contests {
		if _, ok := seen[item.URL]; ok {
			continue
		}
		seen[item.URL] = struct{}{}
		out = append(out, item)
	}
	return out
}
