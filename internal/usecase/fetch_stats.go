package usecase

import (
	"sync"

	"github.com/riskibarqy/contest-feed/internal/domain/contest"
)

// FetchStatsRegistry keeps the latest outcome per source. Each Record
// replaces the previous entry for that source.
type FetchStatsRegistry struct {
	mu       sync.RWMutex
	outcomes map[string]contest.FetchOutcome
}

func NewFetchStatsRegistry() *FetchStatsRegistry {
	return &FetchStatsRegistry{outcomes: make(map[string]contest.FetchOutcome)}
}

func (r *FetchStatsRegistry) Record(source string, outcome contest.FetchOutcome) {
	r.mu.Lock()
	r.outcomes[source] = outcome
	r.mu.Unlock()
}

func (r *FetchStatsRegistry) Get(source string) (contest.FetchOutcome, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	outcome, ok := r.outcomes[source]
	return outcome, ok
}

// Snapshot returns a copy safe to hand to callers.
func (r *FetchStatsRegistry) Snapshot() map[string]contest.FetchOutcome {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]contest.FetchOutcome, len(r.outcomes))
	for source, outcome := range r.outcomes {
		out[source] = outcome
	}
	return out
}
