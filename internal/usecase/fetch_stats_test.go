package usecase

import (
	"testing"

	"github.com/riskibarqy/contest-feed/internal/domain/contest"
)

func TestFetchStatsRegistry_RecordReplacesAndSnapshotCopies(t *testing.T) {
	t.Parallel()

	registry := NewFetchStatsRegistry()
	registry.Record("codeforces", contest.FetchOutcome{OK: false, Error: "timeout"})
	registry.Record("codeforces", contest.FetchOutcome{OK: true, Count: 12, SourceStrategy: contest.StrategyPrimary})

	got, ok := registry.Get("codeforces")
	if !ok || !got.OK || got.Count != 12 || got.Error != "" {
		t.Fatalf("latest outcome must replace the previous one, got %+v", got)
	}

	snapshot := registry.Snapshot()
	snapshot["codeforces"] = contest.FetchOutcome{}
	if again, _ := registry.Get("codeforces"); again.Count != 12 {
		t.Fatalf("snapshot mutation leaked into registry")
	}
	if _, ok := registry.Get("atcoder"); ok {
		t.Fatalf("unexpected outcome for unrecorded source")
	}
}
