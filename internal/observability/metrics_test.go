package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/riskibarqy/contest-feed/internal/domain/contest"
	"github.com/riskibarqy/contest-feed/internal/platform/resilience"
)

func scrape(t *testing.T, m *ContestMetrics) string {
	t.Helper()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusOK)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read metrics body: %v", err)
	}
	return string(body)
}

func TestContestMetrics_Observe(t *testing.T) {
	t.Parallel()

	m := NewContestMetrics()
	m.ObserveFetch("codeforces", contest.FetchOutcome{OK: true, Count: 12, SourceStrategy: contest.StrategyPrimary, DurationMS: 340})
	m.ObserveFetch("atcoder", contest.FetchOutcome{OK: false, Error: "timeout"})
	m.ObserveCache("hit")
	m.ObserveCache("hit")
	m.ObserveCircuit("atcoder", resilience.CircuitStateClosed, resilience.CircuitStateOpen)

	body := scrape(t, m)
	want := []string{
		`contest_feed_source_fetch_total{ok="true",source="codeforces",strategy="primary"} 1`,
		`contest_feed_source_fetch_total{ok="false",source="atcoder",strategy="none"} 1`,
		`contest_feed_source_records{source="codeforces"} 12`,
		`contest_feed_cache_requests_total{result="hit"} 2`,
		`contest_feed_circuit_state{source="atcoder"} 2`,
		`contest_feed_source_fetch_duration_seconds_count{source="codeforces"} 1`,
	}
	for _, line := range want {
		if !strings.Contains(body, line) {
			t.Fatalf("metrics output missing %q:\n%s", line, body)
		}
	}
}
