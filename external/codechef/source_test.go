package codechef

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/riskibarqy/contest-feed/external/upstream"
)

func TestSource_FetchMapsBothKeyStyles(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/list/contests/all" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"status":"success",
			"present_contests":[{"contest_code":"START230","contest_name":"Starters 230","contest_start_date_iso":"2026-04-01T20:00:00+05:30","contest_end_date_iso":"2026-04-01T22:00:00+05:30"}],
			"future_contests":[{"contestCode":"COOK200","contestName":"Cook-Off","contestStartDateISO":"2026-04-08T14:30:00Z","contestEndDateISO":"2026-04-08T17:00:00Z"}],
			"past_contests":[{"contest_code":"OLD1","contest_name":"Old","contest_start_date_iso":"2025-01-01T14:30:00Z","contest_end_date_iso":"2025-01-01T17:00:00Z"},
				{"contest_code":"","contest_name":"no code","contest_start_date_iso":"2026-04-08T14:30:00Z"}]
		}`))
	}))
	defer server.Close()

	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	source := NewSource(upstream.SourceOptions{
		Client:  upstream.NewClient(upstream.ClientConfig{Source: Name, HTTPClient: server.Client()}),
		BaseURL: server.URL,
		Now:     func() time.Time { return now },
	})

	got := source.Fetch(context.Background())
	if !got.Outcome.OK || got.Outcome.Count != 2 {
		t.Fatalf("unexpected outcome: %+v", got.Outcome)
	}

	starters := got.Contests[0]
	if starters.URL != "https://www.codechef.com/START230" || starters.DurationSeconds != 7200 {
		t.Fatalf("unexpected starters contest: %+v", starters)
	}
	if !starters.StartTime.Equal(time.Date(2026, 4, 1, 14, 30, 0, 0, time.UTC)) {
		t.Fatalf("start got=%s", starters.StartTime)
	}

	cook := got.Contests[1]
	if cook.Name != "Cook-Off" || cook.URL != "https://www.codechef.com/COOK200" || cook.DurationSeconds != 9000 {
		t.Fatalf("unexpected camelCase contest: %+v", cook)
	}
}
