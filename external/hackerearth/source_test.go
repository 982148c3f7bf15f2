package hackerearth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/riskibarqy/contest-feed/external/upstream"
	"github.com/riskibarqy/contest-feed/internal/domain/contest"
)

func newTestSource(t *testing.T, mux *http.ServeMux) *Source {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	return NewSource(upstream.SourceOptions{
		Client:  upstream.NewClient(upstream.ClientConfig{Source: Name, HTTPClient: server.Client()}),
		BaseURL: server.URL,
		Now:     func() time.Time { return now },
	})
}

func TestSource_EventsAPI(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/chrome-extension/events/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response":[
			{"title":"April Circuits","url":"https://www.hackerearth.com/challenges/competitive/april-circuits-26/","start_utc_tz":"2026-04-03 15:30:00+00:00","end_utc_tz":"2026-04-10 15:30:00+00:00","status":"UPCOMING"},
			{"title":"Hiring sprint","url":"/challenges/hiring/sprint/","start_tz":"2026-04-02T10:00:00Z"}
		]}`))
	})

	got := newTestSource(t, mux).Fetch(context.Background())
	if !got.Outcome.OK || got.Outcome.SourceStrategy != contest.StrategyPrimary || got.Outcome.Count != 2 {
		t.Fatalf("unexpected outcome: %+v", got.Outcome)
	}
	if got.Contests[0].DurationSeconds != 7*86400 {
		t.Fatalf("duration got=%d", got.Contests[0].DurationSeconds)
	}
	if got.Contests[1].URL != "https://www.hackerearth.com/challenges/hiring/sprint/" || got.Contests[1].DurationSeconds != 7200 {
		t.Fatalf("unexpected relative contest: %+v", got.Contests[1])
	}
}

func TestSource_LinkedDataFallback(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/chrome-extension/events/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/challenges/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><script type="application/ld+json">
			[{"@type":"Event","name":"Data Science Hackathon","url":"/challenges/hackathon/ds/","startDate":"2026-04-05T00:00:00Z","endDate":"2026-04-07T00:00:00Z"}]
		</script></head></html>`))
	})

	got := newTestSource(t, mux).Fetch(context.Background())
	if got.Outcome.SourceStrategy != contest.StrategyHTML || got.Outcome.Count != 1 {
		t.Fatalf("unexpected outcome: %+v", got.Outcome)
	}
	if got.Contests[0].Name != "Data Science Hackathon" || got.Contests[0].DurationSeconds != 2*86400 {
		t.Fatalf("unexpected contest: %+v", got.Contests[0])
	}
}

func TestSource_NextDataAcrossPaths(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/chrome-extension/events/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response":[]}`))
	})
	mux.HandleFunc("/challenges/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>nothing here</body></html>`))
	})
	mux.HandleFunc("/challenges/competitive/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><script id="__NEXT_DATA__" type="application/json">
			{"props":{"pageProps":{"live":[{"challenge":{"title":"Code Monk","url":"/challenges/competitive/code-monk/"},"schedule":{"start":1775050000000,"end":1775060000000}}]}}}
		</script></head></html>`))
	})

	got := newTestSource(t, mux).Fetch(context.Background())
	if !got.Outcome.OK || got.Outcome.SourceStrategy != contest.StrategyEmbeddedJSON || got.Outcome.Count != 1 {
		t.Fatalf("unexpected outcome: %+v", got.Outcome)
	}
	item := got.Contests[0]
	if item.Name != "Code Monk" || item.URL != "https://www.hackerearth.com/challenges/competitive/code-monk/" {
		t.Fatalf("unexpected contest: %+v", item)
	}
	if item.DurationSeconds != 10000 {
		t.Fatalf("duration got=%d want=10000", item.DurationSeconds)
	}
}
