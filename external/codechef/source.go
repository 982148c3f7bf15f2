package codechef

import (
	"context"
	"net/url"

	"github.com/riskibarqy/contest-feed/external/upstream"
	"github.com/riskibarqy/contest-feed/internal/domain/contest"
)

const (
	Name           = "codechef"
	site           = "CodeChef"
	defaultBaseURL = "https://www.codechef.com"
)

// The list endpoint has shipped both snake_case and camelCase payloads.
var contestMapping = upstream.Mapping{
	Site: site,
	Fields: upstream.FieldMap{
		Title: []string{"contest_name", "contestName", "contest_code", "contestCode"},
		URL:   []string{"contest_code", "contestCode"},
		Start: []string{"contest_start_date_iso", "contestStartDateISO"},
		End:   []string{"contest_end_date_iso", "contestEndDateISO"},
	},
	URLPrefix: defaultBaseURL + "/",
}

type Source struct {
	opts upstream.SourceOptions
}

func NewSource(opts upstream.SourceOptions) *Source {
	return &Source{opts: opts.WithDefaults(Name, defaultBaseURL)}
}

func (s *Source) Name() string {
	return Name
}

func (s *Source) Fetch(ctx context.Context) contest.FetchResult {
	return s.opts.Chain(Name, upstream.Strategy{
		Name:    contest.StrategyPrimary,
		Timeout: s.opts.APITimeout,
		Fetch:   s.fetchAPI,
	}).Run(ctx)
}

type listResponse struct {
	Status          string           `json:"status"`
	PresentContests []map[string]any `json:"present_contests"`
	FutureContests  []map[string]any `json:"future_contests"`
	PastContests    []map[string]any `json:"past_contests"`
}

func (s *Source) fetchAPI(ctx context.Context) ([]contest.Contest, error) {
	var payload listResponse
	query := url.Values{"sort_by": []string{"START"}, "sorting_order": []string{"asc"}, "offset": []string{"0"}, "mode": []string{"all"}}
	if err := s.opts.Client.GetJSON(ctx, s.opts.BaseURL+"/api/list/contests/all", query, &payload); err != nil {
		return nil, err
	}

	out := make([]contest.Contest, 0, len(payload.PresentContests)+len(payload.FutureContests)+len(payload.PastContests))
	for _, group := range [][]map[string]any{payload.PresentContests, payload.FutureContests, payload.PastContests} {
		for _, item := range group {
			if mapped, ok := contestMapping.Contest(item); ok {
				out = append(out, mapped)
			}
		}
	}
	return out, nil
}
