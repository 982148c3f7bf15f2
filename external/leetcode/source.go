package leetcode

import (
	"context"
	"net/http"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/contest-feed/external/upstream"
	"github.com/riskibarqy/contest-feed/internal/domain/contest"
)

const (
	Name           = "leetcode"
	site           = "LeetCode"
	defaultBaseURL = "https://leetcode.com"

	allContestsQuery   = "query { allContests { title titleSlug startTime duration } }"
	splitContestsQuery = "query { activeContests { title titleSlug startTime duration } contestUpcomingContests { title titleSlug startTime duration } }"
)

// Source queries the GraphQL endpoint, falling back to the split
// active/upcoming lists when the combined list is unavailable.
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
	return s.opts.Chain(Name,
		upstream.Strategy{Name: contest.StrategyPrimary, Timeout: s.opts.APITimeout, Fetch: s.fetchAll},
		upstream.Strategy{Name: contest.StrategySecondaryDataset, Timeout: s.opts.APITimeout, Fetch: s.fetchSplit},
	).Run(ctx)
}

type graphQLRequest struct {
	Query string `json:"query"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLContest struct {
	Title     string `json:"title"`
	TitleSlug string `json:"titleSlug"`
	StartTime any    `json:"startTime"`
	Duration  any    `json:"duration"`
}

type graphQLResponse struct {
	Data struct {
		AllContests             []graphQLContest `json:"allContests"`
		ActiveContests          []graphQLContest `json:"activeContests"`
		ContestUpcomingContests []graphQLContest `json:"contestUpcomingContests"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

func (s *Source) fetchAll(ctx context.Context) ([]contest.Contest, error) {
	payload, err := s.query(ctx, allContestsQuery)
	if err != nil {
		return nil, err
	}
	return normalize(payload.Data.AllContests), nil
}

func (s *Source) fetchSplit(ctx context.Context) ([]contest.Contest, error) {
	payload, err := s.query(ctx, splitContestsQuery)
	if err != nil {
		return nil, err
	}
	items := append(payload.Data.ContestUpcomingContests, payload.Data.ActiveContests...)
	return normalize(items), nil
}

func (s *Source) query(ctx context.Context, query string) (graphQLResponse, error) {
	header := http.Header{
		"Origin":  []string{defaultBaseURL},
		"Referer": []string{defaultBaseURL + "/contest/"},
	}
	var payload graphQLResponse
	if err := s.opts.Client.PostJSON(ctx, s.opts.BaseURL+"/graphql", header, graphQLRequest{Query: query}, &payload); err != nil {
		return graphQLResponse{}, err
	}
	if len(payload.Errors) > 0 {
		return graphQLResponse{}, crerr.Newf("graphql error: %s", payload.Errors[0].Message)
	}
	return payload, nil
}

func normalize(items []graphQLContest) []contest.Contest {
	out := make([]contest.Contest, 0, len(items))
	for _, item := range items {
		slug := strings.TrimSpace(item.TitleSlug)
		if slug == "" {
			continue
		}
		start, ok := upstream.ParseTime(item.StartTime, nil)
		if !ok {
			continue
		}
		duration, ok := upstream.ParseDurationValue(item.Duration)
		if !ok {
			duration = 0
		}
		out = append(out, contest.Contest{
			Site:            site,
			Name:            strings.TrimSpace(item.Title),
			URL:             defaultBaseURL + "/contest/" + slug,
			StartTime:       start,
			DurationSeconds: duration,
		})
	}
	return out
}
