package clist

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/contest-feed/external/upstream"
	"github.com/riskibarqy/contest-feed/internal/domain/contest"
)

const (
	Name           = "clist"
	defaultSite    = "CLIST"
	defaultBaseURL = "https://clist.by"
	defaultHorizon = 60 * 24 * time.Hour
	pageLimit      = 200
)

// ErrMissingCredentials marks the source unavailable without a network call.
var ErrMissingCredentials = crerr.New("missing credentials")

type Config struct {
	upstream.SourceOptions
	Username string
	APIKey   string
	// Horizon bounds how far ahead contests are requested.
	Horizon time.Duration
	// Resources optionally restricts results, e.g. "codeforces.com".
	Resources []string
}

// Source reads the CLIST aggregator API. It is only useful with an account.
type Source struct {
	opts      upstream.SourceOptions
	username  string
	apiKey    string
	horizon   time.Duration
	resources []string
}

func NewSource(cfg Config) *Source {
	if cfg.Client == nil {
		cfg.Client = upstream.NewClient(upstream.ClientConfig{
			Source:  Name,
			Logger:  cfg.Logger,
			Secrets: []string{cfg.APIKey},
		})
	}
	horizon := cfg.Horizon
	if horizon <= 0 {
		horizon = defaultHorizon
	}
	return &Source{
		opts:      cfg.SourceOptions.WithDefaults(Name, defaultBaseURL),
		username:  strings.TrimSpace(cfg.Username),
		apiKey:    strings.TrimSpace(cfg.APIKey),
		horizon:   horizon,
		resources: cfg.Resources,
	}
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

type contestResponse struct {
	Objects []map[string]any `json:"objects"`
}

func (s *Source) fetchAPI(ctx context.Context) ([]contest.Contest, error) {
	if s.username == "" || s.apiKey == "" {
		return nil, ErrMissingCredentials
	}

	now := s.opts.Now().UTC()
	query := url.Values{
		"order_by":   []string{"start"},
		"limit":      []string{strconv.Itoa(pageLimit)},
		"start__lte": []string{now.Add(s.horizon).Format("2006-01-02T15:04:05")},
		"end__gte":   []string{now.Add(-s.opts.Lookback).Format("2006-01-02T15:04:05")},
	}
	if len(s.resources) > 0 {
		query.Set("resource__in", strings.Join(s.resources, ","))
	}

	raw, err := s.opts.Client.Do(ctx, upstream.Request{
		Method: http.MethodGet,
		URL:    s.opts.BaseURL + "/api/v4/contest/",
		Query:  query,
		Header: http.Header{
			"Accept":        []string{"application/json"},
			"Authorization": []string{"ApiKey " + s.username + ":" + s.apiKey},
		},
	})
	if err != nil {
		return nil, err
	}
	var payload contestResponse
	if err := upstream.DecodeJSON(raw, &payload); err != nil {
		return nil, err
	}

	out := make([]contest.Contest, 0, len(payload.Objects))
	for _, obj := range payload.Objects {
		if mapped, ok := mapContest(obj); ok {
			out = append(out, mapped)
		}
	}
	return out, nil
}

var contestFields = upstream.FieldMap{
	Title:    []string{"event"},
	URL:      []string{"href"},
	Start:    []string{"start"},
	End:      []string{"end"},
	Duration: []string{"duration"},
}

func mapContest(obj map[string]any) (contest.Contest, bool) {
	site := upstream.LookupString(obj, "resource.name", "resource")
	if site == "" {
		site = defaultSite
	}
	mapping := upstream.Mapping{Site: site, Fields: contestFields}
	return mapping.Contest(obj)
}
