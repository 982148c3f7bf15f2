package topcoder

import (
	"context"
	"net/url"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/contest-feed/external/upstream"
	"github.com/riskibarqy/contest-feed/internal/domain/contest"
)

const (
	Name              = "topcoder"
	site              = "Topcoder"
	defaultBaseURL    = "https://www.topcoder.com"
	defaultAPIBaseURL = "https://api.topcoder.com"
)

var challengeMapping = upstream.Mapping{
	Site: site,
	Fields: upstream.FieldMap{
		Title: []string{"name", "title"},
		URL:   []string{"id", "challengeId"},
		Start: []string{"startDate", "startAt"},
		End:   []string{"endDate", "submissionEndDate", "endAt"},
	},
	URLPrefix: defaultBaseURL + "/challenges/",
}

type Config struct {
	upstream.SourceOptions
	APIBaseURL string
}

// Source reads the challenges API and falls back to the page's embedded
// Next.js data.
type Source struct {
	opts       upstream.SourceOptions
	apiBaseURL string
}

func NewSource(cfg Config) *Source {
	apiBaseURL := strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}
	return &Source{
		opts:       cfg.SourceOptions.WithDefaults(Name, defaultBaseURL),
		apiBaseURL: apiBaseURL,
	}
}

func (s *Source) Name() string {
	return Name
}

func (s *Source) Fetch(ctx context.Context) contest.FetchResult {
	return s.opts.Chain(Name,
		upstream.Strategy{Name: contest.StrategyPrimary, Timeout: s.opts.APITimeout, Fetch: s.fetchAPI},
		upstream.Strategy{Name: contest.StrategyEmbeddedJSON, Timeout: s.opts.ScrapeTimeout, Fetch: s.fetchEmbedded},
	).Run(ctx)
}

func (s *Source) fetchAPI(ctx context.Context) ([]contest.Contest, error) {
	query := url.Values{
		"statuses":      []string{"Active,Upcoming"},
		"perPage":       []string{"100"},
		"page":          []string{"1"},
		"isLightweight": []string{"true"},
	}
	var payload []map[string]any
	if err := s.opts.Client.GetJSON(ctx, s.apiBaseURL+"/v5/challenges", query, &payload); err != nil {
		return nil, err
	}

	out := make([]contest.Contest, 0, len(payload))
	for _, item := range payload {
		if mapped, ok := challengeMapping.Contest(item); ok {
			out = append(out, mapped)
		}
	}
	return out, nil
}

func (s *Source) fetchEmbedded(ctx context.Context) ([]contest.Contest, error) {
	raw, err := s.opts.Client.GetHTML(ctx, s.opts.BaseURL+"/challenges?statuses=Active,Upcoming")
	if err != nil {
		return nil, err
	}
	doc, err := upstream.ParseHTML(raw)
	if err != nil {
		return nil, err
	}
	script := upstream.ScriptByID(doc, "__NEXT_DATA__")
	if script == "" {
		return nil, crerr.New("__NEXT_DATA__ script not found")
	}
	data, err := upstream.DecodeLoose(script)
	if err != nil {
		return nil, crerr.Wrap(err, "decode __NEXT_DATA__")
	}

	out := make([]contest.Contest, 0, 16)
	upstream.WalkObjects(data, func(obj map[string]any) {
		status := strings.ToLower(upstream.LookupString(obj, "status"))
		if status != "active" && status != "upcoming" {
			return
		}
		if _, hasEnd := upstream.Lookup(obj, challengeMapping.Fields.End...); !hasEnd {
			return
		}
		if mapped, ok := challengeMapping.Contest(obj); ok {
			out = append(out, mapped)
		}
	})
	return contest.Dedupe(out), nil
}
