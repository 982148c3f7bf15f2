package hackerearth

import (
	"context"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/contest-feed/external/upstream"
	"github.com/riskibarqy/contest-feed/internal/domain/contest"
)

const (
	Name           = "hackerearth"
	site           = "HackerEarth"
	defaultBaseURL = "https://www.hackerearth.com"
)

var challengePaths = []string{
	"/challenges/",
	"/challenges/competitive/",
	"/challenges/hiring/",
	"/challenges/hackathon/",
}

// HackerEarth payloads vary by page and era, so every strategy runs the same
// heuristic scan over whatever JSON it finds.
var eventFields = upstream.FieldMap{
	Title: []string{"title", "name", "seo.title", "challenge.title"},
	URL:   []string{"url", "slug", "challenge_url", "public_url", "canonical_url", "challenge.url", "seo.url"},
	Start: []string{
		"start_utc_tz", "start_time", "start_ts", "start_timestamp", "start_datetime",
		"startDate", "start", "starts_at", "scheduled_at", "schedule.start", "start_tz",
	},
	End: []string{
		"end_utc_tz", "end_time", "end_ts", "end_timestamp", "end_datetime",
		"endDate", "end", "ends_at", "schedule.end", "end_tz",
	},
	Duration: []string{"duration", "duration_sec", "duration_secs"},
}

type Source struct {
	opts    upstream.SourceOptions
	mapping upstream.Mapping
}

func NewSource(opts upstream.SourceOptions) *Source {
	opts = opts.WithDefaults(Name, defaultBaseURL)
	return &Source{
		opts: opts,
		mapping: upstream.Mapping{
			Site:    site,
			Fields:  eventFields,
			BaseURL: defaultBaseURL,
		},
	}
}

func (s *Source) Name() string {
	return Name
}

func (s *Source) Fetch(ctx context.Context) contest.FetchResult {
	return s.opts.Chain(Name,
		upstream.Strategy{Name: contest.StrategyPrimary, Timeout: s.opts.APITimeout, Fetch: s.fetchEventsAPI},
		upstream.Strategy{Name: contest.StrategyHTML, Timeout: s.opts.ScrapeTimeout, Fetch: s.fetchLinkedData},
		upstream.Strategy{Name: contest.StrategyEmbeddedJSON, Timeout: s.opts.ScrapeTimeout, Fetch: s.fetchNextData},
	).Run(ctx)
}

func (s *Source) fetchEventsAPI(ctx context.Context) ([]contest.Contest, error) {
	var payload any
	if err := s.opts.Client.GetJSON(ctx, s.opts.BaseURL+"/chrome-extension/events/", nil, &payload); err != nil {
		return nil, err
	}
	return s.scan(payload), nil
}

// fetchLinkedData reads schema.org JSON-LD blocks on the challenges page.
func (s *Source) fetchLinkedData(ctx context.Context) ([]contest.Contest, error) {
	raw, err := s.opts.Client.GetHTML(ctx, s.opts.BaseURL+challengePaths[0])
	if err != nil {
		return nil, err
	}
	doc, err := upstream.ParseHTML(raw)
	if err != nil {
		return nil, err
	}

	blocks := make([]any, 0, 4)
	for _, script := range upstream.ScriptsByType(doc, "application/ld+json") {
		decoded, err := upstream.DecodeLoose(script)
		if err != nil {
			continue
		}
		blocks = append(blocks, decoded)
	}
	return s.scan(blocks), nil
}

func (s *Source) fetchNextData(ctx context.Context) ([]contest.Contest, error) {
	var errs []string
	for _, path := range challengePaths {
		raw, err := s.opts.Client.GetHTML(ctx, s.opts.BaseURL+path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			errs = append(errs, path+": "+err.Error())
			continue
		}
		doc, err := upstream.ParseHTML(raw)
		if err != nil {
			errs = append(errs, path+": "+err.Error())
			continue
		}
		script := upstream.ScriptByID(doc, "__NEXT_DATA__")
		if script == "" {
			errs = append(errs, path+": __NEXT_DATA__ missing")
			continue
		}
		data, err := upstream.DecodeLoose(script)
		if err != nil {
			errs = append(errs, path+": "+err.Error())
			continue
		}
		return s.scan(data), nil
	}
	return nil, crerr.Newf("no page carried __NEXT_DATA__: %s", strings.Join(errs, "; "))
}

func (s *Source) scan(data any) []contest.Contest {
	out := make([]contest.Contest, 0, 16)
	upstream.WalkObjects(data, func(obj map[string]any) {
		if mapped, ok := s.mapping.Contest(obj); ok {
			out = append(out, mapped)
		}
	})
	return contest.Dedupe(out)
}
