package atcoder

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/riskibarqy/contest-feed/external/upstream"
	"github.com/riskibarqy/contest-feed/internal/domain/contest"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	Name                  = "atcoder"
	site                  = "AtCoder"
	defaultBaseURL        = "https://atcoder.jp"
	defaultDatasetBaseURL = "https://kenkoooo.com"
	datasetHorizon        = 60 * 24 * time.Hour
)

var textTimePattern = regexp.MustCompile(`\d{4}[-/]\d{2}[-/]\d{2}[ T]\d{2}:\d{2}(?::\d{2})?(?:[+-]\d{2}:?\d{2})?`)

type Config struct {
	upstream.SourceOptions
	// DatasetBaseURL is the community contest dataset host.
	DatasetBaseURL string
}

// Source prefers the community dataset and falls back to the contests page.
type Source struct {
	opts           upstream.SourceOptions
	datasetBaseURL string
}

func NewSource(cfg Config) *Source {
	datasetBaseURL := strings.TrimRight(strings.TrimSpace(cfg.DatasetBaseURL), "/")
	if datasetBaseURL == "" {
		datasetBaseURL = defaultDatasetBaseURL
	}
	return &Source{
		opts:           cfg.SourceOptions.WithDefaults(Name, defaultBaseURL),
		datasetBaseURL: datasetBaseURL,
	}
}

func (s *Source) Name() string {
	return Name
}

func (s *Source) Fetch(ctx context.Context) contest.FetchResult {
	return s.opts.Chain(Name,
		upstream.Strategy{Name: contest.StrategySecondaryDataset, Timeout: s.opts.APITimeout, Fetch: s.fetchDataset},
		upstream.Strategy{Name: contest.StrategyHTML, Timeout: s.opts.ScrapeTimeout, Fetch: s.fetchHTML},
	).Run(ctx)
}

type datasetContest struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	StartEpochSecond int64  `json:"start_epoch_second"`
	DurationSecond   int64  `json:"duration_second"`
}

func (s *Source) fetchDataset(ctx context.Context) ([]contest.Contest, error) {
	var payload []datasetContest
	if err := s.opts.Client.GetJSON(ctx, s.datasetBaseURL+"/atcoder/resources/contests.json", nil, &payload); err != nil {
		return nil, err
	}

	horizon := s.opts.Now().Add(datasetHorizon)
	out := make([]contest.Contest, 0, 16)
	for _, item := range payload {
		if item.ID == "" || item.StartEpochSecond <= 0 {
			continue
		}
		start := upstream.EpochToTime(float64(item.StartEpochSecond))
		if start.After(horizon) {
			continue
		}
		out = append(out, contest.Contest{
			Site:            site,
			Name:            strings.TrimSpace(item.Title),
			URL:             defaultBaseURL + "/contests/" + item.ID,
			StartTime:       start,
			DurationSeconds: item.DurationSecond,
		})
	}
	return out, nil
}

func (s *Source) fetchHTML(ctx context.Context) ([]contest.Contest, error) {
	raw, err := s.opts.Client.GetHTML(ctx, s.opts.BaseURL+"/contests/?lang=en")
	if err != nil {
		return nil, err
	}
	doc, err := upstream.ParseHTML(raw)
	if err != nil {
		return nil, err
	}
	return parseContestRows(doc), nil
}

func parseContestRows(doc *html.Node) []contest.Contest {
	out := make([]contest.Contest, 0, 16)
	for _, row := range upstream.FindAll(doc, upstream.IsElement(atom.Tr)) {
		cells := upstream.ChildElements(row, atom.Td)
		if len(cells) < 2 {
			continue
		}

		link := upstream.FindFirst(row, isContestLink)
		if link == nil {
			continue
		}
		start, ok := rowStart(cells[0])
		if !ok {
			continue
		}

		var duration *int64
		if len(cells) >= 3 {
			if parsed, ok := upstream.ParseClockDuration(upstream.Text(cells[2])); ok {
				duration = &parsed
			}
		}

		out = append(out, contest.Contest{
			Site:            site,
			Name:            upstream.Text(link),
			URL:             defaultBaseURL + contestPath(upstream.Attr(link, "href")),
			StartTime:       start,
			DurationSeconds: upstream.ResolveDuration(start, nil, duration),
		})
	}
	return out
}

func rowStart(cell *html.Node) (time.Time, bool) {
	if node := upstream.FindFirst(cell, upstream.IsElement(atom.Time)); node != nil {
		if parsed, ok := upstream.ParseTimeString(upstream.Attr(node, "datetime"), upstream.JST); ok {
			return parsed, true
		}
		if parsed, ok := upstream.ParseTimeString(upstream.Text(node), upstream.JST); ok {
			return parsed, true
		}
	}
	match := textTimePattern.FindString(upstream.Text(cell))
	if match == "" {
		return time.Time{}, false
	}
	return upstream.ParseTimeString(strings.ReplaceAll(match, "/", "-"), upstream.JST)
}

func isContestLink(n *html.Node) bool {
	if n.Type != html.ElementNode || n.DataAtom != atom.A {
		return false
	}
	path := contestPath(upstream.Attr(n, "href"))
	return strings.HasPrefix(path, "/contests/") && path != "/contests/" && !strings.HasPrefix(path, "/contests/archive")
}

// contestPath strips the host and query from an href.
func contestPath(href string) string {
	href = strings.TrimPrefix(href, defaultBaseURL)
	if idx := strings.IndexAny(href, "?#"); idx >= 0 {
		href = href[:idx]
	}
	return href
}
