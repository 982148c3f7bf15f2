package codeforces

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/contest-feed/external/upstream"
	"github.com/riskibarqy/contest-feed/internal/domain/contest"
)

const (
	Name           = "codeforces"
	site           = "Codeforces"
	defaultBaseURL = "https://codeforces.com"
)

// Source reads the public contest.list API.
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

type contestListResponse struct {
	Status  string       `json:"status"`
	Comment string       `json:"comment"`
	Result  []apiContest `json:"result"`
}

type apiContest struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Phase            string `json:"phase"`
	DurationSeconds  int64  `json:"durationSeconds"`
	StartTimeSeconds *int64 `json:"startTimeSeconds"`
}

func (s *Source) fetchAPI(ctx context.Context) ([]contest.Contest, error) {
	var payload contestListResponse
	query := url.Values{"gym": []string{"false"}}
	if err := s.opts.Client.GetJSON(ctx, s.opts.BaseURL+"/api/contest.list", query, &payload); err != nil {
		return nil, err
	}
	if payload.Status != "OK" {
		return nil, crerr.Newf("codeforces api status=%q comment=%q", payload.Status, payload.Comment)
	}

	out := make([]contest.Contest, 0, len(payload.Result))
	for _, item := range payload.Result {
		if item.StartTimeSeconds == nil || !keepPhase(item.Phase) {
			continue
		}
		out = append(out, contest.Contest{
			Site:            site,
			Name:            strings.TrimSpace(item.Name),
			URL:             fmt.Sprintf("%s/contest/%d", defaultBaseURL, item.ID),
			StartTime:       time.Unix(*item.StartTimeSeconds, 0).UTC(),
			DurationSeconds: item.DurationSeconds,
		})
	}
	return out, nil
}

// keepPhase admits upcoming and live rounds plus finished ones; the chain's
// look-back filter trims old finished rounds.
func keepPhase(phase string) bool {
	switch strings.ToUpper(strings.TrimSpace(phase)) {
	case "BEFORE", "CODING", "PENDING_SYSTEM_TEST", "SYSTEM_TEST", "FINISHED":
		return true
	default:
		return false
	}
}
