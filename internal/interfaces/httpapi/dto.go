package httpapi

import (
	"time"

	"github.com/riskibarqy/contest-feed/internal/domain/contest"
	"github.com/riskibarqy/contest-feed/internal/usecase"
)

type contestDTO struct {
	Site      string `json:"site"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	StartTime string `json:"start_time"`
	Duration  int64  `json:"duration"`
}

type contestFeedDTO struct {
	Status    string         `json:"status"`
	Running   []contestDTO   `json:"running"`
	Upcoming  []contestDTO   `json:"upcoming"`
	Recent    []contestDTO   `json:"recent"`
	FetchedAt string         `json:"fetched_at"`
	Counts    map[string]int `json:"counts"`
	Total     int            `json:"total"`
	Cached    bool           `json:"cached"`
}

type sourceFeedDTO struct {
	Status    string       `json:"status"`
	Source    string       `json:"source"`
	Running   []contestDTO `json:"running"`
	Upcoming  []contestDTO `json:"upcoming"`
	FetchedAt string       `json:"fetched_at"`
	Count     int          `json:"count"`
	Cached    bool         `json:"cached"`
}

type fetchOutcomeDTO struct {
	OK             bool   `json:"ok"`
	Count          int    `json:"count"`
	SourceStrategy string `json:"source_strategy,omitempty"`
	Error          string `json:"error,omitempty"`
	AttemptedAt    string `json:"attempted_at,omitempty"`
	DurationMS     int64  `json:"duration_ms"`
}

type fetchStatsDTO struct {
	Sources map[string]fetchOutcomeDTO `json:"sources"`
}

type contestSourcesDTO struct {
	Sources  []string `json:"sources"`
	Defaults []string `json:"defaults"`
}

func toContestDTOs(items []contest.Contest) []contestDTO {
	out := make([]contestDTO, 0, len(items))
	for _, item := range items {
		out = append(out, contestDTO{
			Site:      item.Site,
			Name:      item.Name,
			URL:       item.URL,
			StartTime: formatTime(item.StartTime),
			Duration:  item.DurationSeconds,
		})
	}
	return out
}

func toContestFeedDTO(feed usecase.Feed) contestFeedDTO {
	counts := feed.Counts
	if counts == nil {
		counts = map[string]int{}
	}
	return contestFeedDTO{
		Status:    feed.Status,
		Running:   toContestDTOs(feed.Running),
		Upcoming:  toContestDTOs(feed.Upcoming),
		Recent:    toContestDTOs(feed.Recent),
		FetchedAt: formatTime(feed.FetchedAt),
		Counts:    counts,
		Total:     feed.Total,
		Cached:    feed.Cached,
	}
}

func toSourceFeedDTO(feed usecase.SourceFeed) sourceFeedDTO {
	return sourceFeedDTO{
		Status:    feed.Status,
		Source:    feed.Source,
		Running:   toContestDTOs(feed.Running),
		Upcoming:  toContestDTOs(feed.Upcoming),
		FetchedAt: formatTime(feed.FetchedAt),
		Count:     feed.Count,
		Cached:    feed.Cached,
	}
}

func toFetchStatsDTO(stats map[string]contest.FetchOutcome) fetchStatsDTO {
	out := fetchStatsDTO{Sources: make(map[string]fetchOutcomeDTO, len(stats))}
	for name, outcome := range stats {
		out.Sources[name] = fetchOutcomeDTO{
			OK:             outcome.OK,
			Count:          outcome.Count,
			SourceStrategy: outcome.SourceStrategy,
			Error:          outcome.Error,
			AttemptedAt:    formatTime(outcome.AttemptedAt),
			DurationMS:     outcome.DurationMS,
		}
	}
	return out
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
