package httpapi

import (
	"fmt"
	"net/http"

	"github.com/riskibarqy/contest-feed/internal/usecase"
)

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListContests(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListContests")
	defer span.End()

	query, err := decodeContestFeedQuery(r.URL.Query())
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, query); err != nil {
		writeError(ctx, w, err)
		return
	}

	feed, err := h.contestService.Feed(ctx, usecase.FeedQuery{
		Days:           query.Days,
		IncludeRunning: query.IncludeRunning,
		IncludeRecent:  query.IncludeRecent,
		RecentDays:     query.RecentDays,
		Sources:        query.Sources,
		Refresh:        query.Refresh,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "list contests failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, toContestFeedDTO(feed))
}

func (h *Handler) ListContestsBySource(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListContestsBySource")
	defer span.End()

	query, err := decodeSourceFeedQuery(r.PathValue("source"), r.URL.Query())
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, query); err != nil {
		writeError(ctx, w, err)
		return
	}

	feed, err := h.contestService.SourceFeed(ctx, usecase.SourceFeedQuery{
		Source:         query.Source,
		Days:           query.Days,
		IncludeRunning: query.IncludeRunning,
		Refresh:        query.Refresh,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "list contests by source failed", "source", query.Source, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, toSourceFeedDTO(feed))
}

func (h *Handler) GetContestFetchStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetContestFetchStats")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, toFetchStatsDTO(h.contestService.FetchStats()))
}

func (h *Handler) ListContestSources(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListContestSources")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, contestSourcesDTO{
		Sources:  h.contestService.Sources(),
		Defaults: h.contestService.DefaultSources(),
	})
}

func (h *Handler) RunWarmContestsJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunWarmContestsJob")
	defer span.End()

	if h.warmer == nil {
		writeError(ctx, w, fmt.Errorf("%w: contest warmer is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	result, err := h.warmer.WarmOnce(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "run warm contests job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	h.logger.InfoContext(ctx, "warm contests job completed",
		"task_count", result.TaskCount,
		"success_count", result.SuccessCount,
		"failed_count", result.FailedCount,
	)
	writeSuccess(ctx, w, http.StatusOK, result)
}
