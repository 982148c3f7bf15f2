package httpapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/contest-feed/internal/platform/logging"
	"github.com/riskibarqy/contest-feed/internal/usecase"
)

type Handler struct {
	contestService *usecase.ContestService
	warmer         *usecase.ContestWarmer
	logger         *logging.Logger
	validator      *validator.Validate
}

func NewHandler(
	contestService *usecase.ContestService,
	warmer *usecase.ContestWarmer,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		contestService: contestService,
		warmer:         warmer,
		logger:         logger,
		validator:      validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

type contestFeedQuery struct {
	Days           int      `validate:"gte=0,lte=365"`
	IncludeRunning bool
	IncludeRecent  bool
	RecentDays     int      `validate:"gte=1,lte=30"`
	Sources        []string `validate:"dive,required"`
	Refresh        bool
}

type sourceFeedQuery struct {
	Source         string `validate:"required"`
	Days           int    `validate:"gte=0,lte=365"`
	IncludeRunning bool
	Refresh        bool
}

func decodeContestFeedQuery(values url.Values) (contestFeedQuery, error) {
	query := contestFeedQuery{}
	var err error

	if query.Days, err = parseIntParam(values, "days", usecase.DefaultUpcomingDays); err != nil {
		return contestFeedQuery{}, err
	}
	if query.IncludeRunning, err = parseBoolParam(values, "include_running", true); err != nil {
		return contestFeedQuery{}, err
	}
	if query.IncludeRecent, err = parseBoolParam(values, "include_recent", true); err != nil {
		return contestFeedQuery{}, err
	}
	if query.RecentDays, err = parseIntParam(values, "recent_days", usecase.DefaultRecentDays); err != nil {
		return contestFeedQuery{}, err
	}
	if query.Refresh, err = parseBoolParam(values, "refresh", false); err != nil {
		return contestFeedQuery{}, err
	}
	query.Sources = parseListParam(values, "sources")

	return query, nil
}

func decodeSourceFeedQuery(source string, values url.Values) (sourceFeedQuery, error) {
	query := sourceFeedQuery{Source: strings.ToLower(strings.TrimSpace(source))}
	var err error

	if query.Days, err = parseIntParam(values, "days", usecase.DefaultUpcomingDays); err != nil {
		return sourceFeedQuery{}, err
	}
	if query.IncludeRunning, err = parseBoolParam(values, "include_running", true); err != nil {
		return sourceFeedQuery{}, err
	}
	if query.Refresh, err = parseBoolParam(values, "refresh", false); err != nil {
		return sourceFeedQuery{}, err
	}

	return query, nil
}

func parseIntParam(values url.Values, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", usecase.ErrInvalidInput, key)
	}
	return value, nil
}

// parseBoolParam accepts only true/false (any case) and 1/0.
func parseBoolParam(values url.Values, key string, fallback bool) (bool, error) {
	raw := strings.ToLower(strings.TrimSpace(values.Get(key)))
	switch raw {
	case "":
		return fallback, nil
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s must be true or false", usecase.ErrInvalidInput, key)
	}
}

// parseListParam merges repeated and comma separated values.
func parseListParam(values url.Values, key string) []string {
	var out []string
	for _, raw := range values[key] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
