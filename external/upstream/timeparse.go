package upstream

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/contest-feed/internal/domain/contest"
)

// epochMillisThreshold separates epoch seconds from epoch milliseconds.
const epochMillisThreshold = 1e10

var (
	// JST is AtCoder's wall clock.
	JST = time.FixedZone("JST", 9*60*60)

	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05Z0700",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05Z0700",
		"2006-01-02 15:04:05 -0700",
		"2006-01-02T15:04Z07:00",
		"2006-01-02T15:04Z0700",
		"2006-01-02 15:04Z07:00",
		"2006-01-02 15:04Z0700",
		time.RFC1123Z,
		time.RFC1123,
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006/01/02 15:04:05",
		"2006/01/02 15:04",
	}
	numericPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
)

// EpochToTime converts a numeric epoch, treating values above 10^10 as
// milliseconds.
func EpochToTime(value float64) time.Time {
	if math.Abs(value) > epochMillisThreshold {
		return time.UnixMilli(int64(value)).UTC()
	}
	sec, frac := math.Modf(value)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// ParseTime accepts epoch numbers, numeric strings, and ISO-like strings.
// Strings without an offset are read in loc (UTC when nil).
func ParseTime(value any, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	if n, ok := ToFloat(value); ok {
		if n <= 0 {
			return time.Time{}, false
		}
		return EpochToTime(n), true
	}

	text, ok := value.(string)
	if !ok {
		return time.Time{}, false
	}
	return ParseTimeString(text, loc)
}

func ParseTimeString(text string, loc *time.Location) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range zonedLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			return parsed.UTC(), true
		}
	}
	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, text, loc); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseClockDuration reads "HH:MM" or "HH:MM:SS" into seconds. Hours may
// exceed 24.
func ParseClockDuration(text string) (int64, bool) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	var total int64
	multipliers := []int64{3600, 60, 1}
	for i, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || n < 0 {
			return 0, false
		}
		if i > 0 && n >= 60 {
			return 0, false
		}
		total += n * multipliers[i]
	}
	return total, true
}

// ParseDurationValue reads a duration given in seconds (number or numeric
// string) or as a clock string.
func ParseDurationValue(value any) (int64, bool) {
	if n, ok := ToFloat(value); ok {
		if n < 0 {
			return 0, false
		}
		return int64(n), true
	}
	if text, ok := value.(string); ok {
		return ParseClockDuration(text)
	}
	return 0, false
}

// ResolveDuration picks an explicit duration, then end-start, then the
// placeholder.
func ResolveDuration(start time.Time, end *time.Time, duration *int64) int64 {
	if duration != nil && *duration >= 0 {
		return *duration
	}
	if end != nil && !end.Before(start) {
		return int64(end.Sub(start) / time.Second)
	}
	return int64(contest.DefaultDuration / time.Second)
}

// ToFloat converts JSON numbers and numeric strings.
func ToFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case uint64:
		return float64(typed), true
	case interface{ Float64() (float64, error) }:
		n, err := typed.Float64()
		return n, err == nil
	case string:
		text := strings.TrimSpace(typed)
		if !numericPattern.MatchString(text) {
			return 0, false
		}
		n, err := strconv.ParseFloat(text, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
