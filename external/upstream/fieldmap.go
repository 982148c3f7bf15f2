package upstream

import (
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/contest-feed/internal/domain/contest"
)

// FieldMap lists candidate key paths per canonical field. Paths are
// dot-separated ("seo.title") and tried in order until one yields a value.
type FieldMap struct {
	Title    []string
	URL      []string
	Start    []string
	End      []string
	Duration []string
}

// Mapping turns loosely shaped upstream objects into canonical contests.
type Mapping struct {
	Site   string
	Fields FieldMap
	// BaseURL resolves relative links ("/challenges/x").
	BaseURL string
	// URLPrefix is prepended to bare identifiers ("1234", "weekly-contest-1").
	URLPrefix string
	// Location applies to timestamps that carry no offset.
	Location *time.Location
}

// Contest maps one object. It reports false when title, url, or start
// cannot be resolved.
func (m Mapping) Contest(obj map[string]any) (contest.Contest, bool) {
	title := LookupString(obj, m.Fields.Title...)
	link := m.resolveURL(LookupString(obj, m.Fields.URL...))
	if title == "" || link == "" {
		return contest.Contest{}, false
	}

	startRaw, ok := Lookup(obj, m.Fields.Start...)
	if !ok {
		return contest.Contest{}, false
	}
	start, ok := ParseTime(startRaw, m.Location)
	if !ok {
		return contest.Contest{}, false
	}

	var end *time.Time
	if endRaw, ok := Lookup(obj, m.Fields.End...); ok {
		if parsed, ok := ParseTime(endRaw, m.Location); ok {
			end = &parsed
		}
	}
	// A usable end wins over a duration field.
	var duration *int64
	if durationRaw, ok := Lookup(obj, m.Fields.Duration...); ok && (end == nil || end.Before(start)) {
		if parsed, ok := ParseDurationValue(durationRaw); ok {
			duration = &parsed
		}
	}

	return contest.Contest{
		Site:            m.Site,
		Name:            title,
		URL:             link,
		StartTime:       start,
		DurationSeconds: ResolveDuration(start, end, duration),
	}, true
}

func (m Mapping) resolveURL(value string) string {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return ""
	case strings.HasPrefix(value, "http://"), strings.HasPrefix(value, "https://"):
		return value
	case strings.HasPrefix(value, "//"):
		return "https:" + value
	case m.URLPrefix != "" && !strings.HasPrefix(value, "/"):
		return m.URLPrefix + value
	case m.BaseURL != "":
		base := strings.TrimRight(m.BaseURL, "/")
		if strings.HasPrefix(value, "/") {
			return base + value
		}
		return base + "/" + value
	default:
		return ""
	}
}

// Lookup returns the first non-empty value found under paths.
func Lookup(obj map[string]any, paths ...string) (any, bool) {
	for _, path := range paths {
		value, ok := lookupPath(obj, path)
		if !ok || isEmpty(value) {
			continue
		}
		return value, true
	}
	return nil, false
}

// LookupString is Lookup formatted as trimmed text.
func LookupString(obj map[string]any, paths ...string) string {
	value, ok := Lookup(obj, paths...)
	if !ok {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case float64:
		if typed == float64(int64(typed)) {
			return fmt.Sprintf("%d", int64(typed))
		}
		return fmt.Sprintf("%v", typed)
	case map[string]any, []any:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}

func lookupPath(obj map[string]any, path string) (any, bool) {
	if obj == nil || path == "" {
		return nil, false
	}
	var current any = obj
	for _, key := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func isEmpty(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	default:
		return false
	}
}
