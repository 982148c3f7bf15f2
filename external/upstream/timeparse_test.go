package upstream

import (
	"testing"
	"time"
)

func TestEpochToTime_MillisAndSecondsAgree(t *testing.T) {
	t.Parallel()

	seconds := EpochToTime(1_700_000_000)
	millis := EpochToTime(1_700_000_000_000)
	if !seconds.Equal(millis) {
		t.Fatalf("ms/s disagreement: seconds=%s millis=%s", seconds, millis)
	}
	if seconds.Location() != time.UTC {
		t.Fatalf("expected UTC location")
	}
}

func TestParseTime(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		value any
		loc   *time.Location
		ok    bool
	}{
		{name: "epoch seconds", value: float64(want.Unix()), ok: true},
		{name: "epoch millis", value: float64(want.UnixMilli()), ok: true},
		{name: "numeric string", value: "1775044800", ok: true},
		{name: "rfc3339 utc", value: "2026-04-01T12:00:00Z", ok: true},
		{name: "rfc3339 offset", value: "2026-04-01T21:00:00+09:00", ok: true},
		{name: "compact offset", value: "2026-04-01 21:00:00+0900", ok: true},
		{name: "minutes with compact offset", value: "2026-04-01 21:00+0900", ok: true},
		{name: "minutes with offset", value: "2026-04-01T21:00+09:00", ok: true},
		{name: "minutes with offset ignores location", value: "2026-04-01 12:00Z", loc: JST, ok: true},
		{name: "fraction", value: "2026-04-01T12:00:00.000Z", ok: true},
		{name: "naive in jst", value: "2026-04-01 21:00", loc: JST, ok: true},
		{name: "naive defaults utc", value: "2026-04-01 12:00:00", ok: true},
		{name: "garbage", value: "next tuesday", ok: false},
		{name: "zero epoch", value: float64(0), ok: false},
		{name: "nil", value: nil, ok: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ParseTime(tc.value, tc.loc)
			if ok != tc.ok {
				t.Fatalf("ok got=%v want=%v", ok, tc.ok)
			}
			if tc.ok && !got.Equal(want) {
				t.Fatalf("time got=%s want=%s", got, want)
			}
		})
	}
}

func TestParseClockDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{in: "01:40", want: 6000, ok: true},
		{in: "100:00", want: 360000, ok: true},
		{in: "02:00:30", want: 7230, ok: true},
		{in: "1:75", ok: false},
		{in: "abc", ok: false},
		{in: "", ok: false},
	}
	for _, tc := range tests {
		got, ok := ParseClockDuration(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseClockDuration(%q) got=(%d,%v) want=(%d,%v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestResolveDuration(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	zero := int64(0)
	explicit := int64(600)

	if got := ResolveDuration(start, &end, &explicit); got != 600 {
		t.Fatalf("explicit duration got=%d want=600", got)
	}
	if got := ResolveDuration(start, &end, &zero); got != 0 {
		t.Fatalf("explicit zero must stay zero, got=%d", got)
	}
	if got := ResolveDuration(start, &end, nil); got != 5400 {
		t.Fatalf("derived duration got=%d want=5400", got)
	}
	if got := ResolveDuration(start, nil, nil); got != 7200 {
		t.Fatalf("placeholder duration got=%d want=7200", got)
	}
}
