package contest

import (
	"sort"
	"time"
)

const day = 24 * time.Hour

// Window controls which buckets Classify fills and how far they reach.
type Window struct {
	UpcomingDays   int
	RecentDays     int
	IncludeRunning bool
	IncludeRecent  bool
}

type Buckets struct {
	Running  []Contest
	Upcoming []Contest
	Recent   []Contest
}

// Classify partitions contests relative to now. All boundaries are inclusive,
// so a contest may land in more than one bucket at an exact boundary instant.
//
//	running:  start <= now <= end
//	upcoming: now <= start <= now+UpcomingDays
//	recent:   now-RecentDays <= end <= now
func Classify(contests []Contest, now time.Time, window Window) Buckets {
	upcomingLimit := now.Add(time.Duration(window.UpcomingDays) * day)
	recentFloor := now.Add(-time.Duration(window.RecentDays) * day)

	out := Buckets{
		Running:  []Contest{},
		Upcoming: []Contest{},
		Recent:   []Contest{},
	}
	for _, item := range contests {
		start := item.StartTime
		end := item.End()

		if window.IncludeRunning && !start.After(now) && !now.After(end) {
			out.Running = append(out.Running, item)
		}
		if !start.Before(now) && !start.After(upcomingLimit) {
			out.Upcoming = append(out.Upcoming, item)
		}
		if window.IncludeRecent && !end.Before(recentFloor) && !end.After(now) {
			out.Recent = append(out.Recent, item)
		}
	}

	sortByStart(out.Running, false)
	sortByStart(out.Upcoming, false)
	sortByStart(out.Recent, true)
	return out
}

func sortByStart(items []Contest, desc bool) {
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return items[i].StartTime.After(items[j].StartTime)
		}
		return items[i].StartTime.Before(items[j].StartTime)
	})
}
