// Package digest holds the pure classification and rendering logic: given a
// snapshot of expanded calendar events and a reference instant, it decides
// which events are new, modified, starting soon or part of the weekly/daily
// digest, and renders them into outbound webhook messages.
package digest

import (
	"time"

	"calhook/internal/model"
)

// nearFutureLead is how far ahead of "now" the starting-soon window begins,
// giving recipients a fixed early-warning lead time.
const nearFutureLead = 15 * time.Minute

// All filters preserve the input (feed) order and test a half-open window
// [start, end): the lower bound is included, the upper bound is not.

// OfWeek returns the events starting within [now, now+7d). Used for the
// weekly digest.
func OfWeek(events []model.Event, now time.Time) []model.Event {
	return filter(events, func(e model.Event) bool {
		return inWindow(e.Start, now, now.AddDate(0, 0, 7))
	})
}

// OfDay returns the events starting within [now, end-of-day), where
// end-of-day is now at 23:59:59. The window is the remainder of the calendar
// day, not a rolling 24 hours; the daily digest fires once per day.
func OfDay(events []model.Event, now time.Time) []model.Event {
	end := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())
	return filter(events, func(e model.Event) bool {
		return inWindow(e.Start, now, end)
	})
}

// InNearFuture returns the events starting within
// [now+lead, now+lead+interval), i.e. events about to start within the next
// poll cycle, looked at one lead time ahead.
func InNearFuture(events []model.Event, now time.Time, interval time.Duration) []model.Event {
	start := now.Add(nearFutureLead)
	return filter(events, func(e model.Event) bool {
		return inWindow(e.Start, start, start.Add(interval))
	})
}

// New returns the events created within [now-interval, now), i.e. since the
// previous poll. Events without a creation timestamp never qualify.
// Occurrences whose UID is listed in ignoreUIDs are dropped.
func New(events []model.Event, now time.Time, interval time.Duration, ignoreUIDs ...string) []model.Event {
	ignore := make(map[string]bool, len(ignoreUIDs))
	for _, uid := range ignoreUIDs {
		ignore[uid] = true
	}
	return filter(events, func(e model.Event) bool {
		return !ignore[e.UID] && inWindow(e.CreatedOrEpoch(), now.Add(-interval), now)
	})
}

// Modified returns the events modified within [now-interval, now), excluding
// any event whose creation also falls in that window: an event freshly
// created this cycle is reported as new only, never as modified.
func Modified(events []model.Event, now time.Time, interval time.Duration) []model.Event {
	start := now.Add(-interval)
	return filter(events, func(e model.Event) bool {
		if inWindow(e.CreatedOrEpoch(), start, now) {
			return false
		}
		return inWindow(e.ModifiedOrEpoch(), start, now)
	})
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

func filter(events []model.Event, keep func(model.Event) bool) []model.Event {
	out := make([]model.Event, 0)
	for _, e := range events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
