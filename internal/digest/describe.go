package digest

import (
	"fmt"
	"time"

	"calhook/internal/model"
)

const (
	dateLayout     = "02.01.2006"
	dateTimeLayout = "02.01.2006 15:04"
	timeLayout     = "15:04"

	noSummary  = "<no summary>"
	noLocation = "<no location>"
)

// Describe renders one event into a human-readable line in the given display
// timezone. All-day events show dates only; the stored exclusive end is
// decremented by one day so the displayed range covers the actual last day.
// Timed events within a single day render the end as time-only.
func Describe(e model.Event, loc *time.Location) string {
	start := e.Start.In(loc)
	end := e.End.In(loc)

	summary := e.Summary
	if summary == "" {
		summary = noSummary
	}
	location := e.Location
	if location == "" {
		location = noLocation
	}
	at := " at " + location

	if e.AllDay {
		endDay := end.AddDate(0, 0, -1)
		if sameDay(start, endDay) {
			return fmt.Sprintf("*%s* %s%s", summary, start.Format(dateLayout), at)
		}
		return fmt.Sprintf("*%s* from %s to %s%s",
			summary, start.Format(dateLayout), endDay.Format(dateLayout), at)
	}

	if sameDay(start, end) {
		return fmt.Sprintf("*%s* from %s to %s%s",
			summary, start.Format(dateTimeLayout), end.Format(timeLayout), at)
	}
	return fmt.Sprintf("*%s* from %s to %s%s",
		summary, start.Format(dateTimeLayout), end.Format(dateTimeLayout), at)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
