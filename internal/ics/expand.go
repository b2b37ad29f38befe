package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "calhook/internal/log"
	"calhook/internal/model"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// RangeStart / RangeEnd bound the occurrences of interest.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps expansion per event so a pathological
	// RRULE cannot blow up a poll cycle. Zero means the default cap.
	MaxOccurrencesPerEvent int
}

// ExpandOccurrences expands parsed events into concrete occurrences within
// the configured range. It handles single events, RRULE recurrence, EXDATE
// exceptions and RECURRENCE-ID overrides. All-day occurrences are normalized
// to midnight UTC with an exclusive end.
//
// The result is sorted by start time ascending; ties keep input order, so
// downstream consumers see a stable feed order.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) ([]model.Event, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	overridesByUID := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
		}
	}

	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			continue
		}

		occ, hitCap := expandEvent(ev, overridesByUID[ev.UID], cfg)
		out = append(out, occ...)

		if hitCap {
			appLog.Error("expand: truncated occurrences",
				errors.New("max occurrences reached"),
				"uid", ev.UID,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})

	return out, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Event, bool) {
	if ev.RawRRule == "" {
		return expandSingleEvent(ev, overrides, cfg), false
	}
	return expandRecurringEvent(ev, overrides, cfg)
}

func expandSingleEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []model.Event {
	start, end := normalizeSpan(ev, ev.Start, ev.End)

	if !timeRangesOverlap(start, end, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}

	// Apply any override whose RECURRENCE-ID matches this start.
	if o, ok := findOverrideForStart(overrides, ev.Start); ok {
		start, end = normalizeSpan(o, o.Start, o.End)
		ev = o
	}

	return []model.Event{makeOccurrence(ev, start, end)}
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Event, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Between iterates wall-clock in the event's own location.
	rangeStart := cfg.RangeStart.In(ev.Start.Location())
	rangeEnd := cfg.RangeEnd.In(ev.Start.Location())
	occTimes := set.Between(rangeStart, rangeEnd, true)

	hitCap := false
	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	dur := ev.End.Sub(ev.Start)
	out := make([]model.Event, 0, len(occTimes))

	for _, occStart := range occTimes {
		start, end := normalizeSpan(ev, occStart, occStart.Add(dur))

		src := ev
		if o, ok := findOverrideForStart(overrides, occStart); ok {
			start, end = normalizeSpan(o, o.Start, o.End)
			src = o
		}

		out = append(out, makeOccurrence(src, start, end))
	}

	return out, hitCap
}

// normalizeSpan returns the concrete span for one occurrence. Timed events
// pass through; all-day events collapse to midnight UTC with an exclusive
// end at least one day after the start.
func normalizeSpan(ev ParsedEvent, start, end time.Time) (time.Time, time.Time) {
	if !ev.AllDay {
		return start, end
	}

	s := midnightUTC(start)
	e := midnightUTC(end)
	if !e.After(s) {
		e = s.AddDate(0, 0, 1)
	}
	return s, e
}

func midnightUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// findOverrideForStart finds an override whose RECURRENCE-ID matches the
// given occurrence start with exact time equality.
func findOverrideForStart(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence == nil {
			continue
		}
		if ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

func makeOccurrence(ev ParsedEvent, start, end time.Time) model.Event {
	return model.Event{
		SourceID:     ev.Source.ID,
		UID:          ev.UID,
		Summary:      ev.Summary,
		Location:     ev.Location,
		AllDay:       ev.AllDay,
		Start:        start,
		End:          end,
		Created:      ev.Created,
		LastModified: ev.LastModified,
	}
}

func timeRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
