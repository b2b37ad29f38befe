package digest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"calhook/internal/ics"
	"calhook/internal/model"
)

// The fixture covers timed and all-day events, single and multi day spans,
// events with and without CREATED/LAST-MODIFIED, duplicate UIDs and three
// recurring series (monthly BYDAY, biweekly BYDAY, biweekly without BYDAY).
const fixtureICS = `BEGIN:VCALENDAR
VERSION:2.0
CALSCALE:GREGORIAN
PRODID:-//SabreDAV//SabreDAV//EN
X-WR-CALNAME:FSCS (fscs)
BEGIN:VTIMEZONE
TZID:Europe/Berlin
BEGIN:DAYLIGHT
TZOFFSETFROM:+0100
TZOFFSETTO:+0200
TZNAME:CEST
DTSTART:19700329T020000
RRULE:FREQ=YEARLY;BYDAY=-1SU;BYMONTH=3
END:DAYLIGHT
BEGIN:STANDARD
TZOFFSETFROM:+0200
TZOFFSETTO:+0100
TZNAME:CET
DTSTART:19701025T030000
RRULE:FREQ=YEARLY;BYDAY=-1SU;BYMONTH=10
END:STANDARD
END:VTIMEZONE
BEGIN:VEVENT
CREATED:20180722T150246Z
LAST-MODIFIED:20180722T150313Z
DTSTAMP:20180722T150313Z
UID:6b6a242f-2041-485f-a527-4579b58a1898
SUMMARY:test1
DTSTART;TZID=Europe/Berlin:20180722T171800
DTEND;TZID=Europe/Berlin:20180722T181800
TRANSP:OPAQUE
LOCATION:here
DESCRIPTION:descript
END:VEVENT
BEGIN:VEVENT
CREATED:20180722T150646Z
LAST-MODIFIED:20180722T152255Z
DTSTAMP:20180722T152255Z
UID:6b6a242f-2041-485f-a527-4579b58a1898
SUMMARY:test2
DTSTART;VALUE=DATE:20180722
DTEND;VALUE=DATE:20180723
TRANSP:TRANSPARENT
SEQUENCE:1
END:VEVENT
BEGIN:VEVENT
CREATED:20180720T233417
DTSTAMP:20180720T233417
LAST-MODIFIED:20180720T233417
UID:XEX87XO0JUC9PXOOV2PHJV
SUMMARY:test3
DTSTART;TZID=Europe/Berlin:20181003T080000
DTEND;TZID=Europe/Berlin:20181004T070000
END:VEVENT
BEGIN:VEVENT
CREATED:20180720T233313Z
LAST-MODIFIED:20180722T150231Z
DTSTAMP:20180722T150231Z
UID:YHCGROTP9ZYFY38UQSX8P
SUMMARY:test4
DTSTART;VALUE=DATE:20181003
DTEND;VALUE=DATE:20181004
TRANSP:TRANSPARENT
END:VEVENT
BEGIN:VEVENT
CREATED:20180719T081515Z
LAST-MODIFIED:20180719T081605Z
DTSTAMP:20180719T081605Z
UID:fa4bcabc-2296-4aac-8bdc-5526a00f348f
SUMMARY:Stammtisch
RRULE:FREQ=MONTHLY;UNTIL=20181106T180000Z;BYDAY=1TU
DTSTART;TZID=Europe/Berlin:20180807T190000
DTEND;TZID=Europe/Berlin:20180807T230000
TRANSP:OPAQUE
LOCATION:Kneipe
SEQUENCE:1
END:VEVENT
BEGIN:VEVENT
CREATED:20180822T150646Z
LAST-MODIFIED:20180822T152255Z
DTSTAMP:20180822T152255Z
UID:6b6a242f-2041-485f-a527-4579b58a1898
SUMMARY:allday 2nd day
DTSTART;VALUE=DATE:20180822
DTEND;VALUE=DATE:20180824
TRANSP:TRANSPARENT
SEQUENCE:1
END:VEVENT
BEGIN:VEVENT
CREATED:20181009T194528Z
LAST-MODIFIED:20181009T194625Z
DTSTAMP:20181009T194625Z
UID:30b2ee53-053b-4ea3-8d73-1edc8f65f87e
SUMMARY:FSVK
RRULE:FREQ=WEEKLY;UNTIL=20181218T171500Z;INTERVAL=2;BYDAY=TU
DTSTART;TZID=Europe/Berlin:20181016T181500
DTEND;TZID=Europe/Berlin:20181016T201500
TRANSP:OPAQUE
END:VEVENT
BEGIN:VEVENT
CREATED:20131009T194625Z
DTSTAMP:20130722T150231Z
UID:YHCGROTP9ZYFY38UQSX8P
SUMMARY:test4
DTSTART;VALUE=DATE:20131003
DTEND;VALUE=DATE:20131004
TRANSP:TRANSPARENT
END:VEVENT
BEGIN:VEVENT
DTSTAMP:20130722T150231Z
UID:YHCGROTP9ZYFY38UQSX8P
SUMMARY:test6
DTSTART;VALUE=DATE:20131103
DTEND;VALUE=DATE:20131104
TRANSP:TRANSPARENT
END:VEVENT
BEGIN:VEVENT
DTSTAMP:20130722T150231Z
UID:YHCGROTP9ZYFY38UQSX8P
SUMMARY:test7 in range but without created and modified
DTSTART;VALUE=DATE:20201103
DTEND;VALUE=DATE:20201104
TRANSP:TRANSPARENT
END:VEVENT
BEGIN:VEVENT
CREATED:20190207T092257Z
LAST-MODIFIED:20190207T092342Z
DTSTAMP:20190207T092342Z
UID:047ae3bb-7e00-41c9-8cba-9c481529548d
SUMMARY:Sitzung
RRULE:FREQ=WEEKLY;UNTIL=20190402T121000Z;INTERVAL=2
DTSTART;TZID=Europe/Berlin:20190212T141000
DTEND;TZID=Europe/Berlin:20190212T151000
TRANSP:OPAQUE
LOCATION:25.12.O1.51
END:VEVENT
END:VCALENDAR
`

var berlin = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		panic(err)
	}
	return loc
}()

// fixtureEvents parses and expands the fixture over the same broad window a
// poll cycle uses, anchored at 2018-07-01. The two 2013 events fall outside
// it on purpose.
func fixtureEvents(t *testing.T) []model.Event {
	t.Helper()

	parsed, err := ics.ParseICS(ics.Source{ID: "fixture"}, []byte(fixtureICS), berlin)
	require.NoError(t, err)

	anchor := time.Date(2018, 7, 1, 0, 0, 0, 0, time.UTC)
	events, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		RangeStart: anchor.AddDate(-1, 0, 0),
		RangeEnd:   anchor.AddDate(3, 0, 0),
	})
	require.NoError(t, err)
	require.NotEmpty(t, events)

	return events
}

func bySummary(events []model.Event, summary string) []model.Event {
	out := make([]model.Event, 0)
	for _, e := range events {
		if e.Summary == summary {
			out = append(out, e)
		}
	}
	return out
}

func oneBySummary(t *testing.T, events []model.Event, summary string) model.Event {
	t.Helper()
	matches := bySummary(events, summary)
	require.Len(t, matches, 1, "expected exactly one %q occurrence", summary)
	return matches[0]
}

func summaries(events []model.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Summary)
	}
	return out
}

func utc(year int, month time.Month, day, hour, min, sec int) time.Time {
	return time.Date(year, month, day, hour, min, sec, 0, time.UTC)
}
