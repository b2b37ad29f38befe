package model

import "time"

// epoch is the instant absent bookkeeping timestamps normalize to, so a
// "since threshold" window with any post-1970 threshold never matches them.
var epoch = time.Unix(0, 0).UTC()

// Event is one concrete calendar occurrence after recurrence expansion and
// normalization. Occurrences of a recurring series are distinct Events
// sharing a UID; the UID alone does not identify an instance.
type Event struct {
	SourceID string // calendar source ID (e.g., config ID or URL host)
	UID      string // iCalendar UID

	Summary  string
	Location string

	AllDay bool

	// Start / End are absolute instants. For all-day events both are
	// midnight UTC and End is exclusive per the iCalendar convention: an
	// event covering days D1..D2 stores End = D2 + 1 day.
	Start time.Time
	End   time.Time

	// Created / LastModified are feed-side bookkeeping timestamps. The zero
	// value means the feed carried no such metadata.
	Created      time.Time
	LastModified time.Time
}

// CreatedOrEpoch returns the creation timestamp, or the Unix epoch when the
// feed did not provide one.
func (e Event) CreatedOrEpoch() time.Time {
	return orEpoch(e.Created)
}

// ModifiedOrEpoch returns the last-modified timestamp, or the Unix epoch when
// the feed did not provide one.
func (e Event) ModifiedOrEpoch() time.Time {
	return orEpoch(e.LastModified)
}

func orEpoch(t time.Time) time.Time {
	if t.IsZero() {
		return epoch
	}
	return t
}
