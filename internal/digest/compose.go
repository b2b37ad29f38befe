package digest

import (
	"strings"
	"time"

	"calhook/internal/model"
)

// Message is the only outbound payload shape.
type Message struct {
	Text string
}

// Composer turns an event snapshot plus a reference instant into outbound
// messages. It holds policy only; Compose is a pure function of its inputs.
type Composer struct {
	Weekday  time.Weekday // weekday of the weekly digest
	WeekHour int          // UTC hour of the weekly digest
	DayHour  int          // UTC hour of the daily digest
	Interval time.Duration
	Location *time.Location // display timezone for rendering
}

// Compose evaluates the digest policy for now and appends the
// change-detection messages. The weekly and daily digests are mutually
// exclusive per cycle, weekly winning. Each digest fires only within the
// first poll-interval minutes of its hour so it triggers exactly once per
// scheduled cycle. The weekly digest has an explicit empty-state message;
// the daily digest stays silent when the day is free.
func (c Composer) Compose(events []model.Event, now time.Time, forceWeek, forceDay bool) []Message {
	messages := make([]Message, 0)

	utc := now.UTC()
	intervalMin := int(c.Interval / time.Minute)
	sendWeek := utc.Weekday() == c.Weekday &&
		utc.Hour() == c.WeekHour &&
		utc.Minute() < intervalMin
	sendDay := utc.Weekday() != c.Weekday &&
		utc.Hour() == c.DayHour &&
		utc.Minute() < intervalMin

	switch {
	case forceWeek || sendWeek:
		if week := OfWeek(events, now); len(week) > 0 {
			messages = append(messages, c.message("Events this week:", week))
		} else {
			messages = append(messages, Message{Text: "No events this week 😢"})
		}
	case forceDay || sendDay:
		if day := OfDay(events, now); len(day) > 0 {
			messages = append(messages, c.message("Events today:", day))
		}
	}

	if created := New(events, now, c.Interval); len(created) > 0 {
		messages = append(messages, c.message("New events:", created))
	}
	if modified := Modified(events, now, c.Interval); len(modified) > 0 {
		messages = append(messages, c.message("Modified events:", modified))
	}
	if soon := InNearFuture(events, now, c.Interval); len(soon) > 0 {
		messages = append(messages, c.message("Events starting soon:", soon))
	}

	return messages
}

func (c Composer) message(header string, events []model.Event) Message {
	lines := make([]string, 0, len(events)+1)
	lines = append(lines, header)
	for _, e := range events {
		lines = append(lines, "• "+Describe(e, c.Location))
	}
	return Message{Text: strings.Join(lines, "\n")}
}

// ErrorMessage is the payload for a failed poll cycle.
func ErrorMessage(err error) Message {
	return Message{Text: "Sorry, there was an error 🤯.\n" + err.Error()}
}

// FatalMessage is the payload for a scheduler-level fault, after which no
// further cycles will run.
func FatalMessage(err error) Message {
	return Message{Text: "Sorry, there was an error 🤯. I will kill myself 🔫.\n" + err.Error()}
}
