package ics

import (
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"roomcal/internal/model"
)

// ExportOptions controls WriteICS.
type ExportOptions struct {
	// CalendarName is written as X-WR-CALNAME when set.
	CalendarName string
	// Stamp is written as every event's DTSTAMP. Zero means time.Now.
	Stamp time.Time
}

// WriteICS serializes events as a VCALENDAR. LOCATION carries the canonical
// room name, so a consumer sees the resolved room rather than the raw
// free-text location. Times are written in UTC and long lines are folded.
func WriteICS(w io.Writer, events []model.Event, opts ExportOptions) error {
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendarFor("roomcal")
	cal.SetMethod(ical.MethodPublish)
	if opts.CalendarName != "" {
		cal.SetXWRCalName(opts.CalendarName)
	}

	for _, ev := range events {
		ve := cal.AddEvent(ev.UID)
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
		ve.SetSummary(ev.Summary)
		ve.SetLocation(ev.Room)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Organizer != "" {
			ve.SetOrganizer(ev.Organizer)
		}
	}

	return cal.SerializeTo(w)
}
