package store

import (
	"math"
	"sort"
	"time"

	"roomcal/internal/model"
)

const debugSampleSize = 5

// Store is the immutable result of one parse: events ordered by start time
// and the canonical room set. All queries are read-only, so a Store may be
// shared between goroutines.
type Store struct {
	events []model.Event
	rooms  []string
}

// New builds a Store. Events are copied and stably sorted by start; rooms
// are copied and sorted.
func New(events []model.Event, rooms []string) *Store {
	s := &Store{
		events: append([]model.Event(nil), events...),
		rooms:  append([]string(nil), rooms...),
	}
	sortByStart(s.events)
	sort.Strings(s.rooms)
	return s
}

// Len returns the number of events.
func (s *Store) Len() int {
	return len(s.events)
}

// Events returns a copy of all events ordered by start.
func (s *Store) Events() []model.Event {
	return append([]model.Event(nil), s.events...)
}

// Rooms returns a copy of the sorted canonical room names.
func (s *Store) Rooms() []string {
	return append([]string(nil), s.rooms...)
}

// EventsForRoom returns the events booked in room (all rooms when room is
// empty). A non-zero date further restricts the result to events starting
// on the same calendar day as date, in date's location; the time of day of
// date is ignored. The result is sorted by start.
func (s *Store) EventsForRoom(room string, date time.Time) []model.Event {
	out := make([]model.Event, 0)
	for _, ev := range s.events {
		if room != "" && ev.Room != room {
			continue
		}
		if !date.IsZero() && !sameDay(ev.Start, date) {
			continue
		}
		out = append(out, ev)
	}
	sortByStart(out)
	return out
}

// EventsInRange returns events in room (all rooms when empty) whose start
// lies in [start, end), sorted by start.
func (s *Store) EventsInRange(room string, start, end time.Time) []model.Event {
	out := make([]model.Event, 0)
	for _, ev := range s.events {
		if room != "" && ev.Room != room {
			continue
		}
		if ev.Start.Before(start) || !ev.Start.Before(end) {
			continue
		}
		out = append(out, ev)
	}
	sortByStart(out)
	return out
}

// AvailableRooms returns the rooms with no event overlapping [start, end).
func (s *Store) AvailableRooms(start, end time.Time) []string {
	busy := make(map[string]struct{})
	for _, ev := range s.events {
		if ev.Overlaps(start, end) {
			busy[ev.Room] = struct{}{}
		}
	}

	out := make([]string, 0, len(s.rooms))
	for _, r := range s.rooms {
		if _, ok := busy[r]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// Usage summarizes how busy each room is on date's calendar day.
func (s *Store) Usage(date time.Time) map[string]model.RoomUsage {
	out := make(map[string]model.RoomUsage, len(s.rooms))
	for _, r := range s.rooms {
		events := s.EventsForRoom(r, date)
		var minutes float64
		for _, ev := range events {
			minutes += ev.Duration().Minutes()
		}
		out[r] = model.RoomUsage{
			Events:      len(events),
			BusyMinutes: minutes,
			BusyHours:   math.Round(minutes/60*10) / 10,
		}
	}
	return out
}

// Debug returns the event count, the room list and the first few events.
func (s *Store) Debug() model.DebugInfo {
	n := min(len(s.events), debugSampleSize)
	samples := make([]model.EventSample, 0, n)
	for _, ev := range s.events[:n] {
		samples = append(samples, model.EventSample{
			Summary:       ev.Summary,
			Location:      ev.Location,
			ExtractedRoom: ev.Room,
			Start:         ev.Start,
			End:           ev.End,
		})
	}
	return model.DebugInfo{
		TotalEvents:  len(s.events),
		Rooms:        s.Rooms(),
		SampleEvents: samples,
	}
}

func sameDay(t, ref time.Time) bool {
	y1, m1, d1 := t.In(ref.Location()).Date()
	y2, m2, d2 := ref.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func sortByStart(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
}
