package model

import "time"

// Event is a single room booking after parsing, room resolution and
// recurrence expansion. Events held by a store always satisfy
// Start < End, a non-empty Summary and a non-empty canonical Room.
type Event struct {
	Source string // calendar source ID (e.g., config calendar ID)

	// UID is the iCalendar UID. Generated recurrence instances carry
	// "{parentUID}_{startUnix}".
	UID string

	Summary     string
	Description string
	Location    string
	Organizer   string

	// Room is the canonical room name resolved from Location (or Summary).
	Room string

	// RRule is the raw recurrence rule. It is empty on generated instances.
	RRule string

	// End is exclusive: an instant equal to End is not inside the event.
	Start time.Time
	End   time.Time
}

// Duration returns End - Start.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Overlaps reports whether the half-open interval [Start, End) intersects
// [start, end).
func (e Event) Overlaps(start, end time.Time) bool {
	return e.Start.Before(end) && e.End.After(start)
}

// EventSample is the per-event view used by the debug summary.
type EventSample struct {
	Summary       string    `json:"summary"`
	Location      string    `json:"location"`
	ExtractedRoom string    `json:"extracted_room"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
}

// DebugInfo summarizes a parsed store for diagnostics.
type DebugInfo struct {
	TotalEvents  int           `json:"total_events"`
	Rooms        []string      `json:"rooms"`
	SampleEvents []EventSample `json:"sample_events"`
}

// RoomUsage is the per-room busy summary for a single calendar day.
type RoomUsage struct {
	Events      int     `json:"events"`
	BusyMinutes float64 `json:"busy_minutes"`
	BusyHours   float64 `json:"busy_hours"`
}
