package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomcal/internal/model"
)

func at(day, hour, minute int) time.Time {
	return time.Date(2025, 8, day, hour, minute, 0, 0, time.UTC)
}

func booking(uid, room string, start time.Time, d time.Duration) model.Event {
	return model.Event{UID: uid, Summary: uid, Room: room, Location: room, Start: start, End: start.Add(d)}
}

func fixture() *Store {
	return New([]model.Event{
		booking("late", "Room 120", at(28, 15, 0), time.Hour),
		booking("early", "Batten 201", at(28, 9, 0), time.Hour),
		booking("next-day", "Batten 201", at(29, 9, 0), 30*time.Minute),
		booking("mid", "Room 120", at(28, 11, 0), 90*time.Minute),
	}, []string{"Room 120", "Batten 201", "Great Hall 100"})
}

func TestNewSorts(t *testing.T) {
	s := fixture()

	assert.Equal(t, 4, s.Len())
	assert.Equal(t, []string{"Batten 201", "Great Hall 100", "Room 120"}, s.Rooms())

	var uids []string
	for _, ev := range s.Events() {
		uids = append(uids, ev.UID)
	}
	assert.Equal(t, []string{"early", "mid", "late", "next-day"}, uids)
}

func TestNewCopies(t *testing.T) {
	events := []model.Event{booking("a", "Room 120", at(28, 9, 0), time.Hour)}
	rooms := []string{"Room 120"}
	s := New(events, rooms)

	events[0].Room = "changed"
	rooms[0] = "changed"
	assert.Equal(t, "Room 120", s.Events()[0].Room)
	assert.Equal(t, []string{"Room 120"}, s.Rooms())

	got := s.Events()
	got[0].Room = "changed again"
	assert.Equal(t, "Room 120", s.Events()[0].Room)
}

func TestEventsForRoom(t *testing.T) {
	s := fixture()

	got := s.EventsForRoom("Room 120", at(28, 23, 59))
	require.Len(t, got, 2)
	assert.Equal(t, "mid", got[0].UID)
	assert.Equal(t, "late", got[1].UID)

	assert.Len(t, s.EventsForRoom("Batten 201", time.Time{}), 2)
	assert.Len(t, s.EventsForRoom("", at(28, 0, 0)), 3)
	assert.Empty(t, s.EventsForRoom("Great Hall 100", time.Time{}))
	assert.Empty(t, s.EventsForRoom("Nowhere", time.Time{}))
}

func TestEventsForRoomUsesDateLocation(t *testing.T) {
	s := fixture()

	// 2025-08-29 09:00 UTC is still the 28th in UTC-10.
	hst := time.FixedZone("HST", -10*60*60)
	got := s.EventsForRoom("Batten 201", time.Date(2025, 8, 28, 12, 0, 0, 0, hst))
	require.Len(t, got, 1)
	assert.Equal(t, "next-day", got[0].UID)
}

func TestEventsInRange(t *testing.T) {
	s := fixture()

	got := s.EventsInRange("", at(28, 9, 0), at(28, 15, 0))
	require.Len(t, got, 2)
	assert.Equal(t, "early", got[0].UID)
	assert.Equal(t, "mid", got[1].UID)

	assert.Len(t, s.EventsInRange("Batten 201", at(1, 0, 0), at(31, 0, 0)), 2)
	assert.Empty(t, s.EventsInRange("Room 120", at(29, 0, 0), at(30, 0, 0)))
}

func TestAvailableRooms(t *testing.T) {
	s := fixture()

	assert.Equal(t, []string{"Great Hall 100"}, s.AvailableRooms(at(28, 9, 30), at(28, 11, 30)))
	// Touching intervals do not overlap.
	assert.Equal(t, s.Rooms(), s.AvailableRooms(at(28, 10, 0), at(28, 11, 0)))
	assert.Equal(t, []string{"Batten 201", "Great Hall 100"}, s.AvailableRooms(at(28, 10, 0), at(28, 11, 1)))
	assert.Equal(t, s.Rooms(), s.AvailableRooms(at(30, 0, 0), at(31, 0, 0)))
}

func TestAvailableRoomsNeverOverlapping(t *testing.T) {
	s := fixture()

	for h := 0; h < 48; h++ {
		start := at(28, 0, 0).Add(time.Duration(h) * 30 * time.Minute)
		end := start.Add(time.Hour)
		for _, r := range s.AvailableRooms(start, end) {
			for _, ev := range s.EventsForRoom(r, time.Time{}) {
				assert.False(t, ev.Overlaps(start, end), "%s is busy at %s", r, start)
			}
		}
		assert.Contains(t, s.AvailableRooms(start, end), "Great Hall 100")
	}
}

func TestUsage(t *testing.T) {
	s := fixture()

	usage := s.Usage(at(28, 0, 0))
	assert.Equal(t, model.RoomUsage{Events: 2, BusyMinutes: 150, BusyHours: 2.5}, usage["Room 120"])
	assert.Equal(t, model.RoomUsage{Events: 1, BusyMinutes: 60, BusyHours: 1}, usage["Batten 201"])
	assert.Equal(t, model.RoomUsage{}, usage["Great Hall 100"])
	assert.Len(t, usage, 3)
}

func TestDebug(t *testing.T) {
	events := make([]model.Event, 0, 8)
	for i := 0; i < 8; i++ {
		events = append(events, booking("e", "Room 120", at(1+i, 9, 0), time.Hour))
	}
	info := New(events, []string{"Room 120"}).Debug()

	assert.Equal(t, 8, info.TotalEvents)
	assert.Equal(t, []string{"Room 120"}, info.Rooms)
	require.Len(t, info.SampleEvents, debugSampleSize)
	assert.Equal(t, "Room 120", info.SampleEvents[0].ExtractedRoom)
	assert.Equal(t, at(1, 9, 0), info.SampleEvents[0].Start)

	empty := New(nil, nil).Debug()
	assert.Equal(t, 0, empty.TotalEvents)
	assert.Empty(t, empty.SampleEvents)
}
