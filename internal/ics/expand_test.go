package ics

import (
	"fmt"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomcal/internal/model"
)

func weeklyEvent(start time.Time, rule string) model.Event {
	return model.Event{
		UID:      "weekly@example.com",
		Summary:  "Seminar",
		Location: "Room 3620",
		Room:     "Room 3620",
		RRule:    rule,
		Start:    start,
		End:      start.Add(90 * time.Minute),
	}
}

func TestExpandWeeklyUntil(t *testing.T) {
	start := time.Date(2025, 9, 5, 10, 0, 0, 0, time.UTC) // Friday
	ev := weeklyEvent(start, "FREQ=WEEKLY;BYDAY=FR;UNTIL=20250930T000000Z")

	got, supported := ExpandWeekly(ev, ExpandConfig{Location: time.UTC})
	require.True(t, supported)
	require.Len(t, got, 4)

	for i, inst := range got {
		want := start.AddDate(0, 0, 7*i)
		assert.True(t, want.Equal(inst.Start), "instance %d starts %s", i, inst.Start)
		assert.Equal(t, 90*time.Minute, inst.Duration())
		assert.Equal(t, time.Friday, inst.Start.Weekday())
		assert.Equal(t, fmt.Sprintf("weekly@example.com_%d", want.Unix()), inst.UID)
		assert.Empty(t, inst.RRule)
		assert.Equal(t, "Room 3620", inst.Room)
		assert.Equal(t, "Seminar", inst.Summary)
	}
}

func TestExpandWeeklyHorizon(t *testing.T) {
	start := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC) // Monday
	ev := weeklyEvent(start, "FREQ=WEEKLY;BYDAY=MO")

	got, supported := ExpandWeekly(ev, ExpandConfig{
		Now:           time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		HorizonMonths: 1,
		Location:      time.UTC,
	})
	require.True(t, supported)
	require.Len(t, got, 5)
	assert.Equal(t, 29, got[4].Start.Day())
}

func TestExpandWeeklyMovesToWeekday(t *testing.T) {
	start := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC) // Monday
	ev := weeklyEvent(start, "FREQ=WEEKLY;BYDAY=TH;UNTIL=20250912T000000Z")

	got, supported := ExpandWeekly(ev, ExpandConfig{Location: time.UTC})
	require.True(t, supported)
	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2025, 9, 4, 9, 0, 0, 0, time.UTC), got[0].Start)
	assert.Equal(t, time.Date(2025, 9, 11, 9, 0, 0, 0, time.UTC), got[1].Start)
}

func TestExpandWeeklyCount(t *testing.T) {
	start := time.Date(2025, 9, 2, 9, 0, 0, 0, time.UTC)
	ev := weeklyEvent(start, "FREQ=WEEKLY;BYDAY=TU;COUNT=3")

	got, supported := ExpandWeekly(ev, ExpandConfig{
		Now:      start,
		Location: time.UTC,
	})
	require.True(t, supported)
	assert.Len(t, got, 3)
}

func TestExpandWeeklyCap(t *testing.T) {
	start := time.Date(2025, 9, 2, 9, 0, 0, 0, time.UTC)
	ev := weeklyEvent(start, "FREQ=WEEKLY;BYDAY=TU")

	got, supported := ExpandWeekly(ev, ExpandConfig{
		Now:                  start,
		HorizonMonths:        12,
		Location:             time.UTC,
		MaxInstancesPerEvent: 10,
	})
	require.True(t, supported)
	assert.Len(t, got, 10)
}

func TestExpandWeeklyStartAfterUntil(t *testing.T) {
	start := time.Date(2025, 10, 6, 9, 0, 0, 0, time.UTC)
	ev := weeklyEvent(start, "FREQ=WEEKLY;BYDAY=MO;UNTIL=20250930T000000Z")

	got, supported := ExpandWeekly(ev, ExpandConfig{Location: time.UTC})
	assert.True(t, supported)
	assert.Empty(t, got)
}

func TestExpandWeeklyUnsupported(t *testing.T) {
	start := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)
	for _, rule := range []string{
		"FREQ=DAILY;UNTIL=20250930T000000Z",
		"FREQ=WEEKLY;BYDAY=MO,WE",
		"FREQ=WEEKLY;INTERVAL=2;BYDAY=MO",
		"FREQ=WEEKLY",
		"FREQ=MONTHLY;BYDAY=1MO",
		"FREQ=WEEKLY;BYDAY=1MO",
		"garbage",
	} {
		got, supported := ExpandWeekly(weeklyEvent(start, rule), ExpandConfig{Now: start, Location: time.UTC})
		assert.False(t, supported, rule)
		assert.Nil(t, got, rule)
	}
}

func TestExpandWeeklyKeepsWallClockAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 15:45 EDT on a Tuesday.
	start := time.Date(2025, 9, 2, 15, 45, 0, 0, approximateEastern(time.September))
	ev := weeklyEvent(start, "FREQ=WEEKLY;BYDAY=TU;UNTIL=20251216T204500Z")

	got, supported := ExpandWeekly(ev, ExpandConfig{Location: ny})
	require.True(t, supported)
	require.Len(t, got, 15)

	last := got[len(got)-1]
	assert.Equal(t, time.Date(2025, 12, 9, 20, 45, 0, 0, time.UTC), last.Start.UTC())
	for _, inst := range got {
		assert.Equal(t, 15, inst.Start.Hour())
		assert.Equal(t, 45, inst.Start.Minute())
		assert.Equal(t, time.Tuesday, inst.Start.Weekday())
	}
}
