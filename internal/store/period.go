package store

import (
	"strings"
	"time"
)

// Period is a calendar view span.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod maps a query value onto a Period; unknown values yield
// PeriodDay.
func ParsePeriod(s string) Period {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case PeriodWeek:
		return PeriodWeek
	case PeriodMonth:
		return PeriodMonth
	default:
		return PeriodDay
	}
}

// PeriodRange returns the half-open span [start, end) of the period that
// contains date, in date's location. Weeks begin on weekStart.
func PeriodRange(date time.Time, p Period, weekStart time.Weekday) (start, end time.Time) {
	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, date.Location())

	switch p {
	case PeriodWeek:
		offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
		start = day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7)
	case PeriodMonth:
		start = time.Date(y, m, 1, 0, 0, 0, 0, date.Location())
		return start, start.AddDate(0, 1, 0)
	default:
		return day, day.AddDate(0, 0, 1)
	}
}
