package ics

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrBadDateTime is returned for DATE / DATE-TIME values that cannot be read.
var ErrBadDateTime = errors.New("ics: invalid date-time value")

var tzidPattern = regexp.MustCompile(`TZID=([^;:]+)`)

// approximateZones are TZIDs resolved with approximateEastern instead of the
// tz database.
var approximateZones = map[string]bool{
	"Eastern Standard Time": true,
	"America/New_York":      true,
	"US/Eastern":            true,
}

var (
	easternDaylight = time.FixedZone("EDT", -4*60*60)
	easternStandard = time.FixedZone("EST", -5*60*60)
)

// approximateEastern picks a fixed UTC offset for US Eastern time by calendar
// month: March through October is treated as daylight time (UTC-4), the rest
// as standard time (UTC-5). This is NOT calendar-accurate; local times in the
// weeks around the real DST transitions (second Sunday of March, first Sunday
// of November) come out one hour off.
func approximateEastern(month time.Month) *time.Location {
	if month >= time.March && month <= time.October {
		return easternDaylight
	}
	return easternStandard
}

// ParseDateTime converts an ICS DATE or DATE-TIME value into an instant.
// key is the full property key (e.g. "DTSTART;TZID=Eastern Standard Time")
// and is only consulted for a TZID parameter. local is the zone used for
// dates and floating times; nil means time.Local.
//
//   - YYYYMMDD          -> midnight in local
//   - YYYYMMDDTHHMMSSZ  -> UTC
//   - YYYYMMDDTHHMMSS   -> approximateEastern if TZID is a recognized
//     Eastern name, otherwise floating time in local
func ParseDateTime(value, key string, local *time.Location) (time.Time, error) {
	if local == nil {
		local = time.Local
	}
	v := strings.TrimSpace(value)

	switch len(v) {
	case 8:
		y, m, d, err := parseDate(v)
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(y, time.Month(m), d, 0, 0, 0, 0, local), nil

	case 15, 16:
		utc := false
		if len(v) == 16 {
			if v[15] != 'Z' {
				return time.Time{}, fmt.Errorf("%w: %q", ErrBadDateTime, value)
			}
			utc = true
		}
		if v[8] != 'T' {
			return time.Time{}, fmt.Errorf("%w: %q", ErrBadDateTime, value)
		}
		y, m, d, err := parseDate(v[:8])
		if err != nil {
			return time.Time{}, err
		}
		hh, okH := digits(v[9:11])
		mm, okM := digits(v[11:13])
		ss, okS := digits(v[13:15])
		if !okH || !okM || !okS || hh > 23 || mm > 59 || ss > 59 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrBadDateTime, value)
		}

		loc := local
		switch {
		case utc:
			loc = time.UTC
		case approximateZones[tzidOf(key)]:
			loc = approximateEastern(time.Month(m))
		}
		return time.Date(y, time.Month(m), d, hh, mm, ss, 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDateTime, value)
}

// tzidOf extracts the TZID parameter from a property key, if any.
func tzidOf(key string) string {
	m := tzidPattern.FindStringSubmatch(key)
	if m == nil {
		return ""
	}
	return strings.Trim(m[1], `"`)
}

func parseDate(v string) (y, m, d int, err error) {
	var okY, okM, okD bool
	y, okY = digits(v[0:4])
	m, okM = digits(v[4:6])
	d, okD = digits(v[6:8])
	if !okY || !okM || !okD || m < 1 || m > 12 || d < 1 || d > 31 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrBadDateTime, v)
	}
	return y, m, d, nil
}

// digits parses an all-ASCII-digit string.
func digits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
