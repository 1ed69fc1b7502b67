package ics

import (
	"strings"
	"time"

	appLog "roomcal/internal/log"
	"roomcal/internal/model"
)

// property is one logical content line split at its first ':'.
type property struct {
	Key   string // full key including parameters, e.g. DTSTART;TZID=...
	Name  string // upper-cased name without parameters
	Value string
}

func splitProperty(line string) (property, bool) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return property{}, false
	}
	key := line[:i]
	name := key
	if j := strings.IndexByte(key, ';'); j >= 0 {
		name = key[:j]
	}
	return property{
		Key:   key,
		Name:  strings.ToUpper(strings.TrimSpace(name)),
		Value: line[i+1:],
	}, true
}

// eventBuilder accumulates the fields of one VEVENT. It becomes a
// model.Event only once build confirms the required fields.
type eventBuilder struct {
	source string

	uid         string
	summary     string
	description string
	location    string
	organizer   string
	rrule       string

	start, end       time.Time
	hasStart, hasEnd bool
}

func newEventBuilder(source string) *eventBuilder {
	return &eventBuilder{source: source}
}

// apply consumes one content line. Unparseable lines and malformed values
// leave the builder unchanged.
func (b *eventBuilder) apply(line string, local *time.Location) {
	p, ok := splitProperty(line)
	if !ok {
		appLog.Debug("ics: skipping line without ':'", "line", line)
		return
	}

	switch p.Name {
	case "DTSTART":
		t, err := ParseDateTime(p.Value, p.Key, local)
		if err != nil {
			appLog.Debug("ics: bad DTSTART", "key", p.Key, "value", p.Value, "err", err)
			return
		}
		b.start, b.hasStart = t, true
	case "DTEND":
		t, err := ParseDateTime(p.Value, p.Key, local)
		if err != nil {
			appLog.Debug("ics: bad DTEND", "key", p.Key, "value", p.Value, "err", err)
			return
		}
		b.end, b.hasEnd = t, true
	case "SUMMARY":
		b.summary = unescapeText(p.Value)
	case "DESCRIPTION":
		b.description = unescapeText(p.Value)
	case "LOCATION":
		b.location = unescapeText(p.Value)
	case "UID":
		b.uid = p.Value
	case "ORGANIZER":
		b.organizer = parseOrganizer(p.Value)
	case "RRULE":
		b.rrule = p.Value
	}
}

// build returns the event if it has a summary and a start strictly before
// its end.
func (b *eventBuilder) build() (model.Event, bool) {
	if !b.hasStart || !b.hasEnd || strings.TrimSpace(b.summary) == "" {
		return model.Event{}, false
	}
	if !b.start.Before(b.end) {
		return model.Event{}, false
	}
	return model.Event{
		Source:      b.source,
		UID:         b.uid,
		Summary:     b.summary,
		Description: b.description,
		Location:    b.location,
		Organizer:   b.organizer,
		RRule:       b.rrule,
		Start:       b.start,
		End:         b.end,
	}, true
}

// unescapeText reverses RFC 5545 TEXT escaping (\n, \N, \, \; \\).
// Unknown escapes are kept verbatim.
func unescapeText(v string) string {
	if !strings.Contains(v, `\`) {
		return v
	}
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c != '\\' || i+1 == len(v) {
			b.WriteByte(c)
			continue
		}
		i++
		switch v[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		case ',', ';', '\\':
			b.WriteByte(v[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(v[i])
		}
	}
	return b.String()
}

// parseOrganizer strips a leading MAILTO: (any case).
func parseOrganizer(v string) string {
	const prefix = "mailto:"
	if len(v) > len(prefix) && strings.EqualFold(v[:len(prefix)], prefix) {
		return v[len(prefix):]
	}
	return v
}
