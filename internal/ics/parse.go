package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	appLog "roomcal/internal/log"
	"roomcal/internal/model"
	"roomcal/internal/room"
	"roomcal/internal/store"
)

// ErrEmptyPayload is the only hard failure of a parse: the payload has no
// content at all.
var ErrEmptyPayload = errors.New("ics: empty payload")

const (
	tokenBeginEvent = "BEGIN:VEVENT"
	tokenEndEvent   = "END:VEVENT"
)

// Options configures a Parser.
type Options struct {
	// Location is the zone for dates and floating date-times, and for
	// calendar-day decisions during expansion. Nil means time.Local.
	Location *time.Location

	// Now is read once per parse to bound open-ended recurrences. Nil means
	// time.Now.
	Now func() time.Time

	// HorizonMonths bounds open-ended recurrences; zero means
	// DefaultHorizonMonths.
	HorizonMonths int

	// Rooms holds the resolver and normalizer tables. Empty fields fall back
	// to room.DefaultTables.
	Rooms room.Tables
}

// Payload is one ICS document and the source it came from.
type Payload struct {
	Source string
	Body   string
}

// Parser turns ICS text into a store.Store. A Parser holds no per-parse
// state, so one instance may be reused and shared; every call starts from
// scratch.
type Parser struct {
	opts       Options
	resolver   *room.Resolver
	normalizer *room.Normalizer
}

// NewParser compiles the room tables in opts.
func NewParser(opts Options) (*Parser, error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HorizonMonths <= 0 {
		opts.HorizonMonths = DefaultHorizonMonths
	}
	opts.Rooms = opts.Rooms.WithDefaults()

	resolver, err := room.NewResolver(opts.Rooms)
	if err != nil {
		return nil, err
	}
	return &Parser{
		opts:       opts,
		resolver:   resolver,
		normalizer: room.NewNormalizer(opts.Rooms),
	}, nil
}

// Parse parses a single ICS payload.
func (p *Parser) Parse(body string) (*store.Store, error) {
	return p.ParseSources([]Payload{{Body: body}})
}

// ParseSources parses several payloads into one store. The room
// normalization pass runs once, after the last payload.
//
// Only an empty payload is an error. Malformed lines, bad date-times,
// incomplete events, unresolvable rooms and unsupported recurrences are
// logged and skipped.
func (p *Parser) ParseSources(payloads []Payload) (*store.Store, error) {
	if len(payloads) == 0 {
		return nil, ErrEmptyPayload
	}
	for _, pl := range payloads {
		if strings.TrimSpace(pl.Body) == "" {
			if pl.Source != "" {
				return nil, fmt.Errorf("source %s: %w", pl.Source, ErrEmptyPayload)
			}
			return nil, ErrEmptyPayload
		}
	}

	r := &parseRun{
		p:     p,
		rooms: make(map[string]struct{}),
		expand: ExpandConfig{
			Now:           p.opts.Now(),
			HorizonMonths: p.opts.HorizonMonths,
			Location:      p.opts.Location,
		},
	}
	for _, pl := range payloads {
		r.consume(pl)
	}
	return r.finish(), nil
}

// record is a pipeline-internal wrapper; the flags never leave this package.
type record struct {
	ev       model.Event
	parent   bool // recurrence parent, dropped at finish
	instance bool // generated by ExpandWeekly
}

type parseRun struct {
	p      *Parser
	expand ExpandConfig

	records []record
	rooms   map[string]struct{}

	blocks  int
	invalid int
}

func (r *parseRun) consume(pl Payload) {
	var cur *eventBuilder

	for _, line := range Unfold(pl.Body) {
		switch {
		case line == tokenBeginEvent:
			if cur != nil {
				appLog.Debug("ics: unterminated VEVENT discarded", "source", pl.Source, "uid", cur.uid)
			}
			cur = newEventBuilder(pl.Source)
			r.blocks++
		case line == tokenEndEvent:
			if cur == nil {
				continue
			}
			r.close(cur)
			cur = nil
		case cur != nil && line != "":
			cur.apply(line, r.p.opts.Location)
		}
	}

	if cur != nil {
		appLog.Debug("ics: unterminated VEVENT at end of input", "source", pl.Source, "uid", cur.uid)
	}
}

func (r *parseRun) close(b *eventBuilder) {
	ev, ok := b.build()
	if !ok {
		r.invalid++
		appLog.Debug("ics: dropping incomplete VEVENT", "source", b.source, "uid", b.uid, "summary", b.summary)
		return
	}

	text := ev.Location
	if strings.TrimSpace(text) == "" {
		text = ev.Summary
	}
	if name, ok := r.p.resolver.Resolve(text); ok {
		ev.Room = name
		r.rooms[name] = struct{}{}
	}

	if ev.RRule != "" {
		instances, supported := ExpandWeekly(ev, r.expand)
		if supported {
			r.records = append(r.records, record{ev: ev, parent: true})
			for _, inst := range instances {
				r.records = append(r.records, record{ev: inst, instance: true})
			}
			appLog.Debug("ics: expanded recurrence", "uid", ev.UID, "instances", len(instances))
			return
		}
	}

	r.records = append(r.records, record{ev: ev})
}

func (r *parseRun) finish() *store.Store {
	rooms, renames := r.p.normalizer.Normalize(r.rooms)
	known := make(map[string]struct{}, len(rooms))
	for _, name := range rooms {
		known[name] = struct{}{}
	}

	events := make([]model.Event, 0, len(r.records))
	parents, roomless, instances := 0, 0, 0
	for _, rec := range r.records {
		if rec.parent {
			parents++
			continue
		}
		ev := rec.ev
		if c, ok := renames[ev.Room]; ok {
			ev.Room = c
		}
		if _, ok := known[ev.Room]; !ok || strings.TrimSpace(ev.Room) == "" {
			roomless++
			continue
		}
		if rec.instance {
			instances++
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed",
		"vevents", r.blocks,
		"invalid", r.invalid,
		"recurrence_parents", parents,
		"instances", instances,
		"without_room", roomless,
		"event_count", len(events),
		"room_count", len(rooms),
	)
	if len(renames) > 0 && appLog.Enabled(appLog.LevelDebug) {
		appLog.Debug("ics: room aliases applied", "renames", renames)
	}

	return store.New(events, rooms)
}
