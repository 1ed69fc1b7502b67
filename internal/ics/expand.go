package ics

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	appLog "roomcal/internal/log"
	"roomcal/internal/model"
)

const (
	// DefaultHorizonMonths bounds open-ended weekly rules.
	DefaultHorizonMonths = 6

	defaultMaxInstancesPerEvent = 5000
)

// ExpandConfig controls weekly recurrence expansion.
type ExpandConfig struct {
	// Now anchors the horizon for rules without UNTIL. It is an explicit
	// input so expansion is deterministic under test.
	Now time.Time

	// HorizonMonths is how far past Now open-ended rules are expanded.
	// Zero means DefaultHorizonMonths.
	HorizonMonths int

	// Location is the zone used to read floating UNTIL values and to decide
	// an instance's weekday. Nil means time.Local.
	Location *time.Location

	// MaxInstancesPerEvent caps a single rule. Zero means the default.
	MaxInstancesPerEvent int
}

// ExpandWeekly generates the instances of ev's RRULE.
//
// Only FREQ=WEEKLY with a single plain BYDAY code (and no INTERVAL above 1)
// is supported; for anything else supported is false and no instances are
// returned. Starting from ev.Start the walk moves day by day to the first
// matching weekday, then in 7-day steps while the step is before the bound
// (UNTIL, or Now + HorizonMonths). COUNT, when present, caps the result.
//
// Each instance is a copy of ev shifted in time, with the same duration,
// UID "{ev.UID}_{startUnix}" and an empty RRule.
func ExpandWeekly(ev model.Event, cfg ExpandConfig) (instances []model.Event, supported bool) {
	if ev.RRule == "" || !ev.Start.Before(ev.End) {
		return nil, false
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	if cfg.HorizonMonths <= 0 {
		cfg.HorizonMonths = DefaultHorizonMonths
	}
	if cfg.MaxInstancesPerEvent <= 0 {
		cfg.MaxInstancesPerEvent = defaultMaxInstancesPerEvent
	}

	opt, err := rrule.StrToROptionInLocation(ev.RRule, loc)
	if err != nil {
		appLog.Debug("expand: unparseable RRULE", "uid", ev.UID, "rrule", ev.RRule, "err", err)
		return nil, false
	}
	if opt.Freq != rrule.WEEKLY || len(opt.Byweekday) != 1 || opt.Interval > 1 {
		appLog.Debug("expand: unsupported RRULE shape", "uid", ev.UID, "rrule", ev.RRule)
		return nil, false
	}
	wd := opt.Byweekday[0]
	if wd.N() != 0 {
		appLog.Debug("expand: unsupported RRULE shape", "uid", ev.UID, "rrule", ev.RRule)
		return nil, false
	}
	// rrule-go numbers weekdays from Monday = 0.
	target := time.Weekday((wd.Day() + 1) % 7)

	bound := opt.Until
	if bound.IsZero() {
		bound = cfg.Now.AddDate(0, cfg.HorizonMonths, 0)
	}

	dur := ev.End.Sub(ev.Start)
	cur := ev.Start.In(loc)
	for cur.Weekday() != target {
		cur = cur.AddDate(0, 0, 1)
	}

	instances = make([]model.Event, 0)
	for cur.Before(bound) {
		if opt.Count > 0 && len(instances) >= opt.Count {
			break
		}
		if len(instances) >= cfg.MaxInstancesPerEvent {
			appLog.Warn("expand: instance cap reached", "uid", ev.UID, "cap", cfg.MaxInstancesPerEvent)
			break
		}

		inst := ev
		inst.UID = fmt.Sprintf("%s_%d", ev.UID, cur.Unix())
		inst.Start = cur
		inst.End = cur.Add(dur)
		inst.RRule = ""
		instances = append(instances, inst)

		cur = cur.AddDate(0, 0, 7)
	}

	return instances, true
}
