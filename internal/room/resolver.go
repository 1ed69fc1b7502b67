package room

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	appLog "roomcal/internal/log"
)

// Rule is one extraction step of the resolver. Rules are evaluated in a fixed
// order; the first rule whose candidate passes the Validator wins.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	// Extract builds a candidate room name from the submatches of Pattern.
	// An empty result means the rule does not apply.
	Extract func(m []string) string
}

// Resolver extracts a canonical room name from free text.
type Resolver struct {
	rules     []Rule
	validator *Validator
}

// NewResolver compiles the rule list and validator for the given tables.
func NewResolver(t Tables) (*Resolver, error) {
	t = t.WithDefaults()
	v, err := NewValidator(t.AllowPatterns, t.DenyPatterns)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		rules:     buildRules(t),
		validator: v,
	}, nil
}

// Resolve splits text on ';' and ',' and returns the first validated room
// found, trying segments left to right. ok is false when no segment yields a
// room; callers must not substitute a placeholder.
//
// text is NFKC-normalized first: calendar clients emit no-break spaces and
// full-width digits, which the ASCII-only \s and \d classes would miss.
func (r *Resolver) Resolve(text string) (room string, ok bool) {
	text = strings.TrimSpace(norm.NFKC.String(text))
	if text == "" {
		return "", false
	}

	segments := strings.FieldsFunc(text, func(c rune) bool {
		return c == ';' || c == ','
	})
	for _, seg := range segments {
		if room, ok := r.ResolveSegment(seg); ok {
			return room, true
		}
	}

	appLog.Debug("room: no match", "text", text)
	return "", false
}

// ResolveSegment runs the rule list over a single segment.
func (r *Resolver) ResolveSegment(segment string) (string, bool) {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return "", false
	}

	for _, rule := range r.rules {
		m := rule.Pattern.FindStringSubmatch(segment)
		if m == nil {
			continue
		}
		candidate := strings.TrimSpace(rule.Extract(m))
		if candidate == "" {
			continue
		}
		if !r.validator.Valid(candidate) {
			if appLog.Enabled(appLog.LevelDebug) {
				appLog.Debug("room: candidate rejected", "rule", rule.Name, "segment", segment, "candidate", candidate)
			}
			continue
		}
		if appLog.Enabled(appLog.LevelDebug) {
			appLog.Debug("room: resolved", "rule", rule.Name, "segment", segment, "room", candidate)
		}
		return candidate, true
	}
	return "", false
}

func buildRules(t Tables) []Rule {
	building := func(token string) string {
		return t.Buildings[strings.ToLower(token)]
	}

	return []Rule{
		{
			// FBS-GreatHall-100, FBS-SeminarRoom-L039, FBS-ConfA-L014
			Name:    "vendor-code",
			Pattern: regexp.MustCompile(`(?i)FBS-([a-z]+)-(L?\d{1,4}[a-z]?)`),
			Extract: func(m []string) string {
				name := building(m[1])
				if name == "" {
					return ""
				}
				return name + " " + roomNumber(m[2])
			},
		},
		{
			// "FBS GreatHall", "FBS-ConfA": building without a number.
			Name:    "vendor-default",
			Pattern: regexp.MustCompile(`(?i)\bFBS[-\s]+([a-z]+)\b`),
			Extract: func(m []string) string {
				name := building(m[1])
				num := t.DefaultNumbers[strings.ToLower(m[1])]
				if name == "" || num == "" {
					return ""
				}
				return name + " " + num
			},
		},
		{
			// "Great Hall 100", "seminar room l039"
			Name:    "hall-number",
			Pattern: regexp.MustCompile(`(?i)\b(great\s+hall|batten\s+hall|alumni\s+hall|seminar\s+room)\s+(L?\d{1,4}[a-z]?)\b`),
			Extract: func(m []string) string {
				return hallNames[strings.ToLower(collapseSpaces(m[1]))] + " " + roomNumber(m[2])
			},
		},
		{
			// "Batten 201", "Batten Hall Room 201"
			Name:    "batten-number",
			Pattern: regexp.MustCompile(`(?i)\b(batten)\s+(?:hall\s+)?(?:room\s+)?(\d{1,4}[a-z]?)\b`),
			Extract: func(m []string) string {
				return m[1] + " " + m[2]
			},
		},
		{
			Name:    "room-alnum",
			Pattern: regexp.MustCompile(`(?i)\broom\s+([a-z]*\d{1,4}[a-z]?)\b`),
			Extract: func(m []string) string {
				return "Room " + m[1]
			},
		},
		{
			Name:    "conference-room",
			Pattern: regexp.MustCompile(`(?i)\bconference\s+room\s+([a-z]\b|\d{1,4}[a-z]?\b)`),
			Extract: func(m []string) string {
				return "Conference Room " + m[1]
			},
		},
		{
			Name:    "room-simple",
			Pattern: regexp.MustCompile(`(?i)\broom\s+([a-z]|\d{1,4}[a-z]?)\b`),
			Extract: func(m []string) string {
				return "Room " + m[1]
			},
		},
	}
}

var hallNames = map[string]string{
	"great hall":   "Great Hall",
	"batten hall":  "Batten Hall",
	"alumni hall":  "Alumni Hall",
	"seminar room": "Seminar Room",
}

// roomNumber upper-cases the level prefix, so "l039" and "L039" agree.
func roomNumber(s string) string {
	if strings.HasPrefix(s, "l") {
		return "L" + s[1:]
	}
	return s
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Validator is the second, independent gate: a candidate must match an allow
// pattern and must not match any deny pattern.
type Validator struct {
	allow []*regexp.Regexp
	deny  []*regexp.Regexp
}

// NewValidator compiles allow and deny patterns.
func NewValidator(allow, deny []string) (*Validator, error) {
	v := &Validator{}
	for _, p := range allow {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("room: allow pattern %q: %w", p, err)
		}
		v.allow = append(v.allow, re)
	}
	for _, p := range deny {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("room: deny pattern %q: %w", p, err)
		}
		v.deny = append(v.deny, re)
	}
	return v, nil
}

// Valid reports whether candidate is an acceptable room name.
func (v *Validator) Valid(candidate string) bool {
	s := strings.ToLower(strings.TrimSpace(candidate))
	if s == "" {
		return false
	}

	allowed := false
	for _, re := range v.allow {
		if re.MatchString(s) {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}

	for _, re := range v.deny {
		if re.MatchString(s) {
			return false
		}
	}
	return true
}
