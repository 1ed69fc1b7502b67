package ics

import "strings"

// Unfold converts raw ICS text into logical lines, reversing RFC 5545 line
// folding: a physical line starting with a space or tab is a continuation
// and has its first character dropped before being appended to the previous
// line. Both CRLF and bare LF line endings are accepted.
//
// Each logical line is trimmed of surrounding whitespace. Empty lines are
// kept (as "") so callers can report positions; the parser skips them. A
// continuation with no preceding line is returned as a line of its own.
func Unfold(text string) []string {
	physical := strings.Split(text, "\n")
	lines := make([]string, 0, len(physical))

	var cur strings.Builder
	open := false
	flush := func() {
		if open {
			lines = append(lines, strings.TrimSpace(cur.String()))
			cur.Reset()
			open = false
		}
	}

	for _, p := range physical {
		p = strings.TrimSuffix(p, "\r")
		if open && p != "" && (p[0] == ' ' || p[0] == '\t') {
			cur.WriteString(p[1:])
			continue
		}
		flush()
		cur.WriteString(p)
		open = true
	}
	flush()

	return lines
}
