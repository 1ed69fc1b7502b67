package room

import (
	"sort"

	appLog "roomcal/internal/log"
)

// Normalizer is the closing pass over a parse: it strips placeholder rooms
// and folds aliases into canonical names.
type Normalizer struct {
	aliases      map[string]string
	placeholders map[string]struct{}
}

func NewNormalizer(t Tables) *Normalizer {
	t = t.WithDefaults()
	n := &Normalizer{
		aliases:      make(map[string]string, len(t.Aliases)),
		placeholders: make(map[string]struct{}, len(t.Placeholders)),
	}
	for k, v := range t.Aliases {
		n.aliases[k] = v
	}
	for _, p := range t.Placeholders {
		n.placeholders[p] = struct{}{}
	}
	return n
}

// Canonical returns the canonical form of a single room name.
func (n *Normalizer) Canonical(room string) string {
	if c, ok := n.aliases[room]; ok {
		return c
	}
	return room
}

// Normalize returns the sorted canonical room set and the rename map
// (alias -> canonical) that was applied to build it. Callers rewrite every
// event's room through the rename map.
func (n *Normalizer) Normalize(rooms map[string]struct{}) ([]string, map[string]string) {
	canonical := make(map[string]struct{}, len(rooms))
	renames := make(map[string]string)

	for r := range rooms {
		if _, ok := n.placeholders[r]; ok {
			appLog.Debug("room: dropping placeholder", "room", r)
			continue
		}
		c := n.Canonical(r)
		if c != r {
			renames[r] = c
			appLog.Debug("room: alias folded", "from", r, "to", c)
		}
		canonical[c] = struct{}{}
	}

	out := make([]string, 0, len(canonical))
	for r := range canonical {
		out = append(out, r)
	}
	sort.Strings(out)
	return out, renames
}
