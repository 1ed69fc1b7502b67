package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer(DefaultTables())

	rooms := map[string]struct{}{
		"Room A":                 {},
		"Conference Room A":      {},
		"Conference Room A L014": {},
		"Unknown Room":           {},
		"Events Without Room":    {},
		"Great Hall 100":         {},
	}

	got, renames := n.Normalize(rooms)

	assert.Equal(t, []string{"Conference Room A L014", "Great Hall 100"}, got)
	assert.Equal(t, map[string]string{
		"Room A":            "Conference Room A L014",
		"Conference Room A": "Conference Room A L014",
	}, renames)
}

func TestNormalizeCustomAliases(t *testing.T) {
	tables := DefaultTables()
	tables.Aliases = map[string]string{"Batten 201": "Batten Hall 201"}
	n := NewNormalizer(tables)

	got, renames := n.Normalize(map[string]struct{}{
		"Batten 201": {},
		"Room A":     {},
	})

	assert.Equal(t, []string{"Batten Hall 201", "Room A"}, got)
	assert.Equal(t, map[string]string{"Batten 201": "Batten Hall 201"}, renames)
}

func TestWithDefaultsKeepsOverrides(t *testing.T) {
	tables := Tables{Placeholders: []string{"TBD"}}.WithDefaults()

	assert.Equal(t, []string{"TBD"}, tables.Placeholders)
	assert.Equal(t, DefaultTables().Aliases, tables.Aliases)
	assert.Equal(t, DefaultTables().DenyPatterns, tables.DenyPatterns)
}
