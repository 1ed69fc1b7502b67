package room

// Tables holds the institution-specific data used by the resolver and the
// normalizer. It is configuration, not logic: config.Config embeds it so a
// deployment can override any list from YAML.
type Tables struct {
	// Buildings maps a lower-cased vendor building token (the part after
	// "FBS-") to a human hall name.
	Buildings map[string]string `yaml:"buildings" json:"buildings"`

	// DefaultNumbers maps a lower-cased building token to the room number
	// assumed when the location names the building without a number.
	DefaultNumbers map[string]string `yaml:"default_numbers" json:"default_numbers"`

	// Aliases folds alternate room names into one canonical name.
	Aliases map[string]string `yaml:"aliases" json:"aliases"`

	// Placeholders are names that must never appear in the room set.
	Placeholders []string `yaml:"placeholders" json:"placeholders"`

	// AllowPatterns are the canonical room shapes; a candidate must match
	// one of them after trimming and lower-casing.
	AllowPatterns []string `yaml:"allow_patterns" json:"allow_patterns"`

	// DenyPatterns reject a candidate outright, even if a rule extracted it.
	DenyPatterns []string `yaml:"deny_patterns" json:"deny_patterns"`
}

// DefaultTables returns the tables tuned for the Batten School calendars.
func DefaultTables() Tables {
	return Tables{
		Buildings: map[string]string{
			"greathall":   "Great Hall",
			"battenhall":  "Batten Hall",
			"seminarroom": "Seminar Room",
			"confa":       "Conference Room A",
		},
		DefaultNumbers: map[string]string{
			"greathall":   "100",
			"seminarroom": "L039",
			"confa":       "L014",
		},
		Aliases: map[string]string{
			"Conference Room A": "Conference Room A L014",
			"Room A":            "Conference Room A L014",
		},
		Placeholders: []string{"Events Without Room", "Unknown Room"},
		AllowPatterns: []string{
			`(?i)^(great\s+hall|batten\s+hall|alumni\s+hall|seminar\s+room|conference\s+room\s+a)\s+(L?\d{1,4}[a-z]?)$`,
			`(?i)^batten\s+\d{1,4}[a-z]?$`,
			`(?i)^room\s+([a-z]\d*|\d{1,4}[a-z]?)$`,
			`(?i)^conference\s+room\s+([a-z]|\d{1,4}[a-z]?)$`,
		},
		DenyPatterns: []string{
			// "conference" is left out on purpose: denying it would reject
			// FBS-ConfA-L014 and break the "Room A" alias folding.
			`(?i)\b(zoom|teams|online|virtual|phone|meeting|call|session|training|dinner|workshop|cleaning|setup|teardown|retreat|dialogue|headshots|iftar|study)\b`,
			`@`,
			`(?i)\.(com|org|edu|gov)`,
			`(?i)\b(martin|luther|king|mpp|msa|council|economics|mental|health|constitution|day|evening|assistant)\b`,
			`^\d{4}$`,
			`(?i)\b(main|general|public|private|personal|staff|admin|office|temp|temporary)\b`,
		},
	}
}

// WithDefaults fills every nil/empty table from DefaultTables, so a config
// that overrides only one list keeps the others.
func (t Tables) WithDefaults() Tables {
	d := DefaultTables()
	if t.Buildings == nil {
		t.Buildings = d.Buildings
	}
	if t.DefaultNumbers == nil {
		t.DefaultNumbers = d.DefaultNumbers
	}
	if t.Aliases == nil {
		t.Aliases = d.Aliases
	}
	if t.Placeholders == nil {
		t.Placeholders = d.Placeholders
	}
	if len(t.AllowPatterns) == 0 {
		t.AllowPatterns = d.AllowPatterns
	}
	if len(t.DenyPatterns) == 0 {
		t.DenyPatterns = d.DenyPatterns
	}
	return t
}
