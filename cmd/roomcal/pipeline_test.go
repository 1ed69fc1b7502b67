package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomcal/internal/config"
	appLog "roomcal/internal/log"
	"roomcal/internal/model"
)

func TestMain(m *testing.M) {
	appLog.SetOutput(io.Discard)
	os.Exit(m.Run())
}

const battenICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:morning@example.com\r\n" +
	"DTSTART:20250828T090000Z\r\n" +
	"DTEND:20250828T100000Z\r\n" +
	"SUMMARY:Morning Meeting\r\n" +
	"LOCATION:Batten Hall Room 201\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

const confICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:conf@example.com\r\n" +
	"DTSTART:20250828T110000Z\r\n" +
	"DTEND:20250828T120000Z\r\n" +
	"SUMMARY:Budget Review\r\n" +
	"LOCATION:FBS-ConfA-L014\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func testPipeline(t *testing.T, files map[string]string, calendars ...config.CalendarConfig) *pipeline {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.CalendarDir = dir
	cfg.Calendars = calendars
	cfg.Normalize()

	p, err := newPipeline(cfg)
	require.NoError(t, err)
	return p
}

func TestPipelineDiscover(t *testing.T) {
	p := testPipeline(t, map[string]string{
		"batten.ics": battenICS,
		"conf.ics":   confICS,
		"notes.txt":  "ignored",
	})

	st, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Batten 201", "Conference Room A L014"}, st.Rooms())
	assert.Equal(t, "batten", st.Events()[0].Source)
}

func TestPipelineExplicitCalendars(t *testing.T) {
	p := testPipeline(t,
		map[string]string{"batten.ics": battenICS, "conf.ics": confICS},
		config.CalendarConfig{ID: "conf-a", Path: "conf.ics"},
		config.CalendarConfig{ID: "missing", Path: "missing.ics"},
	)

	st, err := p.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, st.Len())
	assert.Equal(t, "conf-a", st.Events()[0].Source)
}

func TestPipelineNothingLoads(t *testing.T) {
	_, err := testPipeline(t, nil).Load(context.Background())
	assert.ErrorIs(t, err, errNoCalendars)

	p := testPipeline(t, nil, config.CalendarConfig{ID: "gone", Path: "gone.ics"})
	_, err = p.Load(context.Background())
	assert.ErrorIs(t, err, errNoCalendars)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunOnce(t *testing.T) {
	p := testPipeline(t, map[string]string{"batten.ics": battenICS, "conf.ics": confICS})
	exportPath := filepath.Join(t.TempDir(), "out.ics")

	var buf bytes.Buffer
	require.NoError(t, runOnce(context.Background(), p, &buf, exportPath))

	var info model.DebugInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &info))
	assert.Equal(t, 2, info.TotalEvents)
	assert.Equal(t, []string{"Batten 201", "Conference Room A L014"}, info.Rooms)

	body, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	assert.Contains(t, string(body), "LOCATION:Conference Room A L014")

	// The export parses back to the same rooms.
	reparsed, err := p.parser.Parse(string(body))
	require.NoError(t, err)
	assert.Equal(t, info.Rooms, reparsed.Rooms())
}
