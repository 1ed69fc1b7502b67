package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"roomcal/internal/config"
	"roomcal/internal/ics"
	appLog "roomcal/internal/log"
	"roomcal/internal/store"
)

var errNoCalendars = errors.New("no calendar files to load")

// pipeline loads the configured calendar files and parses them into a store.
type pipeline struct {
	cfg    *config.Config
	loader *ics.Loader
	parser *ics.Parser
}

func newPipeline(cfg *config.Config) (*pipeline, error) {
	parser, err := ics.NewParser(ics.Options{
		Location:      cfg.Location(),
		HorizonMonths: cfg.RecurrenceHorizonMonths,
		Rooms:         cfg.Rooms,
	})
	if err != nil {
		return nil, err
	}
	return &pipeline{
		cfg:    cfg,
		loader: ics.NewLoader(cfg.CalendarDir),
		parser: parser,
	}, nil
}

// Load reads every calendar and parses them together. Individual files that
// fail to load are logged and skipped; Load fails only when nothing loads.
func (p *pipeline) Load(ctx context.Context) (*store.Store, error) {
	sources := p.cfg.Sources()
	if len(sources) == 0 {
		discovered, err := p.loader.Discover()
		if err != nil {
			return nil, fmt.Errorf("discover calendars in %s: %w", p.cfg.CalendarDir, err)
		}
		sources = discovered
	}
	if len(sources) == 0 {
		return nil, errNoCalendars
	}

	results, errs := p.loader.LoadAll(ctx, sources)
	if len(results) == 0 {
		return nil, errors.Join(append([]error{errNoCalendars}, errs...)...)
	}
	if len(errs) > 0 {
		appLog.Warn("some calendars failed to load", "failed", len(errs), "loaded", len(results))
	}

	payloads := make([]ics.Payload, 0, len(results))
	for _, res := range results {
		payloads = append(payloads, res.Payload())
	}
	return p.parser.ParseSources(payloads)
}

// runOnce loads the calendars, prints the debug summary as JSON to w and,
// when exportPath is set, writes the normalized events as an .ics file.
func runOnce(ctx context.Context, p *pipeline, w io.Writer, exportPath string) error {
	st, err := p.Load(ctx)
	if err != nil {
		return err
	}

	if err := writeJSONIndent(w, st.Debug()); err != nil {
		return err
	}

	if exportPath == "" {
		return nil
	}
	f, err := os.Create(exportPath)
	if err != nil {
		return err
	}
	if err := ics.WriteICS(f, st.Events(), ics.ExportOptions{CalendarName: "roomcal"}); err != nil {
		f.Close()
		return err
	}
	appLog.Info("exported calendar", "path", exportPath, "events", st.Len())
	return f.Close()
}
