package ics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	appLog "roomcal/internal/log"
)

// ErrNotICS is returned for source paths without an .ics extension.
var ErrNotICS = errors.New("ics: not an .ics file")

// Source is a single calendar file, typically one room's feed written to
// disk by an external fetcher.
type Source struct {
	// ID is an internal identifier (e.g., config calendar ID).
	ID string
	// Path is the ICS file location.
	Path string
}

// LoadResult contains the outcome of reading a single source.
type LoadResult struct {
	Source Source
	Body   []byte
}

// Payload converts the result for Parser.ParseSources.
func (r LoadResult) Payload() Payload {
	return Payload{Source: r.Source.ID, Body: string(r.Body)}
}

// Loader reads calendar files from disk.
type Loader struct {
	dir string
}

// NewLoader creates a Loader. dir is used for relative source paths and for
// Discover.
func NewLoader(dir string) *Loader {
	if dir == "" {
		dir = "."
	}
	return &Loader{dir: dir}
}

// Discover lists every *.ics file in the loader directory, sorted by name.
// Paths are relative to the directory; the file name without extension
// becomes the source ID.
func (l *Loader) Discover() ([]Source, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}

	sources := make([]Source, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".ics") {
			continue
		}
		sources = append(sources, Source{
			ID:   strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			Path: e.Name(),
		})
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Path < sources[j].Path })
	return sources, nil
}

// LoadAll reads all given sources and returns individual results.
// Errors for individual sources are logged and returned in the error slice.
//
// The returned slice of results will only contain entries for sources that
// successfully produced a body.
func (l *Loader) LoadAll(ctx context.Context, sources []Source) ([]LoadResult, []error) {
	results := make([]LoadResult, 0, len(sources))
	errs := make([]error, 0)

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := l.LoadOne(src)
		if err != nil {
			errs = append(errs, err)
			appLog.Error("ics load failed", err, "id", src.ID, "path", src.Path)
			continue
		}
		results = append(results, res)
	}

	return results, errs
}

// LoadOne reads a single source. Non-.ics paths and empty files are
// rejected.
func (l *Loader) LoadOne(src Source) (LoadResult, error) {
	if src.Path == "" {
		return LoadResult{}, fmt.Errorf("source %s: empty path", src.ID)
	}
	if !strings.EqualFold(filepath.Ext(src.Path), ".ics") {
		return LoadResult{}, fmt.Errorf("source %s: %w", src.ID, ErrNotICS)
	}

	path := src.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.dir, path)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("source %s: %w", src.ID, err)
	}
	if strings.TrimSpace(string(body)) == "" {
		return LoadResult{}, fmt.Errorf("source %s: %w", src.ID, ErrEmptyPayload)
	}

	appLog.Debug("ics load success", "id", src.ID, "path", path, "bytes", len(body))
	return LoadResult{Source: src, Body: body}, nil
}
