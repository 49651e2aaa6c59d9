// Package loader reads the fixed set of raw dataset sources into a
// dataset.Collection. Loading is all-or-nothing.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/brunobiangulo/hydraprep/dataset"
	"github.com/brunobiangulo/hydraprep/parser"
)

// ProfileColumns is the number of raw columns of the fault-profile source.
const ProfileColumns = 5

// Loader resolves and parses sources from one directory.
type Loader struct {
	parsers *parser.Registry

	// StrictSampling requires every catalogued sensor to carry exactly
	// rate*60 samples per test run.
	StrictSampling bool
}

func New(reg *parser.Registry) *Loader {
	if reg == nil {
		reg = parser.NewRegistry()
	}
	return &Loader{parsers: reg}
}

// Load reads every source in ids from dir. The first missing or malformed
// source aborts the load and no collection is returned.
func (l *Loader) Load(ctx context.Context, dir string, ids []string) (*dataset.Collection, error) {
	c := dataset.NewCollection()
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path, format, err := l.resolve(dir, id)
		if err != nil {
			return nil, err
		}
		p, err := l.parsers.Get(format)
		if err != nil {
			return nil, err
		}

		t, err := p.Parse(ctx, id, path)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", id, err)
		}
		if err := l.check(id, t); err != nil {
			return nil, fmt.Errorf("loading %s: %w", id, err)
		}

		slog.Info("loaded source", "source", id, "path", path, "rows", t.NumRows(), "columns", t.NumCols())
		c.Put(id, t)
	}
	return c, nil
}

// resolve finds the file for id by trying each registered format in order.
func (l *Loader) resolve(dir, id string) (string, string, error) {
	for _, format := range l.parsers.Formats() {
		path := filepath.Join(dir, id+"."+format)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, format, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", "", fmt.Errorf("checking %s: %w", path, err)
		}
	}
	return "", "", &dataset.MissingSourceError{Source: id, Path: dir, Err: fs.ErrNotExist}
}

func (l *Loader) check(id string, t *dataset.Table) error {
	if id == dataset.ProfileSource {
		if t.NumCols() != ProfileColumns {
			return &dataset.MalformedSourceError{
				Source: id, Row: -1, Column: -1,
				Reason: fmt.Sprintf("has %d columns, want %d", t.NumCols(), ProfileColumns),
			}
		}
		return nil
	}
	if !l.StrictSampling {
		return nil
	}
	s, ok := dataset.LookupSensor(id)
	if !ok {
		return nil
	}
	if t.NumCols() != s.Samples() {
		return &dataset.MalformedSourceError{
			Source: id, Row: -1, Column: -1,
			Reason: fmt.Sprintf("has %d samples per test run, want %d at %d Hz", t.NumCols(), s.Samples(), s.RateHz),
		}
	}
	return nil
}
