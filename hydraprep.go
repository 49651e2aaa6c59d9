// Package hydraprep prepares the hydraulic condition-monitoring dataset for
// modelling: it loads the raw sensor and fault-profile sources, names sensor
// columns by sample time, encodes fault states as ordinal severities with a
// composite fault id, joins everything into one aligned table and writes the
// sensor list, feature matrix and target matrix.
package hydraprep

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brunobiangulo/hydraprep/dataset"
	"github.com/brunobiangulo/hydraprep/joiner"
	"github.com/brunobiangulo/hydraprep/labeler"
	"github.com/brunobiangulo/hydraprep/loader"
	"github.com/brunobiangulo/hydraprep/parser"
	"github.com/brunobiangulo/hydraprep/publish"
	"github.com/brunobiangulo/hydraprep/store"
	"github.com/brunobiangulo/hydraprep/summary"
	"github.com/brunobiangulo/hydraprep/writer"
)

// Pipeline is the main entry point.
type Pipeline interface {
	// Run loads, labels, joins and writes one dataset. Nothing is written
	// when loading, labeling or joining fails.
	Run(ctx context.Context, opts ...RunOption) (*Result, error)

	// Runs lists recorded runs, newest first. Requires persistence.
	Runs(ctx context.Context) ([]store.Run, error)

	// GetRun returns one recorded run.
	GetRun(ctx context.Context, runID string) (*store.Run, error)

	// FaultClasses returns the fault id assignment of a recorded run.
	FaultClasses(ctx context.Context, runID string) ([]store.FaultClass, error)

	// TestRun returns one retained test run of a recorded run.
	TestRun(ctx context.Context, runID string, row int) (*store.TestRun, error)

	// SimilarTestRuns returns the k test runs of a recorded run whose
	// sensor profiles are nearest to the given one.
	SimilarTestRuns(ctx context.Context, runID string, row, k int) ([]store.Neighbor, error)

	// Store returns the underlying store, or nil when persistence is off.
	Store() *store.Store

	// Close releases the store.
	Close() error
}

// Result reports what a run produced.
type Result struct {
	RunID          string               `json:"run_id"`
	FilterMode     string               `json:"filter_mode"`
	Sensors        []string             `json:"sensors"`
	TestRuns       int                  `json:"test_runs"`
	FeatureColumns int                  `json:"feature_columns"`
	FaultClasses   []labeler.FaultClass `json:"fault_classes"`
	Outputs        []string             `json:"outputs"`
	Published      []string             `json:"published,omitempty"`
	DurationMs     int64                `json:"duration_ms"`
}

// RunOption overrides configuration for a single run.
type RunOption func(*runOptions)

type runOptions struct {
	rawDir     string
	outputDir  string
	stableOnly bool
	workbook   bool
}

// WithRawDir reads sources from dir.
func WithRawDir(dir string) RunOption {
	return func(o *runOptions) { o.rawDir = dir }
}

// WithOutputDir writes outputs to dir.
func WithOutputDir(dir string) RunOption {
	return func(o *runOptions) { o.outputDir = dir }
}

// WithStableOnly selects stable-only (true) or all (false) test runs.
func WithStableOnly(stable bool) RunOption {
	return func(o *runOptions) { o.stableOnly = stable }
}

// WithWorkbook toggles the report workbook.
func WithWorkbook(on bool) RunOption {
	return func(o *runOptions) { o.workbook = on }
}

// Prepared is the in-memory result of the transform, before writing.
type Prepared struct {
	Sensors []string
	Master  *joiner.MasterTable
	Classes []labeler.FaultClass
}

// Prepare labels and joins a loaded collection. Sensor tables in c are
// relabeled in place; the raw profile is left untouched.
func Prepare(c *dataset.Collection, mode labeler.FilterMode) (*Prepared, error) {
	raw, err := c.Lookup(dataset.ProfileSource)
	if err != nil {
		return nil, err
	}
	if err := labeler.LabelSensors(c); err != nil {
		return nil, fmt.Errorf("labeling sensors: %w", err)
	}
	profile, classes, err := labeler.LabelProfile(raw, mode)
	if err != nil {
		return nil, fmt.Errorf("labeling profile: %w", err)
	}
	sensors := dataset.SensorIDs(c.IDs())
	m, err := joiner.Join(c, sensors, profile)
	if err != nil {
		return nil, fmt.Errorf("joining: %w", err)
	}
	return &Prepared{Sensors: sensors, Master: m, Classes: classes}, nil
}

// pipeline is the concrete implementation of Pipeline.
type pipeline struct {
	cfg       Config
	loader    *loader.Loader
	store     *store.Store
	publisher *publish.Publisher

	mu sync.Mutex // one run at a time
}

// New creates a pipeline. The store is opened only when cfg.Persist is set
// and the publisher only when cfg.Publish is set.
func New(cfg Config) (Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := loader.New(parser.NewRegistry())
	l.StrictSampling = cfg.StrictSampling

	p := &pipeline{cfg: cfg, loader: l}

	if cfg.Persist {
		dim := len(dataset.SensorIDs(dataset.Sources()))
		s, err := store.New(cfg.resolveDBPath(), dim)
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		p.store = s
	}

	if cfg.Publish != nil {
		pub, err := publish.New(*cfg.Publish)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		p.publisher = pub
	}

	return p, nil
}

func (p *pipeline) Run(ctx context.Context, opts ...RunOption) (*Result, error) {
	o := runOptions{
		rawDir:     p.cfg.RawDir,
		outputDir:  p.cfg.OutputDir,
		stableOnly: p.cfg.StableOnly,
		workbook:   p.cfg.Workbook,
	}
	for _, fn := range opts {
		fn(&o)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	runID := uuid.New().String()
	mode := labeler.ModeFor(o.stableOnly)
	log := slog.With("run_id", runID)
	log.Info("run started", "raw_dir", o.rawDir, "output_dir", o.outputDir, "mode", mode.String())

	c, err := p.loader.Load(ctx, o.rawDir, dataset.Sources())
	if err != nil {
		return nil, err
	}

	prep, err := Prepare(c, mode)
	if err != nil {
		return nil, err
	}
	m := prep.Master

	outputs, err := writer.Write(ctx, o.outputDir, prep.Sensors, m)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:          runID,
		FilterMode:     mode.String(),
		Sensors:        prep.Sensors,
		TestRuns:       m.NumRows(),
		FeatureColumns: m.NumColumns(joiner.GroupFeatures),
		FaultClasses:   prep.Classes,
		Outputs:        outputs,
	}

	var sum *summary.Summary
	if o.workbook || p.store != nil {
		if sum, err = summary.Compute(m); err != nil {
			return nil, fmt.Errorf("summarizing: %w", err)
		}
	}

	if o.workbook {
		path, err := writer.WriteWorkbook(o.outputDir, m, prep.Classes, sum)
		if err != nil {
			return nil, fmt.Errorf("writing workbook: %w", err)
		}
		res.Outputs = append(res.Outputs, path)
	}

	if p.publisher != nil {
		keys, err := p.publisher.Publish(ctx, runID, res.Outputs)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPublishFailed, err)
		}
		res.Published = keys
	}

	res.DurationMs = time.Since(start).Milliseconds()

	if p.store != nil {
		if err := p.record(ctx, o, res, prep, sum); err != nil {
			return nil, fmt.Errorf("recording run: %w", err)
		}
	}

	log.Info("run complete", "test_runs", res.TestRuns, "feature_columns", res.FeatureColumns,
		"fault_classes", len(res.FaultClasses), "duration_ms", res.DurationMs)
	return res, nil
}

// record persists a finished run.
func (p *pipeline) record(ctx context.Context, o runOptions, res *Result, prep *Prepared, sum *summary.Summary) error {
	run := store.Run{
		ID:             res.RunID,
		RawDir:         o.rawDir,
		OutputDir:      o.outputDir,
		FilterMode:     res.FilterMode,
		TestRuns:       res.TestRuns,
		FaultClasses:   len(res.FaultClasses),
		FeatureColumns: res.FeatureColumns,
		Sensors:        res.Sensors,
		Outputs:        res.Outputs,
		DurationMs:     res.DurationMs,
	}

	classes := make([]store.FaultClass, len(prep.Classes))
	for i, c := range prep.Classes {
		classes[i] = store.FaultClass{
			FaultID:   c.ID,
			CoolerEff: c.State[0],
			ValvePerc: c.State[1],
			PumpLeak:  c.State[2],
			AccuPrs:   c.State[3],
			TestRuns:  c.TestRuns,
		}
	}

	m := prep.Master
	vectors := sum.Vectors()
	tests := make([]store.TestRun, m.NumRows())
	for i, label := range m.Index() {
		var targets [5]int
		for k, col := range labeler.TargetColumns {
			v, err := m.Target(col, i)
			if err != nil {
				return err
			}
			targets[k] = int(v)
		}
		stats := make([]store.SensorStat, len(sum.Sensors))
		for k, id := range sum.Sensors {
			st := sum.Rows[i][k]
			stats[k] = store.SensorStat{Sensor: id, Mean: st.Mean, StdDev: st.StdDev, Min: st.Min, Max: st.Max}
		}
		tests[i] = store.TestRun{
			RowIndex:  label,
			CoolerEff: targets[0],
			ValvePerc: targets[1],
			PumpLeak:  targets[2],
			AccuPrs:   targets[3],
			FaultID:   targets[4],
			Stats:     stats,
			Embedding: vectors[i],
		}
	}

	return p.store.SaveRun(ctx, run, classes, tests)
}

func (p *pipeline) Runs(ctx context.Context) ([]store.Run, error) {
	if p.store == nil {
		return nil, ErrStoreDisabled
	}
	return p.store.ListRuns(ctx)
}

func (p *pipeline) GetRun(ctx context.Context, runID string) (*store.Run, error) {
	if p.store == nil {
		return nil, ErrStoreDisabled
	}
	r, err := p.store.GetRun(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return r, err
}

func (p *pipeline) FaultClasses(ctx context.Context, runID string) ([]store.FaultClass, error) {
	if _, err := p.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return p.store.FaultClasses(ctx, runID)
}

func (p *pipeline) TestRun(ctx context.Context, runID string, row int) (*store.TestRun, error) {
	if _, err := p.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	t, err := p.store.GetTestRun(ctx, runID, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTestRunNotFound
	}
	return t, err
}

func (p *pipeline) SimilarTestRuns(ctx context.Context, runID string, row, k int) ([]store.Neighbor, error) {
	if _, err := p.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = 5
	}
	n, err := p.store.SimilarTestRuns(ctx, runID, row, k)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTestRunNotFound
	}
	return n, err
}

func (p *pipeline) Store() *store.Store { return p.store }

func (p *pipeline) Close() error {
	if p.store != nil {
		return p.store.Close()
	}
	return nil
}
