// Package pipeline sequences the cleaning stages:
// repair → map → dedupe → geo → clean → derive → reorder → stats.
package pipeline

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/cognicore/salesclean/pkg/salesclean/classify"
	"github.com/cognicore/salesclean/pkg/salesclean/clean"
	"github.com/cognicore/salesclean/pkg/salesclean/config"
	"github.com/cognicore/salesclean/pkg/salesclean/derive"
	"github.com/cognicore/salesclean/pkg/salesclean/geo"
	"github.com/cognicore/salesclean/pkg/salesclean/internalerr"
	"github.com/cognicore/salesclean/pkg/salesclean/mapping"
	"github.com/cognicore/salesclean/pkg/salesclean/repair"
	"github.com/cognicore/salesclean/pkg/salesclean/stats"
	"github.com/cognicore/salesclean/pkg/salesclean/table"
)

// Stage names, as reported in StageError and log lines.
const (
	StageRepair  = "repair"
	StageMap     = "map"
	StageDedupe  = "dedupe"
	StageGeo     = "geo"
	StageClean   = "clean"
	StageDerive  = "derive"
	StageReorder = "reorder"
	StageStats   = "stats"
	StageDetect  = "detect"
)

// StageError reports the stage that aborted a run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

// Unwrap exposes both internalerr.ErrStageFailed and the cause.
func (e *StageError) Unwrap() []error {
	return []error{internalerr.ErrStageFailed, e.Err}
}

// Options configures a Pipeline. Nil collaborators are built from Config.
type Options struct {
	Config   config.Config
	Logger   *slog.Logger
	Matcher  mapping.Matcher
	Resolver geo.Resolver
	Repairer *repair.Repairer
}

// Pipeline cleans raw tables. It holds no per-run state, so one Pipeline
// can be reused for any number of tables.
type Pipeline struct {
	cfg        config.Config
	log        *slog.Logger
	matcher    mapping.Matcher
	resolver   geo.Resolver
	repairer   *repair.Repairer
	cleaner    *clean.Cleaner
	classifier *classify.Classifier
}

// New validates opts.Config and assembles the stages.
func New(opts Options) (*Pipeline, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dates, err := classify.NewDateRule(cfg.Rules.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", internalerr.ErrInvalidConfig, err)
	}

	p := &Pipeline{
		cfg:      cfg,
		log:      opts.Logger,
		matcher:  opts.Matcher,
		resolver: opts.Resolver,
		repairer: opts.Repairer,
		cleaner:  clean.New(cfg),
		classifier: &classify.Classifier{
			SampleSize: cfg.SampleSize,
			Seed:       cfg.SampleSeed,
			Dates:      dates,
		},
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	if p.matcher == nil {
		p.matcher = mapping.NewHeuristic(cfg.Schema)
	}
	if p.resolver == nil {
		cities := geo.FromConfig(cfg)
		if dups := cities.Duplicates(); len(dups) > 0 {
			p.log.Debug("city table has duplicate keys, last entry wins", "cities", dups)
		}
		p.resolver = cities
	}
	if p.repairer == nil {
		p.repairer = repair.Default(cfg)
	}
	return p, nil
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() config.Config { return p.cfg }

// Result is the outcome of one Clean call.
type Result struct {
	Table          *table.Table
	Stats          stats.Stats
	Mapping        mapping.Mapping
	Repair         string // applied repair strategy, empty if none
	DroppedColumns []string
	Countries      []geo.CountryCount
	Cleaning       clean.Report
	Derived        bool
}

// Clean runs every stage on a copy of raw. If a stage fails the returned
// Result holds an empty table and zero stats, and the error is a
// *StageError.
func (p *Pipeline) Clean(raw *table.Table) (*Result, error) {
	originalRows := raw.Len()
	t := raw.Clone()
	res := &Result{}

	stages := []struct {
		name string
		run  func() error
	}{
		{StageRepair, func() error {
			out, applied, err := p.repairer.Repair(t)
			if err != nil {
				p.log.Warn("structure repair failed, keeping original layout", "error", err)
			}
			if applied != "" {
				p.log.Info("structure repaired", "strategy", applied, "cols", out.Width())
			}
			t, res.Repair = out, applied
			return nil
		}},
		{StageMap, func() error {
			res.Mapping = p.matcher.Match(t.Columns)
			res.Mapping.Apply(t)
			for _, a := range res.Mapping.Renamed() {
				p.log.Debug("column renamed", "from", a.Source, "to", a.Target, "method", string(a.Method))
			}
			return nil
		}},
		{StageDedupe, func() error {
			res.DroppedColumns = t.DropDuplicateColumns()
			if len(res.DroppedColumns) > 0 {
				p.log.Info("duplicate columns dropped", "columns", res.DroppedColumns)
			}
			return nil
		}},
		{StageGeo, func() error {
			res.Countries = geo.ResolveTable(t, p.resolver)
			if res.Countries != nil {
				p.log.Info("countries detected", "countries", countryAttrs(res.Countries))
			}
			return nil
		}},
		{StageClean, func() error {
			res.Cleaning = p.cleaner.Clean(t)
			return nil
		}},
		{StageDerive, func() error {
			res.Derived = derive.Totals(t, p.cleaner)
			if res.Derived {
				p.log.Info("total sales derived", "column", config.FieldTotal)
			}
			return nil
		}},
		{StageReorder, func() error {
			t = t.Select(Order(t.Columns, p.cfg.PreferredOrder))
			return nil
		}},
		{StageStats, func() error {
			res.Stats = stats.Compute(originalRows, t)
			return nil
		}},
	}

	for _, s := range stages {
		if err := runStage(s.name, s.run); err != nil {
			p.log.Error("cleaning aborted", "stage", s.name, "error", err)
			return &Result{Table: table.New(nil)}, err
		}
		p.log.Debug("stage complete", "stage", s.name, "rows", t.Len(), "cols", t.Width())
	}

	res.Table = t
	p.log.Info("cleaning complete",
		"rows", res.Stats.FinalRows,
		"cols", res.Stats.FinalColumns,
		"completeness", fmt.Sprintf("%.1f", res.Stats.Completeness))
	return res, nil
}

func runStage(name string, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &StageError{Stage: name, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	if err := fn(); err != nil {
		return &StageError{Stage: name, Err: err}
	}
	return nil
}

// Order returns the column positions for columns: names from preferred
// first, in that order, then the rest alphabetically.
func Order(columns, preferred []string) []int {
	pos := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, ok := pos[c]; !ok {
			pos[c] = i
		}
	}

	idx := make([]int, 0, len(columns))
	placed := make(map[int]struct{}, len(columns))
	for _, name := range preferred {
		i, ok := pos[name]
		if !ok {
			continue
		}
		if _, dup := placed[i]; dup {
			continue
		}
		placed[i] = struct{}{}
		idx = append(idx, i)
	}

	var rest []int
	for i := range columns {
		if _, ok := placed[i]; !ok {
			rest = append(rest, i)
		}
	}
	sort.SliceStable(rest, func(a, b int) bool { return columns[rest[a]] < columns[rest[b]] })
	return append(idx, rest...)
}

func countryAttrs(cc []geo.CountryCount) map[string]int {
	out := make(map[string]int, len(cc))
	for _, c := range cc {
		out[c.Country] = c.Rows
	}
	return out
}

// StructureReport describes a raw table before cleaning.
type StructureReport struct {
	Rows     int
	Columns  []string // as read
	Repair   string
	Mapping  mapping.Mapping
	Profiles []classify.ColumnProfile
	Preview  *table.Table
}

// Detect inspects the first DetectRows rows of raw: it applies structure
// repair, proposes a mapping and profiles every column. raw is not modified.
func (p *Pipeline) Detect(raw *table.Table) (StructureReport, error) {
	head := raw
	if n := p.cfg.DetectRows; n > 0 && raw.Len() > n {
		head = raw.Head(n)
	}
	report := StructureReport{
		Rows:    head.Len(),
		Columns: slices.Clone(raw.Columns),
	}

	err := runStage(StageDetect, func() error {
		t, applied, rerr := p.repairer.Repair(head)
		if rerr != nil {
			p.log.Warn("structure repair failed, keeping original layout", "error", rerr)
		}
		report.Repair = applied
		report.Mapping = p.matcher.Match(t.Columns)
		report.Profiles = p.classifier.Profile(t)
		report.Preview = t.Head(p.cfg.PreviewRows)
		return nil
	})
	if err != nil {
		return StructureReport{}, err
	}
	return report, nil
}
