package salesclean

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/salesclean/pkg/salesclean/pipeline"
	"github.com/cognicore/salesclean/pkg/salesclean/store"
	"github.com/cognicore/salesclean/pkg/salesclean/table"
	"github.com/cognicore/salesclean/pkg/salesclean/tabular"
)

// Cleaner is the file-level facade: it reads a tabular file, cleans it,
// writes the result and records the run.
type Cleaner struct {
	pipe  *pipeline.Pipeline
	store store.Store
	log   *slog.Logger
	now   func() time.Time

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Options configures a Cleaner. Store is optional; without one runs are
// not recorded.
type Options struct {
	Pipeline *pipeline.Pipeline
	Store    store.Store
	Logger   *slog.Logger
	Now      func() time.Time
}

// New creates a Cleaner with the given dependencies
func New(opts Options) (*Cleaner, error) {
	if opts.Pipeline == nil {
		return nil, errors.New("salesclean: pipeline is required")
	}
	c := &Cleaner{
		pipe:    opts.Pipeline,
		store:   opts.Store,
		log:     opts.Logger,
		now:     opts.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// Close closes the run store, if any.
func (c *Cleaner) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

// Report is what Run returns to the caller for display.
type Report struct {
	RunID     string
	Structure pipeline.StructureReport
	Result    *pipeline.Result
}

// Run cleans the file at in and writes the result to out. The formats
// follow the file extensions. A failed run writes nothing to out; it is
// still recorded, and the returned Report carries its ID.
func (c *Cleaner) Run(ctx context.Context, in, out string) (*Report, error) {
	started := c.now()
	rep := &Report{RunID: c.newID(started)}
	log := c.log.With("run", rep.RunID, "source", in)

	err := func() error {
		raw, err := tabular.Open(in)
		if err != nil {
			return err
		}
		log.Info("file loaded", "rows", raw.Len(), "cols", raw.Width())

		if rep.Structure, err = c.pipe.Detect(raw); err != nil {
			return err
		}
		if rep.Result, err = c.pipe.Clean(raw); err != nil {
			return err
		}
		return c.persist(out, rep.Result.Table)
	}()

	run := c.runRecord(rep, in, out, started)
	if err != nil {
		run.Status, run.Error = store.StatusFailed, err.Error()
		log.Error("cleaning run failed", "error", err)
	} else {
		log.Info("cleaned data saved", "destination", out)
	}
	if rerr := c.record(ctx, run); rerr != nil && err == nil {
		err = rerr
	}
	return rep, err
}

func (c *Cleaner) persist(out string, t *table.Table) error {
	if dropped := t.DropDuplicateColumns(); len(dropped) > 0 {
		c.log.Warn("duplicate columns dropped before saving", "columns", dropped)
	}
	return tabular.Save(out, t)
}

// DirResult summarizes RunDir.
type DirResult struct {
	pipeline.BatchResult
	Outputs map[string]string // source → destination
}

// RunDir cleans every supported file in dir, writing "<name>_limpio<ext>"
// files into outDir. Files are processed in name order; a failing file is
// recorded and skipped.
func (c *Cleaner) RunDir(ctx context.Context, dir, outDir string) (DirResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return DirResult{}, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && tabular.Supported(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return DirResult{}, fmt.Errorf("create %s: %w", outDir, err)
	}

	res := DirResult{Outputs: make(map[string]string)}
	recorded := make(map[string]struct{})
	src := &fileSource{paths: paths, now: c.now, started: make(map[string]time.Time)}
	sink := func(ctx context.Context, path string, r *pipeline.Result) error {
		started := src.startedAt(path)
		out := OutputPath(path, outDir)
		rep := &Report{RunID: c.newID(started), Result: r}
		recorded[path] = struct{}{}
		perr := c.persist(out, r.Table)
		run := c.runRecord(rep, path, out, started)
		if perr != nil {
			run.Status, run.Error = store.StatusFailed, perr.Error()
			if rerr := c.record(ctx, run); rerr != nil {
				c.log.Warn("recording failed run", "source", path, "error", rerr)
			}
			return perr
		}
		res.Outputs[path] = out
		return c.record(ctx, run)
	}

	br, err := c.pipe.Batch(ctx, src, sink)
	res.BatchResult = br
	for path, ferr := range br.Failures {
		if _, ok := recorded[path]; ok {
			continue
		}
		started := src.startedAt(path)
		run := store.Run{
			ID:        c.newID(started),
			Source:    path,
			StartedAt: started,
			Duration:  c.now().Sub(started),
			Status:    store.StatusFailed,
			Error:     ferr.Error(),
		}
		if rerr := c.record(ctx, run); rerr != nil {
			c.log.Warn("recording failed run", "source", path, "error", rerr)
		}
	}
	return res, err
}

// OutputPath is the destination RunDir uses for src.
func OutputPath(src, outDir string) string {
	base := filepath.Base(src)
	ext := filepath.Ext(base)
	return filepath.Join(outDir, strings.TrimSuffix(base, ext)+"_limpio"+ext)
}

// fileSource opens paths in order and remembers when each file was opened,
// so every run is timed from its own start.
type fileSource struct {
	paths   []string
	next    int
	now     func() time.Time
	started map[string]time.Time
}

func (s *fileSource) Next(ctx context.Context) (string, *table.Table, bool, error) {
	if s.next >= len(s.paths) {
		return "", nil, false, nil
	}
	path := s.paths[s.next]
	s.next++
	s.started[path] = s.now()
	t, err := tabular.Open(path)
	if err != nil {
		return path, nil, false, err
	}
	return path, t, true, nil
}

func (s *fileSource) startedAt(path string) time.Time {
	if t, ok := s.started[path]; ok {
		return t
	}
	return s.now()
}

func (c *Cleaner) newID(at time.Time) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), c.entropy).String()
}

func (c *Cleaner) runRecord(rep *Report, in, out string, started time.Time) store.Run {
	run := store.Run{
		ID:          rep.RunID,
		Source:      in,
		Destination: out,
		StartedAt:   started,
		Duration:    c.now().Sub(started),
		Status:      store.StatusCompleted,
	}
	if r := rep.Result; r != nil {
		run.Repair = r.Repair
		run.Dropped = r.DroppedColumns
		run.Derived = r.Derived
		run.Stats = r.Stats
		for _, a := range r.Mapping.Assignments {
			run.Columns = append(run.Columns, store.ColumnMapping{From: a.Source, To: a.Target, Method: string(a.Method)})
		}
		if len(r.Countries) > 0 {
			run.Countries = make(map[string]int, len(r.Countries))
			for _, cc := range r.Countries {
				run.Countries[cc.Country] = cc.Rows
			}
		}
	}
	return run
}

func (c *Cleaner) record(ctx context.Context, run store.Run) error {
	if c.store == nil {
		return nil
	}
	if err := c.store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}
