package pipeline

import (
	"context"
	"errors"

	"github.com/cognicore/salesclean/pkg/salesclean/table"
)

// Source yields raw tables for a batch run. A read error is counted as a
// failure and the batch moves on, so Next must advance past it.
type Source interface {
	Next(ctx context.Context) (name string, raw *table.Table, ok bool, err error)
}

// Sink receives each cleaned table.
type Sink func(ctx context.Context, name string, res *Result) error

// BatchResult summarizes a batch run.
type BatchResult struct {
	Processed int
	Cleaned   int
	Failed    int
	Failures  map[string]error
}

// Batch cleans every table from src one after another and hands the results
// to sink. Tables that fail to read, clean or persist are counted and
// skipped; the batch only stops early when ctx is done.
func (p *Pipeline) Batch(ctx context.Context, src Source, sink Sink) (BatchResult, error) {
	res := BatchResult{Failures: make(map[string]error)}
	if src == nil || sink == nil {
		return res, errors.New("batch: source and sink are required")
	}

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		name, raw, ok, err := src.Next(ctx)
		if err != nil {
			res.Failed++
			res.Failures[name] = err
			continue
		}
		if !ok {
			break
		}
		res.Processed++

		cleaned, err := p.Clean(raw)
		if err != nil {
			res.Failed++
			res.Failures[name] = err
			continue
		}
		if err := sink(ctx, name, cleaned); err != nil {
			res.Failed++
			res.Failures[name] = err
			p.log.Error("persisting cleaned table failed", "source", name, "error", err)
			continue
		}
		res.Cleaned++
	}
	return res, nil
}

// SliceSource is a Source over in-memory tables.
type SliceSource struct {
	Names  []string
	Tables []*table.Table
	next   int
}

// Next implements Source.
func (s *SliceSource) Next(context.Context) (string, *table.Table, bool, error) {
	if s.next >= len(s.Tables) {
		return "", nil, false, nil
	}
	i := s.next
	s.next++
	name := ""
	if i < len(s.Names) {
		name = s.Names[i]
	}
	return name, s.Tables[i], true, nil
}
