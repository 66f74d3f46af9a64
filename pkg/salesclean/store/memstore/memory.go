package memstore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/cognicore/salesclean/pkg/salesclean/internalerr"
	"github.com/cognicore/salesclean/pkg/salesclean/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu   sync.RWMutex
	runs map[string]store.Run
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{runs: make(map[string]store.Run)}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveRun implements store.Store.
func (s *Store) SaveRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("%w: run without id", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.ID] = copyRun(r)
	return nil
}

// GetRun implements store.Store.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return copyRun(r), nil
}

// ListRuns implements store.Store.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = store.DefaultListLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]store.Run, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, copyRun(r))
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.After(runs[j].StartedAt)
		}
		return runs[i].ID > runs[j].ID
	})
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func copyRun(r store.Run) store.Run {
	r.Columns = slices.Clone(r.Columns)
	r.Dropped = slices.Clone(r.Dropped)
	r.Countries = maps.Clone(r.Countries)
	r.Stats.NullsByColumn = slices.Clone(r.Stats.NullsByColumn)
	return r
}

var _ store.Store = (*Store)(nil)
