package store

import (
	"context"
	"time"

	"github.com/cognicore/salesclean/pkg/salesclean/stats"
)

// Store persists the history of cleaning runs.
type Store interface {
	Close() error

	// SaveRun inserts the run, or replaces the run with the same ID.
	SaveRun(ctx context.Context, r Run) error
	// GetRun returns internalerr.ErrNotFound for an unknown ID.
	GetRun(ctx context.Context, id string) (Run, error)
	// ListRuns returns the most recent runs first. limit <= 0 means 20.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// Status is the outcome of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run records one cleaning run.
type Run struct {
	ID          string // ULID
	Source      string
	Destination string
	StartedAt   time.Time
	Duration    time.Duration
	Status      Status
	Error       string

	Repair    string          // applied repair strategy
	Columns   []ColumnMapping // input column → output column
	Dropped   []string        // duplicate output columns removed
	Countries map[string]int
	Derived   bool // total_ventas was computed
	Stats     stats.Stats
}

// ColumnMapping is one renamed input column.
type ColumnMapping struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Method string `json:"method"`
}

// DefaultListLimit applies when ListRuns is called with limit <= 0.
const DefaultListLimit = 20
