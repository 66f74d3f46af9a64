package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/cognicore/salesclean/pkg/salesclean/internalerr"
	"github.com/cognicore/salesclean/pkg/salesclean/stats"
	"github.com/cognicore/salesclean/pkg/salesclean/store"
	"github.com/cognicore/salesclean/pkg/salesclean/store/sqlite"
)

type runJSON struct {
	ID          string                `json:"id"`
	Source      string                `json:"source"`
	Destination string                `json:"destination,omitempty"`
	StartedAt   time.Time             `json:"started_at"`
	DurationMS  int64                 `json:"duration_ms"`
	Status      store.Status          `json:"status"`
	Error       string                `json:"error,omitempty"`
	Repair      string                `json:"repair,omitempty"`
	Columns     []store.ColumnMapping `json:"columns,omitempty"`
	Dropped     []string              `json:"dropped,omitempty"`
	Countries   map[string]int        `json:"countries,omitempty"`
	Derived     bool                  `json:"derived"`
	Stats       *stats.Stats          `json:"stats,omitempty"`
}

type summaryJSON struct {
	ID           string       `json:"id"`
	Source       string       `json:"source"`
	StartedAt    time.Time    `json:"started_at"`
	Status       store.Status `json:"status"`
	FinalRows    int          `json:"final_rows"`
	Completeness float64      `json:"completeness"`
}

func main() {
	var (
		dbPath = flag.String("db", "", "SQLite run history written by salesclean --db (required)")
		id     = flag.String("id", "", "Show the full record of one run")
		limit  = flag.Int("limit", store.DefaultListLimit, "Number of recent runs to list")
	)
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("--db required")
	}

	ctx := context.Background()
	st, err := sqlite.OpenSQLite(ctx, *dbPath)
	if err != nil {
		log.Fatalf("open run history: %v", err)
	}
	defer st.Close()

	var report any
	if *id != "" {
		run, err := st.GetRun(ctx, *id)
		if errors.Is(err, internalerr.ErrNotFound) {
			log.Fatalf("run %s not found", *id)
		}
		if err != nil {
			log.Fatalf("get run: %v", err)
		}
		report = toJSON(run)
	} else {
		runs, err := st.ListRuns(ctx, *limit)
		if err != nil {
			log.Fatalf("list runs: %v", err)
		}
		list := make([]summaryJSON, 0, len(runs))
		for _, r := range runs {
			list = append(list, summaryJSON{
				ID:           r.ID,
				Source:       r.Source,
				StartedAt:    r.StartedAt,
				Status:       r.Status,
				FinalRows:    r.Stats.FinalRows,
				Completeness: r.Stats.Completeness,
			})
		}
		report = list
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("marshal report: %v", err)
	}
	fmt.Println(string(out))
}

func toJSON(r store.Run) runJSON {
	out := runJSON{
		ID:          r.ID,
		Source:      r.Source,
		Destination: r.Destination,
		StartedAt:   r.StartedAt,
		DurationMS:  r.Duration.Milliseconds(),
		Status:      r.Status,
		Error:       r.Error,
		Repair:      r.Repair,
		Columns:     r.Columns,
		Dropped:     r.Dropped,
		Countries:   r.Countries,
		Derived:     r.Derived,
	}
	if r.Status == store.StatusCompleted {
		out.Stats = &r.Stats
	}
	return out
}
