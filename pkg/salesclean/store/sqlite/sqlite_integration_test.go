package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/cognicore/salesclean/pkg/salesclean/internalerr"
	"github.com/cognicore/salesclean/pkg/salesclean/stats"
	"github.com/cognicore/salesclean/pkg/salesclean/store"
)

func openTemp(t *testing.T) store.Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleRun(id string, at time.Time) store.Run {
	return store.Run{
		ID:          id,
		Source:      "ventas.csv",
		Destination: "datos_limpios.csv",
		StartedAt:   at,
		Duration:    1500 * time.Millisecond,
		Status:      store.StatusCompleted,
		Repair:      "shifted_sales_layout",
		Columns: []store.ColumnMapping{
			{From: "Fecha", To: "fecha", Method: "exact"},
			{From: "xyz", To: "columna_1", Method: "fallback"},
		},
		Dropped:   []string{"producto"},
		Countries: map[string]int{"Colombia": 3, "Desconocido": 1},
		Derived:   true,
		Stats: stats.Stats{
			OriginalRows:  4,
			FinalRows:     4,
			FinalColumns:  2,
			NullsByColumn: []stats.ColumnNulls{{Column: "fecha", Nulls: 0}, {Column: "columna_1", Nulls: 2}},
			Completeness:  75,
		},
	}
}

// TestSQLiteIntegrationRunRoundTrip saves a run and reads it back
func TestSQLiteIntegrationRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)

	want := sampleRun("01J0000000000000000000000A", time.Date(2024, 5, 1, 10, 0, 0, 123, time.UTC))
	if err := st.SaveRun(ctx, want); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := st.GetRun(ctx, want.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !got.StartedAt.Equal(want.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, want.StartedAt)
	}
	got.StartedAt = want.StartedAt
	if !reflect.DeepEqual(got, want) {
		t.Errorf("run mismatch:\n got %+v\nwant %+v", got, want)
	}
}

// TestSQLiteIntegrationUpsert replaces a run with the same ID
func TestSQLiteIntegrationUpsert(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)

	r := sampleRun("01J0000000000000000000000B", time.Now())
	if err := st.SaveRun(ctx, r); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	r.Status = store.StatusFailed
	r.Error = "stage map: boom"
	if err := st.SaveRun(ctx, r); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := st.GetRun(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != store.StatusFailed || got.Error != r.Error {
		t.Errorf("got status %q error %q", got.Status, got.Error)
	}
	runs, err := st.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("expected 1 run after upsert, got %d", len(runs))
	}
}

// TestSQLiteIntegrationListOrder lists newest first and honours the limit
func TestSQLiteIntegrationListOrder(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		r := store.Run{
			ID:        fmt.Sprintf("run-%d", i),
			Source:    fmt.Sprintf("file-%d.csv", i),
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			Status:    store.StatusCompleted,
		}
		if err := st.SaveRun(ctx, r); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	runs, err := st.ListRuns(ctx, 3)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	for i, want := range []string{"run-4", "run-3", "run-2"} {
		if runs[i].ID != want {
			t.Errorf("runs[%d] = %s, want %s", i, runs[i].ID, want)
		}
	}
	if runs[0].Columns != nil || runs[0].Countries != nil {
		t.Error("empty collections should read back as nil")
	}
}

func TestSQLiteIntegrationNotFound(t *testing.T) {
	st := openTemp(t)

	_, err := st.GetRun(context.Background(), "missing")
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := st.SaveRun(context.Background(), store.Run{}); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("SaveRun without id: err = %v, want ErrInvalidInput", err)
	}
}

// TestSQLiteIntegrationReopen checks runs survive closing the database
func TestSQLiteIntegrationReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	st, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := st.SaveRun(ctx, sampleRun("persisted", time.Now())); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	st.Close()

	st, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	if _, err := st.GetRun(ctx, "persisted"); err != nil {
		t.Errorf("GetRun after reopen: %v", err)
	}
}
