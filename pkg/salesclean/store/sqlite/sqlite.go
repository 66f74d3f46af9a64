package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/salesclean/pkg/salesclean/internalerr"
	"github.com/cognicore/salesclean/pkg/salesclean/store"
)

// timeLayout is fixed-width so started_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// sqliteStore implements store.Store using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a run-history database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	destination TEXT,
	started_at TEXT NOT NULL,
	duration_ns INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error TEXT,
	repair TEXT,
	columns TEXT,
	dropped TEXT,
	countries TEXT,
	derived INTEGER NOT NULL DEFAULT 0,
	stats TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// SaveRun inserts or replaces a run
func (s *sqliteStore) SaveRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("%w: run without id", internalerr.ErrInvalidInput)
	}

	columnsJSON, err := json.Marshal(r.Columns)
	if err != nil {
		return err
	}
	droppedJSON, err := json.Marshal(r.Dropped)
	if err != nil {
		return err
	}
	countriesJSON, err := json.Marshal(r.Countries)
	if err != nil {
		return err
	}
	statsJSON, err := json.Marshal(r.Stats)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO runs (id, source, destination, started_at, duration_ns, status, error, repair, columns, dropped, countries, derived, stats)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	source=excluded.source,
	destination=excluded.destination,
	started_at=excluded.started_at,
	duration_ns=excluded.duration_ns,
	status=excluded.status,
	error=excluded.error,
	repair=excluded.repair,
	columns=excluded.columns,
	dropped=excluded.dropped,
	countries=excluded.countries,
	derived=excluded.derived,
	stats=excluded.stats;
`,
		r.ID, r.Source, r.Destination, r.StartedAt.UTC().Format(timeLayout), int64(r.Duration),
		string(r.Status), r.Error, r.Repair,
		string(columnsJSON), string(droppedJSON), string(countriesJSON), boolToInt(r.Derived), string(statsJSON))
	return err
}

const selectRun = `
SELECT id, source, destination, started_at, duration_ns, status, error, repair, columns, dropped, countries, derived, stats
FROM runs`

// GetRun retrieves a run by ID
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, error) {
	row := s.db.QueryRowContext(ctx, selectRun+` WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return r, err
}

// ListRuns returns the newest runs first
func (s *sqliteStore) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = store.DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, selectRun+`
ORDER BY started_at DESC, id DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (store.Run, error) {
	var (
		r                                                  store.Run
		destination, errText, repair                       sql.NullString
		columnsJSON, droppedJSON, countriesJSON, statsJSON sql.NullString
		startedAt, status                                  string
		durationNS                                         int64
		derived                                            int
	)
	if err := sc.Scan(&r.ID, &r.Source, &destination, &startedAt, &durationNS, &status,
		&errText, &repair, &columnsJSON, &droppedJSON, &countriesJSON, &derived, &statsJSON); err != nil {
		return store.Run{}, err
	}

	t, err := time.Parse(timeLayout, startedAt)
	if err != nil {
		return store.Run{}, fmt.Errorf("run %s: started_at: %w", r.ID, err)
	}
	r.StartedAt = t
	r.Duration = time.Duration(durationNS)
	r.Status = store.Status(status)
	r.Destination = destination.String
	r.Error = errText.String
	r.Repair = repair.String
	r.Derived = derived != 0

	for _, f := range []struct {
		raw  sql.NullString
		dest any
	}{
		{columnsJSON, &r.Columns},
		{droppedJSON, &r.Dropped},
		{countriesJSON, &r.Countries},
		{statsJSON, &r.Stats},
	} {
		if !f.raw.Valid || f.raw.String == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.raw.String), f.dest); err != nil {
			return store.Run{}, fmt.Errorf("run %s: %w", r.ID, err)
		}
	}
	return r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
