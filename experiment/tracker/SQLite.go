package tracker

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS scalars (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	agent       TEXT NOT NULL,
	metric      TEXT NOT NULL,
	step        INTEGER NOT NULL,
	value       REAL NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE INDEX IF NOT EXISTS scalars_series
	ON scalars (run_id, agent, metric, step);
`

// SQLite records time series in a SQLite database. Each SQLite Tracker
// is a separate run with its own identifier, so that several runs can
// share one database.
type SQLite struct {
	db    *sql.DB
	runID string
}

// NewSQLite opens the SQLite database at dbPath and starts a new run
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	runID := uuid.New().String()
	_, err = db.Exec(`INSERT INTO runs (run_id, created_at) VALUES (?, ?)`,
		runID, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("insert run: %w", err)
	}

	return &SQLite{db: db, runID: runID}, nil
}

// RunID returns the identifier of the run being recorded
func (s *SQLite) RunID() string {
	return s.runID
}

// Track implements the Tracker interface
func (s *SQLite) Track(agent, metric string, step int, value float64) error {
	_, err := s.db.Exec(
		`INSERT INTO scalars (run_id, agent, metric, step, value)
		 VALUES (?, ?, ?, ?, ?)`,
		s.runID, agent, metric, step, value,
	)
	if err != nil {
		return fmt.Errorf("track %v/%v: %w", agent, metric, err)
	}
	return nil
}

// Series returns the time series of metric recorded by agent in this
// run, ordered by step
func (s *SQLite) Series(agent, metric string) ([]Point, error) {
	rows, err := s.db.Query(
		`SELECT step, value FROM scalars
		 WHERE run_id = ? AND agent = ? AND metric = ?
		 ORDER BY step, id`,
		s.runID, agent, metric,
	)
	if err != nil {
		return nil, fmt.Errorf("series: %w", err)
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var p Point
		if err := rows.Scan(&p.Step, &p.Value); err != nil {
			return nil, fmt.Errorf("series: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Keys returns the keys of all time series recorded in this run
func (s *SQLite) Keys() ([]Key, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT agent, metric FROM scalars WHERE run_id = ?`,
		s.runID,
	)
	if err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.Agent, &k.Metric); err != nil {
			return nil, fmt.Errorf("keys: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	sortKeys(keys)
	return keys, nil
}

// Close implements the Tracker interface
func (s *SQLite) Close() error {
	return s.db.Close()
}
