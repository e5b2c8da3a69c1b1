package checkpointer

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	name        TEXT PRIMARY KEY,
	data        BLOB NOT NULL,
	updated_at  TEXT NOT NULL
);
`

// SQLiteStore stores checkpoints as blobs in a SQLite database, keyed
// by checkpoint name
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and creates the
// checkpoints table if needed
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save implements the Store interface
func (s *SQLiteStore) Save(name string, data []byte) error {
	if err := validName(name); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	_, err := s.db.Exec(
		`INSERT INTO checkpoints (name, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET data = excluded.data,
		 updated_at = excluded.updated_at`,
		name, data, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save %q: %w", name, err)
	}
	return nil
}

// Load implements the Store interface
func (s *SQLiteStore) Load(name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	var data []byte
	err := s.db.QueryRow(`SELECT data FROM checkpoints WHERE name = ?`,
		name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load %q: %w", name, ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("load %q: %w", name, err)
	}
	return data, nil
}

// Names returns the names of all stored checkpoints
func (s *SQLiteStore) Names() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM checkpoints ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("names: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
