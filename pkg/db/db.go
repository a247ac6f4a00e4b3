package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Register driver
)

// DB wraps the sql.DB connection.
type DB struct {
	*sql.DB
}

// Init opens the database and runs migrations.
func Init(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	// foreign_keys is per connection, so it goes in the DSN rather than an Exec.
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	// WAL keeps API readers off the recorder's write lock.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Single connection avoids SQLITE_BUSY between the writer goroutine and readers.
	db.SetMaxOpenConns(1)

	d := &DB{db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return d, nil
}

// PruneFlights removes flights started before now-olderThan together with
// their telemetry and match attempts. It returns the number of flights removed.
func (d *DB) PruneFlights(ctx context.Context, olderThan time.Duration) (int64, error) {
	deadline := time.Now().Add(-olderThan).UTC()
	res, err := d.ExecContext(ctx, "DELETE FROM flights WHERE started_at < ?", deadline)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS flights (
			id TEXT PRIMARY KEY,
			route TEXT,
			home_name TEXT,
			waypoints INTEGER,
			started_at DATETIME NOT NULL,
			finished_at DATETIME,
			final_state TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS telemetry (
			flight_id TEXT NOT NULL REFERENCES flights(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			sim_time REAL,
			lat REAL,
			lon REAL,
			altitude REAL,
			heading REAL,
			velocity REAL,
			battery REAL,
			state TEXT,
			waypoint_index INTEGER,
			distance REAL,
			PRIMARY KEY (flight_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS match_attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			flight_id TEXT NOT NULL REFERENCES flights(id) ON DELETE CASCADE,
			sim_time REAL,
			waypoint_index INTEGER,
			reference_index INTEGER,
			state TEXT,
			success BOOLEAN,
			confidence REAL,
			matches INTEGER,
			lat REAL,
			lon REAL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_match_attempts_flight ON match_attempts(flight_id);`,
	}

	for _, q := range queries {
		if _, err := d.Exec(q); err != nil {
			return fmt.Errorf("exec error: %w query: %s", err, q)
		}
	}
	return nil
}
