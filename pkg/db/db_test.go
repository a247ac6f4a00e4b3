package db_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"dronenav/pkg/db"
)

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "db_test.db")

	d, err := db.Init(path)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	defer d.Close()

	for _, table := range []string{"flights", "telemetry", "match_attempts"} {
		var n int
		err := d.QueryRow("SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&n)
		if err != nil || n != 1 {
			t.Errorf("table %s missing (n=%d, err=%v)", table, n, err)
		}
	}

	// Second Init on the same file must be a no-op migration.
	d2, err := db.Init(path)
	if err != nil {
		t.Fatalf("re-Init() failed: %v", err)
	}
	d2.Close()
}

func TestPruneFlights(t *testing.T) {
	d, err := db.Init(filepath.Join(t.TempDir(), "prune.db"))
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	defer d.Close()

	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour).UTC()
	recent := time.Now().UTC()
	for id, ts := range map[string]time.Time{"old": old, "new": recent} {
		if _, err := d.ExecContext(ctx, "INSERT INTO flights (id, started_at) VALUES (?, ?)", id, ts); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := d.ExecContext(ctx, "INSERT INTO telemetry (flight_id, seq) VALUES ('old', 1)"); err != nil {
		t.Fatal(err)
	}

	n, err := d.PruneFlights(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("PruneFlights() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d flights, want 1", n)
	}

	var rows int
	if err := d.QueryRow("SELECT count(*) FROM telemetry").Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != 0 {
		t.Errorf("telemetry of pruned flight survived: %d rows", rows)
	}
}
