// Package maintenance performs startup housekeeping on the flight log database.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dronenav/pkg/db"
)

// Run prunes flights older than retention and checkpoints the WAL.
// A zero retention keeps every flight. It blocks until completion.
func Run(ctx context.Context, d *db.DB, retention time.Duration) error {
	slog.Info("Starting database maintenance")

	if retention > 0 {
		n, err := d.PruneFlights(ctx, retention)
		if err != nil {
			return fmt.Errorf("failed to prune flights: %w", err)
		}
		slog.Info("Flight pruning completed", "removed", n, "retention", retention)
	}

	if _, err := d.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE);"); err != nil {
		slog.Warn("WAL checkpoint failed", "error", err)
	}
	return nil
}
