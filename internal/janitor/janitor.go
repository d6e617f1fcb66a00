// Package janitor reclaims records that have not been seen by a sync for
// longer than the retention window.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"inksync/internal/model"
	"inksync/internal/store"
)

// Janitor deletes stale records per source. Deletion is the only way synced
// content leaves the store.
type Janitor struct {
	store     store.Store
	retention time.Duration
	log       *slog.Logger
}

// New creates a Janitor with the given retention window.
func New(st store.Store, retention time.Duration, log *slog.Logger) *Janitor {
	return &Janitor{
		store:     st,
		retention: retention,
		log:       log,
	}
}

// Sweep deletes, per source, all records whose fetch time is older than now
// minus the retention window. Sweeping with no stale rows is a no-op.
func (j *Janitor) Sweep(ctx context.Context, now time.Time) error {
	cutoff := now.Add(-j.retention)
	for _, kind := range model.Kinds() {
		deleted, err := j.store.DeleteOlderThan(ctx, kind, cutoff)
		if err != nil {
			return fmt.Errorf("sweep %s: %w", kind, err)
		}
		if deleted > 0 {
			j.log.Info("reclaimed stale records", "source", kind, "count", deleted)
		}
	}
	return nil
}
