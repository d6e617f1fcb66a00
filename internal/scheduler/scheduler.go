// Package scheduler drives periodic and on-demand feed synchronization.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"inksync/internal/fetcher"
	"inksync/internal/janitor"
	"inksync/internal/model"
	"inksync/internal/store"
)

// Notifier is the interface for the downstream notification dispatcher. It is
// called once per sync that inserted new records.
type Notifier interface {
	Notify(ctx context.Context, kind model.SourceKind, fresh, unread int)
}

// Source is one configured external feed.
type Source struct {
	Kind model.SourceKind
	URL  string
}

// Scheduler periodically syncs every configured source. It does not retry
// within a tick; a failed sync leaves cached content intact and the next tick
// tries again.
type Scheduler struct {
	store    store.Store
	fetcher  *fetcher.Fetcher
	janitor  *janitor.Janitor
	notifier Notifier
	sources  []Source
	log      *slog.Logger
	tick     time.Duration
}

// New creates a Scheduler. notifier may be nil.
func New(st store.Store, f *fetcher.Fetcher, j *janitor.Janitor, notifier Notifier, sources []Source, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:    st,
		fetcher:  f,
		janitor:  j,
		notifier: notifier,
		sources:  sources,
		log:      log,
		tick:     30 * time.Minute,
	}
}

// SetTickInterval overrides the default 30-minute sync interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// Run starts the scheduler loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.syncAll(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.syncAll(ctx)
		}
	}
}

func (s *Scheduler) syncAll(ctx context.Context) {
	for _, src := range s.sources {
		if ctx.Err() != nil {
			return
		}
		if err := s.SyncSource(ctx, src); err != nil {
			s.log.Error("sync source", "source", src.Kind, "url", src.URL, "error", err)
		}
	}
}

// SyncSource runs one fetch+merge pipeline for a source: fetch and normalize
// the feed, merge-upsert into the store, then sweep stale records. A fetch or
// transaction failure leaves the store unmodified.
func (s *Scheduler) SyncSource(ctx context.Context, src Source) error {
	res, err := s.fetcher.Fetch(ctx, src.Kind, src.URL)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", src.Kind, err)
	}
	for _, skipped := range res.Skipped {
		s.log.Debug("skipped feed item", "source", src.Kind, "title", skipped.Title, "reason", skipped.Reason)
	}

	stats, err := s.store.UpsertMerged(ctx, src.Kind, res.Records, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert %s: %w", src.Kind, err)
	}
	s.log.Info("synced source",
		"source", src.Kind, "inserted", stats.Inserted, "updated", stats.Updated, "skipped", len(res.Skipped))

	if err := s.janitor.Sweep(ctx, time.Now().UTC()); err != nil {
		s.log.Error("janitor sweep", "source", src.Kind, "error", err)
	}

	if s.notifier != nil && stats.Inserted > 0 {
		unread, err := s.store.CountUnread(ctx, src.Kind)
		if err != nil {
			s.log.Error("count unread", "source", src.Kind, "error", err)
			return nil
		}
		s.notifier.Notify(ctx, src.Kind, stats.Inserted, unread)
	}
	return nil
}
