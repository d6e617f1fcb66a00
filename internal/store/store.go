// Package store defines the persistence interface and its implementations.
package store

import (
	"context"
	"time"

	"inksync/internal/model"
)

// UpsertStats reports what a merge-preserving upsert did.
type UpsertStats struct {
	Inserted int
	Updated  int
}

// Store is the interface for all persistence operations. One row exists per
// (source kind, id). Implementations notify subscribed listeners after every
// successful mutation; queries never notify.
type Store interface {
	// UpsertMerged reconciles records against the current rows for kind and
	// writes the result in a single transaction. User-owned fields of
	// pre-existing ids are carried over; rows absent from records are left
	// untouched. Applying the same records with the same now twice yields the
	// same store state.
	UpsertMerged(ctx context.Context, kind model.SourceKind, records []model.ContentRecord, now time.Time) (UpsertStats, error)

	ListAll(ctx context.Context, kind model.SourceKind) ([]model.ContentRecord, error)
	ListUnread(ctx context.Context, kind model.SourceKind) ([]model.ContentRecord, error)
	ListFavorites(ctx context.Context) ([]model.ContentRecord, error)
	ListRecentlyRead(ctx context.Context, limit int) ([]model.ContentRecord, error)
	Search(ctx context.Context, kind model.SourceKind, query string) ([]model.ContentRecord, error)
	CountUnread(ctx context.Context, kind model.SourceKind) (int, error)

	MarkRead(ctx context.Context, kind model.SourceKind, id string, read bool) error
	ToggleFavorite(ctx context.Context, id string) error
	UpdateReadingProgress(ctx context.Context, id string, percent float64, at time.Time) error

	DeleteOlderThan(ctx context.Context, kind model.SourceKind, cutoff time.Time) (int64, error)
	DeleteAll(ctx context.Context, kind model.SourceKind) error

	// Subscribe registers fn to be called with the affected source kind after
	// each successful mutation. Callbacks run synchronously on the mutating
	// goroutine, after the write is committed.
	Subscribe(fn func(model.SourceKind))

	Close() error
}
