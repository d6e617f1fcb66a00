// Package combiner merges the per-source record sets into one sorted,
// bounded view and recomputes it whenever either source changes.
package combiner

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/samber/lo"

	"inksync/internal/model"
)

// Unify combines record sets into one sequence sorted by publish time,
// newest first. Equal publish times order by id ascending, so output is
// reproducible. With unreadOnly set, read records are dropped before sorting.
// A limit of 0 means unbounded.
func Unify(limit int, unreadOnly bool, sets ...[]model.ContentRecord) []model.ContentRecord {
	merged := lo.Flatten(sets)
	if unreadOnly {
		merged = lo.Filter(merged, func(r model.ContentRecord, _ int) bool {
			return !r.IsRead
		})
	}
	slices.SortFunc(merged, func(a, b model.ContentRecord) int {
		if c := b.PublishedAt.Compare(a.PublishedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// UnreadCounts holds per-source unread totals.
type UnreadCounts struct {
	Announcements int
	BlogPosts     int
}

// Total sums the per-source counts.
func (u UnreadCounts) Total() int {
	return u.Announcements + u.BlogPosts
}

// Querier is the subset of the store the combiner reads from.
type Querier interface {
	ListAll(ctx context.Context, kind model.SourceKind) ([]model.ContentRecord, error)
	ListUnread(ctx context.Context, kind model.SourceKind) ([]model.ContentRecord, error)
	CountUnread(ctx context.Context, kind model.SourceKind) (int, error)
}

// Combiner keeps a unified view of both sources current. Register OnStoreChange
// with the store's Subscribe; every store change triggers a synchronous
// recompute and fans the new sequence out to the combiner's own subscribers.
type Combiner struct {
	store      Querier
	limit      int
	unreadOnly bool
	log        *slog.Logger

	mu      sync.Mutex
	current []model.ContentRecord
	subs    []func([]model.ContentRecord)
}

// New creates a Combiner over the given store. It holds no data until the
// first Refresh or store change.
func New(store Querier, limit int, unreadOnly bool, log *slog.Logger) *Combiner {
	return &Combiner{
		store:      store,
		limit:      limit,
		unreadOnly: unreadOnly,
		log:        log,
	}
}

// OnStoreChange recomputes the unified view. It is meant to be registered as
// a store change listener; the triggering kind is irrelevant because both
// sources are re-read.
func (c *Combiner) OnStoreChange(model.SourceKind) {
	if err := c.Refresh(context.Background()); err != nil {
		c.log.Error("recompute unified feed", "error", err)
	}
}

// Refresh re-reads both sources and recomputes the unified sequence. On a
// read error the previous sequence is kept.
func (c *Combiner) Refresh(ctx context.Context) error {
	sets := make([][]model.ContentRecord, 0, len(model.Kinds()))
	for _, kind := range model.Kinds() {
		var (
			recs []model.ContentRecord
			err  error
		)
		if c.unreadOnly {
			recs, err = c.store.ListUnread(ctx, kind)
		} else {
			recs, err = c.store.ListAll(ctx, kind)
		}
		if err != nil {
			return err
		}
		sets = append(sets, recs)
	}

	unified := Unify(c.limit, c.unreadOnly, sets...)

	c.mu.Lock()
	c.current = unified
	subs := slices.Clone(c.subs)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(unified)
	}
	return nil
}

// Snapshot returns the last computed unified sequence.
func (c *Combiner) Snapshot() []model.ContentRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.current)
}

// Subscribe registers fn to receive each newly computed sequence.
func (c *Combiner) Subscribe(fn func([]model.ContentRecord)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}

// UnreadCounts reports per-source unread totals without materializing lists.
func (c *Combiner) UnreadCounts(ctx context.Context) (UnreadCounts, error) {
	announcements, err := c.store.CountUnread(ctx, model.SourceAnnouncement)
	if err != nil {
		return UnreadCounts{}, err
	}
	posts, err := c.store.CountUnread(ctx, model.SourceBlogPost)
	if err != nil {
		return UnreadCounts{}, err
	}
	return UnreadCounts{Announcements: announcements, BlogPosts: posts}, nil
}
