package store

import (
	"time"

	"github.com/samber/lo"

	"inksync/internal/model"
)

// Merge reconciles freshly fetched records against a snapshot of the current
// rows, keyed by id. It is pure: the caller commits the returned records.
//
// Policy: descriptive fields (title, summary, link, author, category, image)
// always come from the fresh record; PublishedAt is immutable once a row
// exists; the user-owned fields IsRead, IsFavorite, ReadingProgress and
// LastReadAt are carried over from the existing row; FetchedAt is set to now
// for every merged record. New ids get zero-value defaults. Duplicate ids
// within one fetch are dropped, first occurrence wins.
func Merge(fresh []model.ContentRecord, existing map[string]model.ContentRecord, now time.Time) ([]model.ContentRecord, UpsertStats) {
	fresh = lo.UniqBy(fresh, func(r model.ContentRecord) string { return r.ID })

	merged := make([]model.ContentRecord, 0, len(fresh))
	var stats UpsertStats
	for _, rec := range fresh {
		if prev, ok := existing[rec.ID]; ok {
			rec.PublishedAt = prev.PublishedAt
			rec.IsRead = prev.IsRead
			rec.IsFavorite = prev.IsFavorite
			rec.ReadingProgress = prev.ReadingProgress
			rec.LastReadAt = prev.LastReadAt
			stats.Updated++
		} else {
			rec.IsRead = false
			rec.IsFavorite = false
			rec.ReadingProgress = 0
			rec.LastReadAt = nil
			stats.Inserted++
		}
		rec.FetchedAt = now
		merged = append(merged, rec)
	}
	return merged, stats
}
