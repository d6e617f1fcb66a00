package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"inksync/internal/model"
	"inksync/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

const baseColumns = "id, title, summary, link, published_at, fetched_at, is_read"
const blogColumns = baseColumns + ", author_name, category, featured_image_url, is_favorite, reading_progress, last_read_at"

// SQLite implements Store backed by a SQLite database with one table per
// source kind. Transactions begin in immediate mode, so the snapshot+write of
// UpsertMerged is serialized against concurrent user-action writes.
type SQLite struct {
	db *sql.DB

	mu        sync.Mutex
	listeners []func(model.SourceKind)

	// beforeWrite is a test hook invoked inside the upsert transaction,
	// between the snapshot read and the first write.
	beforeWrite func()
}

// NewSQLite opens a SQLite database at path and runs pending migrations.
func NewSQLite(path string) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Subscribe registers fn as a change listener.
func (s *SQLite) Subscribe(fn func(model.SourceKind)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *SQLite) notifyChange(kind model.SourceKind) {
	s.mu.Lock()
	fns := slices.Clone(s.listeners)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(kind)
	}
}

func tableFor(kind model.SourceKind) (string, error) {
	switch kind {
	case model.SourceAnnouncement:
		return "announcements", nil
	case model.SourceBlogPost:
		return "blog_posts", nil
	default:
		return "", fmt.Errorf("unknown source kind %q", kind)
	}
}

func columnsFor(kind model.SourceKind) string {
	if kind == model.SourceBlogPost {
		return blogColumns
	}
	return baseColumns
}

// UpsertMerged snapshots the current rows for kind, merges records against
// them, and writes the result, all in one transaction. Nothing is visible on
// failure or cancellation before commit.
func (s *SQLite) UpsertMerged(ctx context.Context, kind model.SourceKind, records []model.ContentRecord, now time.Time) (UpsertStats, error) {
	table, err := tableFor(kind)
	if err != nil {
		return UpsertStats{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return UpsertStats{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := snapshotTx(ctx, tx, kind, table)
	if err != nil {
		return UpsertStats{}, err
	}

	merged, stats := Merge(records, existing, now)

	if s.beforeWrite != nil {
		s.beforeWrite()
	}

	for _, rec := range merged {
		if err := upsertTx(ctx, tx, table, kind, rec); err != nil {
			return UpsertStats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return UpsertStats{}, fmt.Errorf("commit upsert: %w", err)
	}

	if len(merged) > 0 {
		s.notifyChange(kind)
	}
	return stats, nil
}

func snapshotTx(ctx context.Context, tx *sql.Tx, kind model.SourceKind, table string) (map[string]model.ContentRecord, error) {
	rows, err := tx.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s", columnsFor(kind), table), //nolint:gosec // table comes from tableFor
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	existing := make(map[string]model.ContentRecord)
	for rows.Next() {
		rec, err := scanRecord(kind, rows)
		if err != nil {
			return nil, err
		}
		existing[rec.ID] = rec
	}
	return existing, rows.Err()
}

func upsertTx(ctx context.Context, tx *sql.Tx, table string, kind model.SourceKind, rec model.ContentRecord) error {
	var err error
	if kind == model.SourceBlogPost {
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO blog_posts
			 (id, title, summary, link, published_at, fetched_at, is_read,
			  author_name, category, featured_image_url, is_favorite, reading_progress, last_read_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.Title, rec.Summary, rec.Link,
			formatTime(rec.PublishedAt), formatTime(rec.FetchedAt), boolToInt(rec.IsRead),
			rec.AuthorName, rec.Category, rec.FeaturedImageURL,
			boolToInt(rec.IsFavorite), rec.ReadingProgress, formatTimePtr(rec.LastReadAt),
		)
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO announcements
			 (id, title, summary, link, published_at, fetched_at, is_read)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.Title, rec.Summary, rec.Link,
			formatTime(rec.PublishedAt), formatTime(rec.FetchedAt), boolToInt(rec.IsRead),
		)
	}
	if err != nil {
		return fmt.Errorf("upsert into %s: %w", table, err)
	}
	return nil
}

// ListAll returns every record of the given kind, newest first.
func (s *SQLite) ListAll(ctx context.Context, kind model.SourceKind) ([]model.ContentRecord, error) {
	return s.list(ctx, kind, "")
}

// ListUnread returns unread records of the given kind, newest first.
func (s *SQLite) ListUnread(ctx context.Context, kind model.SourceKind) ([]model.ContentRecord, error) {
	return s.list(ctx, kind, "WHERE is_read = 0")
}

func (s *SQLite) list(ctx context.Context, kind model.SourceKind, where string, args ...any) ([]model.ContentRecord, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT %s FROM %s %s ORDER BY published_at DESC, id ASC", columnsFor(kind), table, where)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(kind, rows)
}

// ListFavorites returns favorited blog posts, newest first.
func (s *SQLite) ListFavorites(ctx context.Context) ([]model.ContentRecord, error) {
	return s.list(ctx, model.SourceBlogPost, "WHERE is_favorite = 1")
}

// ListRecentlyRead returns up to limit blog posts with reading activity,
// most recently read first.
func (s *SQLite) ListRecentlyRead(ctx context.Context, limit int) ([]model.ContentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM blog_posts
		 WHERE last_read_at IS NOT NULL
		 ORDER BY last_read_at DESC, id ASC LIMIT ?`, blogColumns),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recently read: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(model.SourceBlogPost, rows)
}

// Search returns records of the given kind whose title or summary contains
// query, newest first.
func (s *SQLite) Search(ctx context.Context, kind model.SourceKind, query string) ([]model.ContentRecord, error) {
	pattern := "%" + escapeLike(query) + "%"
	return s.list(ctx, kind,
		`WHERE (title LIKE ? ESCAPE '\' OR summary LIKE ? ESCAPE '\')`,
		pattern, pattern,
	)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// CountUnread returns the number of unread records of the given kind.
func (s *SQLite) CountUnread(ctx context.Context, kind model.SourceKind) (int, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var count int
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE is_read = 0", table), //nolint:gosec // table comes from tableFor
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// MarkRead sets the read flag on a record. Unknown ids are a no-op.
func (s *SQLite) MarkRead(ctx context.Context, kind model.SourceKind, id string, read bool) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET is_read = ? WHERE id = ?", table), //nolint:gosec // table comes from tableFor
		boolToInt(read), id,
	)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	s.notifyAffected(res, kind)
	return nil
}

// ToggleFavorite flips the favorite flag on a blog post. Unknown ids are a
// no-op.
func (s *SQLite) ToggleFavorite(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE blog_posts SET is_favorite = 1 - is_favorite WHERE id = ?", id,
	)
	if err != nil {
		return fmt.Errorf("toggle favorite: %w", err)
	}
	s.notifyAffected(res, model.SourceBlogPost)
	return nil
}

// UpdateReadingProgress records reading progress on a blog post, clamped to
// 0..100, and stamps last_read_at.
func (s *SQLite) UpdateReadingProgress(ctx context.Context, id string, percent float64, at time.Time) error {
	percent = min(max(percent, 0), 100)
	res, err := s.db.ExecContext(ctx,
		"UPDATE blog_posts SET reading_progress = ?, last_read_at = ? WHERE id = ?",
		percent, formatTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("update reading progress: %w", err)
	}
	s.notifyAffected(res, model.SourceBlogPost)
	return nil
}

// DeleteOlderThan removes records of the given kind whose fetch time is
// before cutoff and reports how many were deleted.
func (s *SQLite) DeleteOlderThan(ctx context.Context, kind model.SourceKind, cutoff time.Time) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE fetched_at < ?", table), //nolint:gosec // table comes from tableFor
		formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("delete older than: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if deleted > 0 {
		s.notifyChange(kind)
	}
	return deleted, nil
}

// DeleteAll removes every record of the given kind.
func (s *SQLite) DeleteAll(ctx context.Context, kind model.SourceKind) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table) //nolint:gosec // table comes from tableFor
	if err != nil {
		return fmt.Errorf("delete all: %w", err)
	}
	s.notifyAffected(res, kind)
	return nil
}

func (s *SQLite) notifyAffected(res sql.Result, kind model.SourceKind) {
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.notifyChange(kind)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := formatTime(*t)
	return &v
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(kind model.SourceKind, row scannable) (model.ContentRecord, error) {
	rec := model.ContentRecord{SourceKind: kind}
	var published, fetched string
	var isRead int

	if kind == model.SourceBlogPost {
		var category, imageURL, lastRead sql.NullString
		var isFavorite int
		err := row.Scan(&rec.ID, &rec.Title, &rec.Summary, &rec.Link, &published, &fetched, &isRead,
			&rec.AuthorName, &category, &imageURL, &isFavorite, &rec.ReadingProgress, &lastRead)
		if err != nil {
			return rec, fmt.Errorf("scan blog post: %w", err)
		}
		if category.Valid {
			rec.Category = &category.String
		}
		if imageURL.Valid {
			rec.FeaturedImageURL = &imageURL.String
		}
		rec.IsFavorite = isFavorite == 1
		if lastRead.Valid {
			t, _ := time.Parse(timeLayout, lastRead.String)
			rec.LastReadAt = &t
		}
	} else {
		err := row.Scan(&rec.ID, &rec.Title, &rec.Summary, &rec.Link, &published, &fetched, &isRead)
		if err != nil {
			return rec, fmt.Errorf("scan announcement: %w", err)
		}
	}

	rec.PublishedAt, _ = time.Parse(timeLayout, published)
	rec.FetchedAt, _ = time.Parse(timeLayout, fetched)
	rec.IsRead = isRead == 1
	return rec, nil
}

func scanRecords(kind model.SourceKind, rows *sql.Rows) ([]model.ContentRecord, error) {
	var recs []model.ContentRecord
	for rows.Next() {
		rec, err := scanRecord(kind, rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
