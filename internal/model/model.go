// Package model defines the domain types used across the application.
package model

import "time"

// SourceKind identifies which external feed a record came from.
type SourceKind string

// Supported source kinds.
const (
	SourceAnnouncement SourceKind = "announcement"
	SourceBlogPost     SourceKind = "blog_post"
)

// Kinds lists all source kinds in a stable order.
func Kinds() []SourceKind {
	return []SourceKind{SourceAnnouncement, SourceBlogPost}
}

// ContentRecord is one synchronized feed item: an announcement or a blog post,
// tagged by SourceKind. The ID is externally assigned (canonical link, falling
// back to the feed guid) and is unique within its source.
//
// IsRead, IsFavorite, ReadingProgress and LastReadAt are user-owned: they are
// changed only by explicit user actions and are carried over unchanged when a
// re-sync updates the row.
type ContentRecord struct {
	SourceKind  SourceKind
	ID          string
	Title       string
	Summary     string
	Link        string
	PublishedAt time.Time
	FetchedAt   time.Time
	IsRead      bool

	// Blog-post-only fields; zero-valued for announcements.
	AuthorName       string
	Category         *string
	FeaturedImageURL *string
	IsFavorite       bool
	ReadingProgress  float64 // 0..100
	LastReadAt       *time.Time
}
