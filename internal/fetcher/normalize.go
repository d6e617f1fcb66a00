package fetcher

import (
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"inksync/internal/model"
)

// summaryMaxLen caps summaries derived from item content.
const summaryMaxLen = 300

// RawItem is a feed item as it arrives from the wire. Every field is
// optional; Normalize decides what is usable.
type RawItem struct {
	Title       string
	Link        string
	GUID        string
	Description string
	Content     string
	Published   string
	Author      string
	Categories  []string
	ImageURL    string
}

func rawFromFeedItem(item *gofeed.Item) RawItem {
	raw := RawItem{
		Title:       item.Title,
		Link:        item.Link,
		GUID:        item.GUID,
		Description: item.Description,
		Content:     item.Content,
		Published:   item.Published,
		Categories:  item.Categories,
	}
	if item.Author != nil {
		raw.Author = item.Author.Name
	} else if len(item.Authors) > 0 && item.Authors[0] != nil {
		raw.Author = item.Authors[0].Name
	}
	if item.Image != nil {
		raw.ImageURL = item.Image.URL
	} else {
		for _, enc := range item.Enclosures {
			if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
				raw.ImageURL = enc.URL
				break
			}
		}
	}
	return raw
}

// Normalize converts a raw feed item into a ContentRecord of the given kind,
// or returns a non-empty skip reason. The fallback chains are ordered:
// id prefers link over guid; the summary prefers the explicit description
// over markup-stripped content; the published date tries ISO-8601, then an
// epoch-millisecond string, then RFC-822 layouts, then now. An unparseable
// date never skips the item.
func Normalize(kind model.SourceKind, raw RawItem, now time.Time) (model.ContentRecord, string) {
	id := strings.TrimSpace(raw.Link)
	if id == "" {
		id = strings.TrimSpace(raw.GUID)
	}
	if id == "" {
		return model.ContentRecord{}, "no link or guid"
	}

	title := strings.TrimSpace(raw.Title)
	if title == "" {
		return model.ContentRecord{}, "no title"
	}

	rec := model.ContentRecord{
		SourceKind:  kind,
		ID:          id,
		Title:       title,
		Summary:     summarize(raw.Description, raw.Content),
		Link:        strings.TrimSpace(raw.Link),
		PublishedAt: parsePublished(raw.Published, now),
	}

	if kind == model.SourceBlogPost {
		rec.AuthorName = strings.TrimSpace(raw.Author)
		for _, c := range raw.Categories {
			if c = strings.TrimSpace(c); c != "" {
				rec.Category = &c
				break
			}
		}
		if u := strings.TrimSpace(raw.ImageURL); u != "" {
			rec.FeaturedImageURL = &u
		}
	}
	return rec, ""
}

func summarize(description, content string) string {
	if d := strings.TrimSpace(description); d != "" {
		return truncate(d, summaryMaxLen)
	}
	return truncate(stripTags(content), summaryMaxLen)
}

// stripTags removes all markup and collapses whitespace.
func stripTags(raw string) string {
	p := bluemonday.StrictPolicy()
	return strings.Join(strings.Fields(p.Sanitize(raw)), " ")
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

var rfc822Layouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
}

func parsePublished(value string, now time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return now
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC()
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	for _, layout := range rfc822Layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return now
}
