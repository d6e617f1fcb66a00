package fetcher

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"inksync/internal/model"
)

var normNow = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func TestNormalizeIdentityChain(t *testing.T) {
	tests := []struct {
		name     string
		raw      RawItem
		wantID   string
		wantSkip string
	}{
		{
			name:   "link preferred over guid",
			raw:    RawItem{Title: "T", Link: "https://x.example/a", GUID: "guid-a"},
			wantID: "https://x.example/a",
		},
		{
			name:   "guid fallback",
			raw:    RawItem{Title: "T", GUID: "guid-a"},
			wantID: "guid-a",
		},
		{
			name:     "neither link nor guid",
			raw:      RawItem{Title: "T"},
			wantSkip: "no link or guid",
		},
		{
			name:     "missing title",
			raw:      RawItem{Link: "https://x.example/a"},
			wantSkip: "no title",
		},
		{
			name:     "whitespace title",
			raw:      RawItem{Title: "   ", Link: "https://x.example/a"},
			wantSkip: "no title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, skip := Normalize(model.SourceAnnouncement, tt.raw, normNow)
			if skip != tt.wantSkip {
				t.Fatalf("skip = %q, want %q", skip, tt.wantSkip)
			}
			if tt.wantSkip == "" && rec.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", rec.ID, tt.wantID)
			}
		})
	}
}

func TestNormalizeSummary(t *testing.T) {
	tests := []struct {
		name string
		raw  RawItem
		want string
	}{
		{
			name: "description preferred",
			raw:  RawItem{Title: "T", Link: "l", Description: "plain description", Content: "<p>ignored</p>"},
			want: "plain description",
		},
		{
			name: "content stripped of markup",
			raw:  RawItem{Title: "T", Link: "l", Content: "<p>We asked <strong>readers</strong> about</p> <p>their habits.</p>"},
			want: "We asked readers about their habits.",
		},
		{
			name: "long content truncated",
			raw:  RawItem{Title: "T", Link: "l", Content: "<p>" + strings.Repeat("word ", 100) + "</p>"},
			want: strings.Repeat("word ", 60) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, skip := Normalize(model.SourceBlogPost, tt.raw, normNow)
			if skip != "" {
				t.Fatalf("unexpected skip: %q", skip)
			}
			if diff := cmp.Diff(tt.want, rec.Summary); diff != "" {
				t.Errorf("summary mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParsePublishedFallbackChain(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Time
	}{
		{
			name:  "iso 8601",
			value: "2026-01-05T10:30:00Z",
			want:  time.Date(2026, 1, 5, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "iso 8601 with offset",
			value: "2026-01-05T12:30:00+02:00",
			want:  time.Date(2026, 1, 5, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "epoch milliseconds",
			value: "1767609000000",
			want:  time.UnixMilli(1767609000000).UTC(),
		},
		{
			name:  "rfc 1123",
			value: "Mon, 05 Jan 2026 10:30:00 +0000",
			want:  time.Date(2026, 1, 5, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "unparseable falls back to now",
			value: "yesterday-ish",
			want:  normNow,
		},
		{
			name:  "empty falls back to now",
			value: "",
			want:  normNow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parsePublished(tt.value, normNow)
			if !got.Equal(tt.want) {
				t.Errorf("parsePublished(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestNormalizeBlogFields(t *testing.T) {
	raw := RawItem{
		Title:      "T",
		Link:       "https://b.example/p",
		Author:     "Maya Lindqvist",
		Categories: []string{"", "Design", "Extra"},
		ImageURL:   "https://b.example/img.jpg",
	}

	rec, skip := Normalize(model.SourceBlogPost, raw, normNow)
	if skip != "" {
		t.Fatalf("unexpected skip: %q", skip)
	}
	if rec.AuthorName != "Maya Lindqvist" {
		t.Errorf("AuthorName = %q", rec.AuthorName)
	}
	if rec.Category == nil || *rec.Category != "Design" {
		t.Errorf("Category = %v, want Design (first non-empty)", rec.Category)
	}
	if rec.FeaturedImageURL == nil || *rec.FeaturedImageURL != "https://b.example/img.jpg" {
		t.Errorf("FeaturedImageURL = %v", rec.FeaturedImageURL)
	}

	// Announcements never carry blog-only fields.
	annRec, skip := Normalize(model.SourceAnnouncement, raw, normNow)
	if skip != "" {
		t.Fatalf("unexpected skip: %q", skip)
	}
	if annRec.AuthorName != "" || annRec.Category != nil || annRec.FeaturedImageURL != nil {
		t.Errorf("announcement picked up blog-only fields: %+v", annRec)
	}
}
