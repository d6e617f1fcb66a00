// Package fetcher handles feed downloading, parsing, and item normalization.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"inksync/internal/model"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// SkippedItem describes a feed item dropped during normalization.
type SkippedItem struct {
	Title  string
	Reason string
}

// Result holds the outcome of one successful fetch: the normalized records in
// feed order, plus any items that had to be skipped.
type Result struct {
	FeedTitle string
	Records   []model.ContentRecord
	Skipped   []SkippedItem
}

// Fetcher downloads and parses external feeds. It never touches the store.
type Fetcher struct {
	client HTTPClient
	now    func() time.Time
}

// New creates a Fetcher with the given HTTP client.
func New(client HTTPClient) *Fetcher {
	return &Fetcher{
		client: client,
		now:    time.Now,
	}
}

// Fetch downloads the feed at url and normalizes its items into records of
// the given kind. Transport errors, non-200 responses, and whole-document
// parse errors fail the fetch; a single item failing normalization only drops
// that item.
func (f *Fetcher) Fetch(ctx context.Context, kind model.SourceKind, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "InkSync/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	// One parser per fetch; gofeed parsers are cheap and nothing is shared.
	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	now := f.now().UTC()
	res := &Result{FeedTitle: feed.Title}
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		rec, skip := Normalize(kind, rawFromFeedItem(item), now)
		if skip != "" {
			res.Skipped = append(res.Skipped, SkippedItem{Title: item.Title, Reason: skip})
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}
