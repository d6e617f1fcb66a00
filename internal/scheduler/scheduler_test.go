package scheduler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"inksync/internal/fetcher"
	"inksync/internal/janitor"
	"inksync/internal/model"
	"inksync/internal/store"
)

type mockHTTP struct {
	bodies map[string]string // url -> body; missing url returns 404
}

func (m *mockHTTP) Do(req *http.Request) (*http.Response, error) {
	body, ok := m.bodies[req.URL.String()]
	if !ok {
		return &http.Response{
			StatusCode: 404,
			Body:       io.NopCloser(bytes.NewBufferString("not found")),
		}, nil
	}
	return &http.Response{
		StatusCode: 200,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}, nil
}

type notification struct {
	Kind   model.SourceKind
	Fresh  int
	Unread int
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (m *mockNotifier) Notify(_ context.Context, kind model.SourceKind, fresh, unread int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, notification{Kind: kind, Fresh: fresh, Unread: unread})
}

func (m *mockNotifier) notifications() []notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]notification, len(m.sent))
	copy(cp, m.sent)
	return cp
}

func loadFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test-only fixture loading
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return string(data)
}

func newTestScheduler(t *testing.T, client fetcher.HTTPClient, notifier Notifier) (*Scheduler, *store.SQLite) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := fetcher.New(client)
	j := janitor.New(st, 30*24*time.Hour, log)
	sources := []Source{
		{Kind: model.SourceAnnouncement, URL: "https://example.com/news.rss"},
		{Kind: model.SourceBlogPost, URL: "https://blog.example.com/rss"},
	}
	return New(st, f, j, notifier, sources, log), st
}

func TestSyncSource(t *testing.T) {
	client := &mockHTTP{bodies: map[string]string{
		"https://example.com/news.rss": loadFixture(t, "../../testdata/announcements.xml"),
		"https://blog.example.com/rss": loadFixture(t, "../../testdata/blog.xml"),
	}}
	notifier := &mockNotifier{}
	sched, st := newTestScheduler(t, client, notifier)
	ctx := context.Background()

	for _, src := range sched.sources {
		if err := sched.SyncSource(ctx, src); err != nil {
			t.Fatalf("sync %s: %v", src.Kind, err)
		}
	}

	announcements, err := st.ListAll(ctx, model.SourceAnnouncement)
	if err != nil {
		t.Fatalf("list announcements: %v", err)
	}
	if len(announcements) != 3 {
		t.Errorf("announcements = %d, want 3", len(announcements))
	}
	posts, err := st.ListAll(ctx, model.SourceBlogPost)
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if len(posts) != 3 {
		t.Errorf("posts = %d, want 3", len(posts))
	}

	want := []notification{
		{Kind: model.SourceAnnouncement, Fresh: 3, Unread: 3},
		{Kind: model.SourceBlogPost, Fresh: 3, Unread: 3},
	}
	if diff := cmp.Diff(want, notifier.notifications()); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}

	// A second sync of the same content inserts nothing and stays quiet.
	for _, src := range sched.sources {
		if err := sched.SyncSource(ctx, src); err != nil {
			t.Fatalf("re-sync %s: %v", src.Kind, err)
		}
	}
	if got := notifier.notifications(); len(got) != 2 {
		t.Errorf("notifications after re-sync = %d, want still 2", len(got))
	}
}

func TestSyncFailureLeavesCachedContentIntact(t *testing.T) {
	xml := loadFixture(t, "../../testdata/announcements.xml")
	client := &mockHTTP{bodies: map[string]string{
		"https://example.com/news.rss": xml,
	}}
	sched, st := newTestScheduler(t, client, nil)
	ctx := context.Background()

	src := Source{Kind: model.SourceAnnouncement, URL: "https://example.com/news.rss"}
	if err := sched.SyncSource(ctx, src); err != nil {
		t.Fatalf("initial sync: %v", err)
	}
	before, err := st.ListAll(ctx, model.SourceAnnouncement)
	if err != nil {
		t.Fatalf("list before: %v", err)
	}

	// The feed goes away; the sync must fail without touching the store.
	delete(client.bodies, "https://example.com/news.rss")
	if err := sched.SyncSource(ctx, src); err == nil {
		t.Fatal("expected sync error")
	}

	after, err := st.ListAll(ctx, model.SourceAnnouncement)
	if err != nil {
		t.Fatalf("list after: %v", err)
	}
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("failed sync modified the store (-before +after):\n%s", diff)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	client := &mockHTTP{bodies: map[string]string{}}
	sched, _ := newTestScheduler(t, client, nil)
	sched.SetTickInterval(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
