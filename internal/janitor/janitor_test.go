package janitor

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"inksync/internal/model"
	"inksync/internal/store"
)

var now = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func record(kind model.SourceKind, id string) model.ContentRecord {
	return model.ContentRecord{
		SourceKind:  kind,
		ID:          id,
		Title:       id,
		PublishedAt: now.Add(-60 * 24 * time.Hour),
	}
}

func TestSweepRetentionBoundary(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	// Seed both sources with one stale and one live row each; the stale row's
	// last successful sync was 31 days ago, the live row's 29 days ago.
	for _, kind := range model.Kinds() {
		if _, err := st.UpsertMerged(ctx, kind, []model.ContentRecord{record(kind, "stale-"+string(kind))}, now.Add(-31*24*time.Hour)); err != nil {
			t.Fatalf("seed stale %s: %v", kind, err)
		}
		if _, err := st.UpsertMerged(ctx, kind, []model.ContentRecord{record(kind, "live-"+string(kind))}, now.Add(-29*24*time.Hour)); err != nil {
			t.Fatalf("seed live %s: %v", kind, err)
		}
	}

	j := New(st, 30*24*time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := j.Sweep(ctx, now); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	for _, kind := range model.Kinds() {
		got, err := st.ListAll(ctx, kind)
		if err != nil {
			t.Fatalf("list %s: %v", kind, err)
		}
		var ids []string
		for _, r := range got {
			ids = append(ids, r.ID)
		}
		if diff := cmp.Diff([]string{"live-" + string(kind)}, ids); diff != "" {
			t.Errorf("%s survivors mismatch (-want +got):\n%s", kind, diff)
		}
	}

	// Sweeping again with nothing stale is a no-op.
	if err := j.Sweep(ctx, now); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	for _, kind := range model.Kinds() {
		got, err := st.ListAll(ctx, kind)
		if err != nil {
			t.Fatalf("list %s: %v", kind, err)
		}
		if len(got) != 1 {
			t.Errorf("%s len = %d, want 1", kind, len(got))
		}
	}
}
