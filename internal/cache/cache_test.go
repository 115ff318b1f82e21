package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/clark235/agentweb/internal/pagerecord"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := pagerecord.PageRecord{URL: "https://example.com/", Title: "Example", BackendTag: pagerecord.BackendLite}
	if err := s.Set(ctx, "https://example.com/", "", pagerecord.BackendLite, rec, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	entry, ok, err := s.Get(ctx, "https://example.com/", "")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if entry.Result.Title != "Example" {
		t.Errorf("Result.Title = %q", entry.Result.Title)
	}
	if entry.HitCount != 1 {
		t.Errorf("HitCount = %d, want 1", entry.HitCount)
	}
}

func TestGetMiss(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.Get(context.Background(), "https://nope.example.com/", "")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected cache miss")
	}
}

func TestExpiredEntryIsAMiss(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rec := pagerecord.PageRecord{URL: "https://example.com/"}
	if err := s.Set(ctx, "https://example.com/", "", pagerecord.BackendLite, rec, -time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	_, ok, err := s.Get(ctx, "https://example.com/", "")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestInvalidate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rec := pagerecord.PageRecord{URL: "https://example.com/"}
	s.Set(ctx, "https://example.com/", "", pagerecord.BackendLite, rec, time.Minute)
	s.Set(ctx, "https://example.com/", "pricing", pagerecord.BackendLite, rec, time.Minute)

	n, err := s.Invalidate(ctx, "https://example.com/")
	if err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if n != 2 {
		t.Errorf("invalidated %d rows, want 2", n)
	}

	if _, ok, _ := s.Get(ctx, "https://example.com/", ""); ok {
		t.Error("expected entry to be gone after invalidate")
	}
}

func TestPurgeExpired(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rec := pagerecord.PageRecord{URL: "https://example.com/"}
	s.Set(ctx, "https://example.com/a", "", pagerecord.BackendLite, rec, -time.Minute)
	s.Set(ctx, "https://example.com/b", "", pagerecord.BackendLite, rec, time.Minute)

	n, err := s.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d, want 1", n)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entries != 1 {
		t.Errorf("Entries = %d, want 1", stats.Entries)
	}
}

func TestEvictToCapacity(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rec := pagerecord.PageRecord{URL: "https://example.com/"}
	for i := 0; i < 5; i++ {
		url := "https://example.com/" + string(rune('a'+i))
		if err := s.Set(ctx, url, "", pagerecord.BackendLite, rec, time.Minute); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	if _, err := s.EvictToCapacity(ctx, 3); err != nil {
		t.Fatalf("EvictToCapacity: %v", err)
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entries != 3 {
		t.Errorf("Entries = %d, want 3", stats.Entries)
	}
}

func TestSetTriggersAutomaticEviction(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenWithConfig(Config{DBPath: filepath.Join(dir, "cache.db"), MaxEntries: 3})
	if err != nil {
		t.Fatalf("OpenWithConfig: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	rec := pagerecord.PageRecord{URL: "https://example.com/"}
	for i := 0; i < 5; i++ {
		url := "https://example.com/" + string(rune('a'+i))
		if err := s.Set(ctx, url, "", pagerecord.BackendLite, rec, time.Minute); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entries != 3 {
		t.Errorf("expected Set to auto-evict down to MaxEntries=3, got %d entries", stats.Entries)
	}
}

func TestStatsReportsBackendsAndTopHits(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rec := pagerecord.PageRecord{URL: "https://example.com/"}
	s.Set(ctx, "https://example.com/a", "", pagerecord.BackendLite, rec, time.Minute)
	s.Set(ctx, "https://example.com/b", "", pagerecord.BackendPlaywright, rec, time.Minute)
	s.Get(ctx, "https://example.com/a", "")
	s.Get(ctx, "https://example.com/a", "")

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Backends[string(pagerecord.BackendLite)] != 1 || stats.Backends[string(pagerecord.BackendPlaywright)] != 1 {
		t.Errorf("unexpected backend breakdown: %#v", stats.Backends)
	}
	if len(stats.TopHits) == 0 || stats.TopHits[0].URL != "https://example.com/a" {
		t.Errorf("expected https://example.com/a to lead top hits, got %#v", stats.TopHits)
	}
}
