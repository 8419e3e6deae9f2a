package stats

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Akaere-NetWorks/whois-server/internal/kv"
)

func TestRecordAccumulates(t *testing.T) {
	s := New()
	s.Record("Raw.Domain", 120, 5*time.Millisecond, false)
	s.Record("Raw.Domain", 80, 3*time.Millisecond, true)

	snap := s.Snapshot()
	if snap.TotalRequests != 2 {
		t.Fatalf("TotalRequests = %d, want 2", snap.TotalRequests)
	}
	if snap.TotalBytes != 200 {
		t.Fatalf("TotalBytes = %d, want 200", snap.TotalBytes)
	}
	if snap.TotalErrors != 1 {
		t.Fatalf("TotalErrors = %d, want 1", snap.TotalErrors)
	}
	last := snap.Hourly[len(snap.Hourly)-1]
	if last.ByKind["Raw.Domain"] != 2 {
		t.Fatalf("ByKind[Raw.Domain] = %d, want 2", last.ByKind["Raw.Domain"])
	}
}

func TestRolloverCreatesBucketPerElapsedHour(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newAt(base)
	cur := base
	s.now = func() time.Time { return cur }

	s.Record("k", 1, 0, false)
	cur = base.Add(2 * time.Hour)
	s.Record("k", 1, 0, false)

	snap := s.Snapshot()
	if len(snap.Hourly) != 3 {
		t.Fatalf("expected 3 hourly buckets after a 2h jump, got %d", len(snap.Hourly))
	}
	if snap.Hourly[0].Requests != 1 || snap.Hourly[2].Requests != 1 || snap.Hourly[1].Requests != 0 {
		t.Fatalf("unexpected bucket distribution: %+v", snap.Hourly)
	}
}

func TestRolloverTrimsToWindowSize(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newAt(base)
	cur := base
	s.now = func() time.Time { return cur }

	for i := 0; i < hourlyBuckets+5; i++ {
		cur = base.Add(time.Duration(i) * time.Hour)
		s.Record("k", 1, 0, false)
	}

	snap := s.Snapshot()
	if len(snap.Hourly) != hourlyBuckets {
		t.Fatalf("expected window trimmed to %d, got %d", hourlyBuckets, len(snap.Hourly))
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store, err := kv.Open(filepath.Join(t.TempDir(), "stats.db"), []string{statsSubDB})
	if err != nil {
		t.Fatalf("kv.Open: %v", err)
	}
	defer store.Close()

	s := New()
	s.Record("Raw.Domain", 42, time.Millisecond, false)
	if err := s.SaveTo(store); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	restored, err := LoadFrom(store)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if restored.Snapshot().TotalRequests != 1 {
		t.Fatalf("expected restored TotalRequests = 1, got %d", restored.Snapshot().TotalRequests)
	}
}

func TestLoadFromEmptyStoreReturnsFreshStats(t *testing.T) {
	store, err := kv.Open(filepath.Join(t.TempDir(), "stats.db"), []string{statsSubDB})
	if err != nil {
		t.Fatalf("kv.Open: %v", err)
	}
	defer store.Close()

	s, err := LoadFrom(store)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if s.Snapshot().TotalRequests != 0 {
		t.Fatalf("expected zero requests for fresh stats, got %d", s.Snapshot().TotalRequests)
	}
}
