package kv

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.kv")
	s, err := Open(path, []string{"default", "other"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if err := s.Put("default", "k1", []byte("v1"), 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	v, ok := s.Get("default", "k1")
	if !ok || string(v) != "v1" {
		t.Fatalf("expected v1, got %q ok=%v", v, ok)
	}
}

func TestGetMissingKey(t *testing.T) {
	s := newTestStore(t)
	_, ok := s.Get("default", "missing")
	if ok {
		t.Fatalf("expected miss")
	}
}

func TestTTLExpiry(t *testing.T) {
	s := newTestStore(t)
	if err := s.Put("default", "k1", []byte("v1"), time.Millisecond); err != nil {
		t.Fatalf("put: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	_, ok := s.Get("default", "k1")
	if ok {
		t.Fatalf("expected entry to have expired")
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	_ = s.Put("default", "k1", []byte("v1"), 0)
	if err := s.Delete("default", "k1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, ok := s.Get("default", "k1")
	if ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestIterPrefix(t *testing.T) {
	s := newTestStore(t)
	_ = s.Put("default", "a:1", []byte("1"), 0)
	_ = s.Put("default", "a:2", []byte("2"), 0)
	_ = s.Put("default", "b:1", []byte("3"), 0)

	var keys []string
	err := s.Iter("default", "a:", func(e Entry) error {
		keys = append(keys, e.Key)
		return nil
	})
	if err != nil {
		t.Fatalf("iter: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d (%v)", len(keys), keys)
	}
}

func TestIterSkipsExpired(t *testing.T) {
	s := newTestStore(t)
	_ = s.Put("default", "a:1", []byte("1"), time.Millisecond)
	_ = s.Put("default", "a:2", []byte("2"), 0)
	time.Sleep(5 * time.Millisecond)

	var keys []string
	_ = s.Iter("default", "a:", func(e Entry) error {
		keys = append(keys, e.Key)
		return nil
	})
	if len(keys) != 1 || keys[0] != "a:2" {
		t.Fatalf("expected only a:2, got %v", keys)
	}
}

func TestSweepExpiredRemovesDeadEntries(t *testing.T) {
	s := newTestStore(t)
	_ = s.Put("default", "dead", []byte("1"), time.Millisecond)
	_ = s.Put("default", "alive", []byte("2"), 0)
	time.Sleep(5 * time.Millisecond)

	n, err := s.SweepExpired([]string{"default", "other"})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 removed, got %d", n)
	}
	_, ok := s.Get("default", "alive")
	if !ok {
		t.Fatalf("expected alive entry to survive sweep")
	}
}

func TestSubDBIsolation(t *testing.T) {
	s := newTestStore(t)
	_ = s.Put("default", "k", []byte("v1"), 0)
	_ = s.Put("other", "k", []byte("v2"), 0)

	v1, _ := s.Get("default", "k")
	v2, _ := s.Get("other", "k")
	if string(v1) != "v1" || string(v2) != "v2" {
		t.Fatalf("expected sub-db isolation, got %q / %q", v1, v2)
	}
}
