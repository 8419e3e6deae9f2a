package dn42

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/Akaere-NetWorks/whois-server/internal/kv"
)

func testStore(t *testing.T) *kv.Store {
	t.Helper()
	store, err := kv.Open(filepath.Join(t.TempDir(), "test.db"), []string{httpBackendSubDB})
	if err != nil {
		t.Fatalf("kv.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestHTTPBackendFetchRecordAndCache(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Path != "/data/aut-num/AS4242420000" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("aut-num: AS4242420000\nas-name: EXAMPLE\n"))
	}))
	defer srv.Close()

	store := testStore(t)
	b := NewHTTPBackend(srv.URL, srv.Client(), store)

	rec, ok, err := b.FetchRecord(context.Background(), "aut-num", "AS4242420000")
	if err != nil || !ok {
		t.Fatalf("FetchRecord: %v ok=%v", err, ok)
	}
	if rec.Key != "AS4242420000" {
		t.Fatalf("unexpected key: %s", rec.Key)
	}

	// second fetch should be served from cache, not hit the server again
	if _, _, err := b.FetchRecord(context.Background(), "aut-num", "AS4242420000"); err != nil {
		t.Fatalf("FetchRecord (cached): %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected 1 server hit, got %d", hits)
	}
}

func TestHTTPBackendFetchRecordMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	b := NewHTTPBackend(srv.URL, srv.Client(), nil)
	_, ok, err := b.FetchRecord(context.Background(), "aut-num", "AS9999999999")
	if err != nil {
		t.Fatalf("FetchRecord: %v", err)
	}
	if ok {
		t.Fatal("expected miss")
	}
}

func TestHTTPBackendBuildIndexUnsupported(t *testing.T) {
	b := NewHTTPBackend("http://example.invalid", nil, nil)
	_, err := b.BuildIndex(context.Background())
	if err != ErrIndexUnsupported {
		t.Fatalf("expected ErrIndexUnsupported, got %v", err)
	}
}
