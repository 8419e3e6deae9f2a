package dn42

import (
	"context"
	"net/netip"
	"testing"
)

type fakeBackend struct {
	index      *Index
	buildErr   error
	records    map[string]*Record
	syncCalled bool
}

func (f *fakeBackend) Sync(ctx context.Context) error {
	f.syncCalled = true
	return nil
}

func (f *fakeBackend) BuildIndex(ctx context.Context) (*Index, error) {
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	return f.index, nil
}

func (f *fakeBackend) FetchRecord(ctx context.Context, objectType, key string) (*Record, bool, error) {
	r, ok := f.records[idKey(objectType, key)]
	return r, ok, nil
}

func TestManagerRefreshAndLookup(t *testing.T) {
	r := rec("aut-num", "AS4242420000")
	fb := &fakeBackend{index: NewIndex([]*Record{r})}
	mgr := NewManager(fb, nil)

	if err := mgr.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !fb.syncCalled {
		t.Fatal("expected Sync to be called")
	}

	got, ok, err := mgr.LookupASN(context.Background(), "AS4242420000")
	if err != nil || !ok || got != r {
		t.Fatalf("LookupASN: %v %v %v", got, ok, err)
	}
}

func TestManagerLookupFallsBackToBackendFetch(t *testing.T) {
	r := rec("person", "TEST-DN42")
	fb := &fakeBackend{
		index:   NewIndex(nil),
		records: map[string]*Record{idKey("person", "TEST-DN42"): r},
	}
	mgr := NewManager(fb, nil)
	if err := mgr.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	got, ok, err := mgr.LookupID(context.Background(), "person", "TEST-DN42")
	if err != nil || !ok || got != r {
		t.Fatalf("LookupID fallback: %v %v %v", got, ok, err)
	}
}

func TestManagerBuildIndexUnsupportedIsNotAnError(t *testing.T) {
	fb := &fakeBackend{buildErr: ErrIndexUnsupported}
	mgr := NewManager(fb, nil)
	if err := mgr.Refresh(context.Background()); err != nil {
		t.Fatalf("expected no error for unsupported index build, got %v", err)
	}
	if _, ok := mgr.LookupIP(netip.MustParseAddr("10.0.0.1")); ok {
		t.Fatal("expected no IP index for HTTP-style backend")
	}
}
