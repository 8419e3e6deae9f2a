package whoisclient

import (
	"context"
	"testing"

	"github.com/Akaere-NetWorks/whois-server/internal/dn42"
)

type fakeDN42Backend struct {
	index *dn42.Index
}

func (f *fakeDN42Backend) Sync(ctx context.Context) error { return nil }
func (f *fakeDN42Backend) BuildIndex(ctx context.Context) (*dn42.Index, error) {
	return f.index, nil
}
func (f *fakeDN42Backend) FetchRecord(ctx context.Context, objectType, key string) (*dn42.Record, bool, error) {
	return nil, false, nil
}

func TestLookupPrefersDN42WhenEligible(t *testing.T) {
	rec := &dn42.Record{
		ObjectType: "aut-num",
		Key:        "AS4242420000",
		Attrs:      []dn42.Attr{{Name: "aut-num", Value: "AS4242420000"}},
	}
	idx := dn42.NewIndex([]*dn42.Record{rec})
	mgr := dn42.NewManager(&fakeDN42Backend{index: idx}, nil)
	if err := mgr.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	c := New("203.0.113.1", 200_000_000, mgr, nil) // unreachable root, never dialed for an eligible DN42 hit
	resp, err := c.Lookup(context.Background(), "AS4242420000", true)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if resp != rec.Render() {
		t.Fatalf("expected DN42 record rendered directly, got %q", resp)
	}
}
