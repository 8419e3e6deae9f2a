package dn42

import "context"

// Backend mirrors or queries the upstream DN42 registry. GitBackend
// maintains a full local clone and can build a complete Index; HTTPBackend
// fetches individual objects on demand and cannot (spec.md §4.4's interval
// index needs every range up front, which a single-object HTTPS fetch can't
// provide).
type Backend interface {
	// Sync refreshes local state: a git pull for GitBackend, a no-op
	// reachability check for HTTPBackend.
	Sync(ctx context.Context) error

	// BuildIndex returns a fresh Index built from the current local state.
	// HTTPBackend returns ErrIndexUnsupported.
	BuildIndex(ctx context.Context) (*Index, error)

	// FetchRecord fetches a single object by type and key, bypassing the
	// index. Used by HTTPBackend for direct lookups and by GitBackend as a
	// fallback when the in-memory index is stale or missing an entry.
	FetchRecord(ctx context.Context, objectType, key string) (*Record, bool, error)
}

// ErrIndexUnsupported is returned by BuildIndex on backends that can only
// do direct key lookups.
type errIndexUnsupported struct{}

func (errIndexUnsupported) Error() string { return "dn42: this backend does not support full index builds" }

var ErrIndexUnsupported error = errIndexUnsupported{}
