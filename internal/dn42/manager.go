package dn42

import (
	"context"
	"net/netip"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Akaere-NetWorks/whois-server/internal/errors"
)

// Manager is the handler-facing entry point for C4: it owns a Backend and
// the currently active Index, swapped atomically on Refresh so concurrent
// lookups never observe a partially-rebuilt index (mirrors internal/patch's
// Engine.Swap/Apply split).
type Manager struct {
	backend Backend
	log     *logrus.Logger

	mu  sync.RWMutex
	idx *Index // nil for HTTPBackend, which has no full index
}

func NewManager(backend Backend, log *logrus.Logger) *Manager {
	return &Manager{backend: backend, log: log}
}

// Refresh pulls the backend's latest state and, if the backend supports a
// full index, rebuilds and swaps it in. HTTPBackend's Sync is just a
// reachability check; its ErrIndexUnsupported from BuildIndex is expected
// and not treated as a refresh failure.
func (m *Manager) Refresh(ctx context.Context) error {
	if err := m.backend.Sync(ctx); err != nil {
		return errors.Wrap(errors.KindStorage, "dn42 sync", err)
	}

	idx, err := m.backend.BuildIndex(ctx)
	if err != nil {
		if err == ErrIndexUnsupported {
			return nil
		}
		return errors.Wrap(errors.KindStorage, "dn42 build index", err)
	}

	m.mu.Lock()
	m.idx = idx
	m.mu.Unlock()
	return nil
}

func (m *Manager) snapshot() *Index {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idx
}

// LookupASN resolves an aut-num object, preferring the in-memory index and
// falling back to a direct backend fetch (always the path for HTTPBackend).
func (m *Manager) LookupASN(ctx context.Context, asn string) (*Record, bool, error) {
	if idx := m.snapshot(); idx != nil {
		if r, ok := idx.LookupASN(asn); ok {
			return r, true, nil
		}
	}
	return m.backend.FetchRecord(ctx, "aut-num", asn)
}

// LookupID resolves any object by its RPSL type and key.
func (m *Manager) LookupID(ctx context.Context, objectType, key string) (*Record, bool, error) {
	if idx := m.snapshot(); idx != nil {
		if r, ok := idx.LookupID(objectType, key); ok {
			return r, true, nil
		}
	}
	return m.backend.FetchRecord(ctx, objectType, key)
}

// LookupIP resolves the most specific inetnum/inet6num or route/route6
// object covering addr. Only GitBackend's full index supports this: a
// direct per-object HTTPS fetch has nothing to enumerate ranges from, so
// HTTPBackend-only deployments report a miss rather than an error here.
func (m *Manager) LookupIP(addr netip.Addr) (*Record, bool) {
	idx := m.snapshot()
	if idx == nil {
		return nil, false
	}
	return idx.LookupIP(addr)
}
