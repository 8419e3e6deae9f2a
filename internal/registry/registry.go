// Package registry implements C7, the handler registry: a table from
// QueryKind to Handler. Built-in entries are installed at startup; plugin
// entries are installed while C3 loads plugin bundles. Post-startup
// mutation is guarded by a writer lock; each request takes an O(1) snapshot
// read, per spec.md §4.7.
//
// The RWMutex-guarded map with ordered registration is grounded on the
// teacher's system/core/registry.go module registry (Register/Unregister
// under a single lock, reporting registration order) — narrowed here from a
// multi-interface service-module registry to a flat kind-to-handler table,
// since this system has no module lifecycle or health model to carry along.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Akaere-NetWorks/whois-server/internal/classify"
)

// Handler answers one classified query. ctx carries the per-request
// deadline and cancellation signal from C9/C8.
type Handler func(ctx context.Context, q classify.Query) (string, error)

// Registry is the process-wide QueryKind → Handler table.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	plugins  map[string]string // upper-case suffix (no '-') -> owning plugin name
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		plugins:  make(map[string]string),
	}
}

// key builds the composite lookup key for a classify.Kind (+ Tag where the
// kind carries one). Kept as a free function so both registration and
// lookup agree on its shape.
func key(kind classify.Kind, tag string) string {
	switch kind {
	case classify.KindSuffix, classify.KindIRRRegistry, classify.KindPackage, classify.KindPlugin:
		return fmt.Sprintf("%s:%s", kind, strings.ToUpper(tag))
	default:
		return kind.String()
	}
}

// RegisterBuiltin installs a built-in handler for a plain kind (Raw*, Help,
// UpdatePatch, ReloadPatch, RPKI) or a tagged kind (Suffix/IRRRegistry/
// Package) identified by tag.
func (r *Registry) RegisterBuiltin(kind classify.Kind, tag string, h Handler) error {
	if h == nil {
		return fmt.Errorf("registry: nil handler for %s %q", kind, tag)
	}
	k := key(kind, tag)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[k]; exists {
		return fmt.Errorf("registry: handler already registered for %s", k)
	}
	r.handlers[k] = h
	return nil
}

// RegisterPlugin installs a plugin adapter under its declared suffix.
// suffix must start with '-' per spec.md §3; a later registration for an
// already-claimed suffix is rejected so the caller (C3) can skip that
// plugin bundle and keep loading the rest.
func (r *Registry) RegisterPlugin(name, suffix string, h Handler) error {
	if h == nil {
		return fmt.Errorf("registry: nil handler for plugin %q", name)
	}
	if !strings.HasPrefix(suffix, "-") {
		return fmt.Errorf("registry: plugin %q suffix %q must start with '-'", name, suffix)
	}
	tag := strings.ToUpper(strings.TrimPrefix(suffix, "-"))
	if tag == "" {
		return fmt.Errorf("registry: plugin %q has empty suffix", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, exists := r.plugins[tag]; exists {
		return fmt.Errorf("registry: suffix -%s already registered by plugin %q, rejecting %q", tag, owner, name)
	}
	r.plugins[tag] = name
	r.handlers[key(classify.KindPlugin, tag)] = h
	return nil
}

// Unregister removes a plugin's handler, e.g. during a hot-reload. Built-in
// handlers are never unregistered at runtime.
func (r *Registry) Unregister(suffix string) {
	tag := strings.ToUpper(strings.TrimPrefix(suffix, "-"))
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.plugins, tag)
	delete(r.handlers, key(classify.KindPlugin, tag))
}

// Lookup resolves a classified query to its handler.
func (r *Registry) Lookup(q classify.Query) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[key(q.Kind, q.Tag)]
	return h, ok
}

// PluginSuffixes returns the currently-registered plugin suffixes
// (upper-case, without leading '-'), for C6 to consult during
// classification. This is a snapshot copy, safe to use after the lock is
// released.
func (r *Registry) PluginSuffixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.plugins))
	for tag := range r.plugins {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
