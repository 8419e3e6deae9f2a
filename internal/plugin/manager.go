package plugin

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Akaere-NetWorks/whois-server/internal/classify"
	"github.com/Akaere-NetWorks/whois-server/internal/kv"
	"github.com/Akaere-NetWorks/whois-server/internal/registry"
)

// Manager owns every loaded plugin's runtime and adapts each into a
// registry.Handler under its declared suffix.
type Manager struct {
	log     *logrus.Logger
	plugins []*Plugin
}

// Load scans dir and instantiates a runtime for every enabled, valid
// bundle found.
func Load(dir string, log *logrus.Logger, store *kv.Store) (*Manager, error) {
	bundles, err := ScanDir(dir, log)
	if err != nil {
		return nil, err
	}
	return &Manager{log: log, plugins: Runtimes(bundles, log, store)}, nil
}

// Suffixes returns the suffix (without leading '-') of every loaded
// plugin, for C6 classification.
func (m *Manager) Suffixes() []string {
	out := make([]string, 0, len(m.plugins))
	for _, p := range m.plugins {
		out = append(out, p.Descriptor.Suffix[1:])
	}
	return out
}

// RegisterInto installs every loaded plugin into reg under its declared
// suffix. A collision (two plugins declaring the same suffix) rejects the
// later plugin, per spec.md §4.3; the rejected plugin's runtime is
// immediately cleaned up since it will never be dispatched to.
func (m *Manager) RegisterInto(reg *registry.Registry) {
	for _, p := range m.plugins {
		p := p
		err := reg.RegisterPlugin(p.Descriptor.Name, p.Descriptor.Suffix, func(ctx context.Context, q classify.Query) (string, error) {
			return p.HandleQuery(q.Payload)
		})
		if err != nil {
			m.log.WithError(err).WithField("plugin", p.Descriptor.Name).Warn("plugin: rejected due to suffix collision")
			_ = p.Cleanup()
		}
	}
}

// Shutdown calls cleanup() on every loaded plugin.
func (m *Manager) Shutdown() {
	for _, p := range m.plugins {
		if err := p.Cleanup(); err != nil {
			m.log.WithError(err).WithField("plugin", p.Descriptor.Name).Warn("plugin: cleanup() failed")
		}
	}
}
