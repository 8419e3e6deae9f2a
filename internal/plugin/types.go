// Package plugin implements C3, the sandboxed embedded-scripting plugin
// runtime: it loads plugin bundles from a directory, enforces a
// permission-checked host API, and dispatches classified queries whose
// suffix matches a loaded plugin to that plugin's handle_query function.
//
// Entry-point invocation via goja.AssertFunction is grounded on the
// teacher's system/tee/script_engine.go gojaScriptEngine, which builds a
// fresh goja.Runtime per call; this package instead keeps one persistent
// goja.Runtime per plugin (see runtime.go).
// The permission model (request validated against a per-caller allow-list
// before any capability runs) is grounded on the same package's
// isSecretAllowed/matchPattern wildcard check in engine.go, adapted from
// secret-name patterns to allowed-domain patterns.
package plugin

import "time"

// Permissions is the descriptor's capability grant, per spec.md §3.
type Permissions struct {
	Network        bool     `yaml:"network"`
	AllowedDomains []string `yaml:"allowed_domains"`
	CacheRead      bool     `yaml:"cache_read"`
	CacheWrite     bool     `yaml:"cache_write"`
	UserAgent      string   `yaml:"user_agent"`
	EnvVars        []string `yaml:"env_vars"`
}

// Descriptor is a plugin's "meta" file, parsed from YAML.
type Descriptor struct {
	Name           string      `yaml:"name"`
	Version        string      `yaml:"version"`
	Suffix         string      `yaml:"suffix"`
	Enabled        bool        `yaml:"enabled"`
	TimeoutSeconds int         `yaml:"timeout_seconds"`
	Permissions    Permissions `yaml:"permissions"`
}

// Timeout returns the descriptor's wall-clock budget, defaulting to 5s
// per spec.md §4.3 when unset.
func (d Descriptor) Timeout() time.Duration {
	if d.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// Validate checks the descriptor invariants from spec.md §3.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return errInvalidDescriptor("plugin name is required")
	}
	if d.Suffix == "" || d.Suffix[0] != '-' {
		return errInvalidDescriptor("suffix must start with '-'")
	}
	if d.TimeoutSeconds != 0 && d.TimeoutSeconds < 1 {
		return errInvalidDescriptor("timeout_seconds must be >= 1 when set")
	}
	return nil
}

type errInvalidDescriptor string

func (e errInvalidDescriptor) Error() string { return "plugin: " + string(e) }
