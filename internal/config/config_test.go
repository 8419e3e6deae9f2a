package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.BindAddr != ":43" {
		t.Fatalf("expected default bind addr, got %s", cfg.Server.BindAddr)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "server:\n  bind_addr: \"127.0.0.1:4343\"\n  max_connections: 10\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.BindAddr != "127.0.0.1:4343" {
		t.Fatalf("expected overridden bind addr, got %s", cfg.Server.BindAddr)
	}
	if cfg.Server.MaxConnections != 10 {
		t.Fatalf("expected overridden max connections, got %d", cfg.Server.MaxConnections)
	}
	// Untouched fields retain their defaults.
	if cfg.Server.Timeout != 10*time.Second {
		t.Fatalf("expected default timeout to survive, got %v", cfg.Server.Timeout)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("WHOIS_BIND_ADDR", "0.0.0.0:9999")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.BindAddr != "0.0.0.0:9999" {
		t.Fatalf("expected env override, got %s", cfg.Server.BindAddr)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"max_connections", func(c *Config) { c.Server.MaxConnections = 0 }},
		{"timeout", func(c *Config) { c.Server.Timeout = 0 }},
		{"plugin_timeout", func(c *Config) { c.Plugin.DefaultTimeout = 100 * time.Millisecond }},
		{"dn42_backend", func(c *Config) { c.DN42.Backend = "carrier-pigeon" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mut(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
}
