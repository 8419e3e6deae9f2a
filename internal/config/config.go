// Package config assembles typed configuration for the whois server.
//
// Configuration is layered the way the teacher's pkg/config does it: a YAML
// file provides the base, environment variables tagged with `env:"..."`
// override it field-by-field via envdecode, and a local .env file (loaded
// with godotenv, if present) feeds those environment variables in
// development. Nothing here talks to a remote config service.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig controls the primary RFC 3912 TCP surface (C9).
type ServerConfig struct {
	BindAddr       string        `yaml:"bind_addr" env:"WHOIS_BIND_ADDR"`
	MaxConnections int           `yaml:"max_connections" env:"WHOIS_MAX_CONNECTIONS"`
	Timeout        time.Duration `yaml:"timeout" env:"WHOIS_TIMEOUT"`
	LineCap        int           `yaml:"line_cap" env:"WHOIS_LINE_CAP"`
	DumpDir        string        `yaml:"dump_dir" env:"WHOIS_DUMP_DIR"`
}

// SSHConfig controls the optional SSH REPL surface.
type SSHConfig struct {
	Enabled    bool   `yaml:"enabled" env:"WHOIS_SSH_ENABLED"`
	BindAddr   string `yaml:"bind_addr" env:"WHOIS_SSH_BIND_ADDR"`
	HostKeyPath string `yaml:"host_key_path" env:"WHOIS_SSH_HOST_KEY"`
}

// HTTPConfig controls the secondary status/web-query HTTP surface.
type HTTPConfig struct {
	Enabled  bool   `yaml:"enabled" env:"WHOIS_HTTP_ENABLED"`
	BindAddr string `yaml:"bind_addr" env:"WHOIS_HTTP_BIND_ADDR"`
}

// KVConfig controls the embedded key/value store (C1).
type KVConfig struct {
	Path    string   `yaml:"path" env:"WHOIS_KV_PATH"`
	SubDBs  []string `yaml:"sub_dbs"`
	SweepEvery time.Duration `yaml:"sweep_every" env:"WHOIS_KV_SWEEP_EVERY"`
}

// DN42Config controls the DN42 mirror manager (C4).
type DN42Config struct {
	Backend       string        `yaml:"backend" env:"WHOIS_DN42_BACKEND"` // "git" or "http"
	GitURL        string        `yaml:"git_url" env:"WHOIS_DN42_GIT_URL"`
	MirrorPath    string        `yaml:"mirror_path" env:"WHOIS_DN42_MIRROR_PATH"`
	HTTPBaseURL   string        `yaml:"http_base_url" env:"WHOIS_DN42_HTTP_BASE_URL"`
	RefreshEvery  time.Duration `yaml:"refresh_every" env:"WHOIS_DN42_REFRESH_EVERY"`
	// HTTPCacheTTL is not read by the DN42 HTTP back-end, which re-fetches
	// a cached object after a fixed 15 minutes (dn42.httpCacheTTL).
	HTTPCacheTTL  time.Duration `yaml:"http_cache_ttl" env:"WHOIS_DN42_HTTP_CACHE_TTL"`
}

// PatchConfig controls the patch engine (C2).
type PatchConfig struct {
	LocalDir    string        `yaml:"local_dir" env:"WHOIS_PATCH_LOCAL_DIR"`
	IndexURL    string        `yaml:"index_url" env:"WHOIS_PATCH_INDEX_URL"`
	ReloadEvery time.Duration `yaml:"reload_every" env:"WHOIS_PATCH_RELOAD_EVERY"`
}

// PluginConfig controls the plugin runtime (C3).
type PluginConfig struct {
	Dir            string        `yaml:"dir" env:"WHOIS_PLUGIN_DIR"`
	DefaultTimeout time.Duration `yaml:"default_timeout" env:"WHOIS_PLUGIN_DEFAULT_TIMEOUT"`
	MemoryLimitMiB int64         `yaml:"memory_limit_mib" env:"WHOIS_PLUGIN_MEMORY_LIMIT_MIB"`
}

// LoggingConfig controls application logging; shape matches pkg/logger.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	Format     string `yaml:"format" env:"LOG_FORMAT"`
	Output     string `yaml:"output" env:"LOG_OUTPUT"`
	FilePrefix string `yaml:"file_prefix" env:"LOG_FILE_PREFIX"`
}

// MetricsConfig controls the Prometheus exposition.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"WHOIS_METRICS_ENABLED"`
	Path    string `yaml:"path" env:"WHOIS_METRICS_PATH"`
}

// WhoisClientConfig controls the upstream RFC 3912 client (C5).
type WhoisClientConfig struct {
	RootServer string        `yaml:"root_server" env:"WHOIS_UPSTREAM_ROOT"`
	Timeout    time.Duration `yaml:"timeout" env:"WHOIS_UPSTREAM_TIMEOUT"`
}

// Config is the top-level, fully-typed configuration tree.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	SSH         SSHConfig         `yaml:"ssh"`
	HTTP        HTTPConfig        `yaml:"http"`
	KV          KVConfig          `yaml:"kv"`
	DN42        DN42Config        `yaml:"dn42"`
	Patch       PatchConfig       `yaml:"patch"`
	WhoisClient WhoisClientConfig `yaml:"whois_client"`
	Plugin  PluginConfig  `yaml:"plugin"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// Default returns a Config with the conservative defaults named throughout
// spec.md (10s connection timeout, 4KiB line cap, 5s plugin timeout, etc.).
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BindAddr:       ":43",
			MaxConnections: 256,
			Timeout:        10 * time.Second,
			LineCap:        4096,
		},
		SSH: SSHConfig{
			Enabled:  false,
			BindAddr: ":2222",
		},
		HTTP: HTTPConfig{
			Enabled:  true,
			BindAddr: ":8080",
		},
		KV: KVConfig{
			Path:       "data/whois.kv",
			SubDBs:     []string{"patches", "patch_meta", "dn42_http", "stats", "plugin_cache"},
			SweepEvery: time.Minute,
		},
		DN42: DN42Config{
			Backend:      "git",
			GitURL:       "https://git.dn42.dev/dn42/registry.git",
			MirrorPath:   "data/dn42-mirror",
			RefreshEvery: 4 * time.Hour,
			HTTPCacheTTL: 24 * time.Hour,
		},
		Patch: PatchConfig{
			LocalDir:    "patches",
			ReloadEvery: 0, // remote reload is explicit (UPDATE-PATCH), not scheduled by default
		},
		Plugin: PluginConfig{
			Dir:            "plugins",
			DefaultTimeout: 5 * time.Second,
			MemoryLimitMiB: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		WhoisClient: WhoisClientConfig{
			RootServer: "whois.iana.org",
			Timeout:    10 * time.Second,
		},
	}
}

// Load reads a YAML file (if path is non-empty and exists), loads a .env
// file from the working directory (if present) into the process
// environment, then applies env overrides on top.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// .env is best-effort; absence is not an error.
	_ = godotenv.Load()

	if err := envdecode.Decode(cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("decode env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the invariants spec.md names explicitly (e.g. plugin
// timeout_seconds >= 1, translated here to the Go Duration equivalent).
func (c *Config) Validate() error {
	if c.Server.MaxConnections <= 0 {
		return fmt.Errorf("server.max_connections must be > 0")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be > 0")
	}
	if c.Plugin.DefaultTimeout < time.Second {
		return fmt.Errorf("plugin.default_timeout must be >= 1s")
	}
	if c.DN42.Backend != "git" && c.DN42.Backend != "http" {
		return fmt.Errorf("dn42.backend must be \"git\" or \"http\", got %q", c.DN42.Backend)
	}
	return nil
}
