package plugin

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/Akaere-NetWorks/whois-server/internal/kv"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(discard{})
	return log
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func testStore(t *testing.T) *kv.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.kv")
	s, err := kv.Open(path, []string{cachePluginSubDB})
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestPlugin(t *testing.T, desc Descriptor, script string, env map[string]string) *Plugin {
	t.Helper()
	b := &Bundle{Descriptor: desc, Script: script, Env: env}
	p, err := New(b, testLogger(), testStore(t))
	if err != nil {
		t.Fatalf("new plugin: %v", err)
	}
	return p
}

func TestHandleQueryBasic(t *testing.T) {
	p := newTestPlugin(t, Descriptor{Name: "echo", Suffix: "-ECHO", TimeoutSeconds: 2}, `
function handle_query(payload) {
  return "echo:" + payload;
}
`, nil)
	out, err := p.HandleQuery("hello")
	if err != nil {
		t.Fatalf("handle_query: %v", err)
	}
	if out != "echo:hello" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestHandleQueryMissingFunction(t *testing.T) {
	p := newTestPlugin(t, Descriptor{Name: "broken", Suffix: "-X", TimeoutSeconds: 2}, `var x = 1;`, nil)
	if _, err := p.HandleQuery("hello"); err == nil {
		t.Fatalf("expected error for missing handle_query")
	}
}

func TestHandleQueryTimeout(t *testing.T) {
	p := newTestPlugin(t, Descriptor{Name: "slow", Suffix: "-SLOW", TimeoutSeconds: 1}, `
function handle_query(payload) {
  while (true) {}
}
`, nil)
	if _, err := p.HandleQuery("x"); err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestInitAndCleanupHooks(t *testing.T) {
	p := newTestPlugin(t, Descriptor{Name: "lifecycle", Suffix: "-LC", TimeoutSeconds: 2}, `
var initialized = false;
function init() { initialized = true; }
function handle_query(payload) {
  return initialized ? "ready" : "not-ready";
}
function cleanup() {}
`, nil)
	out, err := p.HandleQuery("x")
	if err != nil {
		t.Fatalf("handle_query: %v", err)
	}
	if out != "ready" {
		t.Fatalf("expected init() to have run before handle_query, got %q", out)
	}
	if err := p.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}

func TestHTTPGetDeniedWithoutNetworkPermission(t *testing.T) {
	p := newTestPlugin(t, Descriptor{Name: "nonet", Suffix: "-NN", TimeoutSeconds: 2}, `
function handle_query(payload) {
  return http_get("http://example.com");
}
`, nil)
	if _, err := p.HandleQuery("x"); err == nil {
		t.Fatalf("expected http_get to be denied without network permission")
	}
}

func TestHTTPGetDeniedForDisallowedDomain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	desc := Descriptor{
		Name: "limited", Suffix: "-LIM", TimeoutSeconds: 2,
		Permissions: Permissions{Network: true, AllowedDomains: []string{"example.com"}},
	}
	p := newTestPlugin(t, desc, `
function handle_query(payload) {
  return http_get(payload);
}
`, nil)
	if _, err := p.HandleQuery(srv.URL); err == nil {
		t.Fatalf("expected http_get to be denied for a domain outside allowed_domains")
	}
}

func TestHTTPGetAllowedForWhitelistedDomain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")
	desc := Descriptor{
		Name: "allowed", Suffix: "-ALLOW", TimeoutSeconds: 2,
		Permissions: Permissions{Network: true, AllowedDomains: []string{host}},
	}
	p := newTestPlugin(t, desc, `
function handle_query(payload) {
  var result = JSON.parse(http_get(payload));
  return "status:" + result.status;
}
`, nil)
	out, err := p.HandleQuery(srv.URL)
	if err != nil {
		t.Fatalf("handle_query: %v", err)
	}
	if out != "status:200" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCacheGetSetRoundTrip(t *testing.T) {
	desc := Descriptor{
		Name: "cacher", Suffix: "-CACHE", TimeoutSeconds: 2,
		Permissions: Permissions{CacheRead: true, CacheWrite: true},
	}
	p := newTestPlugin(t, desc, `
function handle_query(payload) {
  cache_set("k", payload, 0);
  return cache_get("k");
}
`, nil)
	out, err := p.HandleQuery("cached-value")
	if err != nil {
		t.Fatalf("handle_query: %v", err)
	}
	if out != "cached-value" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCacheSetDeniedWithoutPermission(t *testing.T) {
	p := newTestPlugin(t, Descriptor{Name: "nocache", Suffix: "-NC", TimeoutSeconds: 2}, `
function handle_query(payload) {
  cache_set("k", "v", 0);
  return "unreachable";
}
`, nil)
	if _, err := p.HandleQuery("x"); err == nil {
		t.Fatalf("expected cache_set to be denied without cache_write permission")
	}
}

func TestEnvGetOnlyReturnsAllowlistedNames(t *testing.T) {
	desc := Descriptor{
		Name: "envplugin", Suffix: "-ENV", TimeoutSeconds: 2,
		Permissions: Permissions{EnvVars: []string{"API_KEY"}},
	}
	p := newTestPlugin(t, desc, `
function handle_query(payload) {
  var allowed = env_get("API_KEY");
  var denied = env_get("SECRET");
  return allowed + "|" + (denied === undefined ? "undef" : denied);
}
`, map[string]string{"API_KEY": "abc123", "SECRET": "nope"})
	out, err := p.HandleQuery("x")
	if err != nil {
		t.Fatalf("handle_query: %v", err)
	}
	if out != "abc123|undef" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestDomainAllowedWildcard(t *testing.T) {
	cases := []struct {
		patterns []string
		host     string
		want     bool
	}{
		{[]string{"*.example.com"}, "api.example.com", true},
		{[]string{"*.example.com"}, "example.com", true},
		{[]string{"*.example.com"}, "evil.com", false},
		{[]string{"example.com"}, "example.com", true},
		{[]string{"example.com"}, "sub.example.com", false},
		{[]string{"*"}, "anything.at.all", true},
	}
	for _, c := range cases {
		if got := domainAllowed(c.patterns, c.host); got != c.want {
			t.Errorf("domainAllowed(%v, %q) = %v, want %v", c.patterns, c.host, got, c.want)
		}
	}
}
