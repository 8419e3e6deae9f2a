package plugin

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/sirupsen/logrus"

	"github.com/Akaere-NetWorks/whois-server/internal/kv"
)

const cachePluginSubDB = "plugin_cache"

// Plugin is one loaded plugin: a single persistent goja.Runtime plus the
// host-side state its API calls need. goja.Runtime is not safe for
// concurrent use, so mu serializes every call into it — init, handle_query,
// and cleanup never overlap.
type Plugin struct {
	Descriptor Descriptor

	mu         sync.Mutex
	vm         *goja.Runtime
	log        *logrus.Logger
	store      *kv.Store
	env        map[string]string
	httpClient *http.Client
}

// New compiles bundle's script into a fresh runtime, installs the
// sandboxed host API, and calls init() once if the script defines it.
func New(b *Bundle, log *logrus.Logger, store *kv.Store) (*Plugin, error) {
	p := &Plugin{
		Descriptor: b.Descriptor,
		vm:         goja.New(),
		log:        log,
		store:      store,
		env:        b.Env,
		httpClient: &http.Client{Timeout: b.Descriptor.Timeout()},
	}
	p.installHostAPI()

	if _, err := p.vm.RunString(b.Script); err != nil {
		return nil, fmt.Errorf("plugin %s: load script: %w", p.Descriptor.Name, err)
	}
	if err := p.callOptional("init"); err != nil {
		return nil, fmt.Errorf("plugin %s: init(): %w", p.Descriptor.Name, err)
	}
	return p, nil
}

// Cleanup calls the plugin's cleanup() hook, if defined, at shutdown.
func (p *Plugin) Cleanup() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.callOptional("cleanup")
}

func (p *Plugin) callOptional(name string) error {
	fnVal := p.vm.Get(name)
	if fnVal == nil || goja.IsUndefined(fnVal) {
		return nil
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return nil
	}
	_, err := fn(goja.Undefined())
	return err
}

// HandleQuery invokes handle_query(payload) under the descriptor's
// wall-clock budget. A timeout interrupts the runtime; the worker is freed
// either way, never blocked past the deadline.
func (p *Plugin) HandleQuery(payload string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.vm.ClearInterrupt()
	fnVal := p.vm.Get("handle_query")
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return "", fmt.Errorf("plugin %s: handle_query is not defined", p.Descriptor.Name)
	}

	timeout := p.Descriptor.Timeout()
	timer := time.AfterFunc(timeout, func() {
		p.vm.Interrupt(fmt.Sprintf("plugin %s exceeded %s timeout", p.Descriptor.Name, timeout))
	})
	defer timer.Stop()

	result, err := fn(goja.Undefined(), p.vm.ToValue(payload))
	if err != nil {
		return "", fmt.Errorf("plugin %s: %w", p.Descriptor.Name, err)
	}
	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return "", nil
	}
	return result.String(), nil
}

// installHostAPI registers the whitelist-only capability surface from
// spec.md §4.3. Every call is permission-checked against the descriptor
// before doing anything observable (network I/O, cache access).
func (p *Plugin) installHostAPI() {
	vm := p.vm
	_ = vm.Set("http_get", p.hostHTTPGet)
	_ = vm.Set("cache_get", p.hostCacheGet)
	_ = vm.Set("cache_set", p.hostCacheSet)
	_ = vm.Set("log_info", func(msg string) { p.log.WithField("plugin", p.Descriptor.Name).Info(msg) })
	_ = vm.Set("log_warn", func(msg string) { p.log.WithField("plugin", p.Descriptor.Name).Warn(msg) })
	_ = vm.Set("log_error", func(msg string) { p.log.WithField("plugin", p.Descriptor.Name).Error(msg) })
	_ = vm.Set("env_get", p.hostEnvGet)
	_ = vm.Set("env_list", p.hostEnvList)
}

type httpGetResult struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

func (p *Plugin) hostHTTPGet(rawURL string) goja.Value {
	if !p.Descriptor.Permissions.Network {
		panic(p.vm.NewGoError(fmt.Errorf("plugin %s: http_get denied: network permission not granted", p.Descriptor.Name)))
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		panic(p.vm.NewGoError(fmt.Errorf("plugin %s: http_get: invalid url: %w", p.Descriptor.Name, err)))
	}
	if !domainAllowed(p.Descriptor.Permissions.AllowedDomains, u.Hostname()) {
		panic(p.vm.NewGoError(fmt.Errorf("plugin %s: http_get denied: host %q not in allowed_domains", p.Descriptor.Name, u.Hostname())))
	}

	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		panic(p.vm.NewGoError(err))
	}
	if p.Descriptor.Permissions.UserAgent != "" {
		req.Header.Set("User-Agent", p.Descriptor.Permissions.UserAgent)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		panic(p.vm.NewGoError(fmt.Errorf("plugin %s: http_get: %w", p.Descriptor.Name, err)))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		panic(p.vm.NewGoError(fmt.Errorf("plugin %s: http_get: read body: %w", p.Descriptor.Name, err)))
	}

	out, _ := json.Marshal(httpGetResult{Status: resp.StatusCode, Body: string(body)})
	return p.vm.ToValue(string(out))
}

func (p *Plugin) cacheKey(key string) string {
	return fmt.Sprintf("plugin:%s:%s", p.Descriptor.Name, key)
}

func (p *Plugin) hostCacheGet(key string) goja.Value {
	if !p.Descriptor.Permissions.CacheRead {
		panic(p.vm.NewGoError(fmt.Errorf("plugin %s: cache_get denied: cache_read permission not granted", p.Descriptor.Name)))
	}
	v, ok := p.store.Get(cachePluginSubDB, p.cacheKey(key))
	if !ok {
		return goja.Undefined()
	}
	return p.vm.ToValue(string(v))
}

func (p *Plugin) hostCacheSet(key, value string, ttlSeconds int) {
	if !p.Descriptor.Permissions.CacheWrite {
		panic(p.vm.NewGoError(fmt.Errorf("plugin %s: cache_set denied: cache_write permission not granted", p.Descriptor.Name)))
	}
	var ttl time.Duration
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}
	if err := p.store.Put(cachePluginSubDB, p.cacheKey(key), []byte(value), ttl); err != nil {
		panic(p.vm.NewGoError(fmt.Errorf("plugin %s: cache_set: %w", p.Descriptor.Name, err)))
	}
}

func (p *Plugin) hostEnvGet(name string) goja.Value {
	for _, allowed := range p.Descriptor.Permissions.EnvVars {
		if allowed == name {
			if v, ok := p.env[name]; ok {
				return p.vm.ToValue(v)
			}
			return goja.Undefined()
		}
	}
	return goja.Undefined()
}

func (p *Plugin) hostEnvList() goja.Value {
	return p.vm.ToValue(append([]string(nil), p.Descriptor.Permissions.EnvVars...))
}

// domainAllowed reports whether host matches one of the allow patterns.
// "*" matches everything; "*.example.com" matches example.com and any
// subdomain; anything else must match exactly.
func domainAllowed(patterns []string, host string) bool {
	host = strings.ToLower(host)
	for _, pattern := range patterns {
		pattern = strings.ToLower(pattern)
		if pattern == "*" || pattern == host {
			return true
		}
		if strings.HasPrefix(pattern, "*.") {
			base := pattern[2:]
			if host == base || strings.HasSuffix(host, "."+base) {
				return true
			}
		}
	}
	return false
}
