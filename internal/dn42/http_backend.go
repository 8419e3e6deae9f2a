package dn42

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Akaere-NetWorks/whois-server/internal/kv"
)

const httpBackendSubDB = "dn42_http"

// httpCacheTTL bounds how long a fetched object is trusted before
// HTTPBackend re-fetches it.
const httpCacheTTL = 15 * time.Minute

// HTTPBackend fetches individual DN42 registry objects over HTTPS from a
// raw-file mirror (e.g. a GitHub raw content host), caching bodies in the
// KV store. It has no full Index: spec.md §4.4's range lookups need every
// object enumerated up front, which single-object HTTPS fetches can't
// provide, so BuildIndex returns ErrIndexUnsupported (an Open Question
// decision recorded in DESIGN.md).
type HTTPBackend struct {
	BaseURL string
	Client  *http.Client
	Store   *kv.Store
}

func NewHTTPBackend(baseURL string, client *http.Client, store *kv.Store) *HTTPBackend {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPBackend{BaseURL: strings.TrimRight(baseURL, "/"), Client: client, Store: store}
}

// Sync for HTTPBackend is a reachability check only: there is no local
// mirror to refresh.
func (b *HTTPBackend) Sync(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, b.BaseURL, nil)
	if err != nil {
		return err
	}
	resp, err := b.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

func (b *HTTPBackend) BuildIndex(ctx context.Context) (*Index, error) {
	return nil, ErrIndexUnsupported
}

func cacheKey(objectType, key string) string {
	return objectType + "/" + strings.ToUpper(key)
}

// FetchRecord fetches data/<objectType>/<key> from BaseURL, caching the raw
// body in the dn42_http sub-db for httpCacheTTL.
func (b *HTTPBackend) FetchRecord(ctx context.Context, objectType, key string) (*Record, bool, error) {
	ck := cacheKey(objectType, key)
	if b.Store != nil {
		if body, ok := b.Store.Get(httpBackendSubDB, ck); ok {
			rec, err := ParseRPSL(body)
			if err != nil {
				return nil, false, err
			}
			return rec, true, nil
		}
	}

	url := fmt.Sprintf("%s/data/%s/%s", b.BaseURL, objectType, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("dn42: fetch %s: unexpected status %s", url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, false, err
	}

	rec, err := ParseRPSL(body)
	if err != nil {
		return nil, false, err
	}

	if b.Store != nil {
		_ = b.Store.Put(httpBackendSubDB, ck, body, httpCacheTTL)
	}
	return rec, true, nil
}
