package patch

import (
	"context"
	"crypto/sha1" //nolint:gosec // spec-mandated checksum algorithm, not used for anything security-sensitive
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Akaere-NetWorks/whois-server/internal/kv"
)

const patchMetaSubDB = "patch_meta"

// Updater implements the UPDATE-PATCH entry point: fetch the remote index,
// verify each enabled bundle's checksum, persist the verified ones to C1,
// and reload the engine's in-memory rule set atomically.
type Updater struct {
	Client *http.Client
	Store  *kv.Store
	Engine *Engine
	Log    *logrus.Logger
}

// NewUpdater returns an Updater with a bounded default HTTP client.
func NewUpdater(store *kv.Store, engine *Engine, log *logrus.Logger) *Updater {
	return &Updater{
		Client: &http.Client{Timeout: 30 * time.Second},
		Store:  store,
		Engine: engine,
		Log:    log,
	}
}

type patchResult struct {
	meta       BundleMeta
	verified   bool
	actualSHA1 string
	errMsg     string
}

// Update fetches indexURL, verifies and stores every enabled patch, reloads
// the engine from the freshly-stored set, and returns a WHOIS-formatted
// report.
func (u *Updater) Update(ctx context.Context, indexURL string) (string, error) {
	idx, err := u.fetchIndex(ctx, indexURL)
	if err != nil {
		return "", fmt.Errorf("patch: fetch index: %w", err)
	}

	results := make([]patchResult, 0, len(idx.Patches))
	for _, meta := range idx.Patches {
		if !meta.Enabled {
			results = append(results, patchResult{meta: meta, errMsg: "disabled, skipped"})
			continue
		}
		results = append(results, u.fetchAndVerify(ctx, meta))
	}

	files, err := LoadFromStore(u.Store, u.Log)
	if err != nil {
		return "", fmt.Errorf("patch: reload after update: %w", err)
	}
	u.Engine.Swap(files)

	return renderReport(results), nil
}

func (u *Updater) fetchIndex(ctx context.Context, indexURL string) (*Index, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, indexURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := u.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var idx Index
	if err := json.NewDecoder(resp.Body).Decode(&idx); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	return &idx, nil
}

func (u *Updater) fetchAndVerify(ctx context.Context, meta BundleMeta) patchResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.URL, nil)
	if err != nil {
		return patchResult{meta: meta, errMsg: err.Error()}
	}
	resp, err := u.Client.Do(req)
	if err != nil {
		return patchResult{meta: meta, errMsg: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return patchResult{meta: meta, errMsg: fmt.Sprintf("fetch status %d", resp.StatusCode)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return patchResult{meta: meta, errMsg: err.Error()}
	}

	sum := sha1.Sum(body) //nolint:gosec
	actual := hex.EncodeToString(sum[:])
	if !strings.EqualFold(actual, meta.SHA1) {
		u.Log.WithFields(logrus.Fields{
			"patch":    meta.Name,
			"expected": meta.SHA1,
			"actual":   actual,
		}).Warn("patch: checksum mismatch, keeping previously stored copy")
		return patchResult{meta: meta, actualSHA1: actual, errMsg: "checksum mismatch"}
	}

	if _, err := ParseFile(meta.Name, body); err != nil {
		return patchResult{meta: meta, actualSHA1: actual, errMsg: fmt.Sprintf("parse error: %v", err)}
	}

	if err := u.Store.Put(patchesSubDB, meta.Name, body, 0); err != nil {
		return patchResult{meta: meta, actualSHA1: actual, errMsg: fmt.Sprintf("store error: %v", err)}
	}
	metaBytes, _ := json.Marshal(meta)
	if err := u.Store.Put(patchMetaSubDB, meta.Name, metaBytes, 0); err != nil {
		return patchResult{meta: meta, actualSHA1: actual, errMsg: fmt.Sprintf("store meta error: %v", err)}
	}

	return patchResult{meta: meta, verified: true, actualSHA1: actual}
}

func renderReport(results []patchResult) string {
	var b strings.Builder
	b.WriteString("% patch update report\n")
	for _, r := range results {
		status := "VERIFIED"
		if !r.verified {
			status = "FAILED"
		}
		fmt.Fprintf(&b, "%% %-24s status=%s priority=%d size=%d modified=%s\n",
			r.meta.Name, status, r.meta.Priority, r.meta.Size, r.meta.Modified)
		fmt.Fprintf(&b, "%%   expected_sha1=%s actual_sha1=%s\n", r.meta.SHA1, r.actualSHA1)
		if r.errMsg != "" {
			fmt.Fprintf(&b, "%%   note: %s\n", r.errMsg)
		}
	}
	return b.String()
}
