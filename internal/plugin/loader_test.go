package plugin

import (
	"os"
	"path/filepath"
	"testing"
)

func writeBundle(t *testing.T, root, name string, meta, script, env string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metaFileName), []byte(meta), 0o644); err != nil {
		t.Fatalf("write meta: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, entryFileName), []byte(script), 0o644); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if env != "" {
		if err := os.WriteFile(filepath.Join(dir, envFileName), []byte(env), 0o644); err != nil {
			t.Fatalf("write env: %v", err)
		}
	}
}

func TestScanDirLoadsValidBundle(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "weather", `
name: weather
version: "1.0"
suffix: "-WEATHER"
enabled: true
timeout_seconds: 3
`, `function handle_query(p) { return "sunny:" + p; }`, "")

	bundles, err := ScanDir(root, testLogger())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(bundles) != 1 || bundles[0].Descriptor.Name != "weather" {
		t.Fatalf("unexpected bundles: %+v", bundles)
	}
}

func TestScanDirSkipsMissingMeta(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "broken")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, entryFileName), []byte("function handle_query(p){return p;}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	bundles, err := ScanDir(root, testLogger())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(bundles) != 0 {
		t.Fatalf("expected bundle with missing meta to be skipped, got %+v", bundles)
	}
}

func TestScanDirSkipsInvalidSuffix(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "bad", `
name: bad
suffix: "NOPREFIX"
enabled: true
`, `function handle_query(p){return p;}`, "")

	bundles, err := ScanDir(root, testLogger())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(bundles) != 0 {
		t.Fatalf("expected bundle with bad suffix to be skipped, got %+v", bundles)
	}
}

func TestScanDirMissingDirIsEmpty(t *testing.T) {
	bundles, err := ScanDir(filepath.Join(t.TempDir(), "missing"), testLogger())
	if err != nil {
		t.Fatalf("expected no error for missing dir, got %v", err)
	}
	if bundles != nil {
		t.Fatalf("expected nil bundles, got %+v", bundles)
	}
}

func TestRuntimesSkipsDisabledBundles(t *testing.T) {
	bundles := []*Bundle{
		{Descriptor: Descriptor{Name: "on", Suffix: "-ON", Enabled: true}, Script: `function handle_query(p){return p;}`},
		{Descriptor: Descriptor{Name: "off", Suffix: "-OFF", Enabled: false}, Script: `function handle_query(p){return p;}`},
	}
	runtimes := Runtimes(bundles, testLogger(), testStore(t))
	if len(runtimes) != 1 || runtimes[0].Descriptor.Name != "on" {
		t.Fatalf("expected only the enabled bundle to produce a runtime, got %d runtimes", len(runtimes))
	}
}
