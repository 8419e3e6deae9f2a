package dn42

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeRegistryFile(t *testing.T, root, objectType, name, body string) {
	t.Helper()
	dir := filepath.Join(root, "data", objectType)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestGitBackendBuildIndex(t *testing.T) {
	root := t.TempDir()
	writeRegistryFile(t, root, "aut-num", "AS4242420000", "aut-num: AS4242420000\nas-name: EXAMPLE\n")
	writeRegistryFile(t, root, "inetnum", "172.20.0.0_24", "inetnum: 172.20.0.0/24\n")

	b := NewGitBackend("", root, nil)
	idx, err := b.BuildIndex(context.Background())
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}

	if _, ok := idx.LookupASN("AS4242420000"); !ok {
		t.Fatal("expected ASN to be indexed")
	}
}

func TestGitBackendFetchRecord(t *testing.T) {
	root := t.TempDir()
	writeRegistryFile(t, root, "aut-num", "AS4242420000", "aut-num: AS4242420000\n")

	b := NewGitBackend("", root, nil)
	rec, ok, err := b.FetchRecord(context.Background(), "aut-num", "AS4242420000")
	if err != nil || !ok {
		t.Fatalf("FetchRecord: %v ok=%v", err, ok)
	}
	if rec.Key != "AS4242420000" {
		t.Fatalf("unexpected key: %s", rec.Key)
	}

	if _, ok, err := b.FetchRecord(context.Background(), "aut-num", "AS9999999999"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
}

func TestGitBackendBuildIndexSkipsMissingDataDirs(t *testing.T) {
	root := t.TempDir()
	b := NewGitBackend("", root, nil)
	idx, err := b.BuildIndex(context.Background())
	if err != nil {
		t.Fatalf("BuildIndex on empty dir: %v", err)
	}
	if _, ok := idx.LookupASN("AS4242420000"); ok {
		t.Fatal("expected empty index")
	}
}
