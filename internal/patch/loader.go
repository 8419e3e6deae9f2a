package patch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/Akaere-NetWorks/whois-server/internal/kv"
)

const patchesSubDB = "patches"

// LoadLocalDir scans dir for patch bundle files (spec.md's SUPPLEMENTED
// "patches/ source directory convention"), parsing each into a RuleFile.
// A file with no valid ordinal prefix is skipped with a logged warning,
// not a hard failure, so one bad file never blocks the rest of the
// directory from loading.
func LoadLocalDir(dir string, log *logrus.Logger) ([]*RuleFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("patch: read dir %s: %w", dir, err)
	}

	var files []*RuleFile
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		body, err := os.ReadFile(filepath.Join(dir, ent.Name()))
		if err != nil {
			log.WithError(err).WithField("file", ent.Name()).Warn("patch: failed to read bundle file")
			continue
		}
		rf, err := ParseFile(ent.Name(), body)
		if err != nil {
			log.WithError(err).WithField("file", ent.Name()).Warn("patch: rejecting malformed bundle file")
			continue
		}
		files = append(files, rf)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Ordinal < files[j].Ordinal })
	return files, nil
}

// LoadFromStore loads every bundle previously persisted to C1's "patches"
// sub-db and parses each into a RuleFile, in the same tolerant fashion as
// LoadLocalDir.
func LoadFromStore(store *kv.Store, log *logrus.Logger) ([]*RuleFile, error) {
	var files []*RuleFile
	err := store.Iter(patchesSubDB, "", func(e kv.Entry) error {
		rf, err := ParseFile(e.Key, e.Value)
		if err != nil {
			log.WithError(err).WithField("file", e.Key).Warn("patch: rejecting malformed stored bundle")
			return nil
		}
		files = append(files, rf)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("patch: iterate stored bundles: %w", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Ordinal < files[j].Ordinal })
	return files, nil
}

// SaveLocalDirToStore persists every file under dir into C1's "patches"
// sub-db verbatim, so a later restart can rebuild the engine from C1 alone
// without re-scanning the filesystem. Called by main at startup; the
// RELOAD-PATCH command does not call it.
func SaveLocalDirToStore(dir string, store *kv.Store) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("patch: read dir %s: %w", dir, err)
	}
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		body, err := os.ReadFile(filepath.Join(dir, ent.Name()))
		if err != nil {
			return fmt.Errorf("patch: read %s: %w", ent.Name(), err)
		}
		if err := store.Put(patchesSubDB, ent.Name(), body, 0); err != nil {
			return fmt.Errorf("patch: persist %s: %w", ent.Name(), err)
		}
	}
	return nil
}
