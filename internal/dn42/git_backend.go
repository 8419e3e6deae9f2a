package dn42

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/sirupsen/logrus"
)

// dataDirs lists the DN42 registry subdirectories that hold RPSL objects
// relevant to WHOIS lookups (routing/addressing and contact objects). Other
// top-level directories in the registry (docs, schema, dn42-gitops tooling)
// are ignored.
var dataDirs = []string{
	"data/aut-num", "data/inetnum", "data/inet6num", "data/route", "data/route6",
	"data/person", "data/mntner", "data/organisation", "data/domain",
}

// GitBackend mirrors the DN42 registry via a local git clone, grounded on
// go-git/go-git/v5 (the ecosystem's standard pure-Go git client; no pack
// repo vendors one, so this dependency is wired in fresh for this
// component per spec.md's domain-stack instruction).
type GitBackend struct {
	RepoURL string
	Dir     string
	Log     *logrus.Logger
}

func NewGitBackend(repoURL, dir string, log *logrus.Logger) *GitBackend {
	return &GitBackend{RepoURL: repoURL, Dir: dir, Log: log}
}

// Sync clones the registry into Dir if absent, otherwise pulls.
func (b *GitBackend) Sync(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(b.Dir, ".git")); err == nil {
		repo, err := git.PlainOpen(b.Dir)
		if err != nil {
			return err
		}
		wt, err := repo.Worktree()
		if err != nil {
			return err
		}
		err = wt.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return err
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(b.Dir), 0o755); err != nil {
		return err
	}
	_, err := git.PlainCloneContext(ctx, b.Dir, false, &git.CloneOptions{
		URL:   b.RepoURL,
		Depth: 1,
	})
	return err
}

// BuildIndex walks the local clone's data directories and parses every
// RPSL object file into the returned Index.
func (b *GitBackend) BuildIndex(ctx context.Context) (*Index, error) {
	var records []*Record
	for _, rel := range dataDirs {
		dir := filepath.Join(b.Dir, rel)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || ctx.Err() != nil {
				continue
			}
			body, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				if b.Log != nil {
					b.Log.WithError(err).WithField("file", e.Name()).Warn("dn42: skip unreadable registry file")
				}
				continue
			}
			rec, err := ParseRPSL(body)
			if err != nil {
				if b.Log != nil {
					b.Log.WithError(err).WithField("file", e.Name()).Warn("dn42: skip unparsable registry file")
				}
				continue
			}
			records = append(records, rec)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return NewIndex(records), nil
}

// FetchRecord looks up a single object directly from the clone's
// filesystem, bypassing the in-memory index.
func (b *GitBackend) FetchRecord(ctx context.Context, objectType, key string) (*Record, bool, error) {
	dir := filepath.Join(b.Dir, "data", objectType)
	body, err := os.ReadFile(filepath.Join(dir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	rec, err := ParseRPSL(body)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}
