package plugin

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Akaere-NetWorks/whois-server/internal/kv"
)

const (
	metaFileName  = "meta.yaml"
	entryFileName = "entry.js"
	envFileName   = "env"
)

// Bundle is one loaded-but-not-yet-registered plugin: its descriptor,
// entry script source, and private env values.
type Bundle struct {
	Descriptor Descriptor
	Script     string
	Env        map[string]string
	Dir        string
}

// ScanDir loads every plugin subdirectory of dir. A bundle with a missing
// or invalid descriptor, or an unreadable script or env file, is skipped
// with a logged error rather than aborting the whole scan, per spec.md
// §4.3. Scripts are not compiled here; Runtimes skips those that fail.
func ScanDir(dir string, log *logrus.Logger) ([]*Bundle, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("plugin: read dir %s: %w", dir, err)
	}

	var bundles []*Bundle
	for _, ent := range entries {
		if !ent.IsDir() {
			continue
		}
		bdir := filepath.Join(dir, ent.Name())
		b, err := loadBundle(bdir)
		if err != nil {
			log.WithError(err).WithField("plugin_dir", ent.Name()).Warn("plugin: skipping invalid bundle")
			continue
		}
		bundles = append(bundles, b)
	}
	return bundles, nil
}

func loadBundle(dir string) (*Bundle, error) {
	metaBytes, err := os.ReadFile(filepath.Join(dir, metaFileName))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", metaFileName, err)
	}
	var desc Descriptor
	if err := yaml.Unmarshal(metaBytes, &desc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", metaFileName, err)
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	scriptBytes, err := os.ReadFile(filepath.Join(dir, entryFileName))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", entryFileName, err)
	}

	env, err := loadEnvFile(filepath.Join(dir, envFileName))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", envFileName, err)
	}

	return &Bundle{
		Descriptor: desc,
		Script:     string(scriptBytes),
		Env:        env,
		Dir:        dir,
	}, nil
}

// Runtimes builds a Plugin for every enabled bundle whose script compiles. A
// plugin is never instantiated twice; callers register the result into
// C7 under Descriptor.Suffix.
func Runtimes(bundles []*Bundle, log *logrus.Logger, store *kv.Store) []*Plugin {
	var out []*Plugin
	for _, b := range bundles {
		if !b.Descriptor.Enabled {
			continue
		}
		p, err := New(b, log, store)
		if err != nil {
			log.WithError(err).WithField("plugin", b.Descriptor.Name).Warn("plugin: failed to instantiate, skipping")
			continue
		}
		out = append(out, p)
	}
	return out
}
