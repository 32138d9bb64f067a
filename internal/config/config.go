// Package config reads the project manifest, ash.toml: the declared
// dependencies `ashc install` resolves when invoked with no arguments,
// and the build defaults (target triple, optimization flags) `ashc build`
// falls back to when the command line doesn't override them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

// ManifestName is the file looked up in the current directory.
const ManifestName = "ash.toml"

// Project identifies the project itself.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Build carries compile defaults.
type Build struct {
	Target string `toml:"target"`
	Opt    string `toml:"opt"`
	Debug  bool   `toml:"debug"`
}

// Config is the parsed ash.toml.
type Config struct {
	Project      Project           `toml:"project"`
	Build        Build             `toml:"build"`
	Dependencies map[string]string `toml:"dependencies"`
}

// Load reads path. A missing file is an error the caller decides how to
// treat; `ashc build` runs fine without a manifest, `ashc install` with no
// arguments does not.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDir loads the manifest from dir, if present.
func LoadDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, ManifestName))
}

// Exists reports whether dir carries a manifest.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ManifestName))
	return err == nil
}

// Requirements renders the [dependencies] table as requirement strings
// ("name>=1.0"), sorted by name so resolution input is deterministic. A
// bare "*" or empty constraint means any version.
func (c *Config) Requirements() []string {
	names := make([]string, 0, len(c.Dependencies))
	for name := range c.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	reqs := make([]string, 0, len(names))
	for _, name := range names {
		constraint := c.Dependencies[name]
		if constraint == "" || constraint == "*" {
			reqs = append(reqs, name)
			continue
		}
		reqs = append(reqs, name+constraint)
	}
	return reqs
}
