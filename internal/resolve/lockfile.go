package resolve

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ashlang/ashc/internal/cache"
)

// LockfileSchema tags the lockfile format.
const LockfileSchema = "ashc.lock/v1"

// Lockfile is the on-disk record of one successful resolve: the inputs
// that produced it plus the flat locked set, so a later install can skip
// resolution entirely when the requirements have not changed.
type Lockfile struct {
	Schema       string     `yaml:"schema"`
	Requirements []string   `yaml:"requirements"`
	Packages     []Resolved `yaml:"packages"`
}

// WriteLockfile serializes the locked set to path. Requirements and
// packages are sorted before writing so the same resolve always produces
// byte-identical output.
func WriteLockfile(path string, requirements []string, packages []Resolved) error {
	reqs := append([]string(nil), requirements...)
	sort.Strings(reqs)
	pkgs := append([]Resolved(nil), packages...)
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
	data, err := yaml.Marshal(Lockfile{Schema: LockfileSchema, Requirements: reqs, Packages: pkgs})
	if err != nil {
		return fmt.Errorf("lockfile: marshal: %w", err)
	}
	return cache.WriteFileAtomic(path, data)
}

// ReadLockfile loads a lockfile, rejecting unknown schemas.
func ReadLockfile(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lf Lockfile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("lockfile: %s: %w", path, err)
	}
	if lf.Schema != LockfileSchema {
		return nil, fmt.Errorf("lockfile: %s: unknown schema %q", path, lf.Schema)
	}
	return &lf, nil
}
