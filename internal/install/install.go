// Package install materializes resolved packages on disk: it downloads
// each wheel, verifies its hash, extracts the payload into the install
// root, and writes a per-package manifest enumerating every installed path
// with its hash and size. The manifest is written last, so a package
// without one is by definition a partial install and is rolled back.
// Uninstall, list, freeze, and show work exclusively from the recorded
// metadata; they never walk the payload tree.
package install

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ashlang/ashc/internal/cache"
	"github.com/ashlang/ashc/internal/errors"
	"github.com/ashlang/ashc/internal/resolve"
	"github.com/ashlang/ashc/internal/semver"
)

// ManifestSchema tags the per-package manifest format.
const ManifestSchema = "ashc.install/v1"

const (
	manifestFile = "manifest.json"
	metadataFile = "metadata.json"
)

// ManifestEntry is one installed path, relative to the install root.
type ManifestEntry struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// Manifest enumerates everything Install wrote for one package. Uninstall
// removes exactly these paths and nothing else.
type Manifest struct {
	Schema  string          `json:"schema"`
	Name    string          `json:"name"`
	Version string          `json:"version"`
	Entries []ManifestEntry `json:"entries"`
}

// Metadata is the declared identity of an installed package.
type Metadata struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Summary      string   `json:"summary,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// Downloader fetches a wheel URL to a local path; satisfied by
// pkgindex.Client.
type Downloader interface {
	Download(ctx context.Context, url, dst string) error
}

// Installer owns one install root.
type Installer struct {
	root   string
	client Downloader
	log    *zap.SugaredLogger
}

func New(root string, client Downloader, log *zap.SugaredLogger) *Installer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Installer{root: root, client: client, log: log.With("component", "install")}
}

// Root is the install root path accessor.
func (i *Installer) Root() string { return i.root }

func (i *Installer) distInfoDir(name, version string) string {
	return filepath.Join(i.root, fmt.Sprintf("%s-%s.dist-info", semver.CanonicalName(name), version))
}

// Install downloads, verifies, and extracts every package in pkgs. A
// failure rolls back the package being installed (its extracted files are
// removed) and aborts; packages already completed stay installed.
func (i *Installer) Install(ctx context.Context, pkgs []resolve.Resolved) error {
	for _, p := range pkgs {
		if err := i.installOne(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (i *Installer) installOne(ctx context.Context, p resolve.Resolved) error {
	name := semver.CanonicalName(p.Name)
	if _, err := i.Show(name); err == nil {
		i.log.Infow("already installed", "package", name)
		return nil
	}

	tmp := filepath.Join(os.TempDir(), "ashc-wheel-"+uuid.NewString()+".whl")
	defer os.Remove(tmp)
	if err := i.client.Download(ctx, p.WheelURL, tmp); err != nil {
		return err
	}
	if p.SHA256 != "" {
		if err := verifySHA256(tmp, p.SHA256); err != nil {
			os.Remove(tmp)
			return err
		}
	}

	entries, err := i.extract(tmp)
	if err != nil {
		i.rollback(entries)
		return err
	}

	distInfo := i.distInfoDir(name, p.Version)
	if err := os.MkdirAll(distInfo, 0o755); err != nil {
		i.rollback(entries)
		return err
	}
	meta := Metadata{Name: name, Version: p.Version, Dependencies: p.Dependencies}
	if err := writeJSON(filepath.Join(distInfo, metadataFile), meta); err != nil {
		i.rollback(entries)
		os.RemoveAll(distInfo)
		return err
	}
	man := Manifest{Schema: ManifestSchema, Name: name, Version: p.Version, Entries: entries}
	if err := writeJSON(filepath.Join(distInfo, manifestFile), man); err != nil {
		i.rollback(entries)
		os.RemoveAll(distInfo)
		return err
	}
	i.log.Infow("installed", "package", name, "version", p.Version, "files", len(entries))
	return nil
}

// extract unpacks the wheel's payload into the install root, skipping the
// wheel's own dist-info directory (ashc writes its own records). Entries
// are returned sorted by path so manifests are deterministic.
func (i *Installer) extract(wheelPath string) ([]ManifestEntry, error) {
	r, err := zip.OpenReader(wheelPath)
	if err != nil {
		return nil, errors.Wrap(errors.New(errors.DL001Failed,
			fmt.Sprintf("not a wheel archive: %v", err), nil).WithData("path", wheelPath))
	}
	defer r.Close()

	var entries []ManifestEntry
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rel := filepath.Clean(f.Name)
		if rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
			return entries, errors.Wrap(errors.New(errors.HASH001Mismatch,
				fmt.Sprintf("wheel entry escapes install root: %q", f.Name), nil))
		}
		parts := strings.Split(rel, string(filepath.Separator))
		if strings.HasSuffix(parts[0], ".dist-info") {
			continue
		}
		dst := filepath.Join(i.root, rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return entries, err
		}
		rc, err := f.Open()
		if err != nil {
			return entries, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return entries, err
		}
		if err := cache.WriteFileAtomic(dst, data); err != nil {
			return entries, err
		}
		sum := sha256.Sum256(data)
		entries = append(entries, ManifestEntry{
			Path:   rel,
			SHA256: hex.EncodeToString(sum[:]),
			Size:   int64(len(data)),
		})
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].Path < entries[b].Path })
	return entries, nil
}

// rollback removes freshly extracted files after a failure; the manifest
// was never written, so as far as the records are concerned the package
// was never installed.
func (i *Installer) rollback(entries []ManifestEntry) {
	for _, e := range entries {
		_ = os.Remove(filepath.Join(i.root, e.Path))
	}
	i.pruneEmptyDirs(entries)
}

// Uninstall removes exactly the paths a package's manifest lists. Every
// listed path must still exist before anything is removed: a missing entry
// means the install root was tampered with, and a partial uninstall on top
// of that would only make it worse.
func (i *Installer) Uninstall(name string) error {
	name = semver.CanonicalName(name)
	distInfo, man, err := i.manifestFor(name)
	if err != nil {
		return err
	}
	for _, e := range man.Entries {
		if _, err := os.Stat(filepath.Join(i.root, e.Path)); err != nil {
			return errors.Wrap(errors.New(errors.INSTALL001NoManifest,
				fmt.Sprintf("%s: manifest entry %s missing from disk", name, e.Path), nil).
				WithData("package", name).WithData("path", e.Path))
		}
	}
	for _, e := range man.Entries {
		if err := os.Remove(filepath.Join(i.root, e.Path)); err != nil {
			return err
		}
	}
	i.pruneEmptyDirs(man.Entries)
	if err := os.RemoveAll(distInfo); err != nil {
		return err
	}
	i.log.Infow("uninstalled", "package", name, "version", man.Version, "files", len(man.Entries))
	return nil
}

// pruneEmptyDirs removes any directory left empty by removing entries,
// walking each path's parents up to (but never including) the root.
func (i *Installer) pruneEmptyDirs(entries []ManifestEntry) {
	seen := map[string]bool{}
	for _, e := range entries {
		dir := filepath.Dir(filepath.Join(i.root, e.Path))
		for dir != i.root && !seen[dir] && strings.HasPrefix(dir, i.root) {
			seen[dir] = true
			if err := os.Remove(dir); err != nil {
				break // not empty or already gone
			}
			dir = filepath.Dir(dir)
		}
	}
}

// List returns the metadata of every installed package, sorted by name.
func (i *Installer) List() ([]Metadata, error) {
	dirs, err := os.ReadDir(i.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Metadata
	for _, d := range dirs {
		if !d.IsDir() || !strings.HasSuffix(d.Name(), ".dist-info") {
			continue
		}
		var meta Metadata
		if err := readJSON(filepath.Join(i.root, d.Name(), metadataFile), &meta); err != nil {
			continue // a dist-info without metadata is a partial install in progress
		}
		out = append(out, meta)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out, nil
}

// Freeze renders the installed set as name==version lines.
func (i *Installer) Freeze() ([]string, error) {
	metas, err := i.List()
	if err != nil {
		return nil, err
	}
	lines := make([]string, len(metas))
	for n, m := range metas {
		lines[n] = m.Name + "==" + m.Version
	}
	return lines, nil
}

// Show returns one package's metadata.
func (i *Installer) Show(name string) (*Metadata, error) {
	name = semver.CanonicalName(name)
	metas, err := i.List()
	if err != nil {
		return nil, err
	}
	for _, m := range metas {
		if m.Name == name {
			m := m
			return &m, nil
		}
	}
	return nil, errors.Wrap(errors.New(errors.INSTALL001NoManifest,
		fmt.Sprintf("package %s is not installed", name), nil).WithData("package", name))
}

func (i *Installer) manifestFor(name string) (distInfo string, man *Manifest, err error) {
	meta, err := i.Show(name)
	if err != nil {
		return "", nil, err
	}
	distInfo = i.distInfoDir(meta.Name, meta.Version)
	var m Manifest
	if err := readJSON(filepath.Join(distInfo, manifestFile), &m); err != nil {
		return "", nil, errors.Wrap(errors.New(errors.INSTALL001NoManifest,
			fmt.Sprintf("%s: manifest unreadable: %v", name, err), nil).WithData("package", name))
	}
	return distInfo, &m, nil
}

func verifySHA256(path, want string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}
	got := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(got, want) {
		return errors.Wrap(errors.New(errors.HASH001Mismatch,
			fmt.Sprintf("wheel hash mismatch: want %s, got %s", want, got), nil).
			WithData("want", want).WithData("got", got))
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return cache.WriteFileAtomic(path, append(data, '\n'))
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
