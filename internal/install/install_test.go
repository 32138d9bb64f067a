package install

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashlang/ashc/internal/errors"
	"github.com/ashlang/ashc/internal/resolve"
)

// fakeDownloader serves wheels from memory, keyed by URL.
type fakeDownloader struct {
	wheels map[string][]byte
}

func (f *fakeDownloader) Download(_ context.Context, url, dst string) error {
	data, ok := f.wheels[url]
	if !ok {
		return errors.Wrap(errors.New(errors.DL001Failed, "no such wheel: "+url, nil))
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func buildWheel(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func sha(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func testWheel(t *testing.T) []byte {
	return buildWheel(t, map[string]string{
		"leftpad/__init__.ash":          "def pad(s, n): return s",
		"leftpad/util.ash":              "def width(s): return len(s)",
		"leftpad-1.0.dist-info/RECORD":  "ignored, ashc writes its own records",
		"leftpad-1.0.dist-info/META":    "ignored",
	})
}

func TestInstallAndUninstallRestoresTree(t *testing.T) {
	root := t.TempDir()
	wheel := testWheel(t)
	dl := &fakeDownloader{wheels: map[string][]byte{"https://x/leftpad.whl": wheel}}
	inst := New(root, dl, nil)

	pkg := resolve.Resolved{Name: "LeftPad", Version: "1.0", WheelURL: "https://x/leftpad.whl", SHA256: sha(wheel)}
	require.NoError(t, inst.Install(context.Background(), []resolve.Resolved{pkg}))

	// Payload extracted, canonical dist-info written.
	_, err := os.Stat(filepath.Join(root, "leftpad", "__init__.ash"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "leftpad-1.0.dist-info", "manifest.json"))
	require.NoError(t, err)

	require.NoError(t, inst.Uninstall("leftpad"))

	// The tree is back to empty: no payload, no dist-info, no stray dirs.
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInstallHashMismatchIsFatal(t *testing.T) {
	root := t.TempDir()
	wheel := testWheel(t)
	dl := &fakeDownloader{wheels: map[string][]byte{"https://x/p.whl": wheel}}
	inst := New(root, dl, nil)

	pkg := resolve.Resolved{Name: "p", Version: "1.0", WheelURL: "https://x/p.whl", SHA256: "0000"}
	err := inst.Install(context.Background(), []resolve.Resolved{pkg})
	require.Error(t, err)
	rep, ok := errors.AsReport(err)
	require.True(t, ok)
	assert.Equal(t, errors.HASH001Mismatch, rep.Code)

	// Nothing was extracted.
	entries, _ := os.ReadDir(root)
	assert.Empty(t, entries)
}

func TestUninstallMissingFileIsHardError(t *testing.T) {
	root := t.TempDir()
	wheel := testWheel(t)
	dl := &fakeDownloader{wheels: map[string][]byte{"https://x/p.whl": wheel}}
	inst := New(root, dl, nil)

	pkg := resolve.Resolved{Name: "leftpad", Version: "1.0", WheelURL: "https://x/p.whl"}
	require.NoError(t, inst.Install(context.Background(), []resolve.Resolved{pkg}))

	// Tamper with the tree behind the installer's back.
	require.NoError(t, os.Remove(filepath.Join(root, "leftpad", "util.ash")))

	err := inst.Uninstall("leftpad")
	require.Error(t, err)
	rep, ok := errors.AsReport(err)
	require.True(t, ok)
	assert.Equal(t, errors.INSTALL001NoManifest, rep.Code)

	// The hard error fired before anything was removed.
	_, err = os.Stat(filepath.Join(root, "leftpad", "__init__.ash"))
	assert.NoError(t, err)
}

func TestListFreezeShow(t *testing.T) {
	root := t.TempDir()
	wheelA := buildWheel(t, map[string]string{"a/mod.ash": "x = 1"})
	wheelB := buildWheel(t, map[string]string{"b/mod.ash": "y = 2"})
	dl := &fakeDownloader{wheels: map[string][]byte{
		"https://x/a.whl": wheelA,
		"https://x/b.whl": wheelB,
	}}
	inst := New(root, dl, nil)
	require.NoError(t, inst.Install(context.Background(), []resolve.Resolved{
		{Name: "beta", Version: "2.1", WheelURL: "https://x/b.whl", Dependencies: []string{"alpha>=1"}},
		{Name: "alpha", Version: "1.0", WheelURL: "https://x/a.whl"},
	}))

	metas, err := inst.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, "alpha", metas[0].Name) // sorted

	lines, err := inst.Freeze()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha==1.0", "beta==2.1"}, lines)

	m, err := inst.Show("Beta")
	require.NoError(t, err)
	assert.Equal(t, "2.1", m.Version)
	assert.Equal(t, []string{"alpha>=1"}, m.Dependencies)

	_, err = inst.Show("ghost")
	assert.Error(t, err)
}

func TestInstallIsIdempotent(t *testing.T) {
	root := t.TempDir()
	wheel := testWheel(t)
	dl := &fakeDownloader{wheels: map[string][]byte{"https://x/p.whl": wheel}}
	inst := New(root, dl, nil)

	pkg := resolve.Resolved{Name: "leftpad", Version: "1.0", WheelURL: "https://x/p.whl"}
	require.NoError(t, inst.Install(context.Background(), []resolve.Resolved{pkg}))
	require.NoError(t, inst.Install(context.Background(), []resolve.Resolved{pkg}))

	metas, err := inst.List()
	require.NoError(t, err)
	assert.Len(t, metas, 1)
}
