package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeKeyDeterministic(t *testing.T) {
	in := KeyInputs{
		Source:         []byte("def f(x: int) -> int: return x"),
		ExportedTypes:  "f: (Int) -> Int",
		EmitterVersion: "ashc-emit-v1",
		TargetTriple:   "x86_64-unknown-linux-gnu",
		OptFlags:       "-O2",
	}
	k1 := ComputeKey(in)
	k2 := ComputeKey(in)
	assert.Equal(t, k1, k2)
	assert.Len(t, string(k1), 64)
}

func TestComputeKeyChangesWithInputs(t *testing.T) {
	base := KeyInputs{Source: []byte("x = 1"), EmitterVersion: "v1", TargetTriple: "t1"}
	changed := base
	changed.Source = []byte("x = 2")
	assert.NotEqual(t, ComputeKey(base), ComputeKey(changed))
}

func TestPutAndLookup(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)

	key := ComputeKey(KeyInputs{Source: []byte("hello")})
	path, err := c.Put(key, "o", []byte("object bytes"))
	require.NoError(t, err)

	got, hit := c.Lookup(key, "o")
	assert.True(t, hit)
	assert.Equal(t, path, got)

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "object bytes", string(data))
}

func TestLookupMissWhenAbsent(t *testing.T) {
	c := New(t.TempDir())
	_, hit := c.Lookup(Key("deadbeef"), "o")
	assert.False(t, hit)
}

func TestLookupMissOnSidecarMismatch(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	key := ComputeKey(KeyInputs{Source: []byte("v1")})
	_, err := c.Put(key, "bin", []byte("payload"))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(c.hashSidecarPath(key, "bin"), []byte("tampered"), 0o644))

	_, hit := c.Lookup(key, "bin")
	assert.False(t, hit)
}

func TestPutLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	key := ComputeKey(KeyInputs{Source: []byte("no leftovers")})
	_, err := c.Put(key, "src", []byte("data"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, filepath.Ext(e.Name()) == ".tmp", "leftover temp file: %s", e.Name())
	}
}

func TestPurgeRemovesAllArtifacts(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	key := ComputeKey(KeyInputs{Source: []byte("purge me")})
	_, err := c.Put(key, "o", []byte("data"))
	require.NoError(t, err)

	require.NoError(t, c.Purge())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPurgeOnMissingRootIsNotAnError(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.NoError(t, c.Purge())
}
