package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	return New(Options{CacheDir: t.TempDir(), Workers: 2})
}

func TestDiscoverFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "b.ash", "x = 1\n")
	writeSource(t, dir, "a.ash", "y = 2\n")
	writeSource(t, dir, "notes.txt", "not source")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".hidden"), 0o755))
	writeSource(t, filepath.Join(dir, ".hidden"), "c.ash", "z = 3\n")

	files, err := Discover(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.ash", filepath.Base(files[0]))
	assert.Equal(t, "b.ash", filepath.Base(files[1]))
}

func TestBuildProducesEmittedArtifact(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "fib.ash",
		"def fib(n):\n    if n <= 1: return n\n    return fib(n-1) + fib(n-2)\nprint(fib(10))\n")

	o := newTestOrchestrator(t)
	results, err := o.Build(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.False(t, results[0].Failed(), "reports: %v err: %v", results[0].Reports, results[0].Err)
	assert.NotEmpty(t, results[0].Artifact)

	emitted, err := os.ReadFile(results[0].Artifact)
	require.NoError(t, err)
	assert.Contains(t, string(emitted), "fib")
}

func TestSecondBuildIsFullCacheHit(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "m.ash", "def f(x):\n    return x\n")

	o := newTestOrchestrator(t)
	first, err := o.Build(context.Background(), dir)
	require.NoError(t, err)
	require.False(t, first[0].CacheHit)

	// Touching the timestamp without changing content must not rebuild.
	now := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "m.ash"), now, now))

	second, err := o.Build(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, second[0].CacheHit)
	assert.Equal(t, first[0].Key, second[0].Key)
}

func TestSingleByteChangeInvalidatesOnlyThatFile(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.ash", "def f(x):\n    return x\n")
	writeSource(t, dir, "b.ash", "def g(y):\n    return y\n")

	o := newTestOrchestrator(t)
	_, err := o.Build(context.Background(), dir)
	require.NoError(t, err)

	writeSource(t, dir, "a.ash", "def f(x):\n    return 9\n")
	results, err := o.Build(context.Background(), dir)
	require.NoError(t, err)
	byFile := map[string]FileResult{}
	for _, r := range results {
		byFile[filepath.Base(r.File)] = r
	}
	assert.False(t, byFile["a.ash"].CacheHit)
	assert.True(t, byFile["b.ash"].CacheHit)
}

func TestForceBypassesCache(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "m.ash", "x = 1\n")

	cacheDir := t.TempDir()
	o := New(Options{CacheDir: cacheDir, Workers: 1})
	_, err := o.Build(context.Background(), dir)
	require.NoError(t, err)

	forced := New(Options{CacheDir: cacheDir, Workers: 1, Force: true})
	results, err := forced.Build(context.Background(), dir)
	require.NoError(t, err)
	assert.False(t, results[0].CacheHit)
}

func TestEmptySourceCachesMarkerNotObject(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "empty.ash", "")

	o := newTestOrchestrator(t)
	results, err := o.Build(context.Background(), dir)
	require.NoError(t, err)
	require.False(t, results[0].Failed())
	assert.Empty(t, results[0].Artifact)

	// Marker cached: the rebuild is a hit.
	results, err = o.Build(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, results[0].CacheHit)

	// No zero-byte object was produced.
	entries, err := os.ReadDir(o.Cache().Root())
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".o")
	}
}

func TestBuildContinuesPastBrokenFile(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "bad.ash", "def broken(:\n")
	writeSource(t, dir, "good.ash", "def ok(x):\n    return x\n")

	o := newTestOrchestrator(t)
	results, err := o.Build(context.Background(), dir)
	require.NoError(t, err)
	byFile := map[string]FileResult{}
	for _, r := range results {
		byFile[filepath.Base(r.File)] = r
	}
	assert.True(t, byFile["bad.ash"].Failed())
	assert.NotEmpty(t, byFile["bad.ash"].Reports)
	assert.False(t, byFile["good.ash"].Failed())
}

func TestSignatureChangeChangesKey(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "m.ash", "def f(x):\n    return 1\n")

	o := newTestOrchestrator(t)
	first, err := o.Build(context.Background(), path)
	require.NoError(t, err)

	writeSource(t, dir, "m.ash", "def f(x):\n    return \"s\"\n")
	second, err := o.Build(context.Background(), path)
	require.NoError(t, err)
	assert.NotEqual(t, first[0].Key, second[0].Key)
}

func TestDebugWritesSidecar(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "m.ash", "def f(x):\n    return x\n")

	o := New(Options{CacheDir: t.TempDir(), Workers: 1, Debug: true})
	results, err := o.Build(context.Background(), dir)
	require.NoError(t, err)
	require.False(t, results[0].Failed())

	sidecar := filepath.Join(o.Cache().Root(), string(results[0].Key)+".map.json")
	data, err := os.ReadFile(sidecar)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ashc.sidecar/v1")
}
