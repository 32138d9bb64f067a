package resolve

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashlang/ashc/internal/errors"
	"github.com/ashlang/ashc/internal/pkgindex"
)

// frozenIndex is an in-memory snapshot, the deterministic substitute for
// the live index client.
type frozenIndex map[string]*pkgindex.Project

func (f frozenIndex) Project(_ context.Context, name string) (*pkgindex.Project, error) {
	p, ok := f[name]
	if !ok {
		return nil, errors.Wrap(errors.New(errors.RES002NotFound,
			fmt.Sprintf("package %s not found in index", name), nil))
	}
	return p, nil
}

func rel(version string, deps ...string) pkgindex.Release {
	return pkgindex.Release{
		Version:      version,
		Dependencies: deps,
		WheelURL:     "https://index.test/wheels/" + version + ".whl",
	}
}

func TestResolvePicksNewest(t *testing.T) {
	idx := frozenIndex{
		"a": {Name: "a", Releases: []pkgindex.Release{rel("1.0"), rel("2.0"), rel("1.5")}},
	}
	got, err := New(idx, nil).Resolve(context.Background(), []string{"a"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2.0", got[0].Version)
}

func TestResolveBacktracksOnConflict(t *testing.T) {
	// B==1.0 requires A<1.1, so the solver must give up A==1.1 and settle
	// on A==1.0 even though 1.1 is newer.
	idx := frozenIndex{
		"a": {Name: "a", Releases: []pkgindex.Release{rel("1.0"), rel("1.1")}},
		"b": {Name: "b", Releases: []pkgindex.Release{rel("1.0", "a<1.1")}},
	}
	got, err := New(idx, nil).Resolve(context.Background(), []string{"a>=1", "b"})
	require.NoError(t, err)
	byName := map[string]string{}
	for _, p := range got {
		byName[p.Name] = p.Version
	}
	assert.Equal(t, "1.0", byName["a"])
	assert.Equal(t, "1.0", byName["b"])
}

func TestResolveOrderIndependent(t *testing.T) {
	idx := frozenIndex{
		"a": {Name: "a", Releases: []pkgindex.Release{rel("1.0"), rel("1.1")}},
		"b": {Name: "b", Releases: []pkgindex.Release{rel("1.0", "a<1.1")}},
	}
	r := New(idx, nil)
	first, err := r.Resolve(context.Background(), []string{"a>=1", "b"})
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), []string{"b", "a>=1"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveTransitiveChain(t *testing.T) {
	idx := frozenIndex{
		"top": {Name: "top", Releases: []pkgindex.Release{rel("1.0", "mid>=2")}},
		"mid": {Name: "mid", Releases: []pkgindex.Release{rel("1.0"), rel("2.3", "leaf~=0.4.1")}},
		"leaf": {Name: "leaf", Releases: []pkgindex.Release{
			rel("0.3"), rel("0.4.1"), rel("0.4.2"), rel("0.5"),
		}},
	}
	got, err := New(idx, nil).Resolve(context.Background(), []string{"top"})
	require.NoError(t, err)
	byName := map[string]string{}
	for _, p := range got {
		byName[p.Name] = p.Version
	}
	assert.Equal(t, "1.0", byName["top"])
	assert.Equal(t, "2.3", byName["mid"])
	assert.Equal(t, "0.4.2", byName["leaf"]) // ~=0.4.1 pins the 0.4 series, excluding 0.5
}

func TestResolveConflictSurfacesChain(t *testing.T) {
	idx := frozenIndex{
		"a": {Name: "a", Releases: []pkgindex.Release{rel("2.0")}},
		"b": {Name: "b", Releases: []pkgindex.Release{rel("1.0", "a<2")}},
	}
	_, err := New(idx, nil).Resolve(context.Background(), []string{"a>=2", "b"})
	require.Error(t, err)
	rep, ok := errors.AsReport(err)
	require.True(t, ok)
	assert.Equal(t, errors.RES001Conflict, rep.Code)
	assert.Contains(t, rep.Message, "a")
	assert.Contains(t, rep.Message, "b==1.0")
}

func TestResolveSkipsPrereleasesUnlessAsked(t *testing.T) {
	idx := frozenIndex{
		"a": {Name: "a", Releases: []pkgindex.Release{rel("1.0"), rel("2.0rc1")}},
	}
	r := New(idx, nil)
	got, err := r.Resolve(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, "1.0", got[0].Version)

	got, err = r.Resolve(context.Background(), []string{"a==2.0rc1"})
	require.NoError(t, err)
	assert.Equal(t, "2.0rc1", got[0].Version)
}

func TestResolveMissingPackage(t *testing.T) {
	_, err := New(frozenIndex{}, nil).Resolve(context.Background(), []string{"ghost"})
	require.Error(t, err)
	rep, ok := errors.AsReport(err)
	require.True(t, ok)
	assert.Equal(t, errors.RES002NotFound, rep.Code)
}

func TestLockfileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ash.lock")
	pkgs := []Resolved{
		{Name: "b", Version: "1.0", WheelURL: "https://x/b.whl"},
		{Name: "a", Version: "2.0", WheelURL: "https://x/a.whl", SHA256: "deadbeef"},
	}
	require.NoError(t, WriteLockfile(path, []string{"b", "a"}, pkgs))

	lf, err := ReadLockfile(path)
	require.NoError(t, err)
	assert.Equal(t, LockfileSchema, lf.Schema)
	assert.Equal(t, []string{"a", "b"}, lf.Requirements)
	require.Len(t, lf.Packages, 2)
	assert.Equal(t, "a", lf.Packages[0].Name) // sorted on write
}
