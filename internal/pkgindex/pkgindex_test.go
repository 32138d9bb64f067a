package pkgindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indexServer(t *testing.T, projects map[string]Project, hits *int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for name, p := range projects {
		p := p
		mux.HandleFunc("/"+name+"/json", func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt64(hits, 1)
			json.NewEncoder(w).Encode(p)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestProjectFetchAndDiskCache(t *testing.T) {
	var hits int64
	srv := indexServer(t, map[string]Project{
		"requests": {Name: "requests", Releases: []Release{{Version: "2.0", WheelURL: "http://x/requests.whl"}}},
	}, &hits)

	cacheDir := t.TempDir()
	c := New(srv.URL, cacheDir, nil)

	p, err := c.Project(context.Background(), "Requests") // canonicalized before hitting the wire
	require.NoError(t, err)
	assert.Equal(t, "requests", p.Name)
	require.Len(t, p.Releases, 1)

	// Second fetch within the TTL must come from disk.
	p2, err := c.Project(context.Background(), "requests")
	require.NoError(t, err)
	assert.Equal(t, p.Name, p2.Name)
	assert.Equal(t, int64(1), atomic.LoadInt64(&hits))
}

func TestProjectExpiredTTLRefetches(t *testing.T) {
	var hits int64
	srv := indexServer(t, map[string]Project{
		"left-pad": {Name: "left-pad", Releases: []Release{{Version: "1.0"}}},
	}, &hits)

	c := New(srv.URL, t.TempDir(), nil)
	c.TTL = 0 // everything on disk is already stale

	_, err := c.Project(context.Background(), "left-pad")
	require.NoError(t, err)
	_, err = c.Project(context.Background(), "left-pad")
	require.NoError(t, err)
	assert.Equal(t, int64(2), atomic.LoadInt64(&hits))
}

func TestProjectNotFoundIsError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	c := New(srv.URL, "", nil)
	_, err := c.Project(context.Background(), "no-such-package")
	assert.Error(t, err)
}

func TestDownloadWritesAtomically(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("wheel bytes"))
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, "", nil)
	dst := filepath.Join(t.TempDir(), "pkg", "a.whl")
	require.NoError(t, c.Download(context.Background(), srv.URL+"/a.whl", dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "wheel bytes", string(data))
	// The temp file must be gone.
	_, err = os.Stat(dst + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestTransientServerErrorIsRetried(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(Project{Name: "flaky"})
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, "", nil)
	p, err := c.Project(context.Background(), "flaky")
	require.NoError(t, err)
	assert.Equal(t, "flaky", p.Name)
	assert.Equal(t, int64(2), atomic.LoadInt64(&calls))
}
