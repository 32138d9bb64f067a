// Package pkgindex is the HTTP client to the remote package index. It is
// the only piece of the resolver/installer pair that touches the network,
// so all of the network discipline lives here: a circuit breaker so a
// flapping index doesn't get hammered mid-resolve, client-side rate
// limiting, bounded retries for transient server errors, and a disk cache
// of metadata responses with a TTL so repeated resolves within a day never
// refetch.
package pkgindex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sony/gobreaker"
	"github.com/yasserelgammal/rate-limiter/limiter"
	"github.com/yasserelgammal/rate-limiter/store"
	"go.uber.org/zap"

	"github.com/ashlang/ashc/internal/cache"
	"github.com/ashlang/ashc/internal/errors"
	"github.com/ashlang/ashc/internal/semver"
)

// Release is one published version of a project as the index reports it.
type Release struct {
	Version      string   `json:"version"`
	Dependencies []string `json:"dependencies"`
	WheelURL     string   `json:"wheel_url"`
	SHA256       string   `json:"sha256,omitempty"`
	Yanked       bool     `json:"yanked,omitempty"`
}

// Project is the per-package metadata document: name, summary, and every
// release with its declared dependencies and wheel URL.
type Project struct {
	Name     string    `json:"name"`
	Summary  string    `json:"summary,omitempty"`
	Releases []Release `json:"releases"`
}

// DefaultTTL is how long a cached metadata response stays fresh.
const DefaultTTL = 24 * time.Hour

// maxRetries bounds the retry loop for transient (5xx) failures.
const maxRetries = 3

// Client fetches project metadata and wheel files.
type Client struct {
	BaseURL  string
	TTL      time.Duration
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	limiter  *limiter.TokenBucket
	cacheDir string
	log      *zap.SugaredLogger
}

// New builds a Client. cacheDir holds the TTL'd metadata responses;
// pass "" to disable disk caching (tests against a local httptest server
// usually do).
func New(baseURL, cacheDir string, log *zap.SugaredLogger) *Client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	tb, _ := limiter.NewTokenBucket(
		limiter.Config{Rate: 10, Duration: time.Second, Burst: 20},
		store.NewMemoryStore(time.Minute),
	)
	return &Client{
		BaseURL: baseURL,
		TTL:     DefaultTTL,
		http:    &http.Client{Timeout: 30 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "pkgindex",
			Timeout: 15 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
		}),
		limiter:  tb,
		cacheDir: cacheDir,
		log:      log.With("component", "pkgindex"),
	}
}

// Project fetches the metadata document for name, consulting the disk
// cache first. The name is canonicalized before it reaches the wire.
func (c *Client) Project(ctx context.Context, name string) (*Project, error) {
	name = semver.CanonicalName(name)
	if data, ok := c.cachedResponse(name); ok {
		var p Project
		if err := json.Unmarshal(data, &p); err == nil {
			c.log.Debugw("index cache hit", "package", name)
			return &p, nil
		}
		// A corrupt cached response is a miss, same policy as the build
		// cache's corrupt-sidecar rule.
	}
	url := fmt.Sprintf("%s/%s/json", c.BaseURL, name)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	var p Project
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, errors.Wrap(errors.New(errors.RES003IndexError,
			fmt.Sprintf("malformed index response for %s: %v", name, err), nil).
			WithData("url", url))
	}
	c.storeResponse(name, body)
	return &p, nil
}

// Download streams url into dst, writing through a temp file so a
// half-downloaded wheel is never left at the final path. Transient 5xx
// responses are retried up to maxRetries with a short backoff.
func (c *Client) Download(ctx context.Context, url, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	if err := cache.WriteFileAtomic(dst, body); err != nil {
		return errors.Wrap(errors.New(errors.DL001Failed,
			fmt.Sprintf("writing %s: %v", dst, err), nil).WithData("url", url))
	}
	c.log.Debugw("downloaded", "url", url, "bytes", len(body))
	return nil
}

// get is the single HTTP entry point: rate limit, then circuit breaker,
// then the bounded retry loop.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if !c.limiter.Allow(c.BaseURL) {
		// Over the client-side budget: wait out one refill window rather
		// than failing a resolve that would otherwise succeed.
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	var lastStatus int
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		result, err := c.breaker.Execute(func() (any, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil, err
			}
			resp, err := c.http.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				io.Copy(io.Discard, resp.Body)
				return resp.StatusCode, nil
			}
			return io.ReadAll(resp.Body)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.log.Warnw("index request failed", "url", url, "attempt", attempt, "err", err)
			continue
		}
		switch v := result.(type) {
		case []byte:
			return v, nil
		case int:
			lastStatus = v
			if v >= 500 {
				c.log.Warnw("index server error, retrying", "url", url, "status", v, "attempt", attempt)
				continue
			}
			return nil, errors.Wrap(errors.New(errors.DL001Failed,
				fmt.Sprintf("GET %s: HTTP %d", url, v), nil).
				WithData("url", url).WithData("status", v))
		}
	}
	return nil, errors.Wrap(errors.New(errors.DL001Failed,
		fmt.Sprintf("GET %s: giving up after %d attempts (last status %d)", url, maxRetries+1, lastStatus), nil).
		WithData("url", url).WithData("status", lastStatus))
}

func (c *Client) responsePath(name string) string {
	sum := sha256.Sum256([]byte(c.BaseURL + "\x00" + name))
	return filepath.Join(c.cacheDir, hex.EncodeToString(sum[:])+".json")
}

func (c *Client) cachedResponse(name string) ([]byte, bool) {
	if c.cacheDir == "" {
		return nil, false
	}
	path := c.responsePath(name)
	info, err := os.Stat(path)
	if err != nil || time.Since(info.ModTime()) > c.TTL {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *Client) storeResponse(name string, data []byte) {
	if c.cacheDir == "" {
		return
	}
	if err := os.MkdirAll(c.cacheDir, 0o755); err != nil {
		return
	}
	// Best effort: a failed cache write only costs a refetch tomorrow.
	_ = cache.WriteFileAtomic(c.responsePath(name), data)
}
