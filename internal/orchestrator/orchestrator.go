// Package orchestrator discovers source files and drives the whole build:
// front-end pipeline, content-addressed cache, external toolchain, and the
// test harness with its wall-clock timeout. Files build in parallel on a
// bounded worker pool; per-file failures are collected so the user sees
// every broken file in one run, not just the first.
package orchestrator

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ashlang/ashc/internal/cache"
	"github.com/ashlang/ashc/internal/errors"
	"github.com/ashlang/ashc/internal/targetlang"
	"github.com/ashlang/ashc/internal/toolchain"
)

// EmitterVersion is folded into every cache key: bumping it invalidates
// all cached artifacts after an emitter change.
const EmitterVersion = "ashc-emit-v1"

// DefaultTestTimeout bounds each test binary's run.
const DefaultTestTimeout = 10 * time.Minute

// Options configures one Orchestrator.
type Options struct {
	CacheDir   string
	Workers    int    // 0 means available hardware parallelism
	Force      bool   // bypass cache lookups
	Debug      bool   // write the debug sidecar next to the artifact
	Target     string // target triple; "" builds for the host
	OptFlags   string
	EmitBinary bool // link a self-contained executable instead of an object
	Toolchain  *toolchain.Toolchain
	Log        *zap.SugaredLogger
}

// FileResult is the outcome for one source file.
type FileResult struct {
	File     string
	Key      cache.Key
	CacheHit bool
	Artifact string // object or binary path; empty for an empty-module marker
	Reports  []*errors.Report
	Err      error
}

// Failed reports whether the file's build did not produce an artifact.
func (r FileResult) Failed() bool { return r.Err != nil || len(r.Reports) > 0 }

// Orchestrator drives builds against one cache directory.
type Orchestrator struct {
	opts  Options
	cache *cache.Cache
	log   *zap.SugaredLogger
}

func New(opts Options) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	return &Orchestrator{
		opts:  opts,
		cache: cache.New(opts.CacheDir),
		log:   opts.Log.With("component", "orchestrator"),
	}
}

// Cache exposes the underlying build cache, wired to `ashc cache dir` and
// `ashc cache purge`.
func (o *Orchestrator) Cache() *cache.Cache { return o.cache }

// Discover returns the source files under path: the file itself, or every
// *.ash under a directory, skipping hidden and underscore-prefixed
// directories. Paths come back sorted so build order and output are
// stable.
func Discover(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if p != path && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(p, SourceExt) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Build compiles path (a file or a directory) with the worker pool.
// Per-file compile errors land in the FileResults; the returned error is
// reserved for infrastructure failures (unreadable directory, cancelled
// context).
func (o *Orchestrator) Build(ctx context.Context, path string) ([]FileResult, error) {
	files, err := Discover(path)
	if err != nil {
		return nil, err
	}
	session := uuid.NewString()
	o.log.Infow("build start", "session", session, "files", len(files), "workers", o.opts.Workers)

	results := make([]FileResult, len(files))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(o.opts.Workers)
	for i, file := range files {
		i, file := i, file
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			results[i] = o.buildFile(file)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return results, err
	}
	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	o.log.Infow("build done", "session", session, "files", len(files), "failed", failed)
	return results, nil
}

// buildFile is the per-file pipeline: front-end, cache key, lookup, and on
// a miss the toolchain invocation plus cache fill.
func (o *Orchestrator) buildFile(file string) FileResult {
	res := FileResult{File: file}
	src, err := os.ReadFile(file)
	if err != nil {
		res.Err = err
		return res
	}

	unit, reports := CompileSource(file, src)
	if len(reports) > 0 {
		res.Reports = reports
		return res
	}

	res.Key = cache.ComputeKey(cache.KeyInputs{
		Source:         unit.Source,
		ExportedTypes:  unit.ExportedTypes,
		EmitterVersion: EmitterVersion,
		TargetTriple:   o.opts.Target,
		OptFlags:       o.opts.OptFlags,
	})

	if unit.Empty {
		// An empty module produces no object at all; a marker records that
		// this fingerprint was seen so the next build is still a hit.
		if _, hit := o.cache.Lookup(res.Key, "marker"); hit && !o.opts.Force {
			res.CacheHit = true
			return res
		}
		_, res.Err = o.cache.Put(res.Key, "marker", []byte("empty module\n"))
		return res
	}

	// Without a toolchain the emitted source is itself the artifact.
	ext := "o"
	switch {
	case o.opts.Toolchain == nil:
		ext = "src"
	case o.opts.EmitBinary:
		ext = "bin"
	}
	if !o.opts.Force {
		if path, hit := o.cache.Lookup(res.Key, ext); hit {
			o.log.Debugw("cache hit", "file", file, "key", string(res.Key)[:12])
			res.CacheHit = true
			res.Artifact = path
			return res
		}
	}

	srcPath, err := o.cache.Put(res.Key, "src", unit.Emitted.Source)
	if err != nil {
		res.Err = err
		return res
	}
	if o.opts.Debug {
		sidecar := filepath.Join(o.cache.Root(), string(res.Key)+".map.json")
		if err := targetlang.WriteSidecar(sidecar, unit.Emitted); err != nil {
			res.Err = err
			return res
		}
	}

	if o.opts.Toolchain == nil {
		// Emit-only mode: the cached source is the artifact.
		res.Artifact = srcPath
		return res
	}

	outPath := filepath.Join(o.cache.Root(), string(res.Key)+"."+ext)
	tmpOut := outPath + ".build"
	if o.opts.EmitBinary {
		err = o.opts.Toolchain.LinkBinary([]string{srcPath}, tmpOut, o.opts.Target, o.opts.OptFlags)
	} else {
		err = o.opts.Toolchain.CompileObject(srcPath, tmpOut, o.opts.Target, o.opts.OptFlags)
	}
	if err != nil {
		res.Err = err
		return res
	}
	data, err := os.ReadFile(tmpOut)
	os.Remove(tmpOut)
	if err != nil {
		res.Err = err
		return res
	}
	res.Artifact, res.Err = o.cache.Put(res.Key, ext, data)
	return res
}

// Summary aggregates a test run.
type Summary struct {
	Passed   int
	Failed   int
	TimedOut int
	Results  []TestResult
}

// TestResult is one test file's outcome.
type TestResult struct {
	File     string
	Passed   bool
	TimedOut bool
	Output   string
	Duration time.Duration
}

// Test discovers test_* files under dir, compiles each to a binary, and
// runs it under timeout. A timeout counts as a failure; the binary is
// killed, never waited on indefinitely.
func (o *Orchestrator) Test(ctx context.Context, dir string, timeout time.Duration) (*Summary, error) {
	if timeout <= 0 {
		timeout = DefaultTestTimeout
	}
	files, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	var tests []string
	for _, f := range files {
		if strings.HasPrefix(filepath.Base(f), "test_") {
			tests = append(tests, f)
		}
	}
	o.log.Infow("test run", "dir", dir, "tests", len(tests), "timeout", timeout)

	binOpts := o.opts
	binOpts.EmitBinary = true
	builder := New(binOpts)

	summary := &Summary{}
	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(o.opts.Workers)
	for _, test := range tests {
		test := test
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			tr := o.runOneTest(builder, test, timeout)
			mu.Lock()
			defer mu.Unlock()
			summary.Results = append(summary.Results, tr)
			switch {
			case tr.TimedOut:
				summary.TimedOut++
				summary.Failed++
			case tr.Passed:
				summary.Passed++
			default:
				summary.Failed++
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return summary, err
	}
	sort.Slice(summary.Results, func(i, j int) bool { return summary.Results[i].File < summary.Results[j].File })
	return summary, nil
}

func (o *Orchestrator) runOneTest(builder *Orchestrator, test string, timeout time.Duration) TestResult {
	res := builder.buildFile(test)
	if res.Failed() {
		msg := fmt.Sprintf("%v", res.Err)
		if len(res.Reports) > 0 {
			msg = res.Reports[0].Message
		}
		return TestResult{File: test, Output: msg}
	}
	if res.Artifact == "" {
		// An empty test module has nothing to run and trivially passes.
		return TestResult{File: test, Passed: true}
	}
	run := toolchain.RunWithTimeout(res.Artifact, nil, timeout)
	return TestResult{
		File:     test,
		Passed:   !run.TimedOut && run.ExitCode == 0,
		TimedOut: run.TimedOut,
		Output:   run.Stdout + run.Stderr,
		Duration: run.Duration,
	}
}
