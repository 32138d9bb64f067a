package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ashlang/ashc/internal/config"
	"github.com/ashlang/ashc/internal/orchestrator"
	"github.com/ashlang/ashc/internal/toolchain"
)

// runTimeout bounds `ashc <file>` executions. Interactive runs are not
// tests; the bound only exists so a wedged program can't outlive the
// machine.
const runTimeout = 24 * time.Hour

// buildFlags is the flag set shared by build, run, and test.
type buildFlags struct {
	binary bool
	target string
	watch  bool
	force  bool
	debug  bool
	opt    string
}

func parseBuildFlags(name string, args []string) (*buildFlags, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	bf := &buildFlags{}
	fs.BoolVar(&bf.binary, "b", false, "link a self-contained executable")
	fs.StringVar(&bf.target, "target", "", "target triple")
	fs.BoolVar(&bf.watch, "watch", false, "rebuild on change")
	fs.BoolVar(&bf.force, "force", false, "bypass the build cache")
	fs.BoolVar(&bf.debug, "debug", false, "write the source-map sidecar")
	fs.StringVar(&bf.opt, "opt", "", "optimization flags passed to the toolchain")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	// ash.toml build defaults fill anything the command line left empty.
	if cfg, err := config.LoadDir("."); err == nil {
		if bf.target == "" {
			bf.target = cfg.Build.Target
		}
		if bf.opt == "" {
			bf.opt = cfg.Build.Opt
		}
		bf.debug = bf.debug || cfg.Build.Debug
	}
	return bf, fs.Args(), nil
}

func newOrchestrator(log *zap.SugaredLogger, bf *buildFlags, needToolchain bool) (*orchestrator.Orchestrator, error) {
	opts := orchestrator.Options{
		CacheDir:   cacheDir(),
		Force:      bf.force,
		Debug:      bf.debug,
		Target:     bf.target,
		OptFlags:   bf.opt,
		EmitBinary: bf.binary,
		Log:        log,
	}
	tc, err := toolchain.Find("", filepath.Join(cacheDir(), "toolchain"), log)
	if err == nil {
		opts.Toolchain = tc
	} else if needToolchain {
		return nil, err
	}
	return orchestrator.New(opts), nil
}

func cmdBuild(log *zap.SugaredLogger, args []string) error {
	bf, rest, err := parseBuildFlags("build", args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return fmt.Errorf("build: missing file or directory argument")
	}
	o, err := newOrchestrator(log, bf, false)
	if err != nil {
		return err
	}
	if bf.watch {
		fmt.Printf("%s %s\n", cyan("watching"), rest[0])
		return o.Watch(context.Background(), rest[0], printResult)
	}
	results, err := o.Build(context.Background(), rest[0])
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		printResult(r)
		if r.Failed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func printResult(r orchestrator.FileResult) {
	switch {
	case r.Err != nil:
		fmt.Printf("  %s %s: %v\n", red("FAIL"), r.File, r.Err)
	case len(r.Reports) > 0:
		rep := r.Reports[0]
		loc := r.File
		if rep.Span != nil {
			loc = fmt.Sprintf("%s:%d:%d", rep.Span.File, rep.Span.Line, rep.Span.Column)
		}
		fmt.Printf("  %s %s: %s %s\n", red("FAIL"), loc, rep.Code, rep.Message)
	case r.CacheHit:
		fmt.Printf("  %s %s (cached)\n", green("OK"), r.File)
	default:
		fmt.Printf("  %s %s\n", green("OK"), r.File)
	}
}

// cmdRun compiles file to a self-contained executable and executes it,
// inheriting stdio.
func cmdRun(log *zap.SugaredLogger, file string, args []string) error {
	bf := &buildFlags{binary: true}
	o, err := newOrchestrator(log, bf, true)
	if err != nil {
		return err
	}
	results, err := o.Build(context.Background(), file)
	if err != nil {
		return err
	}
	r := results[0]
	if r.Err != nil {
		return r.Err
	}
	if len(r.Reports) > 0 {
		printResult(r)
		return fmt.Errorf("compilation failed")
	}
	if r.Artifact == "" {
		return nil // empty module: nothing to run
	}
	run := toolchain.RunWithTimeout(r.Artifact, args, runTimeout)
	io.WriteString(os.Stdout, run.Stdout)
	io.WriteString(os.Stderr, run.Stderr)
	if run.ExitCode != 0 {
		return fmt.Errorf("exit status %d", run.ExitCode)
	}
	return nil
}

func cmdTest(log *zap.SugaredLogger, args []string) error {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	timeout := fs.Duration("timeout", orchestrator.DefaultTestTimeout, "per-test timeout")
	force := fs.Bool("force", false, "bypass the build cache")
	if err := fs.Parse(args); err != nil {
		return err
	}
	dir := "."
	if fs.NArg() > 0 {
		dir = fs.Arg(0)
	}
	o, err := newOrchestrator(log, &buildFlags{force: *force}, true)
	if err != nil {
		return err
	}
	summary, err := o.Test(context.Background(), dir, *timeout)
	if err != nil {
		return err
	}
	for _, tr := range summary.Results {
		switch {
		case tr.TimedOut:
			fmt.Printf("  %s %s (timed out after %s)\n", yellow("TIMEOUT"), tr.File, tr.Duration.Round(time.Millisecond))
		case tr.Passed:
			fmt.Printf("  %s %s (%s)\n", green("PASS"), tr.File, tr.Duration.Round(time.Millisecond))
		default:
			fmt.Printf("  %s %s\n", red("FAIL"), tr.File)
		}
	}
	fmt.Printf("\n%s passed, %s failed, %s timed out\n",
		green(summary.Passed), red(summary.Failed), yellow(summary.TimedOut))
	if summary.Failed > 0 {
		return fmt.Errorf("test failures")
	}
	return nil
}

func cmdCache(log *zap.SugaredLogger, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("cache: expected 'dir' or 'purge'")
	}
	o, err := newOrchestrator(log, &buildFlags{}, false)
	if err != nil {
		return err
	}
	switch args[0] {
	case "dir":
		fmt.Println(o.Cache().Root())
		return nil
	case "purge":
		if err := o.Cache().Purge(); err != nil {
			return err
		}
		fmt.Printf("%s cache purged\n", green("OK"))
		return nil
	default:
		return fmt.Errorf("cache: unknown subcommand %q", args[0])
	}
}

// runCode writes a -c code string to a temp file and runs it.
func runCode(log *zap.SugaredLogger, code string) error {
	tmp, err := os.CreateTemp("", "ashc-c-*"+orchestrator.SourceExt)
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(code + "\n"); err != nil {
		return err
	}
	tmp.Close()
	return cmdRun(log, tmp.Name(), nil)
}

// runStdin reads a program from stdin and runs it.
func runStdin(log *zap.SugaredLogger) error {
	code, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}
	return runCode(log, string(code))
}

// runModule runs a module previously installed into the install root.
func runModule(log *zap.SugaredLogger, module string) error {
	path := filepath.Join(installRoot(), filepath.FromSlash(module)+orchestrator.SourceExt)
	if _, err := os.Stat(path); err != nil {
		path = filepath.Join(installRoot(), module, "__main__"+orchestrator.SourceExt)
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("module %q not found in %s", module, installRoot())
		}
	}
	return cmdRun(log, path, nil)
}
