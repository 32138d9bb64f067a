// Package toolchain wraps the vendored systems-language compiler as a
// subprocess. ashc never interprets what the toolchain does beyond its
// exit code; stderr is propagated verbatim so the user sees the real
// diagnostics. The toolchain's own incremental cache directory is passed
// on every invocation so repeated builds reuse it.
package toolchain

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ashlang/ashc/internal/errors"
)

// DefaultBin is the compiler executable looked up on PATH.
const DefaultBin = "ashrt-cc"

// Toolchain is one located external compiler.
type Toolchain struct {
	Bin      string
	CacheDir string // the toolchain's own incremental cache, not ashc's
	log      *zap.SugaredLogger
}

// Find locates bin (or DefaultBin when bin is empty) on PATH.
func Find(bin, cacheDir string, log *zap.SugaredLogger) (*Toolchain, error) {
	if bin == "" {
		bin = DefaultBin
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, errors.Wrap(errors.New(errors.TOOL001NotFound,
			fmt.Sprintf("%s not found on PATH", bin), nil).WithData("bin", bin))
	}
	return &Toolchain{Bin: path, CacheDir: cacheDir, log: log.With("component", "toolchain")}, nil
}

// CompileObject compiles one emitted source module to an object file.
func (t *Toolchain) CompileObject(srcPath, outPath, triple, optFlags string) error {
	args := []string{"-c", srcPath, "-o", outPath}
	args = t.commonArgs(args, triple, optFlags)
	return t.run(args)
}

// LinkBinary links object files into an executable.
func (t *Toolchain) LinkBinary(objPaths []string, outPath, triple, optFlags string) error {
	args := append(append([]string{}, objPaths...), "-o", outPath)
	args = t.commonArgs(args, triple, optFlags)
	return t.run(args)
}

func (t *Toolchain) commonArgs(args []string, triple, optFlags string) []string {
	if triple != "" {
		args = append(args, "--target", triple)
	}
	if optFlags != "" {
		args = append(args, optFlags)
	}
	if t.CacheDir != "" {
		args = append(args, "--cache-dir", t.CacheDir)
	}
	return args
}

func (t *Toolchain) run(args []string) error {
	t.log.Debugw("invoking toolchain", "bin", t.Bin, "args", args)
	cmd := exec.Command(t.Bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrap(errors.New(errors.TOOL002NonZeroExit,
			fmt.Sprintf("%s: %v\n%s", t.Bin, err, stderr.String()), nil).
			WithData("stderr", stderr.String()))
	}
	return nil
}

// RunResult is the outcome of running a produced binary under a timeout.
type RunResult struct {
	ExitCode int
	TimedOut bool
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// RunWithTimeout executes bin and kills it if it outlives timeout. The
// killer is a detached goroutine that sleeps the timeout and then signals
// the child iff the done flag has not been set; the flag is sequentially
// consistent so the signal can never race a normal exit into killing an
// unrelated reused pid.
func RunWithTimeout(bin string, args []string, timeout time.Duration) RunResult {
	cmd := exec.Command(bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Stdin = os.Stdin

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return RunResult{ExitCode: -1, Stderr: err.Error()}
	}

	var done atomic.Bool
	var timedOut atomic.Bool
	go func() {
		time.Sleep(timeout)
		if !done.Load() {
			timedOut.Store(true)
			_ = cmd.Process.Kill()
		}
	}()

	err := cmd.Wait()
	done.Store(true)

	res := RunResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
		TimedOut: timedOut.Load(),
	}
	switch {
	case res.TimedOut:
		res.ExitCode = -1
	case err == nil:
		res.ExitCode = 0
	default:
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
	}
	return res
}
