package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	ashcerrors "github.com/ashlang/ashc/internal/errors"
)

var (
	// Version info - set by ldflags during build
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"

	// Color output
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func main() {
	var (
		versionFlag = flag.Bool("version", false, "Print version information")
		helpFlag    = flag.Bool("help", false, "Show help")
		verboseFlag = flag.Bool("verbose", false, "Enable debug logging")
		codeFlag    = flag.String("c", "", "Compile and run the given code string")
		moduleFlag  = flag.String("m", "", "Compile and run a module from the install root")
	)
	flag.Parse()

	if *versionFlag {
		printVersion()
		return
	}

	logger := buildLogger(*verboseFlag)
	defer logger.Sync()

	// Reference-implementation shortcuts: -c <code>, -m <module>, and "-"
	// (stdin). All three funnel into the normal build-and-run pipeline: -c
	// and "-" via a temp file, -m on the installed module's own source file.
	if *codeFlag != "" {
		exit(runCode(logger, *codeFlag))
	}
	if *moduleFlag != "" {
		exit(runModule(logger, *moduleFlag))
	}

	if *helpFlag || flag.NArg() == 0 {
		printHelp()
		return
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "build":
		exit(cmdBuild(logger, args))
	case "test":
		exit(cmdTest(logger, args))
	case "install":
		exit(cmdInstall(logger, args))
	case "uninstall":
		exit(cmdUninstall(logger, args))
	case "list":
		exit(cmdList(logger))
	case "freeze":
		exit(cmdFreeze(logger))
	case "show":
		exit(cmdShow(logger, args))
	case "cache":
		exit(cmdCache(logger, args))
	case "-":
		exit(runStdin(logger))
	case "help":
		printHelp()
	default:
		// `ashc <file>`: compile and run.
		if _, err := os.Stat(command); err == nil {
			exit(cmdRun(logger, command, args))
		}
		fmt.Fprintf(os.Stderr, "%s: unknown command or file %q\n", red("Error"), command)
		fmt.Fprintln(os.Stderr, "Run 'ashc help' for usage.")
		os.Exit(2)
	}
}

func exit(err error) {
	if err == nil {
		os.Exit(0)
	}
	if rep, ok := ashcerrors.AsReport(err); ok {
		loc := ""
		if rep.Span != nil {
			loc = fmt.Sprintf("%s:%d:%d: ", rep.Span.File, rep.Span.Line, rep.Span.Column)
		}
		fmt.Fprintf(os.Stderr, "%s%s %s: %s\n", loc, red("error"), rep.Code, rep.Message)
	} else {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
	}
	os.Exit(1)
}

func buildLogger(verbose bool) *zap.SugaredLogger {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stderr"}
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	logger, err := config.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: failed to initialize logger: %v\n", red("Error"), err)
		os.Exit(1)
	}
	return logger.Sugar()
}

// ashcHome is the per-user root for the build cache and install root.
func ashcHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".ashc")
}

func cacheDir() string   { return filepath.Join(ashcHome(), "cache") }
func installRoot() string { return filepath.Join(ashcHome(), "packages") }
func indexCacheDir() string { return filepath.Join(ashcHome(), "index-cache") }

// indexURL is where the resolver looks for package metadata; overridable
// for mirrors and tests.
func indexURL() string {
	if url := os.Getenv("ASHC_INDEX_URL"); url != "" {
		return url
	}
	return "https://index.ash-lang.org/pkg"
}

func printVersion() {
	fmt.Printf("ashc %s (commit %s, built %s)\n", bold(Version), Commit, BuildTime)
}

func printHelp() {
	fmt.Printf("%s - ahead-of-time compiler and package manager for Ash\n\n", bold("ashc"))
	fmt.Println("Usage:")
	fmt.Printf("  ashc %s            compile and run a file\n", cyan("<file>"))
	fmt.Printf("  ashc %s           compile only (-b for a self-contained executable)\n", cyan("build <file>"))
	fmt.Printf("  ashc %s          discover test_* files, compile, run under a timeout\n", cyan("test [<dir>]"))
	fmt.Printf("  ashc %s  resolve and install packages\n", cyan("install [<req>...|-r <file>]"))
	fmt.Printf("  ashc %s    remove installed packages\n", cyan("uninstall <name>..."))
	fmt.Printf("  ashc %s   inspect the install root\n", cyan("list | freeze | show"))
	fmt.Printf("  ashc %s        manage the build cache\n", cyan("cache dir|purge"))
	fmt.Println("\nShortcuts:")
	fmt.Println("  ashc -c <code>         compile and run a code string")
	fmt.Println("  ashc -m <module>       compile and run an installed module")
	fmt.Println("  ashc -                 compile and run from stdin")
	fmt.Println("\nFlags (build; test accepts only --force and --timeout <duration>):")
	fmt.Println("  -b                     link a self-contained executable")
	fmt.Println("  --target <triple>      cross-compile")
	fmt.Println("  --watch                rebuild on change")
	fmt.Println("  --force                bypass the build cache")
	fmt.Println("  --debug                write the source-map sidecar")
}
