package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/ashlang/ashc/internal/config"
	"github.com/ashlang/ashc/internal/install"
	"github.com/ashlang/ashc/internal/pkgindex"
	"github.com/ashlang/ashc/internal/resolve"
)

func newInstaller(log *zap.SugaredLogger) (*install.Installer, *pkgindex.Client) {
	client := pkgindex.New(indexURL(), indexCacheDir(), log)
	return install.New(installRoot(), client, log), client
}

func cmdInstall(log *zap.SugaredLogger, args []string) error {
	fs := flag.NewFlagSet("install", flag.ContinueOnError)
	reqFile := fs.String("r", "", "read requirements from file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var reqs []string
	switch {
	case *reqFile != "":
		lines, err := readRequirementsFile(*reqFile)
		if err != nil {
			return err
		}
		reqs = lines
	case fs.NArg() > 0:
		reqs = fs.Args()
	default:
		// No arguments: the project manifest in the current directory.
		if !config.Exists(".") {
			return fmt.Errorf("install: no requirements given and no %s in the current directory", config.ManifestName)
		}
		cfg, err := config.LoadDir(".")
		if err != nil {
			return err
		}
		reqs = cfg.Requirements()
	}
	if len(reqs) == 0 {
		fmt.Println("nothing to install")
		return nil
	}

	installer, client := newInstaller(log)
	locked, err := resolve.New(client, log).Resolve(context.Background(), reqs)
	if err != nil {
		return err
	}
	for _, p := range locked {
		fmt.Printf("  %s %s==%s\n", cyan("resolving"), p.Name, p.Version)
	}
	if err := installer.Install(context.Background(), locked); err != nil {
		return err
	}
	if err := resolve.WriteLockfile("ash.lock", reqs, locked); err != nil {
		return err
	}
	fmt.Printf("%s installed %d package(s)\n", green("OK"), len(locked))
	return nil
}

func readRequirementsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var reqs []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		reqs = append(reqs, line)
	}
	return reqs, sc.Err()
}

func cmdUninstall(log *zap.SugaredLogger, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("uninstall: missing package name")
	}
	installer, _ := newInstaller(log)
	for _, name := range args {
		if err := installer.Uninstall(name); err != nil {
			return err
		}
		fmt.Printf("%s removed %s\n", green("OK"), name)
	}
	return nil
}

func cmdList(log *zap.SugaredLogger) error {
	installer, _ := newInstaller(log)
	metas, err := installer.List()
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println("no packages installed")
		return nil
	}
	for _, m := range metas {
		fmt.Printf("%-30s %s\n", m.Name, m.Version)
	}
	return nil
}

func cmdFreeze(log *zap.SugaredLogger) error {
	installer, _ := newInstaller(log)
	lines, err := installer.Freeze()
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}

func cmdShow(log *zap.SugaredLogger, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("show: missing package name")
	}
	installer, _ := newInstaller(log)
	meta, err := installer.Show(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", bold("Name"), meta.Name)
	fmt.Printf("%s: %s\n", bold("Version"), meta.Version)
	if meta.Summary != "" {
		fmt.Printf("%s: %s\n", bold("Summary"), meta.Summary)
	}
	if len(meta.Dependencies) > 0 {
		fmt.Printf("%s: %s\n", bold("Requires"), strings.Join(meta.Dependencies, ", "))
	}
	return nil
}
