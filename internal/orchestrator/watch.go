package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces the burst of write events editors produce for a
// single save into one rebuild.
const debounceWindow = 500 * time.Millisecond

// Watch rebuilds a source file whenever it changes under dir, until ctx is
// cancelled. onResult receives every (re)build outcome, including the
// initial full build.
func (o *Orchestrator) Watch(ctx context.Context, dir string, onResult func(FileResult)) error {
	results, err := o.Build(ctx, dir)
	if err != nil {
		return err
	}
	for _, r := range results {
		onResult(r)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := addWatchDirs(watcher, dir); err != nil {
		return err
	}

	lastBuilt := map[string]time.Time{}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !strings.HasSuffix(event.Name, SourceExt) {
				continue
			}
			if time.Since(lastBuilt[event.Name]) < debounceWindow {
				continue
			}
			lastBuilt[event.Name] = time.Now()
			o.log.Infow("change detected", "file", event.Name)
			onResult(o.buildFile(event.Name))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			o.log.Warnw("watch error", "err", err)
		}
	}
}

// addWatchDirs registers dir and every non-hidden subdirectory; fsnotify
// watches are not recursive on their own.
func addWatchDirs(watcher *fsnotify.Watcher, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return watcher.Add(filepath.Dir(dir))
	}
	return filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		name := info.Name()
		if p != dir && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
			return filepath.SkipDir
		}
		return watcher.Add(p)
	})
}
