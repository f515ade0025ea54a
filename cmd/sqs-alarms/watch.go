package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/30Piraten/sqs-alarms/log"
)

// watchRender renders to out, then again on every write to the configuration
// or template file, until ctx is done. A failed render is logged and leaves
// the previous output in place.
func watchRender(ctx context.Context, opts options, out string) error {
	if out == "" {
		return errors.New("--watch needs --out")
	}
	paths := []string{opts.Config}
	if opts.Template != "" {
		paths = append(paths, opts.Template)
	}
	for _, p := range paths {
		if strings.Contains(p, "://") && !strings.HasPrefix(p, "file://") {
			return errors.Errorf("--watch needs local files, got %s", p)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WithStack(err)
	}
	defer watcher.Close()

	// watch the parent directories; an atomic save replaces the file and
	// drops any watch held on it
	targets := map[string]bool{}
	dirs := map[string]bool{}
	for i, p := range paths {
		p = filepath.Clean(strings.TrimPrefix(p, "file://"))
		paths[i] = p
		if _, err := os.Stat(p); err != nil {
			return errors.Wrapf(err, "watch %s", p)
		}
		targets[p] = true
		dir := filepath.Dir(p)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return errors.Wrapf(err, "watch %s", dir)
		}
		dirs[dir] = true
	}

	logger := log.Get().With(zap.String("out", out))
	update := func() {
		if err := renderFile(ctx, opts, out); err != nil {
			logger.Error("render failed, keeping previous output", zap.Error(err))
			return
		}
		logger.Info("rendered")
	}

	logger.Info("watching for changes", zap.Strings("paths", paths))
	update()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !targets[filepath.Clean(event.Name)] {
				continue
			}
			// a file renamed over a target arrives as a create of the target
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			logger.Debug("changed", zap.String("path", event.Name))
			update()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", zap.Error(err))
		}
	}
}
