// Copyright © 2024 The wat-lsp authors

package cmd

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watchSettle is how long a file must go without events before it is
// re-linted.  Editors often write a file in several steps.
const watchSettle = 200 * time.Millisecond

// watchFiles calls onChange for each of paths that is written or recreated,
// once the file has settled.  It blocks until ctx is cancelled.  The parent
// directories are watched, not the files, so that editors which save by
// renaming a temporary file are followed.
func watchFiles(ctx context.Context, log *zap.Logger, paths []string, onChange func(path string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close() //nolint:errcheck // best-effort cleanup

	watched := make(map[string]string, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		watched[abs] = p
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := w.Add(dir); err != nil {
			return err
		}
		dirs[dir] = true
	}
	log.Info("watching for changes", zap.Int("files", len(watched)), zap.Int("dirs", len(dirs)))

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(watchSettle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("stopping watcher")
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if path, ok := watched[abs]; ok {
				log.Debug("file changed", zap.String("path", path), zap.Stringer("op", event.Op))
				pending[path] = time.Now()
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", zap.Error(err))

		case now := <-ticker.C:
			for path, at := range pending {
				if now.Sub(at) < watchSettle {
					continue
				}
				delete(pending, path)
				onChange(path)
			}
		}
	}
}
