package inbox

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/postsmith/internal/logger"
)

// Watch imports messages created or written under dir until ctx is done.
// It returns once the directory tree is being watched; the event channel
// closes when watching stops. Existing files are not imported.
func (i *Importer) Watch(ctx context.Context, dir string) (<-chan Event, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addTree(w, dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		defer w.Close()
		i.watchLoop(ctx, w, events)
	}()
	logger.Info("watching %s for new newsletters", dir)
	return events, nil
}

func (i *Importer) watchLoop(ctx context.Context, w *fsnotify.Watcher, out chan<- Event) {
	pending := make(map[string]struct{})
	timer := time.NewTimer(i.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case e, ok := <-w.Events:
			if !ok {
				return
			}
			if e.Has(fsnotify.Create) && isDir(e.Name) {
				if !isHidden(filepath.Base(e.Name)) {
					if err := addTree(w, e.Name); err != nil {
						logger.Warn("inbox: cannot watch %s: %v", e.Name, err)
					}
				}
				continue
			}
			if !IsMessage(e.Name) || !(e.Has(fsnotify.Create) || e.Has(fsnotify.Write)) {
				continue
			}
			pending[e.Name] = struct{}{}
			timer.Reset(i.debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("inbox watcher: %v", err)

		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			slices.Sort(paths)

			for _, p := range paths {
				ev := i.ImportFile(ctx, p)
				if ev.Err != nil {
					logger.Warn("inbox: %s: %v", p, ev.Err)
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// addTree watches root and every non-hidden directory below it.
func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
