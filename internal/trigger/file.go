package trigger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// File fires when path is created or written. The parent directory is
// watched, so path does not need to exist beforehand. A file already present
// when Wait starts fires immediately.
func File(path string) Trigger {
	return Func(func(ctx context.Context) error {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve stop file: %w", err)
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer watcher.Close()

		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
		}

		if _, err := os.Stat(abs); err == nil {
			log.Info("trigger: stop file present", "path", abs)
			return nil
		}

		log.Debug("trigger: watching for stop file", "path", abs)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()

			case event, ok := <-watcher.Events:
				if !ok {
					return fmt.Errorf("watcher closed")
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
					log.Info("trigger: stop file touched", "path", abs)
					return nil
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return fmt.Errorf("watcher closed")
				}
				log.Warn("trigger: watcher error", "err", err)
			}
		}
	})
}
