package config

import (
	"context"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
)

// Update is one result of watching a configuration file. Exactly one of
// Root and Err is set.
type Update struct {
	Root *Root
	Err  error
}

// Watch parses path and emits the result, then emits a fresh result every
// time the file is written or re-created. The channel closes when ctx is
// cancelled or the watcher fails.
func Watch(ctx context.Context, path string) (<-chan Update, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch file %s: %w", path, err)
	}

	format := FormatFromPath(path)
	out := make(chan Update)

	go func() {
		defer close(out)
		defer watcher.Close()

		emit := func() bool {
			data, err := os.ReadFile(path)
			var u Update
			if err != nil {
				u.Err = fmt.Errorf("failed to read config file: %w", err)
			} else {
				u.Root, u.Err = Parse(data, format)
			}
			select {
			case out <- u:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if !emit() {
					return
				}

			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return out, nil
}
