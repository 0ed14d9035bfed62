package store

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/fleetsync-io/fleetsync/pkg/log"
)

// Watch invalidates derived state when the dataset file changes on disk, e.g.
// after an operator restores a backup next to a running daemon. It watches the
// directory rather than the file because the atomic rename replaces the inode.
// Blocks until ctx is cancelled.
func Watch(ctx context.Context, fb *FileBackend, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(fb.Path())); err != nil {
		return err
	}

	target := filepath.Base(fb.Path())
	logger := log.WithName("store.watch")
	logger.Info("Watching dataset file for out-of-band changes", "path", fb.Path())

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("Dataset file changed", "op", event.Op.String())
			onChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error(err, "File watcher error")
		}
	}
}
