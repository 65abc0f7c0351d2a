package server

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/railkit/stationcode/internal/logger"
	"github.com/railkit/stationcode/pkg/lookup"
)

// reloadDelay collapses the burst of events a single snapshot write makes.
const reloadDelay = 200 * time.Millisecond

// WatchSnapshot reloads the snapshot at path into s whenever the file is
// written, until ctx is cancelled. A snapshot that fails to load is logged
// and the previous index stays in place.
//
// The parent directory is watched rather than the file, so snapshots
// replaced by rename are picked up too.
func WatchSnapshot(ctx context.Context, s *Server, path string, opts ...lookup.Option) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	log := logger.New("snapshot")

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}
	log.Debugf("Watching snapshot %s", path)

	target := filepath.Clean(path)
	var reload <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			reload = time.After(reloadDelay)

		case <-reload:
			reload = nil
			idx, err := lookup.LoadFile(path, opts...)
			if err != nil {
				log.Warnf("Keeping previous snapshot: %v", err)
				continue
			}
			s.SetIndex(idx)
			log.Info("snapshot reloaded", "path", path, "stations", idx.Len())

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Errorf("Watcher error: %v", err)
		}
	}
}
