package syncer

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces the burst of events an export write produces.
const debounceDelay = 200 * time.Millisecond

// SyncCallback is called after every watcher-driven sync.
type SyncCallback func(res *Result, err error)

// Watch re-syncs collection whenever the export file at path changes, until
// ctx is cancelled. The parent directory is watched so that exports written
// via rename are seen too. Sync failures are logged and passed to cb (if
// non-nil); they do not stop the watcher.
func (s *Syncer) Watch(ctx context.Context, path, collection string, cb SyncCallback) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	s.logger.Info("watcher: started", slog.String("path", abs), slog.String("collection", collection))

	var timer *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounceDelay)
			fire = timer.C
		} else {
			timer.Reset(debounceDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			s.logger.Info("watcher: stopped")
			return nil

		case <-fire:
			res, err := s.Sync(ctx, collection)
			if err != nil {
				s.logger.Error("watcher: sync failed", slog.String("error", err.Error()))
			}
			if cb != nil {
				cb(res, err)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			s.logger.Debug("watcher: export changed", slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
