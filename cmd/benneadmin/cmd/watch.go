package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDelay lets editors finish writing before the document is re-read.
const watchDelay = 500 * time.Millisecond

// fileWatcher calls reload once a burst of changes to one file settles.
type fileWatcher struct {
	name   string
	delay  time.Duration
	reload func(context.Context)
	logger *slog.Logger
}

// watchFile watches the directory of path, since editors often replace the
// file rather than write it in place, and runs until ctx is done.
func watchFile(ctx context.Context, path string, reload func(context.Context), logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}
	fw := &fileWatcher{
		name:   filepath.Base(path),
		delay:  watchDelay,
		reload: reload,
		logger: logger,
	}
	go func() {
		defer w.Close()
		fw.run(ctx, w.Events, w.Errors)
	}()
	return nil
}

func (fw *fileWatcher) relevant(ev fsnotify.Event) bool {
	if filepath.Base(ev.Name) != fw.name {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove)
}

func (fw *fileWatcher) run(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !fw.relevant(ev) {
				continue
			}
			fw.logger.Debug("site document changed", "event", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(fw.delay)
			} else {
				timer.Reset(fw.delay)
			}
			fire = timer.C
		case err, ok := <-errs:
			if !ok {
				return
			}
			fw.logger.Warn("file watcher error", "error", err)
		case <-fire:
			fire = nil
			fw.reload(ctx)
		}
	}
}
