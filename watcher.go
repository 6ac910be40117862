package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

type onBagReady = func(ctx context.Context, bag *bagMetadata)

// bagWatcher watches a recording directory and reports bag splits as soon
// as they are complete.
type bagWatcher struct {
	// Dir is the directory the recorder writes splits into. It does not
	// need to exist yet when the watcher starts.
	Dir string

	OnBagReady onBagReady

	Logger loggerInterface
}

// Start blocks and watches until ctx is cancelled. The watcher first
// watches the parent directory of w.Dir to detect the creation of w.Dir by
// the recorder. Then the parent is unwatched and w.Dir is added to the
// watchlist.
func (w *bagWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start file watching: %w", err)
	}
	defer watcher.Close()
	cleanedDir := filepath.Clean(w.Dir)
	if info, err := os.Stat(cleanedDir); err == nil && info.IsDir() {
		if err = watcher.Add(cleanedDir); err != nil {
			return err
		}
	} else if err = watcher.Add(filepath.Dir(cleanedDir)); err != nil {
		return err
	}
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if filepath.Clean(event.Name) == cleanedDir {
					w.logWatchErr(watcher.Remove(filepath.Dir(cleanedDir)))
					w.logWatchErr(watcher.Add(cleanedDir))
				} else {
					w.notifyIfBagReady(ctx, event.Name)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logWatchErr(err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *bagWatcher) logWatchErr(err error) {
	if err != nil {
		w.Logger.Errorln("an error occured during file watching:", err)
	}
}

// notifyIfBagReady reports the previous split when a new one appears. A
// creation notification for bag number n means bag number n-1 is complete,
// because the recorder creates the next split file the moment it rolls
// over and the new file is initially empty.
func (w *bagWatcher) notifyIfBagReady(ctx context.Context, bagPath string) {
	created := newBagMetadata(bagPath, true)
	if created == nil || created.number == 0 {
		return
	}
	ready := newBagMetadata(
		fmt.Sprintf("%s_%d.db3", bagNumberRegex.FindStringSubmatch(bagPath)[1], created.number-1),
		true,
	)
	if ready != nil {
		go w.OnBagReady(ctx, ready)
	}
}
