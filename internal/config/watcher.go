package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/quill-lang/quillup/internal/domain"
)

// Watcher watches the config file for changes and triggers a reload
// callback. Events are debounced because editors often save in a burst of
// writes; renames re-arm the watch because atomic saves replace the file.
type Watcher struct {
	path     string
	debounce time.Duration
	onReload func()
	logger   domain.Logger

	watcher  *fsnotify.Watcher
	stopOnce sync.Once
	stop     chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the debounce duration (default 100ms).
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher creates a file watcher that calls onReload when the file at
// path changes.
func NewWatcher(path string, onReload func(), logger domain.Logger, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     path,
		debounce: 100 * time.Millisecond,
		onReload: onReload,
		logger:   logger,
		watcher:  fsw,
		stop:     make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}

	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	var timer *time.Timer
	arm := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, w.onReload)
	}

	for {
		select {
		case <-w.stop:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			switch {
			case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
				arm()
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				// Atomic saves replace the inode and drop the watch.
				if err := w.watcher.Add(w.path); err != nil {
					w.logger.Warn("config file gone, watch lost", "path", w.path, "err", err)
					continue
				}
				arm()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", "err", err)
		}
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.stopOnce.Do(func() { close(w.stop) })
	return w.watcher.Close()
}
