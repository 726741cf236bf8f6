package userserver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period a Watcher waits after a change before
// notifying.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reports external edits of a users document on disk.
//
// The parent directory is watched rather than the file itself, so that the
// file being created, or replaced by rename, is observed too.
type Watcher struct {
	path     string
	notify   func(context.Context)
	debounce time.Duration
	logger   *slog.Logger
	ready    chan struct{}
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce sets the quiet period. Zero or negative notifies on every
// event.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) { w.debounce = d }
}

func WithWatchLogger(l *slog.Logger) WatchOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher returns a Watcher calling notify after path changes.
func NewWatcher(path string, notify func(context.Context), opts ...WatchOption) *Watcher {
	w := &Watcher{
		path:     path,
		notify:   notify,
		debounce: DefaultDebounce,
		logger:   slog.New(slog.DiscardHandler),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Ready is closed once the directory watch is established.
func (w *Watcher) Ready() <-chan struct{} { return w.ready }

// Run watches until ctx is done. It returns an error only when the watch
// cannot be established.
func (w *Watcher) Run(ctx context.Context) error {
	target, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}
	defer func() {
		_ = fw.Close()
	}()
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	db := &debouncer{interval: w.debounce, fire: func() { w.notify(ctx) }}
	defer db.stop()

	w.logger.DebugContext(ctx, "watching users file", slog.String("path", target))
	close(w.ready)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.DebugContext(ctx, "users file changed", slog.String("op", ev.Op.String()))
			db.trigger()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.DebugContext(ctx, "fsnotify error", slog.String("err", err.Error()))
		}
	}
}

type debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	pending  bool
	stopped  bool
	interval time.Duration
	fire     func()
}

func (d *debouncer) trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.interval <= 0 {
		d.fire()
		return
	}
	if d.pending {
		return
	}
	d.pending = true
	if d.timer == nil {
		d.timer = time.AfterFunc(d.interval, d.flush)
	} else {
		d.timer.Reset(d.interval)
	}
}

func (d *debouncer) flush() {
	d.mu.Lock()
	d.pending = false
	stopped := d.stopped
	d.mu.Unlock()
	if !stopped {
		d.fire()
	}
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
