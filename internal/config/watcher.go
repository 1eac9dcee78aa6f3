package config

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vyrodovalexey/gymgw/internal/observability"
)

// DefaultWatchDebounce coalesces the burst of events editors emit on save.
const DefaultWatchDebounce = 200 * time.Millisecond

// ErrWatcherStopped is returned by Start on a stopped watcher.
var ErrWatcherStopped = errors.New("config watcher stopped")

// ReloadFunc receives every configuration that loaded and validated.
type ReloadFunc func(*GatewayConfig)

// Watcher reloads a configuration file whenever it changes. Invalid
// documents are reported and skipped; the previous configuration stays
// in force.
type Watcher struct {
	path     string
	fs       *fsnotify.Watcher
	loader   *Loader
	onReload ReloadFunc
	onError  func(error)
	logger   observability.Logger
	debounce time.Duration

	mu       sync.Mutex
	started  bool
	stopped  bool
	stopCh   chan struct{}
	loopDone chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatchDebounce sets the quiet period after the last event before
// a reload.
func WithWatchDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchLogger sets the watcher logger.
func WithWatchLogger(logger observability.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithWatchLoader sets the loader used for reloads.
func WithWatchLoader(l *Loader) WatcherOption {
	return func(w *Watcher) {
		w.loader = l
	}
}

// WithReloadErrorHandler is called for load, validation and watch errors.
func WithReloadErrorHandler(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// NewWatcher creates a watcher for path. Nothing is watched until Start.
func NewWatcher(path string, onReload ReloadFunc, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     abs,
		fs:       fs,
		loader:   NewLoader(),
		onReload: onReload,
		logger:   observability.NopLogger(),
		debounce: DefaultWatchDebounce,
		stopCh:   make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start watches the directory holding the file, so that editors which
// replace the file by rename are still observed. The loop ends when ctx
// is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return ErrWatcherStopped
	}
	if w.started {
		return nil
	}

	if err := w.fs.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.started = true

	w.logger.Info("watching configuration file", observability.String("path", w.path))
	go w.loop(ctx)
	return nil
}

// Stop ends the watch loop and releases the inotify handle.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	started := w.started
	close(w.stopCh)
	w.mu.Unlock()

	if started {
		<-w.loopDone
	}
	return w.fs.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.loopDone)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.fail("config watch error", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// Reload loads and validates the file now, calling the reload callback
// on success.
func (w *Watcher) Reload() error {
	cfg, err := w.loader.Load(w.path)
	if err != nil {
		return err
	}
	if err := ValidateConfig(cfg); err != nil {
		return err
	}
	if w.onReload != nil {
		w.onReload(cfg)
	}
	return nil
}

func (w *Watcher) reload() {
	w.logger.Info("reloading configuration", observability.String("path", w.path))
	if err := w.Reload(); err != nil {
		w.fail("configuration reload rejected", err)
		return
	}
	w.logger.Info("configuration reloaded")
}

func (w *Watcher) fail(msg string, err error) {
	w.logger.Error(msg, observability.String("path", w.path), observability.Error(err))
	if w.onError != nil {
		w.onError(err)
	}
}
