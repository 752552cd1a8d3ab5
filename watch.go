// File: confkit/watch.go
package confkit

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const (
	// DefaultDebounce coalesces rapid file change events before reload.
	DefaultDebounce = 500 * time.Millisecond
	// DefaultReloadTimeout bounds a single reload operation.
	DefaultReloadTimeout = 5 * time.Second
	// DefaultMaxWatchers limits concurrent subscriber channels.
	DefaultMaxWatchers = 100
)

// WatchOptions configures file watching behavior.
type WatchOptions struct {
	// Debounce duration to avoid rapid reloads
	Debounce time.Duration

	// ReloadTimeout for file reload operations
	ReloadTimeout time.Duration

	// MaxWatchers limits concurrent watch channels
	MaxWatchers int

	// Logger receives watcher diagnostics; nil disables them
	Logger *zerolog.Logger
}

// DefaultWatchOptions returns sensible defaults for file watching.
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		Debounce:      DefaultDebounce,
		ReloadTimeout: DefaultReloadTimeout,
		MaxWatchers:   DefaultMaxWatchers,
	}
}

// watcher manages file watching state.
type watcher struct {
	mu               sync.Mutex
	fsw              *fsnotify.Watcher
	ctx              context.Context
	cancel           context.CancelFunc
	opts             WatchOptions
	filePath         string
	logger           zerolog.Logger
	watching         atomic.Bool
	reloadInProgress atomic.Bool
	debounceTimer    *time.Timer
	subscribers      map[int64]chan string
	subscriberID     atomic.Int64
}

// AutoUpdate enables automatic configuration reloading when the loaded
// file changes. It is a no-op when no file has been loaded.
func (s *Store) AutoUpdate() error {
	return s.AutoUpdateWithOptions(DefaultWatchOptions())
}

// AutoUpdateWithOptions enables automatic reloading with custom options.
func (s *Store) AutoUpdateWithOptions(opts WatchOptions) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.ReloadTimeout <= 0 {
		opts.ReloadTimeout = DefaultReloadTimeout
	}
	if opts.MaxWatchers <= 0 {
		opts.MaxWatchers = DefaultMaxWatchers
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	filePath := s.filePath
	if filePath == "" {
		// No file configured, nothing to watch
		return nil
	}

	if s.watcher != nil {
		if s.watcher.filePath == filePath {
			return nil // Already watching this file
		}
		s.watcher.stop()
		s.watcher = nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	if err := fsw.Add(filePath); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch config file: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &watcher{
		fsw:         fsw,
		ctx:         ctx,
		cancel:      cancel,
		opts:        opts,
		filePath:    filePath,
		logger:      logger,
		subscribers: make(map[int64]chan string),
	}
	s.watcher = w

	go w.loop(s)

	logger.Debug().Str("path", filePath).Msg("watching config file for changes")
	return nil
}

// StopAutoUpdate stops automatic configuration reloading.
func (s *Store) StopAutoUpdate() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.watcher != nil {
		s.watcher.stop()
		s.watcher = nil
	}
}

// WatchFile stops any existing watcher, loads a new configuration file,
// and starts watching it. Optionally accepts a format hint.
func (s *Store) WatchFile(filePath string, formatHint ...string) error {
	s.StopAutoUpdate()

	if len(formatHint) > 0 {
		if err := s.SetFileFormat(formatHint[0]); err != nil {
			return fmt.Errorf("invalid format hint: %w", err)
		}
	}

	if err := s.LoadFile(filePath); err != nil {
		return fmt.Errorf("failed to load new file for watching: %w", err)
	}

	return s.AutoUpdate()
}

// Watch returns a channel that receives the keys of configuration
// values changed by file reloads. Watching starts if it hasn't already.
func (s *Store) Watch() <-chan string {
	return s.WatchWithOptions(DefaultWatchOptions())
}

// WatchWithOptions returns a change channel with custom watch options.
// When no file is configured, it returns a closed channel.
func (s *Store) WatchWithOptions(opts WatchOptions) <-chan string {
	if err := s.AutoUpdateWithOptions(opts); err != nil {
		ch := make(chan string)
		close(ch)
		return ch
	}

	s.mutex.RLock()
	w := s.watcher
	s.mutex.RUnlock()

	if w == nil {
		ch := make(chan string)
		close(ch)
		return ch
	}

	return w.subscribe()
}

// IsWatching reports whether auto-update is active.
func (s *Store) IsWatching() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.watcher != nil && s.watcher.watching.Load()
}

// WatcherCount returns the number of active watch channels.
func (s *Store) WatcherCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.watcher == nil {
		return 0
	}

	s.watcher.mu.Lock()
	defer s.watcher.mu.Unlock()
	return len(s.watcher.subscribers)
}

// loop is the main file watching loop.
func (w *watcher) loop(s *Store) {
	if !w.watching.CompareAndSwap(false, true) {
		return // Already watching
	}
	defer w.watching.Store(false)

	for {
		select {
		case <-w.ctx.Done():
			_ = w.fsw.Close()
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}

			// Write and Create cover in-place edits and editor
			// write-then-rename save strategies.
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.logger.Debug().
					Str("op", event.Op.String()).
					Str("path", w.filePath).
					Msg("config file changed")

				w.mu.Lock()
				if w.debounceTimer != nil {
					w.debounceTimer.Stop()
				}
				w.debounceTimer = time.AfterFunc(w.opts.Debounce, func() {
					w.reload(s)
				})
				w.mu.Unlock()
			}

			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				// Editors often replace the file; re-arm the watch so
				// events keep flowing for the new inode.
				if err := w.fsw.Add(w.filePath); err != nil {
					w.notify("file_deleted")
				}
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("config watcher error")
		}
	}
}

// reload re-reads the configuration file and notifies subscribers of
// every key whose value changed.
func (w *watcher) reload(s *Store) {
	if !w.reloadInProgress.CompareAndSwap(false, true) {
		return
	}
	defer w.reloadInProgress.Store(false)

	ctx, cancel := context.WithTimeout(w.ctx, w.opts.ReloadTimeout)
	defer cancel()

	oldValues := s.snapshot()

	done := make(chan error, 1)
	go func() {
		done <- s.loadFile(w.filePath)
	}()

	select {
	case err := <-done:
		if err != nil {
			w.logger.Error().Err(err).Msg("config reload failed")
			w.notify(fmt.Sprintf("reload_error:%v", err))
			return
		}

		newValues := s.snapshot()
		for key, newVal := range newValues {
			if oldVal, existed := oldValues[key]; !existed || !reflect.DeepEqual(oldVal, newVal) {
				w.notify(key)
			}
		}
		for key := range oldValues {
			if _, exists := newValues[key]; !exists {
				w.notify(key)
			}
		}

		w.logger.Debug().Str("path", w.filePath).Msg("config reloaded")

	case <-ctx.Done():
		w.logger.Error().Str("path", w.filePath).Msg("config reload timed out")
		w.notify("reload_timeout")
	}
}

// subscribe creates a new change channel.
func (w *watcher) subscribe() <-chan string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.subscribers) >= w.opts.MaxWatchers {
		// Refuse new subscriptions rather than grow without bound.
		ch := make(chan string)
		close(ch)
		return ch
	}

	ch := make(chan string, 10)
	id := w.subscriberID.Add(1)
	w.subscribers[id] = ch

	go func() {
		<-w.ctx.Done()
		w.mu.Lock()
		delete(w.subscribers, id)
		close(ch)
		w.mu.Unlock()
	}()

	return ch
}

// notify sends a change notification to all subscribers without
// blocking; full channels are skipped.
func (w *watcher) notify(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, ch := range w.subscribers {
		select {
		case ch <- key:
		default:
		}
	}
}

// stop terminates the watcher.
func (w *watcher) stop() {
	if w.cancel != nil {
		w.cancel()
	}

	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.mu.Unlock()
}
