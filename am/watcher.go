package am

import (
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/teranos/lanes/errors"
	"github.com/teranos/lanes/logger"
)

// DefaultDebounce collapses the burst of events a single save produces.
const DefaultDebounce = 500 * time.Millisecond

// ReloadCallback receives each valid reloaded configuration.
// Runtime.ApplyConfig has this shape.
type ReloadCallback func(*Config) error

// ConfigWatcher reloads the configuration when its file changes and hands
// the result to the registered callbacks.
//
// The containing directory is watched rather than the file itself: editors
// that save by writing a temp file and renaming it over the original would
// otherwise drop the watch after the first save.
type ConfigWatcher struct {
	path string
	fsw  *fsnotify.Watcher

	debouncePeriod time.Duration
	load           func() (*Config, error)

	mu        sync.Mutex
	callbacks []ReloadCallback
	pending   *time.Timer

	ownWrite atomic.Bool
	started  atomic.Bool
	done     chan struct{}
}

var (
	globalWatcher   *ConfigWatcher
	globalWatcherMu sync.Mutex
)

// NewConfigWatcher watches configPath. Reloads re-read the full
// configuration cascade, so environment overrides keep applying.
func NewConfigWatcher(configPath string) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", configPath)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, errors.Wrapf(err, "failed to watch directory of %s", abs)
	}

	return &ConfigWatcher{
		path:           abs,
		fsw:            fsw,
		debouncePeriod: DefaultDebounce,
		done:           make(chan struct{}),
		load: func() (*Config, error) {
			Reset()
			return Load()
		},
	}, nil
}

// OnReload registers a callback. Callbacks run in registration order on the
// debounce timer's goroutine.
func (cw *ConfigWatcher) OnReload(callback ReloadCallback) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

// MarkOwnWrite makes the watcher skip the next change, so the process that
// persisted a setting does not reload it back.
func (cw *ConfigWatcher) MarkOwnWrite() {
	cw.ownWrite.Store(true)
}

func (cw *ConfigWatcher) checkOwnWrite() bool {
	return cw.ownWrite.Swap(false)
}

// Start begins watching on a new goroutine.
func (cw *ConfigWatcher) Start() {
	if cw.started.CompareAndSwap(false, true) {
		go cw.watchLoop()
	}
}

func (cw *ConfigWatcher) watchLoop() {
	defer close(cw.done)
	for {
		select {
		case event, ok := <-cw.fsw.Events:
			if !ok {
				return
			}
			if !cw.relevant(event) {
				continue
			}
			if cw.checkOwnWrite() {
				logger.Debugw("Config watcher skipping own write", "file", event.Name)
				continue
			}
			logger.Debugw("Config file changed", "file", event.Name, "op", event.Op.String())
			cw.scheduleReload()

		case err, ok := <-cw.fsw.Errors:
			if !ok {
				return
			}
			logger.Warnw("Config watcher error", logger.FieldError, err)
		}
	}
}

// relevant keeps writes, creates and rename-overs of the watched file.
func (cw *ConfigWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != cw.path || isBackupFile(event.Name) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

// scheduleReload restarts the debounce timer.
func (cw *ConfigWatcher) scheduleReload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.pending != nil {
		cw.pending.Stop()
	}
	cw.pending = time.AfterFunc(cw.debouncePeriod, func() {
		if err := cw.reload(); err != nil {
			logger.Errorw("Config reload failed", "path", cw.path, logger.FieldError, err)
		}
	})
}

// reload loads and validates the configuration, then runs every callback.
// An invalid configuration reaches no callback. A failing callback is
// logged and the rest still run.
func (cw *ConfigWatcher) reload() error {
	cfg, err := cw.load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "reloaded config is invalid")
	}

	cw.mu.Lock()
	callbacks := append([]ReloadCallback(nil), cw.callbacks...)
	cw.mu.Unlock()

	logger.Infow("Config reloaded", "path", cw.path, "callbacks", len(callbacks))
	for _, callback := range callbacks {
		if err := callback(cfg); err != nil {
			logger.Warnw("Config reload callback failed", logger.FieldError, err)
		}
	}
	return nil
}

// Stop cancels a pending reload, closes the watch and waits for the watch
// loop to exit.
func (cw *ConfigWatcher) Stop() error {
	cw.mu.Lock()
	if cw.pending != nil {
		cw.pending.Stop()
	}
	cw.mu.Unlock()

	err := cw.fsw.Close()
	if cw.started.Load() {
		<-cw.done
	}
	return err
}

// isBackupFile matches the rotated .back1 .. .back9 copies persist writes.
func isBackupFile(path string) bool {
	ext := filepath.Ext(path)
	return strings.HasPrefix(ext, ".back") && len(ext) == len(".back")+1
}

// SetGlobalWatcher registers the watcher persistence calls mark their
// writes on. Pass nil to clear it.
func SetGlobalWatcher(watcher *ConfigWatcher) {
	globalWatcherMu.Lock()
	defer globalWatcherMu.Unlock()
	globalWatcher = watcher
}

// GetGlobalWatcher returns the registered watcher, or nil.
func GetGlobalWatcher() *ConfigWatcher {
	globalWatcherMu.Lock()
	defer globalWatcherMu.Unlock()
	return globalWatcher
}
