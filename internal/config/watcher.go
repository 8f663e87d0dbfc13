package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vyrodovalexey/avaenvelope/internal/observability"
)

// DefaultDebounceDelay is the quiet period after the last file event before
// the configuration is reloaded.
const DefaultDebounceDelay = 100 * time.Millisecond

// ChangeCallback receives every successfully reloaded configuration.
type ChangeCallback func(*Config)

// ErrorCallback receives load, validation and watch errors.
type ErrorCallback func(error)

// Watcher reloads the configuration file when it changes. Invalid files are
// reported and the last good configuration stays in effect.
type Watcher struct {
	path          string
	fs            *fsnotify.Watcher
	onChange      ChangeCallback
	onError       ErrorCallback
	logger        observability.Logger
	debounceDelay time.Duration

	mu      sync.RWMutex
	current *Config
	running bool

	// routeFiles are the fixture files of the current configuration. Edits
	// to them reload the configuration like edits to the file itself.
	routeFiles  map[string]bool
	watchedDirs map[string]bool

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// WatcherOption is a functional option for configuring the watcher.
type WatcherOption func(*Watcher)

// WithDebounceDelay sets the debounce delay for file changes.
func WithDebounceDelay(delay time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = delay
	}
}

// WithLogger sets the logger for the watcher.
func WithLogger(logger observability.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithErrorCallback sets the error callback for the watcher.
func WithErrorCallback(callback ErrorCallback) WatcherOption {
	return func(w *Watcher) {
		w.onError = callback
	}
}

// NewWatcher creates a new configuration watcher.
func NewWatcher(path string, onChange ChangeCallback, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:          absPath,
		fs:            fsWatcher,
		onChange:      onChange,
		debounceDelay: DefaultDebounceDelay,
		logger:        observability.NopLogger(),
		stopCh:        make(chan struct{}),
		stoppedCh:     make(chan struct{}),
		routeFiles:    make(map[string]bool),
		watchedDirs:   make(map[string]bool),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Start loads the configuration and begins watching the file and the
// fixture files of its routes. Directories are watched so that editors
// replacing a file are noticed.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	cfg, err := loadValidated(w.path)
	if err != nil {
		return err
	}

	if err := w.fs.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	w.mu.Lock()
	w.watchedDirs[filepath.Dir(w.path)] = true
	w.current = cfg
	w.running = true
	w.mu.Unlock()

	w.watchRouteFiles(cfg)

	w.logger.Info("started watching configuration file",
		observability.String("path", w.path),
	)

	go w.watch(ctx)

	return nil
}

// Stop stops watching the configuration file.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.fs.Close()
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.stoppedCh

	return w.fs.Close()
}

// Current returns the last successfully loaded configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// ForceReload reloads the configuration immediately.
func (w *Watcher) ForceReload() error {
	cfg, err := loadValidated(w.path)
	if err != nil {
		return err
	}
	w.apply(cfg)
	return nil
}

func (w *Watcher) watch(ctx context.Context) {
	defer close(w.stoppedCh)

	var timer *time.Timer
	var debounceCh <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("config watcher stopped due to context cancellation")
			return

		case <-w.stopCh:
			w.logger.Info("config watcher stopped")
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("config file changed",
				observability.String("path", event.Name),
				observability.String("op", event.Op.String()),
			)
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounceDelay)
			debounceCh = timer.C

		case <-debounceCh:
			debounceCh = nil
			w.reload()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", observability.Error(err))
			w.reportError(err)
		}
	}
}

// relevant reports whether event is a write or create of the configuration
// file or of one of its route files.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}

	name := filepath.Clean(event.Name)
	if name == w.path {
		return true
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.routeFiles[name]
}

// watchRouteFiles replaces the set of watched route files with those of
// cfg and adds their directories to the watch. A directory that cannot be
// watched only disables reloads for its files.
func (w *Watcher) watchRouteFiles(cfg *Config) {
	files := make(map[string]bool, len(cfg.Routes))
	for _, route := range cfg.Routes {
		abs, err := filepath.Abs(route.File)
		if err != nil {
			continue
		}
		files[abs] = true
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.routeFiles = files
	for file := range files {
		dir := filepath.Dir(file)
		if w.watchedDirs[dir] {
			continue
		}
		if err := w.fs.Add(dir); err != nil {
			w.logger.Warn("failed to watch route file directory",
				observability.String("dir", dir),
				observability.Error(err),
			)
			continue
		}
		w.watchedDirs[dir] = true
	}
}

func (w *Watcher) reload() {
	w.logger.Info("reloading configuration",
		observability.String("path", w.path),
	)

	cfg, err := loadValidated(w.path)
	if err != nil {
		w.logger.Error("configuration reload rejected, keeping previous configuration",
			observability.Error(err),
		)
		w.reportError(err)
		return
	}

	w.apply(cfg)
	w.logger.Info("configuration reloaded successfully",
		observability.Int("routes", len(cfg.Routes)),
	)
}

func (w *Watcher) apply(cfg *Config) {
	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	w.watchRouteFiles(cfg)

	if w.onChange != nil {
		w.onChange(cfg)
	}
}

func (w *Watcher) reportError(err error) {
	if w.onError != nil {
		w.onError(err)
	}
}

func loadValidated(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
