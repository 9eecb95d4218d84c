package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"jordanella.com/auto-shake-go/internal/bot"
	"jordanella.com/auto-shake-go/internal/events"
	"jordanella.com/auto-shake-go/internal/logging"
)

// ReloadFunc receives a freshly loaded and validated config
type ReloadFunc func(*Config)

// Watcher reloads the settings file when it changes on disk
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onReload ReloadFunc
	debounce time.Duration
	logger   *logging.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatcher watches path. The parent directory is watched so that editors
// which replace the file by rename are still seen.
func NewWatcher(path string, onReload ReloadFunc) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:     abs,
		watcher:  fw,
		onReload: onReload,
		debounce: 200 * time.Millisecond,
		logger:   logging.NewLogger("config"),
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins watching for file changes
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.watchLoop()
}

// Stop stops the watcher and waits for its goroutine
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
	})
	w.wg.Wait()
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()

	// Debounce events - many editors create multiple events for a single save
	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C

	for {
		select {
		case <-w.stopCh:
			debounceTimer.Stop()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounceTimer.Reset(w.debounce)

		case <-debounceTimer.C:
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadFromINI(w.path)
	if err != nil {
		w.logger.Error("Reload failed", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		w.logger.WarnWithContext("Ignoring invalid settings", map[string]interface{}{
			"path":  w.path,
			"error": err.Error(),
		})
		return
	}

	w.logger.InfoWithContext("Settings reloaded", map[string]interface{}{"path": w.path})
	w.onReload(cfg)
}

// ApplyTo returns a ReloadFunc that pushes new settings into shared and
// announces the reload on bus. bus may be nil.
func ApplyTo(shared *bot.Shared, bus events.EventBus, path string) ReloadFunc {
	return func(cfg *Config) {
		settings, err := cfg.BotSettings()
		if err != nil {
			return
		}
		shared.Replace(settings)
		if bus != nil {
			bus.PublishAsync(events.NewConfigReloadedEvent(path))
		}
	}
}
