// Package configwatch hot-reloads the transmission cycle time when the
// config file changes on disk.
package configwatch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/clusterbus/internal/cliconfig"
	"github.com/bft-labs/clusterbus/internal/ports"
)

// CycleSetter receives reloaded cycle times. CycleTime reports the value in
// effect, which other control paths may have changed since the last reload.
type CycleSetter interface {
	SetCycleTime(ms int) error
	CycleTime() time.Duration
}

// Config holds configuration options for the watcher.
type Config struct {
	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{DebounceDelay: 100 * time.Millisecond}
}

// Watcher reapplies cycle_time from a TOML config file whenever it changes.
// The containing directory is watched so editors that replace the file
// are handled.
type Watcher struct {
	mu sync.Mutex

	path          string
	setter        CycleSetter
	logger        ports.Logger
	debounceDelay time.Duration

	debounce *time.Timer
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a watcher for the config file at path.
func New(path string, setter CycleSetter, logger ports.Logger, cfg Config) *Watcher {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Watcher{
		path:          path,
		setter:        setter,
		logger:        logger,
		debounceDelay: cfg.DebounceDelay,
	}
}

// Start begins watching. Only later changes to the file are applied.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.watchLoop(watchCtx, fw)

	w.logger.Info("config watcher started", ports.String("path", w.path))
	return nil
}

// Stop ends watching and waits for the loop to exit.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()

	w.mu.Lock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.mu.Unlock()
}

func (w *Watcher) watchLoop(ctx context.Context, fw *fsnotify.Watcher) {
	defer w.wg.Done()
	defer fw.Close()

	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounceReload(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", ports.Err(err))
		}
	}
}

func (w *Watcher) debounceReload(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		w.reload()
	})
}

// reload applies the file's cycle time when it differs from the one in
// effect. Unparseable files and values below 1ms are logged and ignored.
func (w *Watcher) reload() {
	d, err := w.readCycleTime()
	if err != nil {
		w.logger.Warn("config reload skipped", ports.String("path", w.path), ports.Err(err))
		return
	}
	if d == 0 {
		return
	}
	if d < time.Millisecond {
		w.logger.Warn("config reload skipped: cycle time below 1ms", ports.Duration("cycle_time", d))
		return
	}

	if d == w.setter.CycleTime() {
		return
	}

	if err := w.setter.SetCycleTime(int(d / time.Millisecond)); err != nil {
		w.logger.Warn("config reload rejected", ports.Duration("cycle_time", d), ports.Err(err))
		return
	}
	w.logger.Info("config reloaded", ports.Duration("cycle_time", d))
}

func (w *Watcher) readCycleTime() (time.Duration, error) {
	fc, err := cliconfig.LoadFileConfig(w.path)
	if err != nil {
		return 0, err
	}
	if fc.CycleTime == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(fc.CycleTime)
	if err != nil {
		return 0, fmt.Errorf("parse cycle_time: %w", err)
	}
	return d, nil
}
