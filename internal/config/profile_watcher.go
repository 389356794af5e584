package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fairhire/internal/errors"
	"fairhire/internal/fairness"

	"github.com/fsnotify/fsnotify"
)

// ProfileWatcher reloads a threshold profile into a ThresholdSource whenever
// the file changes on disk. A profile that fails to parse or validate is
// logged and the previous policy stays active.
type ProfileWatcher struct {
	mu sync.Mutex

	path string
	base fairness.Thresholds

	source *ThresholdSource
	logger *errors.Logger

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer
	lastModTime   time.Time

	stopChan   chan struct{}
	reloadChan chan struct{}
	running    bool

	// onReload is invoked after every reload attempt, successful or not
	onReload func(error)
}

// NewProfileWatcher prepares a watcher for path. base supplies the values for
// keys the profile leaves out.
func NewProfileWatcher(path string, base fairness.Thresholds, source *ThresholdSource, debounceDelay time.Duration, logger *errors.Logger) (*ProfileWatcher, error) {
	if path == "" {
		return nil, fmt.Errorf("threshold profile path is required")
	}
	if source == nil {
		return nil, fmt.Errorf("threshold source is required")
	}
	if debounceDelay <= 0 {
		debounceDelay = time.Second
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	return &ProfileWatcher{
		path:          path,
		base:          base,
		source:        source,
		logger:        logger,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
	}, nil
}

// OnReload registers a hook that observes every reload attempt
func (pw *ProfileWatcher) OnReload(fn func(error)) {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	pw.onReload = fn
}

// Start begins watching the profile file
func (pw *ProfileWatcher) Start() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.running {
		return fmt.Errorf("profile watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	pw.fsWatcher = watcher

	if stat, err := os.Stat(pw.path); err == nil {
		pw.lastModTime = stat.ModTime()
	}

	// The directory catches editors and config managers that replace the file by rename
	dir := filepath.Dir(pw.path)
	if err := pw.fsWatcher.Add(dir); err != nil {
		_ = pw.fsWatcher.Close()
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	pw.running = true
	go pw.watchLoop()

	pw.logger.Info("Threshold profile watcher started",
		"file", pw.path,
		"debounce_delay", pw.debounceDelay)
	return nil
}

// Stop stops watching. It is safe to call more than once.
func (pw *ProfileWatcher) Stop() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if !pw.running {
		return nil
	}

	close(pw.stopChan)
	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	pw.running = false

	if err := pw.fsWatcher.Close(); err != nil {
		pw.logger.LogError(err, "Failed to close file system watcher")
		return err
	}

	pw.logger.Info("Threshold profile watcher stopped")
	return nil
}

// IsRunning returns whether the watcher is currently running
func (pw *ProfileWatcher) IsRunning() bool {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.running
}

// Reload reads the profile now and swaps it in when valid
func (pw *ProfileWatcher) Reload() error {
	th, err := LoadThresholdProfile(pw.path, pw.base)
	if err == nil {
		err = pw.source.Replace(th)
	}

	if err != nil {
		pw.logger.LogError(err, "Threshold profile reload rejected, keeping previous policy", "file", pw.path)
	} else {
		pw.logger.Info("Threshold profile reloaded",
			"file", pw.path,
			"version", pw.source.Version(),
			"demographic_parity", th.DemographicParityDifference,
			"disparate_impact", th.DisparateImpactRatio)
	}

	pw.mu.Lock()
	hook := pw.onReload
	pw.mu.Unlock()
	if hook != nil {
		hook(err)
	}
	return err
}

func (pw *ProfileWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-pw.fsWatcher.Events:
			if !ok {
				return
			}
			if pw.shouldProcessEvent(event) {
				pw.scheduleReload()
			}

		case err, ok := <-pw.fsWatcher.Errors:
			if !ok {
				return
			}
			pw.logger.LogError(err, "File watcher error")

		case <-pw.reloadChan:
			if pw.hasFileChanged() {
				_ = pw.Reload()
			}

		case <-pw.stopChan:
			return
		}
	}
}

func (pw *ProfileWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(pw.path) &&
		filepath.Base(event.Name) != filepath.Base(pw.path) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// hasFileChanged reports a newer modification time than the last reload saw.
// A deleted profile is not a change; the active policy stays.
func (pw *ProfileWatcher) hasFileChanged() bool {
	stat, err := os.Stat(pw.path)
	if err != nil {
		return false
	}

	pw.mu.Lock()
	defer pw.mu.Unlock()
	if stat.ModTime().After(pw.lastModTime) || pw.lastModTime.IsZero() {
		pw.lastModTime = stat.ModTime()
		return true
	}
	return false
}

func (pw *ProfileWatcher) scheduleReload() {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	pw.debounceTimer = time.AfterFunc(pw.debounceDelay, func() {
		select {
		case pw.reloadChan <- struct{}{}:
		default:
		}
	})
}
