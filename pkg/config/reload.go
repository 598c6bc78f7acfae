package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/realmforge/realmforge/pkg/logger"
	"github.com/realmforge/realmforge/pkg/types"
)

// ReloadManager watches the configuration file and the project descriptors
// it references, and reloads the configuration when any of them changes
type ReloadManager struct {
	configPath     string
	extraPaths     []string
	logger         logger.Logger
	watcher        *fsnotify.Watcher
	callbacks      []ReloadCallback
	modTimes       map[string]time.Time
	lastReload     time.Time
	debounceTimer  *time.Timer
	debouncePeriod time.Duration
	mu             sync.RWMutex
	ctx            context.Context
	cancel         context.CancelFunc
	isWatching     bool
}

// ReloadCallback is called after every reload attempt
type ReloadCallback func(ReloadEvent)

// ReloadEvent describes one reload attempt
type ReloadEvent struct {
	Path      string                  `json:"path"`
	Timestamp time.Time               `json:"timestamp"`
	Config    *types.RealmforgeConfig `json:"config,omitempty"`
	Error     error                   `json:"error,omitempty"`
	EventType ReloadEventType         `json:"eventType"`
}

// ReloadEventType represents the type of reload event
type ReloadEventType string

const (
	ReloadEventTypeModified ReloadEventType = "modified"
	ReloadEventTypeCreated  ReloadEventType = "created"
	ReloadEventTypeRemoved  ReloadEventType = "removed"
	ReloadEventTypeError    ReloadEventType = "error"
)

// NewReloadManager creates a new configuration reload manager
func NewReloadManager(configPath string, log logger.Logger) *ReloadManager {
	ctx, cancel := context.WithCancel(context.Background())

	return &ReloadManager{
		configPath:     configPath,
		logger:         logger.OrNop(log).WithComponent("config"),
		modTimes:       make(map[string]time.Time),
		debouncePeriod: 500 * time.Millisecond,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// AddCallback adds a reload callback
func (rm *ReloadManager) AddCallback(callback ReloadCallback) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.callbacks = append(rm.callbacks, callback)
}

// RemoveAllCallbacks removes all reload callbacks
func (rm *ReloadManager) RemoveAllCallbacks() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.callbacks = nil
}

// AddPath watches an additional file, typically a project descriptor.
// It must be called before StartWatching.
func (rm *ReloadManager) AddPath(path string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.extraPaths = append(rm.extraPaths, filepath.Clean(path))
}

// StartWatching begins watching the configuration files for changes
func (rm *ReloadManager) StartWatching() error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.isWatching {
		return fmt.Errorf("already watching configuration file")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	rm.watcher = watcher

	// Editors replace files on save, so watch directories rather than files
	dirs := make(map[string]bool)
	for _, path := range rm.watchedPaths() {
		dir := filepath.Dir(path)
		if !dirs[dir] {
			if err := rm.watcher.Add(dir); err != nil {
				rm.watcher.Close()
				rm.watcher = nil
				return fmt.Errorf("failed to watch directory %s: %w", dir, err)
			}
			dirs[dir] = true
		}
		if stat, err := os.Stat(path); err == nil {
			rm.modTimes[path] = stat.ModTime()
		}
	}

	rm.isWatching = true

	go rm.watchLoop(rm.watcher)

	rm.logger.Debug("Started watching configuration files",
		logger.WithField("path", rm.configPath),
		logger.WithField("extra", len(rm.extraPaths)))

	return nil
}

// StopWatching stops watching the configuration files
func (rm *ReloadManager) StopWatching() error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if !rm.isWatching {
		return nil
	}

	rm.cancel()

	if rm.debounceTimer != nil {
		rm.debounceTimer.Stop()
		rm.debounceTimer = nil
	}

	if rm.watcher != nil {
		if err := rm.watcher.Close(); err != nil {
			rm.logger.Warn("Error closing file watcher", logger.WithError(err))
		}
		rm.watcher = nil
	}

	rm.isWatching = false

	rm.logger.Debug("Stopped watching configuration files")
	return nil
}

// IsWatching returns whether the manager is currently watching
func (rm *ReloadManager) IsWatching() bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.isWatching
}

// TriggerReload reloads the configuration now, bypassing the modification
// time check
func (rm *ReloadManager) TriggerReload() {
	rm.logger.Debug("Manually triggering configuration reload")
	rm.reload(rm.configPath, ReloadEventTypeModified)
}

func (rm *ReloadManager) watchLoop(watcher *fsnotify.Watcher) {
	defer func() {
		if r := recover(); r != nil {
			rm.logger.Error("Configuration watcher panic recovered",
				logger.WithField("panic", r))
		}
	}()

	for {
		select {
		case <-rm.ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			path, watched := rm.watchedFile(event.Name)
			if !watched {
				continue
			}

			rm.logger.Debug("Configuration file event received",
				logger.WithField("event", event.String()))

			rm.debounceReload(path, rm.mapFsnotifyEvent(event.Op))

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}

			rm.logger.Error("Configuration file watcher error", logger.WithError(err))
			rm.notifyCallbacks(ReloadEvent{Path: rm.configPath, Error: err, EventType: ReloadEventTypeError})
		}
	}
}

func (rm *ReloadManager) watchedPaths() []string {
	return append([]string{filepath.Clean(rm.configPath)}, rm.extraPaths...)
}

// watchedFile maps an event path to the watched file it affects. Editors
// write temporary siblings such as "config.yaml.tmp" or "config.yaml~".
func (rm *ReloadManager) watchedFile(eventPath string) (string, bool) {
	rm.mu.RLock()
	paths := rm.watchedPaths()
	rm.mu.RUnlock()

	eventDir := filepath.Dir(eventPath)
	eventName := filepath.Base(eventPath)
	for _, path := range paths {
		if filepath.Dir(path) != eventDir {
			continue
		}
		name := filepath.Base(path)
		if eventName == name || strings.HasPrefix(eventName, name) {
			return path, true
		}
	}
	return "", false
}

func (rm *ReloadManager) mapFsnotifyEvent(op fsnotify.Op) ReloadEventType {
	switch {
	case op&fsnotify.Write == fsnotify.Write:
		return ReloadEventTypeModified
	case op&fsnotify.Create == fsnotify.Create:
		return ReloadEventTypeCreated
	case op&fsnotify.Remove == fsnotify.Remove:
		return ReloadEventTypeRemoved
	default:
		return ReloadEventTypeModified
	}
}

func (rm *ReloadManager) debounceReload(path string, eventType ReloadEventType) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.debounceTimer != nil {
		rm.debounceTimer.Stop()
	}

	rm.debounceTimer = time.AfterFunc(rm.debouncePeriod, func() {
		rm.handleChange(path, eventType)
	})
}

func (rm *ReloadManager) handleChange(path string, eventType ReloadEventType) {
	rm.logger.Debug("Processing configuration change",
		logger.WithField("path", path),
		logger.WithField("eventType", eventType))

	if eventType == ReloadEventTypeRemoved {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			rm.notifyCallbacks(ReloadEvent{
				Path:      path,
				Error:     fmt.Errorf("watched file was removed: %s", path),
				EventType: eventType,
			})
			return
		}
		// replaced by an atomic save
		eventType = ReloadEventTypeModified
	}

	stat, err := os.Stat(path)
	if err != nil {
		rm.logger.Error("Failed to stat watched file", logger.WithError(err))
		rm.notifyCallbacks(ReloadEvent{Path: path, Error: err, EventType: ReloadEventTypeError})
		return
	}

	rm.mu.Lock()
	if !stat.ModTime().After(rm.modTimes[path]) {
		rm.mu.Unlock()
		rm.logger.Debug("File not modified, skipping reload", logger.WithField("path", path))
		return
	}
	rm.modTimes[path] = stat.ModTime()
	rm.mu.Unlock()

	rm.reload(path, eventType)
}

func (rm *ReloadManager) reload(path string, eventType ReloadEventType) {
	cfg, err := NewManager().LoadConfig(rm.configPath)
	if err != nil {
		rm.logger.Error("Failed to reload configuration", logger.WithError(err))
		rm.notifyCallbacks(ReloadEvent{Path: path, Error: err, EventType: ReloadEventTypeError})
		return
	}

	rm.mu.Lock()
	rm.lastReload = time.Now()
	rm.mu.Unlock()

	rm.logger.Info("Configuration reloaded successfully",
		logger.WithField("path", path),
		logger.WithField("realms", len(cfg.Realms)),
		logger.WithField("projects", len(cfg.Projects)))

	rm.notifyCallbacks(ReloadEvent{Path: path, Config: cfg, EventType: eventType})
}

func (rm *ReloadManager) notifyCallbacks(event ReloadEvent) {
	rm.mu.RLock()
	callbacks := make([]ReloadCallback, len(rm.callbacks))
	copy(callbacks, rm.callbacks)
	rm.mu.RUnlock()

	event.Timestamp = time.Now()

	rm.logger.Debug("Notifying reload callbacks",
		logger.WithField("callbackCount", len(callbacks)),
		logger.WithField("eventType", event.EventType))

	for _, callback := range callbacks {
		go func(cb ReloadCallback) {
			defer func() {
				if r := recover(); r != nil {
					rm.logger.Error("Reload callback panic recovered",
						logger.WithField("panic", r))
				}
			}()
			cb(event)
		}(callback)
	}
}

// SetDebouncePeriod sets the debounce period for file change events
func (rm *ReloadManager) SetDebouncePeriod(period time.Duration) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.debouncePeriod = period
}

// GetLastReloadTime returns the time of the last successful reload
func (rm *ReloadManager) GetLastReloadTime() time.Time {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.lastReload
}

// GetConfigPath returns the path of the watched configuration file
func (rm *ReloadManager) GetConfigPath() string {
	return rm.configPath
}
