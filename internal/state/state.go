// Package state persists the outcome of project runs between invocations
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/realmforge/realmforge/pkg/logger"
	"github.com/realmforge/realmforge/pkg/types"
)

// Dir is the state directory relative to the project root
const Dir = ".realmforge/state"

// staleHeartbeat is how old a heartbeat may be before a running state is
// considered abandoned
const staleHeartbeat = 30 * time.Second

// RunState is the persisted state of one project
type RunState struct {
	Project       string          `json:"project"`
	Status        types.RunStatus `json:"status"`
	Tasks         []string        `json:"tasks,omitempty"`
	LastRunTime   time.Time       `json:"lastRunTime"`
	RunCount      int             `json:"runCount"`
	FailureCount  int             `json:"failureCount"`
	Executed      int             `json:"executed"`
	FailedBinding string          `json:"failedBinding,omitempty"`
	LastError     string          `json:"lastError,omitempty"`
	Duration      time.Duration   `json:"duration,omitempty"`
	ProcessID     int             `json:"processId"`
	Heartbeat     time.Time       `json:"heartbeat"`
}

// Outcome is what RecordResult stores for a finished run
type Outcome struct {
	Status        types.RunStatus
	Executed      int
	FailedBinding string
	Err           error
	Duration      time.Duration
}

// Manager reads and writes run state files
type Manager struct {
	fs             billy.Filesystem
	logger         logger.Logger
	mu             sync.RWMutex
	states         map[string]*RunState
	heartbeatStop  chan struct{}
	heartbeatTimer *time.Ticker
}

// NewManager creates a state manager storing files under Dir in fs
func NewManager(fs billy.Filesystem, log logger.Logger) *Manager {
	log = logger.OrNop(log).WithComponent("state")
	if err := fs.MkdirAll(Dir, 0o755); err != nil {
		log.Error("Failed to create state directory", logger.WithError(err))
	}

	return &Manager{
		fs:     fs,
		logger: log,
		states: make(map[string]*RunState),
	}
}

// MarkRunning records that this process started running tasks for project
func (sm *Manager) MarkRunning(project string, tasks []string) (*RunState, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	state := &RunState{Project: project}
	if existing, err := sm.loadStateFile(project); err == nil {
		// keep run statistics
		state.RunCount = existing.RunCount
		state.FailureCount = existing.FailureCount
		state.LastRunTime = existing.LastRunTime
		state.Duration = existing.Duration
	}
	state.Status = types.RunStatusRunning
	state.Tasks = append([]string(nil), tasks...)
	state.ProcessID = os.Getpid()
	state.Heartbeat = time.Now()

	if err := sm.saveStateFile(state); err != nil {
		return nil, fmt.Errorf("failed to save initial state: %w", err)
	}

	sm.states[project] = state
	cp := *state
	return &cp, nil
}

// RecordResult stores the outcome of a finished run
func (sm *Manager) RecordResult(project string, outcome Outcome) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	state, ok := sm.states[project]
	if !ok {
		loaded, err := sm.loadStateFile(project)
		if err != nil {
			loaded = &RunState{Project: project}
		}
		state = loaded
		sm.states[project] = state
	}

	state.Status = outcome.Status
	state.Executed = outcome.Executed
	state.FailedBinding = outcome.FailedBinding
	state.LastError = ""
	if outcome.Err != nil {
		state.LastError = outcome.Err.Error()
	}
	state.Duration = outcome.Duration
	state.LastRunTime = time.Now()
	state.RunCount++
	if outcome.Status == types.RunStatusFailed {
		state.FailureCount++
	}
	state.ProcessID = 0

	return sm.saveStateFile(state)
}

// ReadState returns a copy of the state of project
func (sm *Manager) ReadState(project string) (*RunState, error) {
	sm.mu.RLock()
	if state, ok := sm.states[project]; ok {
		cp := *state
		sm.mu.RUnlock()
		return &cp, nil
	}
	sm.mu.RUnlock()

	return sm.loadStateFile(project)
}

// RemoveState deletes the state of project
func (sm *Manager) RemoveState(project string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.states, project)

	if err := sm.fs.Remove(stateFilePath(project)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}

// IsLocked reports whether another live process is running project
func (sm *Manager) IsLocked(project string) (bool, error) {
	state, err := sm.loadStateFile(project)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	if state.Status != types.RunStatusRunning || state.ProcessID == 0 || state.ProcessID == os.Getpid() {
		return false, nil
	}
	if time.Since(state.Heartbeat) > staleHeartbeat {
		return false, nil
	}
	return true, nil
}

// DiscoverStates loads every state file, sorted by project
func (sm *Manager) DiscoverStates() ([]*RunState, error) {
	files, err := sm.fs.ReadDir(Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state directory: %w", err)
	}

	var states []*RunState
	for _, file := range files {
		if path.Ext(file.Name()) != ".json" {
			continue
		}
		data, err := util.ReadFile(sm.fs, path.Join(Dir, file.Name()))
		if err != nil {
			sm.logger.Warn("Failed to read state file",
				logger.WithField("file", file.Name()),
				logger.WithError(err))
			continue
		}
		var state RunState
		if err := json.Unmarshal(data, &state); err != nil {
			sm.logger.Warn("Failed to parse state file",
				logger.WithField("file", file.Name()),
				logger.WithError(err))
			continue
		}
		states = append(states, &state)
	}

	sort.Slice(states, func(i, j int) bool { return states[i].Project < states[j].Project })
	return states, nil
}

// StartHeartbeat refreshes the heartbeat of running states until ctx is
// done or StopHeartbeat is called
func (sm *Manager) StartHeartbeat(ctx context.Context, interval time.Duration) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.heartbeatTimer != nil {
		return
	}

	stop := make(chan struct{})
	ticker := time.NewTicker(interval)
	sm.heartbeatStop = stop
	sm.heartbeatTimer = ticker

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				sm.updateHeartbeats()
			}
		}
	}()
}

// StopHeartbeat stops the heartbeat updater
func (sm *Manager) StopHeartbeat() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.heartbeatTimer != nil {
		sm.heartbeatTimer.Stop()
		sm.heartbeatTimer = nil
	}
	if sm.heartbeatStop != nil {
		close(sm.heartbeatStop)
		sm.heartbeatStop = nil
	}
}

// Cleanup stops the heartbeat and marks runs this process left unfinished
// as skipped
func (sm *Manager) Cleanup() error {
	sm.StopHeartbeat()

	sm.mu.Lock()
	defer sm.mu.Unlock()

	for _, state := range sm.states {
		if state.Status != types.RunStatusRunning {
			continue
		}
		state.Status = types.RunStatusSkipped
		state.ProcessID = 0
		if err := sm.saveStateFile(state); err != nil {
			sm.logger.Warn("Failed to save final state",
				logger.WithField("project", state.Project),
				logger.WithError(err))
		}
	}
	return nil
}

// Private methods

func stateFilePath(project string) string {
	name := strings.NewReplacer(":", "_", "/", "_", "\\", "_").Replace(project)
	return path.Join(Dir, name+".json")
}

func (sm *Manager) loadStateFile(project string) (*RunState, error) {
	data, err := util.ReadFile(sm.fs, stateFilePath(project))
	if err != nil {
		return nil, err
	}

	var state RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	return &state, nil
}

func (sm *Manager) saveStateFile(state *RunState) error {
	stateFile := stateFilePath(state.Project)

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// Write atomically
	tempFile := stateFile + ".tmp"
	if err := util.WriteFile(sm.fs, tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := sm.fs.Rename(tempFile, stateFile); err != nil {
		_ = sm.fs.Remove(tempFile)
		return fmt.Errorf("failed to rename state file: %w", err)
	}
	return nil
}

func (sm *Manager) updateHeartbeats() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	for _, state := range sm.states {
		if state.Status != types.RunStatusRunning {
			continue
		}
		state.Heartbeat = now
		if err := sm.saveStateFile(state); err != nil {
			sm.logger.Debug("Failed to update heartbeat",
				logger.WithField("project", state.Project),
				logger.WithError(err))
		}
	}
}
