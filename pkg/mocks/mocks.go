// Package mocks provides test doubles for realmforge interfaces. The
// gomock mocks live in the mock_*.go files; the hand-written doubles here
// record what happened so tests can assert on ordering and concurrency.
package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/realmforge/realmforge/pkg/lifecycle"
	"github.com/realmforge/realmforge/pkg/plan"
)

// MojoCall records one call to MockMojoExecutor.Execute
type MojoCall struct {
	Project string
	Binding string
	Phase   string
}

// MockMojoExecutor is a plan.MojoExecutor that records calls and tracks
// how many executions of each plugin overlap
type MockMojoExecutor struct {
	mu        sync.Mutex
	calls     []MojoCall
	errors    map[string]error
	panics    map[string]bool
	delay     time.Duration
	running   map[string]int
	maxActive map[string]int
}

var _ plan.MojoExecutor = (*MockMojoExecutor)(nil)

// NewMockMojoExecutor creates a new mock mojo executor
func NewMockMojoExecutor() *MockMojoExecutor {
	return &MockMojoExecutor{
		errors:    make(map[string]error),
		panics:    make(map[string]bool),
		running:   make(map[string]int),
		maxActive: make(map[string]int),
	}
}

// Execute records the call and returns the configured outcome
func (m *MockMojoExecutor) Execute(ctx context.Context, project string, item *plan.Item) error {
	plugin := item.PluginKey()
	binding := lifecycle.MojoBindingString(item.Binding)

	m.mu.Lock()
	m.calls = append(m.calls, MojoCall{Project: project, Binding: binding, Phase: item.Phase})
	m.running[plugin]++
	if m.running[plugin] > m.maxActive[plugin] {
		m.maxActive[plugin] = m.running[plugin]
	}
	err := m.errors[project+"/"+binding]
	if err == nil {
		err = m.errors[binding]
	}
	shouldPanic := m.panics[binding]
	delay := m.delay
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running[plugin]--
		m.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if shouldPanic {
		panic(fmt.Sprintf("mojo %s exploded", binding))
	}
	return err
}

// SetError makes executions of binding (g:a[:v]:goal) fail with err
func (m *MockMojoExecutor) SetError(binding string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[binding] = err
}

// SetProjectError makes executions of binding fail for project only
func (m *MockMojoExecutor) SetProjectError(project, binding string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[project+"/"+binding] = err
}

// SetPanic makes executions of binding panic
func (m *MockMojoExecutor) SetPanic(binding string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panics[binding] = true
}

// SetDelay makes every execution take at least d
func (m *MockMojoExecutor) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Calls returns all recorded calls in call order
func (m *MockMojoExecutor) Calls() []MojoCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MojoCall(nil), m.calls...)
}

// ProjectCalls returns the bindings executed for project in order
func (m *MockMojoExecutor) ProjectCalls(project string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.calls {
		if c.Project == project {
			out = append(out, c.Binding)
		}
	}
	return out
}

// MaxConcurrent returns the highest number of overlapping executions seen
// for plugin (groupId:artifactId)
func (m *MockMojoExecutor) MaxConcurrent(plugin string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxActive[plugin]
}

// Notification records one call to MockNotifier
type Notification struct {
	Kind    string
	Project string
	Err     error
}

// MockNotifier records run notifications
type MockNotifier struct {
	mu            sync.Mutex
	notifications []Notification
}

// NewMockNotifier creates a new mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// NotifyRunStart records a start notification
func (m *MockNotifier) NotifyRunStart(project string) {
	m.record(Notification{Kind: "start", Project: project})
}

// NotifyRunSuccess records a success notification
func (m *MockNotifier) NotifyRunSuccess(project string, _ time.Duration) {
	m.record(Notification{Kind: "success", Project: project})
}

// NotifyRunFailure records a failure notification
func (m *MockNotifier) NotifyRunFailure(project string, err error) {
	m.record(Notification{Kind: "failure", Project: project, Err: err})
}

// Notifications returns the recorded notifications
func (m *MockNotifier) Notifications() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notification(nil), m.notifications...)
}

func (m *MockNotifier) record(n Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
}
