// Package process ties command lifetimes to OS signals
package process

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/realmforge/realmforge/pkg/logger"
)

// Manager cancels a context on SIGINT, SIGTERM or SIGHUP and runs shutdown
// handlers in reverse registration order
type Manager struct {
	logger           logger.Logger
	mu               sync.Mutex
	shutdownHandlers []func()
	cancel           context.CancelFunc
	stop             chan struct{}
	done             bool
	wg               sync.WaitGroup
}

// NewManager creates a new process manager
func NewManager(log logger.Logger) *Manager {
	return &Manager{logger: logger.OrNop(log).WithComponent("process")}
}

// RegisterShutdownHandler adds a shutdown handler
func (m *Manager) RegisterShutdownHandler(handler func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownHandlers = append(m.shutdownHandlers, handler)
}

// Start returns a context that is cancelled when a signal arrives,
// Shutdown is called or ctx is done
func (m *Manager) Start(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.cancel = cancel
	m.stop = make(chan struct{})
	stop := m.stop
	m.mu.Unlock()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			m.logger.Info("Received signal", logger.WithField("signal", sig.String()))
			m.Shutdown()
		case <-stop:
		case <-ctx.Done():
		}
	}()
	return ctx
}

// Shutdown cancels the context returned by Start and runs the shutdown
// handlers once
func (m *Manager) Shutdown() {
	if !m.finish() {
		return
	}
	m.logger.Info("Initiating graceful shutdown...")

	m.mu.Lock()
	handlers := append([]func(){}, m.shutdownHandlers...)
	m.mu.Unlock()
	for i := len(handlers) - 1; i >= 0; i-- {
		handlers[i]()
	}
}

// Stop releases the signal handler after normal completion without running
// the shutdown handlers
func (m *Manager) Stop() {
	m.finish()
	m.Wait()
}

func (m *Manager) finish() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done {
		return false
	}
	m.done = true
	if m.stop != nil {
		close(m.stop)
	}
	if m.cancel != nil {
		m.cancel()
	}
	return true
}

// Wait blocks until the signal goroutine has exited
func (m *Manager) Wait() {
	m.wg.Wait()
}
