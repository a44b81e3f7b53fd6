// Package shutdown coordinates graceful teardown: cleanup hooks run in
// reverse registration order when a termination signal arrives.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"slidecast/internal/pkg/logger"
)

const defaultTimeout = 30 * time.Second

type hook struct {
	name    string
	cleanup func(ctx context.Context) error
}

// Manager collects cleanup hooks and runs them on shutdown.
type Manager struct {
	log     *logger.Logger
	timeout time.Duration

	mu    sync.Mutex
	hooks []hook

	done chan struct{}
}

// NewManager builds a manager. A zero timeout means 30 seconds.
func NewManager(log *logger.Logger, timeout time.Duration) *Manager {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Manager{
		log:     log,
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// Register adds a named cleanup hook.
func (m *Manager) Register(name string, cleanup func(ctx context.Context) error) {
	m.mu.Lock()
	m.hooks = append(m.hooks, hook{name: name, cleanup: cleanup})
	m.mu.Unlock()
	m.log.Debug("registered shutdown handler", "name", name)
}

// RegisterSimple adds a hook that takes no context and cannot fail.
func (m *Manager) RegisterSimple(name string, cleanup func()) {
	m.Register(name, func(context.Context) error {
		cleanup()
		return nil
	})
}

// Wait blocks until SIGINT, SIGTERM or SIGHUP, then runs Shutdown.
func (m *Manager) Wait() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigs
	m.log.Info("shutdown signal received", "signal", sig.String())
	m.Shutdown()
}

// Shutdown runs every hook, newest first, all sharing one deadline. A
// failing hook is logged and does not stop the others.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	hooks := make([]hook, len(m.hooks))
	copy(hooks, m.hooks)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.log.Info("starting graceful shutdown", "handlers", len(hooks), "timeout", m.timeout.String())

	var wg sync.WaitGroup
	for i := len(hooks) - 1; i >= 0; i-- {
		wg.Add(1)
		go func(h hook) {
			defer wg.Done()
			start := time.Now()
			if err := h.cleanup(ctx); err != nil {
				m.log.Error("shutdown handler failed",
					"name", h.name,
					"error", err.Error(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
				return
			}
			m.log.Debug("shutdown handler completed",
				"name", h.name,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}(hooks[i])
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		m.log.Info("graceful shutdown completed")
	case <-ctx.Done():
		m.log.Warn("shutdown timeout exceeded, forcing exit")
	}

	close(m.done)
}

// Done closes once Shutdown has finished.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}
