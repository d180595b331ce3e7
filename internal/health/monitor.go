// Package health tracks whether the storage backend is reachable.
// It backs the readiness endpoint; the liveness endpoint never consults it.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Status values reported by the monitor
const (
	StatusUnknown   = "unknown"
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Pinger is anything that can report its own reachability.
// storage.Store satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Report is a point-in-time copy of the monitor state.
type Report struct {
	Status           string    `json:"status"`
	LastCheck        time.Time `json:"last_check"`
	LastHealthy      time.Time `json:"last_healthy"`
	LastError        string    `json:"last_error,omitempty"`
	ConsecutiveFails int       `json:"consecutive_fails"`
}

// Monitor periodically pings a backend and records the outcome.
// A backend is marked unhealthy after maxFailures consecutive failed pings
// and healthy again after the first success.
// Thread-safe: all methods are safe for concurrent access.
type Monitor struct {
	target      Pinger
	logger      *slog.Logger
	onUnhealthy func(err error) // Called once per healthy->unhealthy transition
	cancel      context.CancelFunc
	report      Report
	interval    time.Duration // How often to ping
	timeout     time.Duration // Deadline for a single ping
	mu          sync.RWMutex  // Protects report
	wg          sync.WaitGroup
	maxFailures int
}

// NewMonitor creates a monitor for target that pings every interval.
// Pings time out after 2 seconds and three failures mark the target unhealthy.
func NewMonitor(target Pinger, interval time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		target:      target,
		logger:      logger,
		interval:    interval,
		timeout:     2 * time.Second,
		maxFailures: 3,
		report:      Report{Status: StatusUnknown},
	}
}

// SetOnUnhealthy registers a callback invoked when the target becomes
// unhealthy. Must be called before Start.
func (m *Monitor) SetOnUnhealthy(callback func(err error)) {
	m.onUnhealthy = callback
}

// Start performs an immediate check and then keeps checking in a background
// goroutine until ctx is cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)

	m.Check(ctx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.logger.Info("health monitor started", "interval", m.interval)
		for {
			select {
			case <-ticker.C:
				m.Check(ctx)
			case <-ctx.Done():
				m.logger.Info("health monitor stopped")
				return
			}
		}
	}()
}

// Stop cancels the background loop and waits for it to exit
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

// Check pings the target once and updates the report
func (m *Monitor) Check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.target.Ping(pingCtx)
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.report.LastCheck = now

	if err != nil {
		m.report.ConsecutiveFails++
		m.report.LastError = err.Error()
		m.logger.Warn("backend ping failed",
			"attempt", m.report.ConsecutiveFails, "max", m.maxFailures, "err", err)

		if m.report.ConsecutiveFails >= m.maxFailures && m.report.Status != StatusUnhealthy {
			m.report.Status = StatusUnhealthy
			m.logger.Error("backend marked unhealthy", "failures", m.report.ConsecutiveFails)
			if m.onUnhealthy != nil {
				// Call without holding the lock
				go m.onUnhealthy(err)
			}
		}
		return
	}

	if m.report.Status == StatusUnhealthy {
		m.logger.Info("backend recovered")
	}
	m.report.Status = StatusHealthy
	m.report.ConsecutiveFails = 0
	m.report.LastError = ""
	m.report.LastHealthy = now
}

// Report returns a copy of the current state
func (m *Monitor) Report() Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.report
}

// IsHealthy reports whether the last checks succeeded
func (m *Monitor) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.report.Status == StatusHealthy
}
