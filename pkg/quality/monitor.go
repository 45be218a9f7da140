// Package quality tracks the drift score of the state a view is showing.
package quality

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/runlens/internal/logging"
	"github.com/aretw0/runlens/pkg/ports"
)

// Monitor re-scores the shown state only when its serialized form changes.
type Monitor struct {
	scorer ports.DriftScorer
	logger *slog.Logger

	mu     sync.Mutex
	last   string
	result *ports.DriftResult
}

// MonitorOption configures the Monitor.
type MonitorOption func(*Monitor)

// WithLogger configures a logger for the Monitor.
func WithLogger(logger *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// NewMonitor creates a Monitor backed by scorer.
func NewMonitor(scorer ports.DriftScorer, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		scorer: scorer,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Observe returns the drift result for state.
// An empty state resets the monitor and returns nil. An unchanged state returns
// the cached result without calling the scorer.
func (m *Monitor) Observe(ctx context.Context, state map[string]any) *ports.DriftResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(state) == 0 {
		m.last = ""
		m.result = nil
		return nil
	}

	key, err := json.Marshal(state)
	if err != nil {
		m.logger.Warn("Cannot serialize shown state", "err", err)
		return m.result
	}
	if m.result != nil && string(key) == m.last {
		return m.result
	}

	res := m.scorer.Score(ctx, state)
	m.last = string(key)
	m.result = &res
	return m.result
}
