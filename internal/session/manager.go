package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Akshatoff/Alloc8/internal/gateway"
	"github.com/Akshatoff/Alloc8/internal/observability/metrics"
	"github.com/Akshatoff/Alloc8/pkg/logging"
)

// ErrSessionNotFound is returned for unknown or already-reaped session IDs.
var ErrSessionNotFound = errors.New("session: not found")

// Manager owns the live sessions, keyed by generated ID, and reaps the ones
// nobody has touched within the idle TTL.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Controller

	generator gateway.Generator
	logger    *logging.Logger
	metrics   *metrics.SessionMetrics
	idleTTL   time.Duration
}

// NewManager builds a Manager. idleTTL <= 0 disables reaping.
func NewManager(gen gateway.Generator, logger *logging.Logger, m *metrics.SessionMetrics, idleTTL time.Duration) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		sessions:  make(map[string]*Controller),
		generator: gen,
		logger:    logger,
		metrics:   m,
		idleTTL:   idleTTL,
	}
}

// Create registers a fresh session and returns its ID.
func (m *Manager) Create() (string, *Controller) {
	id := uuid.NewString()
	ctrl := NewController(m.generator, m.logger, m.metrics)
	m.mu.Lock()
	m.sessions[id] = ctrl
	m.mu.Unlock()
	return id, ctrl
}

// Get looks up a session by ID.
func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.RLock()
	ctrl, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ctrl, nil
}

// Remove drops a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Count reports the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// StartReaper launches the idle-session sweep until ctx is cancelled.
func (m *Manager) StartReaper(ctx context.Context, interval time.Duration) {
	if m.idleTTL <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.reap(time.Now())
			}
		}
	}()
}

func (m *Manager) reap(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ctrl := range m.sessions {
		if now.Sub(ctrl.LastActive()) > m.idleTTL {
			delete(m.sessions, id)
			m.logger.Info("session: reaped idle session", "session_id", id)
		}
	}
}
