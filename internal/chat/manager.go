package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager tracks open sessions. Each device holds at most one.
type Manager struct {
	backend Backend
	sink    Sink
	logger  *slog.Logger
	idleTTL time.Duration
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*entry
	byDevice map[string]string

	cancel context.CancelFunc
	done   chan struct{}
}

type entry struct {
	deviceID string
	session  *Session
}

func NewManager(backend Backend, sink Sink, idleTTL time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		backend:  backend,
		sink:     sink,
		logger:   logger,
		idleTTL:  idleTTL,
		now:      time.Now,
		sessions: make(map[string]*entry),
		byDevice: make(map[string]string),
	}
}

// Open starts a new session for deviceID, closing the one it replaces.
func (m *Manager) Open(deviceID string) (string, *Session) {
	s := NewSession(m.backend, m.sink, m.logger)
	s.now = m.now
	s.Open()
	id := uuid.NewString()

	m.mu.Lock()
	var prev *Session
	if oldID, ok := m.byDevice[deviceID]; ok {
		if e, ok := m.sessions[oldID]; ok {
			prev = e.session
		}
		delete(m.sessions, oldID)
	}
	m.sessions[id] = &entry{deviceID: deviceID, session: s}
	m.byDevice[deviceID] = id
	m.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	m.logger.Debug("chat session opened", "session", id, "device", deviceID)
	return id, s
}

// Get returns the session with id when it belongs to deviceID.
func (m *Manager) Get(id, deviceID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok || e.deviceID != deviceID {
		return nil, false
	}
	return e.session, true
}

// Close ends the session. It reports false when no such session exists.
func (m *Manager) Close(id, deviceID string) bool {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if !ok || e.deviceID != deviceID {
		m.mu.Unlock()
		return false
	}
	m.remove(id, e)
	m.mu.Unlock()

	e.session.Close()
	return true
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// remove must be called with m.mu held.
func (m *Manager) remove(id string, e *entry) {
	delete(m.sessions, id)
	if m.byDevice[e.deviceID] == id {
		delete(m.byDevice, e.deviceID)
	}
}

// Sweep closes sessions idle longer than the TTL. Streaming sessions are kept.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.idleTTL)

	var expired []*Session
	m.mu.Lock()
	for id, e := range m.sessions {
		if e.session.Busy() || e.session.LastActive().After(cutoff) {
			continue
		}
		m.remove(id, e)
		expired = append(expired, e.session)
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		m.logger.Info("closed idle chat sessions", "count", len(expired))
	}
	return len(expired)
}

// Start runs Sweep every interval until Stop or ctx is done.
func (m *Manager) Start(ctx context.Context, interval time.Duration) {
	m.mu.Lock()
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}

// Stop ends the sweep loop and closes every session.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	sessions := make([]*Session, 0, len(m.sessions))
	for _, e := range m.sessions {
		sessions = append(sessions, e.session)
	}
	m.sessions = make(map[string]*entry)
	m.byDevice = make(map[string]string)
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	for _, s := range sessions {
		s.Close()
	}
}
