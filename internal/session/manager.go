package session

import (
	"sync"

	"costtracker/internal/docstore"
	"costtracker/internal/identity"
)

// Manager owns the live sessions, keyed by session token.
type Manager struct {
	provider identity.Provider
	docs     docstore.Store

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(provider identity.Provider, docs docstore.Store) *Manager {
	return &Manager{
		provider: provider,
		docs:     docs,
		sessions: make(map[string]*Session),
	}
}

// Open starts tracking a session for the given token, or returns the one
// already tracked. The session's phase is settled before Open returns.
func (m *Manager) Open(token string) (*Session, error) {
	m.mu.Lock()
	if s, ok := m.sessions[token]; ok {
		m.mu.Unlock()
		return s, nil
	}
	s := newSession(token, m.docs)
	m.sessions[token] = s
	m.mu.Unlock()

	if err := s.start(m.provider); err != nil {
		m.mu.Lock()
		delete(m.sessions, token)
		m.mu.Unlock()
		return nil, err
	}
	return s, nil
}

// Get returns the tracked session for the token, or nil.
func (m *Manager) Get(token string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[token]
}

// Close stops tracking the token and tears its session down.
func (m *Manager) Close(token string) {
	m.mu.Lock()
	s, ok := m.sessions[token]
	delete(m.sessions, token)
	m.mu.Unlock()
	if ok {
		s.close()
	}
}
