package session

import "sync"

// Manager is the process-wide session table. The broadcast router reads
// it under a short-critical-section lock when iterating sessions. All
// methods take/release the lock internally and return promptly; callers
// must not do expensive work while holding a reference returned
// mid-iteration without copying what they need out first.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uint64]*Session
}

// NewManager constructs an empty session table.
func NewManager() *Manager {
	return &Manager{sessions: make(map[uint64]*Session)}
}

// Add registers an authenticated session under its player id.
func (m *Manager) Add(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.PlayerID] = s
}

// Remove drops a session from the table.
func (m *Manager) Remove(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, s.PlayerID)
}

// Get returns the session for a player id, if connected.
func (m *Manager) Get(playerID uint64) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[playerID]
	return s, ok
}

// Range calls f for a snapshot of every currently connected session,
// taken under the lock so f itself never blocks the session table.
func (m *Manager) Range(f func(*Session)) {
	m.mu.RLock()
	snapshot := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		snapshot = append(snapshot, s)
	}
	m.mu.RUnlock()

	for _, s := range snapshot {
		f(s)
	}
}

// Count reports how many sessions are currently connected.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
