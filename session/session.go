// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/stationhub/network"
)

// Session is one live connection. ClientID is the durable identity a
// client presents on hello (or is minted for it); it is what room bindings
// key on, so a reconnect under the same ClientID keeps its seat.
type Session struct {
	ID         string
	Conn       network.Connection
	ClientID   string
	RoomCode   string
	CreatedAt  time.Time
	LastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.LastActive = time.Now()
	return s.Conn.Send(msgID, data)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) SetRoom(code string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.RoomCode = code
}

func (s *Session) GetRoom() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.RoomCode
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Manager tracks sessions by session id with room/client lookups for
// multicast.
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// GetByRoom returns every session currently attached to a room code.
func (m *Manager) GetByRoom(code string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.GetRoom() == code {
			result = append(result, session)
		}
	}
	return result
}

// GetByClientID returns the sessions presenting a client identity. More
// than one is possible transiently while a client reconnects.
func (m *Manager) GetByClientID(clientID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.ClientID == clientID {
			result = append(result, session)
		}
	}
	return result
}
