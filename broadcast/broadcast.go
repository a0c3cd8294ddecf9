// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/stationhub/session"
)

// Broadcaster fans serialized events out to clients. It satisfies
// room.Broadcaster without importing the room package.
type Broadcaster interface {
	BroadcastToRoom(code string, msgID uint16, data []byte) error
	SendToClient(clientID string, msgID uint16, data []byte) error
}

// SessionBroadcaster multicasts over the live sessions attached to a room.
type SessionBroadcaster struct {
	sessionManager *session.Manager
}

func NewSessionBroadcaster(sessionManager *session.Manager) *SessionBroadcaster {
	return &SessionBroadcaster{sessionManager: sessionManager}
}

func (b *SessionBroadcaster) BroadcastToRoom(code string, msgID uint16, data []byte) error {
	for _, s := range b.sessionManager.GetByRoom(code) {
		if err := s.Send(msgID, data); err != nil {
			// A dead connection is cleaned up by its own read loop.
			continue
		}
	}
	return nil
}

func (b *SessionBroadcaster) SendToClient(clientID string, msgID uint16, data []byte) error {
	for _, s := range b.sessionManager.GetByClientID(clientID) {
		if err := s.Send(msgID, data); err != nil {
			continue
		}
	}
	return nil
}
