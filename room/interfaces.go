package room

import "time"

// Broadcaster delivers serialized events to clients subscribed to a room.
// Defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	BroadcastToRoom(code string, msgID uint16, data []byte) error
	SendToClient(clientID string, msgID uint16, data []byte) error
}

// Scheduler is the cancellable scheduled-task facility the aggregate arms
// its round tick and the registry arms empty-room deletes on.
type Scheduler interface {
	Schedule(delay time.Duration, interval time.Duration, callback func()) int64
	Cancel(id int64)
}
