// station/station.go
package station

// Station is a single addressable seat in a room. Identity is the ID,
// contiguous from 1 to the room's station count.
type Station struct {
	ID            int
	OwnerClientID string
	Ready         bool
	Connected     bool
}

func New(id int) *Station {
	return &Station{ID: id}
}

// Claimed reports whether some client owns this seat.
func (s *Station) Claimed() bool {
	return s.OwnerClientID != ""
}

// ClaimedAndReady is the per-slot half of the round start guard.
func (s *Station) ClaimedAndReady() bool {
	return s.Claimed() && s.Ready
}

// Idle reports whether the seat can be dropped by tail compaction:
// unclaimed, not ready, and not connected.
func (s *Station) Idle() bool {
	return !s.Claimed() && !s.Ready && !s.Connected
}

// Release clears ownership and all per-occupant flags.
func (s *Station) Release() {
	s.OwnerClientID = ""
	s.Ready = false
	s.Connected = false
}

// Snapshot is the wire view of a station.
type Snapshot struct {
	ID            int    `json:"id"`
	Ready         bool   `json:"ready"`
	Connected     bool   `json:"connected"`
	OwnerClientID string `json:"owner_client_id,omitempty"`
}

func (s *Station) Snapshot() Snapshot {
	return Snapshot{
		ID:            s.ID,
		Ready:         s.Ready,
		Connected:     s.Connected,
		OwnerClientID: s.OwnerClientID,
	}
}
