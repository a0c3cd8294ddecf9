// services/snapshot_service.go
package services

import (
	"github.com/wfunc/stationhub/persistence"
	"github.com/wfunc/stationhub/room"
)

// SnapshotService bridges the live registry and the snapshot store. A nil
// store turns every method into a no-op, so the server runs unchanged
// without a database.
type SnapshotService struct {
	store persistence.Store
}

func NewSnapshotService(store persistence.Store) *SnapshotService {
	return &SnapshotService{store: store}
}

func (s *SnapshotService) Enabled() bool {
	return s != nil && s.store != nil
}

// Save persists the room's current snapshot. The controller identity is
// stripped first; it is re-bound on the next connect rather than trusted
// from disk.
func (s *SnapshotService) Save(r *room.Room) error {
	if !s.Enabled() {
		return nil
	}
	snap := r.Snapshot()
	snap.ControllerID = ""
	snap.StartedAt = nil
	return s.store.SaveRoom(snap)
}

func (s *SnapshotService) Load(code string) (room.Snapshot, bool, error) {
	if !s.Enabled() {
		return room.Snapshot{}, false, nil
	}
	snap, err := s.store.LoadRoom(code)
	if err == persistence.ErrRecordNotFound {
		return room.Snapshot{}, false, nil
	}
	if err != nil {
		return room.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (s *SnapshotService) Delete(code string) error {
	if !s.Enabled() {
		return nil
	}
	return s.store.DeleteRoom(code)
}

// Restore loads a persisted snapshot and inserts it into the registry.
// Used by the admin RPC after a process restart.
func (s *SnapshotService) Restore(reg *room.Registry, code string) (*room.Room, error) {
	snap, found, err := s.Load(code)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, room.NewError(room.CodeRoomNotFound, "no snapshot for room "+code)
	}
	return reg.Restore(snap)
}
