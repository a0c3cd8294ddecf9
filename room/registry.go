// room/registry.go
package room

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry is the process-wide owner of rooms, keyed by code. It also owns
// the per-room empty-room timers: armed when every station of a room is
// disconnected, disarmed on any rejoin, firing a forced delete.
type Registry struct {
	mu          sync.RWMutex
	rooms       map[string]*Room
	ttlTimers   map[string]int64
	broadcaster Broadcaster
	scheduler   Scheduler
	emptyTTL    time.Duration
}

// DefaultEmptyTTL is the grace period before a fully disconnected room is
// deleted.
const DefaultEmptyTTL = 30 * time.Minute

func NewRegistry(broadcaster Broadcaster, scheduler Scheduler, emptyTTL time.Duration) *Registry {
	if emptyTTL <= 0 {
		emptyTTL = DefaultEmptyTTL
	}
	return &Registry{
		rooms:       make(map[string]*Room),
		ttlTimers:   make(map[string]int64),
		broadcaster: broadcaster,
		scheduler:   scheduler,
		emptyTTL:    emptyTTL,
	}
}

// newCode derives a short uppercase room code from a fresh uuid.
func newCode() string {
	return strings.ToUpper(uuid.New().String()[:6])
}

// CreateRoom allocates a fresh code and a WAITING room with slots 1..N.
func (reg *Registry) CreateRoom(controllerID string, stationsCount, roundDurationSec int) (*Room, error) {
	if err := ValidateConfig(stationsCount, roundDurationSec); err != nil {
		return nil, err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	code := newCode()
	for _, exists := reg.rooms[code]; exists; _, exists = reg.rooms[code] {
		code = newCode()
	}

	r := New(code, controllerID, stationsCount, roundDurationSec, reg.broadcaster, reg.scheduler)
	reg.rooms[code] = r
	return r, nil
}

// GetRoom is a pure lookup.
func (reg *Registry) GetRoom(code string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, exists := reg.rooms[code]
	return r, exists
}

// DeleteRoom tears the room down and removes it. Deleting a RUNNING room
// requires force.
func (reg *Registry) DeleteRoom(code string, force bool) error {
	reg.mu.Lock()
	r, exists := reg.rooms[code]
	reg.mu.Unlock()
	if !exists {
		return NewError(CodeRoomNotFound, "unknown room "+code)
	}

	if err := r.Teardown(force); err != nil {
		return err
	}

	reg.mu.Lock()
	delete(reg.rooms, code)
	if id, armed := reg.ttlTimers[code]; armed {
		delete(reg.ttlTimers, code)
		if reg.scheduler != nil {
			reg.scheduler.Cancel(id)
		}
	}
	reg.mu.Unlock()
	return nil
}

// Restore inserts a room rebuilt from a snapshot. Fails if the code is
// already live.
func (reg *Registry) Restore(snap Snapshot) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.rooms[snap.Code]; exists {
		return nil, NewError(CodeBadState, "room "+snap.Code+" already exists")
	}
	r := NewFromSnapshot(snap, reg.broadcaster, reg.scheduler)
	reg.rooms[snap.Code] = r
	return r, nil
}

// ArmEmptyTimer schedules deletion of a fully disconnected room after the
// grace period. Re-arming an armed code is a no-op.
func (reg *Registry) ArmEmptyTimer(code string) {
	if reg.scheduler == nil {
		return
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.rooms[code]; !exists {
		return
	}
	if _, armed := reg.ttlTimers[code]; armed {
		return
	}
	reg.ttlTimers[code] = reg.scheduler.Schedule(reg.emptyTTL, 0, func() {
		_ = reg.DeleteRoom(code, true)
	})
}

// DisarmEmptyTimer cancels a pending empty-room delete, typically because a
// client rejoined.
func (reg *Registry) DisarmEmptyTimer(code string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	id, armed := reg.ttlTimers[code]
	if !armed {
		return
	}
	delete(reg.ttlTimers, code)
	if reg.scheduler != nil {
		reg.scheduler.Cancel(id)
	}
}

// EmptyTimerArmed reports whether a delete is pending for code.
func (reg *Registry) EmptyTimerArmed(code string) bool {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	_, armed := reg.ttlTimers[code]
	return armed
}

// Count returns the number of live rooms.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// Codes lists the live room codes.
func (reg *Registry) Codes() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	codes := make([]string, 0, len(reg.rooms))
	for code := range reg.rooms {
		codes = append(codes, code)
	}
	return codes
}
