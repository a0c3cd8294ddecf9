package room

import (
	"errors"
	"testing"
	"time"

	"github.com/wfunc/stationhub/network"
	"github.com/wfunc/stationhub/station"
)

func newTestRegistry() (*Registry, *MockBroadcaster, *MockScheduler) {
	bc := &MockBroadcaster{}
	sched := NewMockScheduler()
	return NewRegistry(bc, sched, 30*time.Minute), bc, sched
}

func TestRegistry_CreateAndGetRoom(t *testing.T) {
	reg, _, _ := newTestRegistry()

	r, err := reg.CreateRoom("controller", 4, 120)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if r.Code() == "" {
		t.Fatal("Created room must have a code")
	}
	if r.State() != StateWaiting {
		t.Errorf("New room must be WAITING, got %v", r.State())
	}

	snap := r.Snapshot()
	if snap.StationsCount != 4 {
		t.Errorf("Expected 4 stations, got %d", snap.StationsCount)
	}
	for i, st := range snap.Stations {
		if st.ID != i+1 || st.OwnerClientID != "" || st.Ready || st.Connected {
			t.Errorf("Station %d not freshly initialized: %+v", i+1, st)
		}
	}

	retrieved, exists := reg.GetRoom(r.Code())
	if !exists {
		t.Fatal("GetRoom should find the created room")
	}
	if retrieved != r {
		t.Error("GetRoom should return the same room instance")
	}
	if reg.Count() != 1 {
		t.Errorf("Expected room count 1, got %d", reg.Count())
	}
}

func TestRegistry_CreateRoomValidatesBounds(t *testing.T) {
	reg, _, _ := newTestRegistry()

	if _, err := reg.CreateRoom("c", 0, 120); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("Expected InvalidPayload for 0 stations, got %v", err)
	}
	if _, err := reg.CreateRoom("c", 201, 120); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("Expected InvalidPayload for 201 stations, got %v", err)
	}
	if _, err := reg.CreateRoom("c", 2, 9); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("Expected InvalidPayload for 9s duration, got %v", err)
	}
	if _, err := reg.CreateRoom("c", 2, 36001); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("Expected InvalidPayload for 36001s duration, got %v", err)
	}
}

func TestRegistry_GetRoomMiss(t *testing.T) {
	reg, _, _ := newTestRegistry()

	if _, exists := reg.GetRoom("NOPE99"); exists {
		t.Error("GetRoom must miss on unknown code")
	}
}

func TestRegistry_DeleteRoom(t *testing.T) {
	reg, bc, _ := newTestRegistry()

	r, err := reg.CreateRoom("controller", 2, 60)
	if err != nil {
		t.Fatal(err)
	}

	if err := reg.DeleteRoom("NOPE99", false); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("Expected RoomNotFound, got %v", err)
	}

	if err := reg.DeleteRoom(r.Code(), false); err != nil {
		t.Fatalf("DeleteRoom failed: %v", err)
	}
	if reg.Count() != 0 {
		t.Error("Deleted room must leave the registry")
	}
	if bc.CountRoom(network.MsgTypeRoomDeleted) != 1 {
		t.Error("Expected a room_deleted broadcast")
	}
}

func TestRegistry_DeleteRunningRoomRequiresForce(t *testing.T) {
	reg, _, _ := newTestRegistry()

	r, err := reg.CreateRoom("controller", 1, 60)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Claim("alice", 1); err != nil {
		t.Fatal(err)
	}
	if err := r.SetReady("alice", true); err != nil {
		t.Fatal(err)
	}
	if r.State() != StateRunning {
		t.Fatal("setup: expected auto-start")
	}

	if err := reg.DeleteRoom(r.Code(), false); !errors.Is(err, ErrBadState) {
		t.Fatalf("Expected BadState without force, got %v", err)
	}
	if reg.Count() != 1 {
		t.Error("Failed delete must keep the room")
	}

	if err := reg.DeleteRoom(r.Code(), true); err != nil {
		t.Fatalf("Forced delete failed: %v", err)
	}
	if reg.Count() != 0 {
		t.Error("Forced delete must remove the room")
	}
}

func TestRegistry_EmptyTimerArmAndDisarm(t *testing.T) {
	reg, _, sched := newTestRegistry()

	r, err := reg.CreateRoom("controller", 2, 60)
	if err != nil {
		t.Fatal(err)
	}
	code := r.Code()

	reg.ArmEmptyTimer(code)
	if !reg.EmptyTimerArmed(code) {
		t.Fatal("Expected the empty timer armed")
	}
	if sched.Pending() != 1 {
		t.Fatalf("Expected one scheduled delete, got %d", sched.Pending())
	}

	// Re-arming is a no-op.
	reg.ArmEmptyTimer(code)
	if sched.Pending() != 1 {
		t.Error("Re-arming must not schedule a second delete")
	}

	reg.DisarmEmptyTimer(code)
	if reg.EmptyTimerArmed(code) {
		t.Error("Expected the empty timer disarmed")
	}
	if sched.Pending() != 0 {
		t.Error("Disarm must cancel the scheduled delete")
	}
}

func TestRegistry_EmptyTimerDeletesRoomWhenFired(t *testing.T) {
	reg, _, sched := newTestRegistry()

	r, err := reg.CreateRoom("controller", 2, 60)
	if err != nil {
		t.Fatal(err)
	}
	code := r.Code()

	reg.ArmEmptyTimer(code)

	// Fire the scheduled delete by hand.
	sched.mu.Lock()
	var cb func()
	for _, task := range sched.Scheduled {
		cb = task.Callback
	}
	sched.mu.Unlock()
	if cb == nil {
		t.Fatal("No scheduled delete found")
	}
	cb()

	if _, exists := reg.GetRoom(code); exists {
		t.Error("Fired empty timer must delete the room")
	}
}

func TestRegistry_ArmEmptyTimerUnknownRoom(t *testing.T) {
	reg, _, sched := newTestRegistry()

	reg.ArmEmptyTimer("NOPE99")
	if sched.Pending() != 0 {
		t.Error("Arming an unknown room must not schedule anything")
	}
}

func TestRegistry_RestoreRunningComesBackPaused(t *testing.T) {
	reg, _, _ := newTestRegistry()

	left := 42
	snap := Snapshot{
		Code:             "SAVED1",
		State:            "running",
		StationsCount:    2,
		RoundDurationSec: 120,
		TimeLeft:         &left,
		Stations: []station.Snapshot{
			{ID: 1, Ready: true, OwnerClientID: "alice"},
			{ID: 2},
		},
	}

	r, err := reg.Restore(snap)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if r.State() != StateEnded {
		t.Errorf("A restored running round must come back paused, got %v", r.State())
	}
	got := r.Snapshot()
	if got.TimeLeft == nil || *got.TimeLeft != 42 {
		t.Error("Restore must retain the frozen timeLeft")
	}
	if got.Stations[0].OwnerClientID != "alice" || !got.Stations[0].Ready {
		t.Error("Restore must rebuild claims and ready flags")
	}
	if got.Stations[0].Connected {
		t.Error("Connections must not survive a restore")
	}
	if got.ControllerID != "" {
		t.Error("The controller identity is not persisted")
	}
	if !r.HasBinding("alice") {
		t.Error("Restore must rebuild bindings")
	}

	if _, err := reg.Restore(snap); !errors.Is(err, ErrBadState) {
		t.Errorf("Restoring a live code must fail BadState, got %v", err)
	}
}
