package station

import "testing"

func TestStationLifecycle(t *testing.T) {
	s := New(3)
	if s.ID != 3 {
		t.Fatalf("Expected ID 3, got %d", s.ID)
	}
	if s.Claimed() || s.ClaimedAndReady() {
		t.Error("A fresh station must be unclaimed")
	}
	if !s.Idle() {
		t.Error("A fresh station must be idle")
	}

	s.OwnerClientID = "alice"
	s.Connected = true
	if !s.Claimed() {
		t.Error("Expected claimed after ownership is set")
	}
	if s.ClaimedAndReady() {
		t.Error("Claimed alone must not count as ready")
	}
	if s.Idle() {
		t.Error("A claimed station is not idle")
	}

	s.Ready = true
	if !s.ClaimedAndReady() {
		t.Error("Expected claimed and ready")
	}

	s.Release()
	if s.Claimed() || s.Ready || s.Connected {
		t.Error("Release must clear ownership and flags")
	}
	if !s.Idle() {
		t.Error("A released station must be idle")
	}
}

func TestStationIdleEdges(t *testing.T) {
	// A seat that is ready or connected without an owner is still in use
	// and must not be dropped by tail compaction.
	s := New(1)
	s.Connected = true
	if s.Idle() {
		t.Error("A connected seat is not idle")
	}

	s = New(1)
	s.Ready = true
	if s.Idle() {
		t.Error("A ready seat is not idle")
	}
}

func TestStationSnapshot(t *testing.T) {
	s := New(7)
	s.OwnerClientID = "bob"
	s.Ready = true
	s.Connected = true

	snap := s.Snapshot()
	if snap.ID != 7 || snap.OwnerClientID != "bob" || !snap.Ready || !snap.Connected {
		t.Errorf("Snapshot mismatch: %+v", snap)
	}

	// The snapshot is a copy, not a view.
	s.Release()
	if snap.OwnerClientID != "bob" {
		t.Error("Snapshot must not alias the station")
	}
}
