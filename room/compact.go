// room/compact.go
package room

import "fmt"

// RemoveStation is the controller-initiated removal of a slot. While
// WAITING the remaining slots are renumbered to stay contiguous; during a
// round the slot is only cleared and compaction is deferred until the room
// returns to WAITING.
func (r *Room) RemoveStation(stationID int) error {
	r.mu.Lock()
	outs, err := r.removeStationLocked(stationID)
	r.mu.Unlock()
	r.publish(outs)
	return err
}

func (r *Room) removeStationLocked(stationID int) ([]outbound, error) {
	if stationID < 1 || stationID > r.stationsCount {
		return nil, NewError(CodeInvalidStation, fmt.Sprintf("station %d out of range 1..%d", stationID, r.stationsCount))
	}

	if r.state == StateWaiting {
		outs := r.renumberLocked(stationID)
		return append(outs, r.updatedLocked()), nil
	}

	// Mid-round: clear the seat now, renumber later.
	slot := r.stations[stationID]
	var outs []outbound
	if slot.Claimed() {
		if r.state == StateRunning {
			outs = append(outs, broadcastEvent(StationKickedEvent{
				Code:      r.code,
				StationID: stationID,
				ClientID:  slot.OwnerClientID,
			}))
		}
		delete(r.bindings, slot.OwnerClientID)
	}
	slot.Release()
	r.pendingCompaction = true
	return append(outs, r.updatedLocked()), nil
}

// renumberLocked removes slot k and shifts every higher slot down by one,
// carrying occupant state and rewriting bindings. Emits the remap list so
// shifted clients can learn their new station id.
func (r *Room) renumberLocked(k int) []outbound {
	removed := r.stations[k]
	if removed.Claimed() {
		delete(r.bindings, removed.OwnerClientID)
	}

	var remaps []Remap
	for i := k; i < r.stationsCount; i++ {
		moved := r.stations[i+1]
		moved.ID = i
		r.stations[i] = moved
		if moved.Claimed() {
			r.bindings[moved.OwnerClientID] = i
			remaps = append(remaps, Remap{ClientID: moved.OwnerClientID, OldID: i + 1, NewID: i})
		}
	}
	delete(r.stations, r.stationsCount)
	r.stationsCount--

	if len(remaps) == 0 {
		return nil
	}
	return []outbound{broadcastEvent(RenumberedEvent{Code: r.code, Remaps: remaps})}
}

// tailCompactLocked drops trailing idle slots. Interior slots are never
// renumbered here. A room keeps at least one seat.
func (r *Room) tailCompactLocked() {
	for r.stationsCount > 1 && r.stations[r.stationsCount].Idle() {
		delete(r.stations, r.stationsCount)
		r.stationsCount--
	}
}
