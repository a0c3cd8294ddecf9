// room/room.go
package room

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/wfunc/stationhub/station"
)

// State is the round state machine position of a room.
type State int

const (
	StateWaiting State = iota
	StateRunning
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateRunning:
		return "running"
	case StateEnded:
		return "ended"
	}
	return "unknown"
}

// Configuration bounds for create and updateConfig.
const (
	MinStations      = 1
	MaxStations      = 200
	MinRoundDuration = 10
	MaxRoundDuration = 36000
)

// Room owns the station slots and round state for one session. All
// mutations are serialized by mu; events are collected under the lock and
// published after it is released, so no broadcast happens mid-mutation.
type Room struct {
	mu sync.Mutex

	code             string
	controllerID     string
	state            State
	stationsCount    int
	roundDurationSec int
	stations         map[int]*station.Station
	bindings         map[string]int // clientID -> stationID

	startedAt         time.Time
	timeLeft          int // frozen remaining seconds, meaningful in ENDED
	warned60          bool
	warned30          bool
	pendingCompaction bool
	timerID           int64

	broadcaster Broadcaster
	scheduler   Scheduler
	now         func() time.Time
}

// outbound pairs an event with an optional single-client target. An empty
// target means room-wide broadcast.
type outbound struct {
	to string
	ev Event
}

func broadcastEvent(ev Event) outbound { return outbound{ev: ev} }

func New(code, controllerID string, stationsCount, roundDurationSec int, broadcaster Broadcaster, scheduler Scheduler) *Room {
	r := &Room{
		code:             code,
		controllerID:     controllerID,
		state:            StateWaiting,
		stationsCount:    stationsCount,
		roundDurationSec: roundDurationSec,
		stations:         make(map[int]*station.Station),
		bindings:         make(map[string]int),
		broadcaster:      broadcaster,
		scheduler:        scheduler,
		now:              time.Now,
	}
	for i := 1; i <= stationsCount; i++ {
		r.stations[i] = station.New(i)
	}
	return r
}

// ValidateConfig checks the create/updateConfig bounds.
func ValidateConfig(stationsCount, roundDurationSec int) error {
	if stationsCount < MinStations || stationsCount > MaxStations {
		return NewError(CodeInvalidPayload, fmt.Sprintf("stations_count must be %d..%d", MinStations, MaxStations))
	}
	if roundDurationSec < MinRoundDuration || roundDurationSec > MaxRoundDuration {
		return NewError(CodeInvalidPayload, fmt.Sprintf("round_duration_sec must be %d..%d", MinRoundDuration, MaxRoundDuration))
	}
	return nil
}

func (r *Room) Code() string { return r.code }

func (r *Room) ControllerID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.controllerID
}

func (r *Room) IsController(clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clientID != "" && clientID == r.controllerID
}

// AdoptController rebinds the controlling client on a room restored from a
// snapshot, where the controller identity is not persisted.
func (r *Room) AdoptController(clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.controllerID != "" && r.controllerID != clientID {
		return NewError(CodeNotController, "room already has a controller")
	}
	r.controllerID = clientID
	return nil
}

func (r *Room) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// HasBinding reports whether clientID currently owns a station.
func (r *Room) HasBinding(clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.bindings[clientID]
	return ok
}

// AllDisconnected reports whether no station slot has a live connection.
func (r *Room) AllDisconnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allDisconnectedLocked()
}

func (r *Room) allDisconnectedLocked() bool {
	for _, s := range r.stations {
		if s.Connected {
			return false
		}
	}
	return true
}

// publish marshals and delivers collected events after the room lock has
// been released.
func (r *Room) publish(outs []outbound) {
	if r.broadcaster == nil {
		return
	}
	for _, out := range outs {
		data, err := json.Marshal(out.ev)
		if err != nil {
			continue
		}
		if out.to != "" {
			_ = r.broadcaster.SendToClient(out.to, out.ev.MsgID(), data)
		} else {
			_ = r.broadcaster.BroadcastToRoom(r.code, out.ev.MsgID(), data)
		}
	}
}

func (r *Room) updatedLocked() outbound {
	return broadcastEvent(RoomUpdatedEvent{Room: r.snapshotLocked()})
}

// --- claim / ready ---

// Claim binds clientID to stationID. A prior binding of the same client is
// released first, so a client owns at most one station.
func (r *Room) Claim(clientID string, stationID int) error {
	r.mu.Lock()
	outs, err := r.claimLocked(clientID, stationID)
	r.mu.Unlock()
	r.publish(outs)
	return err
}

func (r *Room) claimLocked(clientID string, stationID int) ([]outbound, error) {
	if stationID < 1 || stationID > r.stationsCount {
		return nil, NewError(CodeInvalidStation, fmt.Sprintf("station %d out of range 1..%d", stationID, r.stationsCount))
	}
	slot := r.stations[stationID]
	if slot.Claimed() && slot.OwnerClientID != clientID {
		rejected := outbound{to: clientID, ev: ClaimRejectedEvent{Code: r.code, StationID: stationID}}
		return []outbound{rejected}, NewError(CodeStationTaken, fmt.Sprintf("station %d already claimed", stationID))
	}

	if prev, ok := r.bindings[clientID]; ok && prev != stationID {
		r.stations[prev].Release()
		delete(r.bindings, clientID)
	}

	slot.OwnerClientID = clientID
	slot.Connected = true
	r.bindings[clientID] = stationID

	outs := r.maybeAutoStartLocked()
	return append(outs, r.updatedLocked()), nil
}

// SetReady toggles the ready flag of the caller's bound station. A client
// with no binding is a no-op.
func (r *Room) SetReady(clientID string, ready bool) error {
	r.mu.Lock()
	outs, err := r.setReadyLocked(clientID, ready)
	r.mu.Unlock()
	r.publish(outs)
	return err
}

func (r *Room) setReadyLocked(clientID string, ready bool) ([]outbound, error) {
	stationID, ok := r.bindings[clientID]
	if !ok {
		return nil, nil
	}
	r.stations[stationID].Ready = ready

	outs := r.maybeAutoStartLocked()
	return append(outs, r.updatedLocked()), nil
}

func (r *Room) allClaimedAndReadyLocked() bool {
	if r.stationsCount < 1 {
		return false
	}
	for i := 1; i <= r.stationsCount; i++ {
		if !r.stations[i].ClaimedAndReady() {
			return false
		}
	}
	return true
}

// maybeAutoStartLocked starts the round when every slot became claimed and
// ready while WAITING. This is the only implicit transition; a failed start
// is silently ignored.
func (r *Room) maybeAutoStartLocked() []outbound {
	if r.state != StateWaiting || !r.allClaimedAndReadyLocked() {
		return nil
	}
	outs, err := r.startRoundLocked()
	if err != nil {
		return nil
	}
	return outs
}

// --- membership / connection ---

// Leave voluntarily gives up the caller's seat. While WAITING the freed
// tail slots are compacted away.
func (r *Room) Leave(clientID string) error {
	r.mu.Lock()
	outs := r.leaveLocked(clientID)
	r.mu.Unlock()
	r.publish(outs)
	return nil
}

func (r *Room) leaveLocked(clientID string) []outbound {
	stationID, ok := r.bindings[clientID]
	if !ok {
		return nil
	}
	delete(r.bindings, clientID)
	r.stations[stationID].Release()
	if r.state == StateWaiting {
		r.tailCompactLocked()
	}
	return []outbound{r.updatedLocked()}
}

// MarkDisconnected records a dropped connection. Ownership and ready are
// retained so a reconnect keeps the seat. Returns whether the room is now
// fully disconnected, which is the caller's cue to arm the empty-room timer.
func (r *Room) MarkDisconnected(clientID string) (allDisconnected bool) {
	r.mu.Lock()
	stationID, ok := r.bindings[clientID]
	var outs []outbound
	if ok {
		r.stations[stationID].Connected = false
		outs = append(outs, r.updatedLocked())
	}
	allDisconnected = r.allDisconnectedLocked()
	r.mu.Unlock()
	r.publish(outs)
	return allDisconnected
}

// MarkConnected records a live connection for a client that already owns a
// seat (refresh or reconnect).
func (r *Room) MarkConnected(clientID string) {
	r.mu.Lock()
	stationID, ok := r.bindings[clientID]
	var outs []outbound
	if ok {
		r.stations[stationID].Connected = true
		outs = append(outs, r.updatedLocked())
	}
	r.mu.Unlock()
	r.publish(outs)
}

// --- config ---

// UpdateConfig resizes the room or changes the round duration. Only valid
// while WAITING; shrinking below a claimed slot fails.
func (r *Room) UpdateConfig(stationsCount, roundDurationSec int) error {
	r.mu.Lock()
	outs, err := r.updateConfigLocked(stationsCount, roundDurationSec)
	r.mu.Unlock()
	r.publish(outs)
	return err
}

func (r *Room) updateConfigLocked(stationsCount, roundDurationSec int) ([]outbound, error) {
	if r.state != StateWaiting {
		return nil, NewError(CodeBadState, "config can only change while waiting")
	}
	if err := ValidateConfig(stationsCount, roundDurationSec); err != nil {
		return nil, err
	}
	if stationsCount < r.stationsCount {
		for i := stationsCount + 1; i <= r.stationsCount; i++ {
			if r.stations[i].Claimed() {
				return nil, NewError(CodeStationsInUse, fmt.Sprintf("station %d is claimed", i))
			}
		}
		for i := stationsCount + 1; i <= r.stationsCount; i++ {
			delete(r.stations, i)
		}
	} else {
		for i := r.stationsCount + 1; i <= stationsCount; i++ {
			r.stations[i] = station.New(i)
		}
	}
	r.stationsCount = stationsCount
	r.roundDurationSec = roundDurationSec
	return []outbound{r.updatedLocked()}, nil
}

// --- round transitions ---

// StartRound begins the countdown. Requires WAITING with every slot
// claimed and ready.
func (r *Room) StartRound() error {
	r.mu.Lock()
	outs, err := r.startRoundLocked()
	if err == nil {
		outs = append(outs, r.updatedLocked())
	}
	r.mu.Unlock()
	r.publish(outs)
	return err
}

func (r *Room) startRoundLocked() ([]outbound, error) {
	if r.state != StateWaiting {
		return nil, NewError(CodeBadState, "round already started")
	}
	if !r.allClaimedAndReadyLocked() {
		return nil, NewError(CodeBadState, "not every station is claimed and ready")
	}
	r.state = StateRunning
	r.startedAt = r.now()
	r.timeLeft = r.roundDurationSec
	r.warned60 = false
	r.warned30 = false
	r.armTimerLocked()
	return []outbound{broadcastEvent(RoundStartedEvent{Code: r.code, RoundDurationSec: r.roundDurationSec})}, nil
}

// PauseRound freezes the countdown. The remaining time is retained so the
// round can resume later.
func (r *Room) PauseRound() error {
	r.mu.Lock()
	outs, err := r.pauseLocked()
	r.mu.Unlock()
	r.publish(outs)
	return err
}

func (r *Room) pauseLocked() ([]outbound, error) {
	if r.state != StateRunning {
		return nil, NewError(CodeBadState, "no running round to pause")
	}
	r.timeLeft = r.remainingLocked(r.now())
	r.cancelTimerLocked()
	r.state = StateEnded
	return []outbound{r.updatedLocked()}, nil
}

// ResumeRound continues a paused round. startedAt is reconstructed so the
// wall-clock recompute matches the retained timeLeft, and warning latches
// are re-derived as already fired for thresholds the round is past.
func (r *Room) ResumeRound() error {
	r.mu.Lock()
	outs, err := r.resumeLocked()
	r.mu.Unlock()
	r.publish(outs)
	return err
}

func (r *Room) resumeLocked() ([]outbound, error) {
	if r.state != StateEnded {
		return nil, NewError(CodeBadState, "no paused round to resume")
	}
	if r.timeLeft <= 0 {
		return nil, NewError(CodeBadState, "no time left")
	}
	elapsed := time.Duration(r.roundDurationSec-r.timeLeft) * time.Second
	r.startedAt = r.now().Add(-elapsed)
	r.warned60 = r.timeLeft <= 60
	r.warned30 = r.timeLeft <= 30
	r.state = StateRunning
	r.armTimerLocked()
	return []outbound{
		broadcastEvent(RoundResumedEvent{Code: r.code, TimeLeft: r.timeLeft}),
		r.updatedLocked(),
	}, nil
}

// ResetToWaiting returns the room to WAITING from any state. Idempotent;
// ready flags are cleared, claims survive, and any deferred compaction is
// applied.
func (r *Room) ResetToWaiting() error {
	r.mu.Lock()
	outs := r.resetLocked()
	r.mu.Unlock()
	r.publish(outs)
	return nil
}

func (r *Room) resetLocked() []outbound {
	for _, s := range r.stations {
		s.Ready = false
	}
	r.startedAt = time.Time{}
	r.timeLeft = 0
	r.warned60 = false
	r.warned30 = false
	r.cancelTimerLocked()
	r.state = StateWaiting
	if r.pendingCompaction {
		r.pendingCompaction = false
		r.tailCompactLocked()
	}
	return []outbound{r.updatedLocked()}
}

// SkipRound force-ends a running round and immediately resets to WAITING.
func (r *Room) SkipRound() error {
	r.mu.Lock()
	outs, err := r.skipLocked()
	r.mu.Unlock()
	r.publish(outs)
	return err
}

func (r *Room) skipLocked() ([]outbound, error) {
	if r.state != StateRunning {
		return nil, NewError(CodeBadState, "no running round to skip")
	}
	r.timeLeft = 0
	r.cancelTimerLocked()
	r.state = StateEnded
	outs := []outbound{broadcastEvent(RoundSkippedEvent{Code: r.code})}
	return append(outs, r.resetLocked()...), nil
}

// Teardown prepares the room for removal from the registry. Deleting a
// RUNNING room requires force.
func (r *Room) Teardown(force bool) error {
	r.mu.Lock()
	if r.state == StateRunning && !force {
		r.mu.Unlock()
		return NewError(CodeBadState, "room is running; delete requires force")
	}
	r.cancelTimerLocked()
	r.mu.Unlock()
	r.publish([]outbound{broadcastEvent(RoomDeletedEvent{Code: r.code})})
	return nil
}

func (r *Room) armTimerLocked() {
	if r.scheduler == nil || r.timerID != 0 {
		return
	}
	r.timerID = r.scheduler.Schedule(time.Second, time.Second, r.Tick)
}

func (r *Room) cancelTimerLocked() {
	if r.scheduler != nil && r.timerID != 0 {
		r.scheduler.Cancel(r.timerID)
	}
	r.timerID = 0
}

// --- snapshot ---

// Snapshot is the serialized view of a room.
type Snapshot struct {
	Code              string             `json:"code"`
	ControllerID      string             `json:"controller_id,omitempty"`
	State             string             `json:"state"`
	StationsCount     int                `json:"stations_count"`
	RoundDurationSec  int                `json:"round_duration_sec"`
	Stations          []station.Snapshot `json:"stations"`
	StartedAt         *int64             `json:"started_at,omitempty"` // unix ms
	TimeLeft          *int               `json:"time_left,omitempty"`
	PendingCompaction bool               `json:"pending_compaction,omitempty"`
}

func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() Snapshot {
	snap := Snapshot{
		Code:              r.code,
		ControllerID:      r.controllerID,
		State:             r.state.String(),
		StationsCount:     r.stationsCount,
		RoundDurationSec:  r.roundDurationSec,
		Stations:          make([]station.Snapshot, 0, r.stationsCount),
		PendingCompaction: r.pendingCompaction,
	}
	for i := 1; i <= r.stationsCount; i++ {
		snap.Stations = append(snap.Stations, r.stations[i].Snapshot())
	}
	switch r.state {
	case StateRunning:
		ms := r.startedAt.UnixMilli()
		left := r.remainingLocked(r.now())
		snap.StartedAt = &ms
		snap.TimeLeft = &left
	case StateEnded:
		left := r.timeLeft
		snap.TimeLeft = &left
	}
	return snap
}

// NewFromSnapshot rebuilds a room from its persisted form. The controller
// identity and any live timer are not part of the snapshot; a restored
// RUNNING round comes back as ENDED with its remaining time frozen, ready
// to be resumed.
func NewFromSnapshot(snap Snapshot, broadcaster Broadcaster, scheduler Scheduler) *Room {
	r := New(snap.Code, "", snap.StationsCount, snap.RoundDurationSec, broadcaster, scheduler)
	for _, ss := range snap.Stations {
		if ss.ID < 1 || ss.ID > snap.StationsCount {
			continue
		}
		slot := r.stations[ss.ID]
		slot.OwnerClientID = ss.OwnerClientID
		slot.Ready = ss.Ready
		// Connections never survive a restart.
		slot.Connected = false
		if ss.OwnerClientID != "" {
			r.bindings[ss.OwnerClientID] = ss.ID
		}
	}
	r.pendingCompaction = snap.PendingCompaction
	switch snap.State {
	case StateRunning.String(), StateEnded.String():
		r.state = StateEnded
		if snap.TimeLeft != nil {
			r.timeLeft = *snap.TimeLeft
		}
	default:
		r.state = StateWaiting
	}
	return r
}
