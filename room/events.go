// room/events.go
package room

import (
	"github.com/wfunc/stationhub/network"
)

// Event is one variant of the closed set of outbound broadcasts. Every
// variant maps to exactly one wire message id.
type Event interface {
	MsgID() uint16
}

// RoomUpdatedEvent carries the full room snapshot after any mutation.
type RoomUpdatedEvent struct {
	Room Snapshot `json:"room"`
}

func (RoomUpdatedEvent) MsgID() uint16 { return network.MsgTypeRoomState }

type RoundStartedEvent struct {
	Code             string `json:"code"`
	RoundDurationSec int    `json:"round_duration_sec"`
}

func (RoundStartedEvent) MsgID() uint16 { return network.MsgTypeRoundStarted }

type RoundResumedEvent struct {
	Code     string `json:"code"`
	TimeLeft int    `json:"time_left"`
}

func (RoundResumedEvent) MsgID() uint16 { return network.MsgTypeRoundResumed }

type Warn60Event struct {
	Code     string `json:"code"`
	TimeLeft int    `json:"time_left"`
}

func (Warn60Event) MsgID() uint16 { return network.MsgTypeWarn60 }

type Warn30Event struct {
	Code     string `json:"code"`
	TimeLeft int    `json:"time_left"`
}

func (Warn30Event) MsgID() uint16 { return network.MsgTypeWarn30 }

type TimeUpEvent struct {
	Code string `json:"code"`
}

func (TimeUpEvent) MsgID() uint16 { return network.MsgTypeTimeUp }

type RoomDeletedEvent struct {
	Code string `json:"code"`
}

func (RoomDeletedEvent) MsgID() uint16 { return network.MsgTypeRoomDeleted }

// ClaimRejectedEvent is sent to the rejected claimer only.
type ClaimRejectedEvent struct {
	Code      string `json:"code"`
	StationID int    `json:"station_id"`
}

func (ClaimRejectedEvent) MsgID() uint16 { return network.MsgTypeClaimRejected }

// StationKickedEvent tells the room the controller removed an occupied
// station mid-round.
type StationKickedEvent struct {
	Code      string `json:"code"`
	StationID int    `json:"station_id"`
	ClientID  string `json:"client_id"`
}

func (StationKickedEvent) MsgID() uint16 { return network.MsgTypeStationKicked }

// Remap records one occupant moved by renumber compaction.
type Remap struct {
	ClientID string `json:"client_id"`
	OldID    int    `json:"old_id"`
	NewID    int    `json:"new_id"`
}

type RenumberedEvent struct {
	Code   string  `json:"code"`
	Remaps []Remap `json:"remaps"`
}

func (RenumberedEvent) MsgID() uint16 { return network.MsgTypeRenumbered }

type RoundSkippedEvent struct {
	Code string `json:"code"`
}

func (RoundSkippedEvent) MsgID() uint16 { return network.MsgTypeRoundSkipped }
