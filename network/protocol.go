package network

// Client commands.
const (
	MsgTypeHeartbeat     = 1
	MsgTypeHello         = 2
	MsgTypeCreateRoom    = 101
	MsgTypeJoinRoom      = 102
	MsgTypeLeaveRoom     = 103
	MsgTypeDeleteRoom    = 104
	MsgTypeClaimStation  = 111
	MsgTypeSetReady      = 112
	MsgTypeStartRound    = 121
	MsgTypePauseRound    = 122
	MsgTypeResumeRound   = 123
	MsgTypeResetRoom     = 124
	MsgTypeSkipRound     = 125
	MsgTypeRemoveStation = 131
	MsgTypeUpdateConfig  = 132
)

// Server events.
const (
	MsgTypeError         = 200
	MsgTypeHelloAck      = 201
	MsgTypeRoomState     = 301
	MsgTypeRoundStarted  = 302
	MsgTypeRoundResumed  = 303
	MsgTypeWarn60        = 304
	MsgTypeWarn30        = 305
	MsgTypeTimeUp        = 306
	MsgTypeRoomDeleted   = 307
	MsgTypeClaimRejected = 308
	MsgTypeStationKicked = 309
	MsgTypeRenumbered    = 310
	MsgTypeRoundSkipped  = 311
)
