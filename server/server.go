package server

import (
	"encoding/json"
	"errors"
	"net/http"
	stdrpc "net/rpc"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wfunc/stationhub/broadcast"
	"github.com/wfunc/stationhub/config"
	"github.com/wfunc/stationhub/logger"
	"github.com/wfunc/stationhub/monitor"
	"github.com/wfunc/stationhub/network"
	"github.com/wfunc/stationhub/persistence"
	"github.com/wfunc/stationhub/ratelimit"
	"github.com/wfunc/stationhub/room"
	hubrpc "github.com/wfunc/stationhub/rpc"
	"github.com/wfunc/stationhub/services"
	"github.com/wfunc/stationhub/session"
	"github.com/wfunc/stationhub/timer"
)

// HubServer owns the websocket endpoint and translates client commands
// into room operations. Broadcasting is done by the rooms themselves via
// the session-backed broadcaster.
type HubServer struct {
	addr           string
	upgrader       websocket.Upgrader
	registry       *room.Registry
	sessionManager *session.Manager
	scheduler      *timer.Manager
	snapshots      *services.SnapshotService
	limiter        *ratelimit.Limiter
	monitor        *monitor.Monitor
	rpcServer      *hubrpc.Server
	shutdownChan   chan struct{}
}

func NewHubServer(cfg *config.Config, store persistence.Store, mon *monitor.Monitor) *HubServer {
	s := &HubServer{
		addr:           cfg.Server.WSAddress,
		sessionManager: session.NewManager(),
		scheduler:      timer.NewManager(),
		snapshots:      services.NewSnapshotService(store),
		limiter:        ratelimit.New(cfg.Room.CommandLimit, cfg.Room.CommandWindow()),
		monitor:        mon,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	broadcaster := broadcast.NewSessionBroadcaster(s.sessionManager)
	s.registry = room.NewRegistry(broadcaster, s.scheduler, cfg.Room.EmptyTTL())

	rpcServer, err := hubrpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	adminService := hubrpc.NewAdminService(s.registry, s.snapshots)
	stdrpc.Register(adminService)

	return s
}

func (s *HubServer) Start() error {
	go s.rpcServer.Start()

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Hub server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, nil)
}

func (s *HubServer) Shutdown() {
	close(s.shutdownChan)
	s.rpcServer.Stop()
	s.scheduler.Stop()
}

func (s *HubServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *HubServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		s.handleDisconnect(sess)
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

// handleDisconnect marks the client's seat disconnected but keeps the
// claim, so a refresh does not lose the seat. A room with no connected
// stations left gets its empty-room delete armed.
func (s *HubServer) handleDisconnect(sess *session.Session) {
	code := sess.GetRoom()
	if code == "" || sess.ClientID == "" {
		return
	}
	r, exists := s.registry.GetRoom(code)
	if !exists {
		return
	}
	hadBinding := r.HasBinding(sess.ClientID)
	if r.MarkDisconnected(sess.ClientID) {
		s.registry.ArmEmptyTimer(code)
	}
	if hadBinding && s.monitor != nil {
		s.monitor.DecConnectedStations()
	}
	s.persist(r)
}

func (s *HubServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	if s.monitor != nil {
		s.monitor.IncCommandsReceived()
		defer func() {
			s.monitor.ObserveCommandLatency(time.Since(start))
		}()
	}

	if packet.MsgID != network.MsgTypeHello && packet.MsgID != network.MsgTypeHeartbeat && sess.ClientID == "" {
		s.sendError(sess, room.NewError(room.CodeInvalidPayload, "hello required before commands"))
		return
	}

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.LastActive = time.Now()
	case network.MsgTypeHello:
		s.handleHello(sess, packet)
	case network.MsgTypeCreateRoom:
		s.handleCreateRoom(sess, packet)
	case network.MsgTypeJoinRoom:
		s.handleJoinRoom(sess, packet)
	case network.MsgTypeLeaveRoom:
		s.handleLeaveRoom(sess)
	case network.MsgTypeClaimStation:
		s.handleClaim(sess, packet)
	case network.MsgTypeSetReady:
		s.handleSetReady(sess, packet)
	case network.MsgTypeStartRound:
		s.handleControllerCommand(sess, func(r *room.Room) error { return r.StartRound() })
	case network.MsgTypePauseRound:
		s.handleControllerCommand(sess, func(r *room.Room) error { return r.PauseRound() })
	case network.MsgTypeResumeRound:
		s.handleControllerCommand(sess, func(r *room.Room) error { return r.ResumeRound() })
	case network.MsgTypeResetRoom:
		s.handleControllerCommand(sess, func(r *room.Room) error { return r.ResetToWaiting() })
	case network.MsgTypeSkipRound:
		s.handleControllerCommand(sess, func(r *room.Room) error { return r.SkipRound() })
	case network.MsgTypeRemoveStation:
		s.handleRemoveStation(sess, packet)
	case network.MsgTypeUpdateConfig:
		s.handleUpdateConfig(sess, packet)
	case network.MsgTypeDeleteRoom:
		s.handleDeleteRoom(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

type helloRequest struct {
	ClientID string `json:"client_id"`
}

type helloAck struct {
	ClientID string `json:"client_id"`
}

// handleHello binds the durable client identity to this session. A client
// that presents no identity gets a fresh one minted.
func (s *HubServer) handleHello(sess *session.Session, packet *network.Packet) {
	var req helloRequest
	if len(packet.Data) > 0 {
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			s.sendError(sess, room.NewError(room.CodeInvalidPayload, "malformed hello"))
			return
		}
	}
	if req.ClientID == "" {
		req.ClientID = uuid.New().String()
	}
	sess.ClientID = req.ClientID

	data, _ := json.Marshal(helloAck{ClientID: req.ClientID})
	sess.Send(network.MsgTypeHelloAck, data)
}

type createRoomRequest struct {
	StationsCount    int `json:"stations_count"`
	RoundDurationSec int `json:"round_duration_sec"`
}

func (s *HubServer) handleCreateRoom(sess *session.Session, packet *network.Packet) {
	var req createRoomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, room.NewError(room.CodeInvalidPayload, "malformed create_room"))
		return
	}

	r, err := s.registry.CreateRoom(sess.ClientID, req.StationsCount, req.RoundDurationSec)
	if err != nil {
		s.sendError(sess, err)
		return
	}
	sess.SetRoom(r.Code())

	logger.Log.Infof("Client %s created room %s", sess.ClientID, r.Code())
	if s.monitor != nil {
		s.monitor.SetActiveRooms(s.registry.Count())
	}

	s.sendSnapshot(sess, r)
	s.persist(r)
}

type joinRoomRequest struct {
	Code         string `json:"code"`
	AsController bool   `json:"as_controller"`
}

func (s *HubServer) handleJoinRoom(sess *session.Session, packet *network.Packet) {
	var req joinRoomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, room.NewError(room.CodeInvalidPayload, "malformed join_room"))
		return
	}

	r, exists := s.registry.GetRoom(req.Code)
	if !exists {
		s.sendError(sess, room.NewError(room.CodeRoomNotFound, "unknown room "+req.Code))
		return
	}

	sess.SetRoom(r.Code())
	s.registry.DisarmEmptyTimer(r.Code())

	if req.AsController {
		if err := r.AdoptController(sess.ClientID); err != nil {
			s.sendError(sess, err)
			return
		}
	}

	// A rejoining client that still owns a seat gets it marked live again.
	if r.HasBinding(sess.ClientID) {
		r.MarkConnected(sess.ClientID)
		if s.monitor != nil {
			s.monitor.IncConnectedStations()
		}
	}

	logger.Log.Infof("Client %s joined room %s", sess.ClientID, r.Code())
	s.sendSnapshot(sess, r)
}

func (s *HubServer) handleLeaveRoom(sess *session.Session) {
	r, err := s.resolveRoom(sess)
	if err != nil {
		s.sendError(sess, err)
		return
	}
	hadBinding := r.HasBinding(sess.ClientID)
	r.Leave(sess.ClientID)
	sess.SetRoom("")
	if hadBinding && s.monitor != nil {
		s.monitor.DecConnectedStations()
	}
	if r.AllDisconnected() {
		s.registry.ArmEmptyTimer(r.Code())
	}
	s.persist(r)
}

type claimRequest struct {
	StationID int `json:"station_id"`
}

func (s *HubServer) handleClaim(sess *session.Session, packet *network.Packet) {
	var req claimRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, room.NewError(room.CodeInvalidPayload, "malformed claim"))
		return
	}

	r, err := s.resolveRoom(sess)
	if err != nil {
		s.sendError(sess, err)
		return
	}

	hadBinding := r.HasBinding(sess.ClientID)
	wasWaiting := r.State() == room.StateWaiting
	if err := r.Claim(sess.ClientID, req.StationID); err != nil {
		s.sendError(sess, err)
		return
	}
	if s.monitor != nil {
		if !hadBinding {
			s.monitor.IncConnectedStations()
		}
		if wasWaiting && r.State() == room.StateRunning {
			s.monitor.IncRoundsStarted()
		}
	}
	s.persist(r)
}

type setReadyRequest struct {
	Ready bool `json:"ready"`
}

func (s *HubServer) handleSetReady(sess *session.Session, packet *network.Packet) {
	var req setReadyRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, room.NewError(room.CodeInvalidPayload, "malformed set_ready"))
		return
	}

	r, err := s.resolveRoom(sess)
	if err != nil {
		s.sendError(sess, err)
		return
	}

	wasWaiting := r.State() == room.StateWaiting
	if err := r.SetReady(sess.ClientID, req.Ready); err != nil {
		s.sendError(sess, err)
		return
	}
	if wasWaiting && r.State() == room.StateRunning && s.monitor != nil {
		s.monitor.IncRoundsStarted()
	}
	s.persist(r)
}

type removeStationRequest struct {
	StationID int `json:"station_id"`
}

func (s *HubServer) handleRemoveStation(sess *session.Session, packet *network.Packet) {
	var req removeStationRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, room.NewError(room.CodeInvalidPayload, "malformed remove_station"))
		return
	}
	s.handleControllerCommand(sess, func(r *room.Room) error {
		return r.RemoveStation(req.StationID)
	})
}

type updateConfigRequest struct {
	StationsCount    int `json:"stations_count"`
	RoundDurationSec int `json:"round_duration_sec"`
}

func (s *HubServer) handleUpdateConfig(sess *session.Session, packet *network.Packet) {
	var req updateConfigRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, room.NewError(room.CodeInvalidPayload, "malformed update_config"))
		return
	}
	s.handleControllerCommand(sess, func(r *room.Room) error {
		return r.UpdateConfig(req.StationsCount, req.RoundDurationSec)
	})
}

type deleteRoomRequest struct {
	Force bool `json:"force"`
}

func (s *HubServer) handleDeleteRoom(sess *session.Session, packet *network.Packet) {
	var req deleteRoomRequest
	if len(packet.Data) > 0 {
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			s.sendError(sess, room.NewError(room.CodeInvalidPayload, "malformed delete_room"))
			return
		}
	}

	r, err := s.authorizeController(sess)
	if err != nil {
		s.sendError(sess, err)
		return
	}

	code := r.Code()
	if err := s.registry.DeleteRoom(code, req.Force); err != nil {
		s.sendError(sess, err)
		return
	}

	s.limiter.Forget(code)
	if err := s.snapshots.Delete(code); err != nil {
		logger.Log.Warnf("Failed to delete snapshot for room %s: %v", code, err)
	}
	if s.monitor != nil {
		s.monitor.SetActiveRooms(s.registry.Count())
	}
	for _, member := range s.sessionManager.GetByRoom(code) {
		member.SetRoom("")
	}
	logger.Log.Infof("Room %s deleted by controller %s", code, sess.ClientID)
}

// handleControllerCommand authorizes and rate-limits an operation reserved
// for the room's controller, then persists the result.
func (s *HubServer) handleControllerCommand(sess *session.Session, op func(r *room.Room) error) {
	r, err := s.authorizeController(sess)
	if err != nil {
		s.sendError(sess, err)
		return
	}

	wasWaiting := r.State() == room.StateWaiting
	if err := op(r); err != nil {
		s.sendError(sess, err)
		return
	}
	if s.monitor != nil {
		switch {
		case wasWaiting && r.State() == room.StateRunning:
			s.monitor.IncRoundsStarted()
		case !wasWaiting && r.State() != room.StateRunning:
			s.monitor.IncRoundsCompleted()
		}
	}
	s.persist(r)
}

func (s *HubServer) authorizeController(sess *session.Session) (*room.Room, error) {
	r, err := s.resolveRoom(sess)
	if err != nil {
		return nil, err
	}
	if !r.IsController(sess.ClientID) {
		return nil, room.NewError(room.CodeNotController, "command reserved for the room controller")
	}
	if !s.limiter.Allow(r.Code()) {
		return nil, room.NewError(room.CodeRateLimited, "too many commands")
	}
	return r, nil
}

func (s *HubServer) resolveRoom(sess *session.Session) (*room.Room, error) {
	code := sess.GetRoom()
	if code == "" {
		return nil, room.NewError(room.CodeRoomNotFound, "not in a room")
	}
	r, exists := s.registry.GetRoom(code)
	if !exists {
		return nil, room.NewError(room.CodeRoomNotFound, "unknown room "+code)
	}
	return r, nil
}

func (s *HubServer) sendSnapshot(sess *session.Session, r *room.Room) {
	data, err := json.Marshal(room.RoomUpdatedEvent{Room: r.Snapshot()})
	if err != nil {
		return
	}
	sess.Send(network.MsgTypeRoomState, data)
}

func (s *HubServer) sendError(sess *session.Session, err error) {
	var roomErr *room.Error
	if !errors.As(err, &roomErr) {
		roomErr = room.NewError(room.CodeInvalidPayload, err.Error())
	}
	data, marshalErr := json.Marshal(roomErr)
	if marshalErr != nil {
		return
	}
	sess.Send(network.MsgTypeError, data)
}

// persist saves the room snapshot best-effort. Failures are logged and
// never surfaced to clients.
func (s *HubServer) persist(r *room.Room) {
	if err := s.snapshots.Save(r); err != nil {
		logger.Log.Warnf("Failed to persist room %s: %v", r.Code(), err)
	}
}
