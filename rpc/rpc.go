package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/stationhub/logger"
	"github.com/wfunc/stationhub/room"
	"github.com/wfunc/stationhub/services"
)

// Server manages the admin RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes room inspection and recovery over net/rpc.
type AdminService struct {
	registry  *room.Registry
	snapshots *services.SnapshotService
}

func NewAdminService(registry *room.Registry, snapshots *services.SnapshotService) *AdminService {
	return &AdminService{registry: registry, snapshots: snapshots}
}

type ListRoomsArgs struct{}

type ListRoomsReply struct {
	Codes []string
}

func (a *AdminService) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	reply.Codes = a.registry.Codes()
	return nil
}

type RoomArgs struct {
	Code string
}

type RoomInfoReply struct {
	Room room.Snapshot
}

func (a *AdminService) RoomInfo(args *RoomArgs, reply *RoomInfoReply) error {
	r, exists := a.registry.GetRoom(args.Code)
	if !exists {
		return room.NewError(room.CodeRoomNotFound, "unknown room "+args.Code)
	}
	reply.Room = r.Snapshot()
	return nil
}

type DeleteRoomArgs struct {
	Code  string
	Force bool
}

type DeleteRoomReply struct{}

func (a *AdminService) DeleteRoom(args *DeleteRoomArgs, reply *DeleteRoomReply) error {
	if err := a.registry.DeleteRoom(args.Code, args.Force); err != nil {
		return err
	}
	if err := a.snapshots.Delete(args.Code); err != nil {
		logger.Log.Warnf("Failed to delete snapshot for room %s: %v", args.Code, err)
	}
	return nil
}

// RestoreRoom rebuilds a room from its persisted snapshot, typically after
// a process restart. The restored room has no controller until one joins.
func (a *AdminService) RestoreRoom(args *RoomArgs, reply *RoomInfoReply) error {
	r, err := a.snapshots.Restore(a.registry, args.Code)
	if err != nil {
		return err
	}
	reply.Room = r.Snapshot()
	logger.Log.Infof("Restored room %s from snapshot", args.Code)
	return nil
}
