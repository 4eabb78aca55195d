package rpc

import (
	"errors"
	"net"
	"net/rpc"

	"github.com/wfunc/roomsync/logger"
	"github.com/wfunc/roomsync/models"
	"github.com/wfunc/roomsync/services"
)

// Server manages the admin RPC listener.
type Server struct {
	listener net.Listener
	server   *rpc.Server
}

// NewServer listens on addr and registers the admin service as "Admin".
func NewServer(addr string, rooms *services.RoomService) (*Server, error) {
	server := rpc.NewServer()
	if err := server.RegisterName("Admin", NewAdminService(rooms)); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{listener: listener, server: server}, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start serves RPC connections until Stop is called.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.listener.Addr())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.server.ServeConn(conn)
	}
}

func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes room administration over net/rpc. Methods follow the
// net/rpc shape: exported args, pointer reply, error result.
type AdminService struct {
	rooms *services.RoomService
}

func NewAdminService(rooms *services.RoomService) *AdminService {
	return &AdminService{rooms: rooms}
}

// ListRoomsArgs limits the reply to the oldest Limit rooms; zero means all.
type ListRoomsArgs struct {
	Limit int
}

type ListRoomsReply struct {
	Rooms []models.RoomSummary
}

type RoomArgs struct {
	Code   string
	Reason string
}

type RoomDetailReply struct {
	Detail services.RoomDetail
}

type CloseRoomReply struct {
	Closed bool
}

func (a *AdminService) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	rooms := a.rooms.ListRooms()
	if args.Limit > 0 && len(rooms) > args.Limit {
		rooms = rooms[:args.Limit]
	}
	reply.Rooms = rooms
	return nil
}

func (a *AdminService) RoomDetail(args *RoomArgs, reply *RoomDetailReply) error {
	detail, err := a.rooms.RoomDetail(args.Code)
	if err != nil {
		return err
	}
	reply.Detail = detail
	return nil
}

func (a *AdminService) CloseRoom(args *RoomArgs, reply *CloseRoomReply) error {
	if err := a.rooms.CloseRoom(args.Code, args.Reason); err != nil {
		return err
	}
	logger.Log.Infof("room %s closed over admin RPC", args.Code)
	reply.Closed = true
	return nil
}
