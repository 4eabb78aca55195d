package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/wfunc/roomsync/broadcast"
	"github.com/wfunc/roomsync/config"
	"github.com/wfunc/roomsync/logger"
	"github.com/wfunc/roomsync/monitor"
	"github.com/wfunc/roomsync/network"
	"github.com/wfunc/roomsync/persistence"
	"github.com/wfunc/roomsync/room"
	roomsyncrpc "github.com/wfunc/roomsync/rpc"
	"github.com/wfunc/roomsync/services"
	"github.com/wfunc/roomsync/timer"
)

// GameServer owns the listener, every live connection and the room
// registry.
type GameServer struct {
	cfg         *config.Config
	upgrader    websocket.Upgrader
	connOpts    network.Options
	rooms       *room.Manager
	roomService *services.RoomService
	pool        *network.Pool
	monitor     *monitor.Monitor
	timers      *timer.Manager
	recorder    persistence.Recorder
	router      *gin.Engine
	rpcServer   *roomsyncrpc.Server

	shuttingDown atomic.Bool
}

// NewGameServer wires a server around eng. The recorder is closed on
// shutdown; pass persistence.NopRecorder{} to disable the audit log.
func NewGameServer(cfg *config.Config, eng room.Engine, recorder persistence.Recorder, mon *monitor.Monitor) *GameServer {
	s := &GameServer{
		cfg: cfg,
		connOpts: network.Options{
			HeartbeatInterval: cfg.Connection.HeartbeatInterval,
			MissedHeartbeats:  cfg.Connection.MissedHeartbeats,
			SendQueueSize:     cfg.Connection.SendQueueSize,
			WriteWait:         cfg.Connection.WriteWait,
			MaxMessageSize:    cfg.Connection.MaxMessageSize,
		},
		pool:     network.NewPool(),
		monitor:  mon,
		timers:   timer.NewManager(),
		recorder: recorder,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     checkOrigin(cfg.Server.AllowedOrigins),
	}

	s.rooms = room.NewRoomManager(
		room.NewOptions(cfg),
		eng,
		broadcast.NewSessionBroadcaster(mon),
		s.timers,
		room.WithRecorder(recorder),
	)
	s.roomService = services.NewRoomService(s.rooms)
	s.router = s.newRouter()
	return s
}

// checkOrigin allows every origin when allowed is empty, otherwise only the
// listed hosts or origins.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return slices.ContainsFunc(allowed, func(a string) bool {
			return strings.EqualFold(a, origin) || strings.EqualFold(a, u.Host)
		})
	}
}

// Handler returns the HTTP handler serving the websocket endpoint and the
// HTTP API.
func (s *GameServer) Handler() http.Handler {
	return s.router
}

func (s *GameServer) Rooms() *room.Manager {
	return s.rooms
}

// Run listens on the configured address and serves until ctx is done.
func (s *GameServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.HTTPAddress)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *GameServer) Serve(ctx context.Context, ln net.Listener) error {
	if s.cfg.Server.RPCAddress != "" {
		rpcServer, err := roomsyncrpc.NewServer(s.cfg.Server.RPCAddress, s.roomService)
		if err != nil {
			ln.Close()
			return err
		}
		s.rpcServer = rpcServer
		go rpcServer.Start()
	}

	httpServer := &http.Server{Handler: s.router}
	serveErr := make(chan error, 1)
	go func() {
		logger.Log.Infof("Game server listening on %s", ln.Addr())
		serveErr <- httpServer.Serve(ln)
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}
	s.shutdown(httpServer)
	return err
}

// shutdown stops accepting connections, sends every client a ServerShutdown
// notice, closes all sockets and rooms, then the admin RPC and the recorder.
func (s *GameServer) shutdown(httpServer *http.Server) {
	s.shuttingDown.Store(true)
	logger.Log.Infof("Shutting down, %d connections and %d rooms open", s.pool.Len(), s.rooms.Len())

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Log.Warnf("HTTP shutdown: %v", err)
	}

	notice, err := network.Encode(network.NewError(network.KindServerShutdown, "server is shutting down"))
	if err != nil {
		logger.Log.Errorf("encode shutdown notice: %v", err)
	}
	s.pool.CloseAll(ctx, notice)
	s.rooms.CloseAll("")

	if s.rpcServer != nil {
		s.rpcServer.Stop()
	}
	s.timers.Stop()
	if err := s.recorder.Close(); err != nil {
		logger.Log.Warnf("close recorder: %v", err)
	}
	logger.Log.Info("Shutdown complete.")
}
