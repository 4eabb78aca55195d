package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wfunc/roomsync/broadcast"
	"github.com/wfunc/roomsync/logger"
	"github.com/wfunc/roomsync/monitor"
	"github.com/wfunc/roomsync/network"
	"github.com/wfunc/roomsync/room"
	"github.com/wfunc/roomsync/session"
)

// client is the per-connection view of which room and session a socket is
// bound to. It is only touched by the connection's own receive loop.
type client struct {
	conn    network.Connection
	sess    *session.Session
	room    *room.Room
	monitor *monitor.Monitor
}

// refresh drops the binding once the session has been removed from its room
// or taken over by another connection.
func (c *client) refresh() {
	if c.sess == nil {
		return
	}
	if c.sess.Status() == session.StatusRemoved || c.sess.Conn() != c.conn || c.room.Closed() {
		c.bind(nil, nil)
	}
}

// bind keeps the connected players gauge in step with the binding.
func (c *client) bind(s *session.Session, r *room.Room) {
	switch {
	case c.sess == nil && s != nil:
		c.monitor.IncConnectedPlayers()
	case c.sess != nil && s == nil:
		c.monitor.DecConnectedPlayers()
	}
	c.sess, c.room = s, r
}

func (s *GameServer) handleWebSocket(ctx *gin.Context) {
	if s.shuttingDown.Load() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "server is shutting down"})
		return
	}
	ws, err := s.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		logger.Log.Warnf("Failed to upgrade connection: %v", err)
		return
	}
	conn := network.NewWSConnection(ws, s.connOpts)
	s.serveConnection(conn)
}

// serveConnection runs the receive loop of one connection until it ends.
func (s *GameServer) serveConnection(conn network.Connection) {
	s.pool.Add(conn)
	s.monitor.IncOnlineConnections()
	logger.Log.Infof("New connection %s from %s", conn.ID(), conn.RemoteAddr())

	c := &client{conn: conn, monitor: s.monitor}
	defer func() {
		c.refresh()
		if c.room != nil {
			c.room.Disconnect(c.sess, conn)
			c.bind(nil, nil)
		}
		if errors.Is(conn.Err(), network.ErrUnresponsive) {
			s.monitor.IncUnresponsive()
		}
		conn.Close()
		s.pool.Remove(conn.ID())
		s.monitor.DecOnlineConnections()
		s.monitor.SetActiveRooms(s.rooms.Len())
		logger.Log.Infof("Connection %s closed: %v", conn.ID(), conn.Err())
	}()

	if err := broadcast.SendToConn(conn, &network.Envelope{Type: network.MsgTypeWelcome}); err != nil {
		return
	}

	for env := range conn.Receive() {
		s.monitor.IncMessagesReceived(string(env.Type))
		c.refresh()
		if err := s.dispatch(c, env); err != nil {
			s.replyError(c, err)
		}
		s.monitor.SetActiveRooms(s.rooms.Len())
	}
}

// roomMessages are the client messages that act on the bound room.
var roomMessages = map[network.MsgType]bool{
	network.MsgTypeStartGame:    true,
	network.MsgTypeResetGame:    true,
	network.MsgTypePlayerAction: true,
	network.MsgTypeResync:       true,
	network.MsgTypeChat:         true,
	network.MsgTypeSetReady:     true,
}

// dispatch routes one inbound message. Panics are reported to the sender as
// internal errors and never take the connection down.
func (s *GameServer) dispatch(c *client, env *network.Envelope) (err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Log.Errorf("Panic handling %s from %s: %v", env.Type, c.conn.ID(), p)
			err = fmt.Errorf("%w: %v", room.ErrInternal, p)
		}
	}()

	switch env.Type {
	case network.MsgTypeCreateRoom:
		return s.handleCreateRoom(c, env)
	case network.MsgTypeJoinRoom:
		return s.handleJoinRoom(c, env)
	case network.MsgTypeRoomList:
		return broadcast.SendToConn(c.conn, &network.Envelope{
			Type:  network.MsgTypeRoomList,
			Rooms: s.roomService.RoomViews(),
		})
	case network.MsgTypeLeaveRoom:
		if c.room != nil {
			c.room.Leave(c.sess)
			c.bind(nil, nil)
		}
		return nil
	default:
		if !roomMessages[env.Type] {
			return fmt.Errorf("%w: unknown message type %q", room.ErrBadRequest, env.Type)
		}
	}

	if c.room == nil {
		return fmt.Errorf("%w: join a room first", room.ErrNotInRoom)
	}
	c.sess.Touch()

	switch env.Type {
	case network.MsgTypeStartGame:
		return c.room.Start(c.sess)
	case network.MsgTypeResetGame:
		return c.room.Reset(c.sess)
	case network.MsgTypePlayerAction:
		start := time.Now()
		err := c.room.Act(c.sess, env.Payload)
		s.monitor.ObserveActionLatency(time.Since(start))
		return err
	case network.MsgTypeResync:
		s.monitor.IncResyncs()
		return c.room.Resync(c.sess)
	case network.MsgTypeChat:
		return c.room.Chat(c.sess, env.Text)
	case network.MsgTypeSetReady:
		ready := env.Ready == nil || *env.Ready
		return c.room.SetReady(c.sess, ready)
	default:
		return fmt.Errorf("%w: unknown message type %q", room.ErrBadRequest, env.Type)
	}
}

func (s *GameServer) handleCreateRoom(c *client, env *network.Envelope) error {
	if c.room != nil {
		return fmt.Errorf("%w: %s", room.ErrAlreadyInRoom, c.room.Code)
	}
	if env.Name == "" {
		return fmt.Errorf("%w: name is required", room.ErrBadRequest)
	}
	r, err := s.rooms.CreateRoom(env.RoomName)
	if err != nil {
		return err
	}
	sess, err := r.Join(env.Name, "", c.conn)
	if err != nil {
		s.rooms.RemoveRoom(r.Code)
		return err
	}
	c.bind(sess, r)
	return nil
}

func (s *GameServer) handleJoinRoom(c *client, env *network.Envelope) error {
	if c.room != nil {
		return fmt.Errorf("%w: %s", room.ErrAlreadyInRoom, c.room.Code)
	}
	sess, r, err := s.rooms.JoinRoom(env.Code, env.Name, env.Token, c.conn)
	if err != nil {
		return err
	}
	c.bind(sess, r)
	return nil
}

// replyError sends err to the originator only, stamped with the current seq
// of its room.
func (s *GameServer) replyError(c *client, err error) {
	kind := room.KindOf(err)
	s.monitor.IncErrors(string(kind))
	if kind == network.KindInternalError {
		logger.Log.Errorf("Connection %s: %v", c.conn.ID(), err)
	} else {
		logger.Log.Debugf("Connection %s: %v", c.conn.ID(), err)
	}

	env := room.ErrorEnvelope(err)
	if c.room != nil {
		env.Code = c.room.Code
		env.Seq = c.room.Seq()
	}
	if sendErr := broadcast.SendToConn(c.conn, env); sendErr != nil {
		logger.Log.Debugf("Connection %s: error reply dropped: %v", c.conn.ID(), sendErr)
	}
}
