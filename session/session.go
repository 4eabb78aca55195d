// session/session.go
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/roomsync/network"
)

// Status is the connection lifecycle of a player within a room.
type Status int

const (
	StatusConnected Status = iota
	StatusDisconnected
	StatusRemoved
)

func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	case StatusRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

var ErrConnectionClosed = errors.New("connection closed")

// Session is one player's identity inside one room. It outlives the
// transport connection: while the player is disconnected conn is nil and
// everything else is kept.
type Session struct {
	ID       string
	Name     string
	Token    string
	RoomCode string
	JoinedAt time.Time

	mutex       sync.RWMutex
	conn        network.Connection
	status      Status
	host        bool
	ready       bool
	lastSeen    time.Time
	cancelGrace func() bool
}

// NewSession creates a connected session with a fresh player id and
// reconnection token.
func NewSession(roomCode, name string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:       uuid.NewString(),
		Name:     name,
		Token:    uuid.NewString(),
		RoomCode: roomCode,
		JoinedAt: now,
		conn:     conn,
		status:   StatusConnected,
		lastSeen: now,
	}
}

// Attach binds a new connection and marks the session connected. Any grace
// timer is cancelled. The previous connection, if any, is returned so the
// caller can close it.
func (s *Session) Attach(conn network.Connection) network.Connection {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	prev := s.conn
	s.conn = conn
	s.status = StatusConnected
	s.lastSeen = time.Now()
	s.stopGraceLocked()
	return prev
}

// Detach clears the connection if it is still conn. It reports false when
// the session has already moved on to another connection or was removed.
func (s *Session) Detach(conn network.Connection) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.status != StatusConnected || s.conn != conn {
		return false
	}
	s.conn = nil
	s.status = StatusDisconnected
	s.lastSeen = time.Now()
	return true
}

// Remove ends the session for good and returns the connection it still
// held, if any.
func (s *Session) Remove() network.Connection {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	prev := s.conn
	s.conn = nil
	s.status = StatusRemoved
	s.stopGraceLocked()
	return prev
}

// Send queues data on the session's connection.
func (s *Session) Send(data []byte) error {
	s.mutex.RLock()
	conn := s.conn
	s.mutex.RUnlock()

	if conn == nil {
		return ErrConnectionClosed
	}
	return conn.Send(data)
}

func (s *Session) Conn() network.Connection {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.conn
}

func (s *Session) Status() Status {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.status
}

func (s *Session) IsConnected() bool {
	return s.Status() == StatusConnected
}

func (s *Session) IsHost() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.host
}

func (s *Session) SetHost(host bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.host = host
}

func (s *Session) IsReady() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.ready
}

func (s *Session) SetReady(ready bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.ready = ready
}

// Touch records activity from the player.
func (s *Session) Touch() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastSeen = time.Now()
}

func (s *Session) LastSeen() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastSeen
}

// SetGrace stores the cancel func of the running grace timer, replacing
// (and cancelling) any earlier one.
func (s *Session) SetGrace(cancel func() bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stopGraceLocked()
	s.cancelGrace = cancel
}

// CancelGrace stops the grace timer if one is running.
func (s *Session) CancelGrace() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stopGraceLocked()
}

func (s *Session) stopGraceLocked() {
	if s.cancelGrace != nil {
		s.cancelGrace()
		s.cancelGrace = nil
	}
}

// View returns the public view of the session.
func (s *Session) View() network.PlayerView {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return network.PlayerView{
		ID:        s.ID,
		Name:      s.Name,
		Host:      s.host,
		Ready:     s.ready,
		Connected: s.status == StatusConnected,
	}
}
