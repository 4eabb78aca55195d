// network/connection.go
package network

import (
	"errors"
	"fmt"
	"iter"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendQueueFull    = errors.New("send queue full")
	ErrUnresponsive     = errors.New("connection unresponsive")
)

// Connection is one live transport connection to a client.
type Connection interface {
	ID() string
	// Send queues one encoded frame without blocking.
	Send(data []byte) error
	// Receive yields decoded inbound messages until the transport closes,
	// the peer stops answering heartbeats, or a frame cannot be decoded.
	// Only one Receive may run at a time.
	Receive() iter.Seq[*Envelope]
	// Err reports why the connection ended, nil while it is open.
	Err() error
	// CloseWithNotice flushes queued frames, writes data and closes.
	CloseWithNotice(data []byte)
	Close() error
	RemoteAddr() net.Addr
	Done() <-chan struct{}
}

type Options struct {
	HeartbeatInterval time.Duration
	MissedHeartbeats  int
	SendQueueSize     int
	WriteWait         time.Duration
	MaxMessageSize    int64
}

func DefaultOptions() Options {
	return Options{
		HeartbeatInterval: 5 * time.Second,
		MissedHeartbeats:  3,
		SendQueueSize:     64,
		WriteWait:         10 * time.Second,
		MaxMessageSize:    64 * 1024,
	}
}

type WSConnection struct {
	id     string
	conn   *websocket.Conn
	opts   Options
	send   chan []byte
	notice chan []byte
	done   chan struct{}

	// seen is set by every inbound frame and cleared by every heartbeat tick.
	seen atomic.Bool

	mutex     sync.Mutex
	closed    bool
	err       error
	closeOnce sync.Once
}

// NewWSConnection wraps an upgraded websocket and starts its writer, which
// also drives the heartbeat.
func NewWSConnection(conn *websocket.Conn, opts Options) *WSConnection {
	c := &WSConnection{
		id:     uuid.NewString(),
		conn:   conn,
		opts:   opts,
		send:   make(chan []byte, opts.SendQueueSize),
		notice: make(chan []byte, 1),
		done:   make(chan struct{}),
	}
	c.seen.Store(true)
	if opts.MaxMessageSize > 0 {
		conn.SetReadLimit(opts.MaxMessageSize)
	}
	conn.SetPongHandler(func(string) error {
		c.seen.Store(true)
		return nil
	})
	go c.writePump()
	return c
}

func (c *WSConnection) ID() string {
	return c.id
}

func (c *WSConnection) Send(data []byte) error {
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		return ErrConnectionClosed
	}
	select {
	case c.send <- data:
		c.mutex.Unlock()
		return nil
	default:
	}
	c.mutex.Unlock()

	// A peer that cannot keep up is dropped rather than allowed to stall
	// whoever is sending.
	c.fail(ErrSendQueueFull)
	return ErrSendQueueFull
}

func (c *WSConnection) Receive() iter.Seq[*Envelope] {
	return func(yield func(*Envelope) bool) {
		for {
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				c.fail(classifyReadError(err))
				return
			}
			c.seen.Store(true)

			env, err := Decode(data)
			if err != nil {
				c.fail(err)
				return
			}
			if env.Type == MsgTypeHeartbeat {
				continue
			}
			if !yield(env) {
				return
			}
		}
	}
}

func classifyReadError(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return ErrConnectionClosed
	}
	return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
}

func (c *WSConnection) Err() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.err
}

func (c *WSConnection) CloseWithNotice(data []byte) {
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		return
	}
	c.closed = true
	c.err = ErrConnectionClosed
	c.mutex.Unlock()

	c.notice <- data
}

func (c *WSConnection) Close() error {
	c.fail(ErrConnectionClosed)
	return nil
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *WSConnection) Done() <-chan struct{} {
	return c.done
}

// fail closes the transport immediately, keeping the first recorded reason.
func (c *WSConnection) fail(err error) {
	c.mutex.Lock()
	c.closed = true
	if c.err == nil {
		c.err = err
	}
	c.mutex.Unlock()
	c.finish()
}

func (c *WSConnection) finish() {
	c.closeOnce.Do(func() {
		c.conn.Close()
		close(c.done)
	})
}

func (c *WSConnection) write(messageType int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
	return c.conn.WriteMessage(messageType, data)
}

func (c *WSConnection) writePump() {
	ticker := time.NewTicker(c.opts.HeartbeatInterval)
	defer ticker.Stop()

	heartbeat, _ := Encode(&Envelope{Type: MsgTypeHeartbeat})
	missed := 0

	for {
		select {
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				c.fail(fmt.Errorf("%w: %v", ErrConnectionClosed, err))
				return
			}

		case data := <-c.notice:
			for n := len(c.send); n > 0; n-- {
				if err := c.write(websocket.TextMessage, <-c.send); err != nil {
					c.finish()
					return
				}
			}
			if data != nil {
				_ = c.write(websocket.TextMessage, data)
			}
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			c.finish()
			return

		case <-ticker.C:
			if c.seen.Swap(false) {
				missed = 0
			} else {
				missed++
				if missed >= c.opts.MissedHeartbeats {
					c.fail(ErrUnresponsive)
					return
				}
			}
			if err := c.write(websocket.TextMessage, heartbeat); err != nil {
				c.fail(fmt.Errorf("%w: %v", ErrConnectionClosed, err))
				return
			}

		case <-c.done:
			return
		}
	}
}
