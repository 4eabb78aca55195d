package broadcast

import (
	"errors"
	"iter"
	"net"
	"sync"
	"testing"

	"github.com/wfunc/roomsync/network"
	"github.com/wfunc/roomsync/session"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct {
	id    string
	fail  bool
	mutex sync.Mutex
	sent  [][]byte
}

func (m *MockConnection) ID() string { return m.id }
func (m *MockConnection) Send(data []byte) error {
	if m.fail {
		return network.ErrSendQueueFull
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sent = append(m.sent, data)
	return nil
}
func (m *MockConnection) Receive() iter.Seq[*network.Envelope] {
	return func(func(*network.Envelope) bool) {}
}
func (m *MockConnection) Err() error                  { return nil }
func (m *MockConnection) CloseWithNotice(data []byte) {}
func (m *MockConnection) Close() error                { return nil }
func (m *MockConnection) RemoteAddr() net.Addr        { return &net.TCPAddr{} }
func (m *MockConnection) Done() <-chan struct{}       { return nil }

func (m *MockConnection) frames() [][]byte {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([][]byte(nil), m.sent...)
}

type countingObserver struct {
	broadcasts int
	recipients int
	failures   int
}

func (o *countingObserver) ObserveBroadcast(n int) {
	o.broadcasts++
	o.recipients += n
}

func (o *countingObserver) IncSendFailures() { o.failures++ }

func TestSessionBroadcaster_Broadcast(t *testing.T) {
	obs := &countingObserver{}
	b := NewSessionBroadcaster(obs)

	okConn := &MockConnection{id: "ok"}
	badConn := &MockConnection{id: "bad", fail: true}
	goneConn := &MockConnection{id: "gone"}

	ok := session.NewSession("ABCD", "ok", okConn)
	bad := session.NewSession("ABCD", "bad", badConn)
	gone := session.NewSession("ABCD", "gone", goneConn)
	gone.Detach(goneConn)

	n := b.Broadcast([]*session.Session{ok, bad, gone}, &network.Envelope{Type: network.MsgTypePresence, Seq: 7})
	if n != 1 {
		t.Errorf("Expected 1 delivery, got %d", n)
	}
	frames := okConn.frames()
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(frames))
	}
	env, err := network.Decode(frames[0])
	if err != nil || env.Seq != 7 {
		t.Errorf("Unexpected frame %s (%v)", frames[0], err)
	}
	if len(goneConn.frames()) != 0 {
		t.Error("Disconnected sessions should be skipped")
	}
	if obs.broadcasts != 1 || obs.recipients != 1 || obs.failures != 1 {
		t.Errorf("Unexpected observer counts %+v", obs)
	}
}

func TestSessionBroadcaster_SendTo(t *testing.T) {
	b := NewSessionBroadcaster(nil)
	conn := &MockConnection{id: "c1"}
	s := session.NewSession("ABCD", "alice", conn)

	if err := b.SendTo(s, network.NewError(network.KindNotYourTurn, "")); err != nil {
		t.Fatalf("SendTo failed: %v", err)
	}
	if len(conn.frames()) != 1 {
		t.Error("Expected one frame")
	}

	s.Detach(conn)
	if err := b.SendTo(s, network.NewError(network.KindNotYourTurn, "")); !errors.Is(err, session.ErrConnectionClosed) {
		t.Errorf("Expected ErrConnectionClosed, got %v", err)
	}
}
