package session

import (
	"errors"
	"iter"
	"net"
	"sync"
	"testing"

	"github.com/wfunc/roomsync/network"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct {
	id    string
	mutex sync.Mutex
	sent  [][]byte
	done  chan struct{}
}

func newMockConnection(id string) *MockConnection {
	return &MockConnection{id: id, done: make(chan struct{})}
}

func (m *MockConnection) ID() string { return m.id }
func (m *MockConnection) Send(data []byte) error {
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
func (m *MockConnection) Done() <-chan struct{}       { return m.done }

func (m *MockConnection) count() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.sent)
}

func TestNewSession(t *testing.T) {
	sess := NewSession("ABCD", "alice", newMockConnection("c1"))

	if sess.ID == "" || sess.Token == "" {
		t.Fatal("NewSession should assign a player id and a token")
	}
	if sess.ID == sess.Token {
		t.Error("Player id and token should be independent")
	}
	if sess.Status() != StatusConnected {
		t.Errorf("Expected connected, got %s", sess.Status())
	}
	if sess.RoomCode != "ABCD" || sess.Name != "alice" {
		t.Errorf("Unexpected identity %s/%s", sess.RoomCode, sess.Name)
	}
}

func TestSession_DetachAndAttach(t *testing.T) {
	first := newMockConnection("c1")
	sess := NewSession("ABCD", "alice", first)
	id := sess.ID

	if !sess.Detach(first) {
		t.Fatal("Detach of the current connection should succeed")
	}
	if sess.Status() != StatusDisconnected {
		t.Errorf("Expected disconnected, got %s", sess.Status())
	}
	if sess.Conn() != nil {
		t.Error("Disconnected session should hold no connection")
	}
	if err := sess.Send([]byte("x")); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("Send while disconnected should fail with ErrConnectionClosed, got %v", err)
	}

	second := newMockConnection("c2")
	if prev := sess.Attach(second); prev != nil {
		t.Error("Attach after a disconnect should not return a previous connection")
	}
	if sess.Status() != StatusConnected || sess.ID != id {
		t.Error("Reattached session should be connected with the same id")
	}

	// A stale handler for the first connection must not clear the second.
	if sess.Detach(first) {
		t.Error("Detach with a stale connection should be ignored")
	}
	if sess.Conn() != second {
		t.Error("Stale detach replaced the live connection")
	}

	if err := sess.Send([]byte("x")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if second.count() != 1 {
		t.Errorf("Expected 1 frame on the new connection, got %d", second.count())
	}
}

func TestSession_GraceCancelledOnAttach(t *testing.T) {
	conn := newMockConnection("c1")
	sess := NewSession("ABCD", "alice", conn)
	sess.Detach(conn)

	cancelled := 0
	sess.SetGrace(func() bool { cancelled++; return true })
	sess.Attach(newMockConnection("c2"))

	if cancelled != 1 {
		t.Errorf("Expected grace timer to be cancelled once, got %d", cancelled)
	}

	// Nothing left to cancel.
	sess.CancelGrace()
	if cancelled != 1 {
		t.Errorf("CancelGrace should be a no-op after attach, got %d", cancelled)
	}
}

func TestSession_Remove(t *testing.T) {
	conn := newMockConnection("c1")
	sess := NewSession("ABCD", "alice", conn)

	if prev := sess.Remove(); prev != conn {
		t.Error("Remove should hand back the live connection")
	}
	if sess.Status() != StatusRemoved {
		t.Errorf("Expected removed, got %s", sess.Status())
	}
	if sess.Detach(conn) {
		t.Error("Removed session should ignore Detach")
	}
}

func TestSession_View(t *testing.T) {
	sess := NewSession("ABCD", "alice", newMockConnection("c1"))
	sess.SetHost(true)
	sess.SetReady(true)

	view := sess.View()
	if view.ID != sess.ID || view.Name != "alice" || !view.Host || !view.Ready || !view.Connected {
		t.Errorf("Unexpected view %+v", view)
	}
}
